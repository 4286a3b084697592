// Package redact strips credential-shaped substrings from free-form text
// and builds the bounded context bundle sent to the advisory service.
package redact

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"regexp"
	"strings"
)

const (
	// Placeholder replaces every credential-shaped match.
	Placeholder = "[REDACTED]"

	// DefaultTailBytes bounds the log tail kept for diagnosis. Failures
	// surface at the end of a log, so the tail is what matters.
	DefaultTailBytes = 16 * 1024
)

// KEY=value / KEY: value style assignments for credential-ish names.
var assignPattern = regexp.MustCompile(`(?i)\b([A-Z0-9_]*(?:TOKEN|SECRET|AUTH|PASSWORD|API_?KEY)[A-Z0-9_]*)\s*[=:]\s*\S+`)

var valuePatterns = []*regexp.Regexp{
	// Well-known API key prefixes.
	regexp.MustCompile(`\b(?:sk|pk)-[A-Za-z0-9_-]{16,}\b`),
	regexp.MustCompile(`\bnfp_[A-Za-z0-9]{20,}\b`),
	regexp.MustCompile(`\bgh[pousr]_[A-Za-z0-9]{20,}\b`),
	regexp.MustCompile(`(?i)\bbearer\s+[A-Za-z0-9._~+/-]{16,}=*`),
	// Long colon-delimited credential pairs (user:token style).
	regexp.MustCompile(`\b[A-Za-z0-9._-]{8,}:[A-Za-z0-9._-]{24,}\b`),
}

// Redact replaces credential-shaped substrings with the placeholder.
// Value-shaped patterns run first so "Authorization: Bearer <tok>" does
// not leave the token behind after the assignment match consumes the
// "Bearer" word. Assignment matches keep the key name so logs stay
// readable.
func Redact(s string) string {
	if s == "" {
		return s
	}
	out := s
	for _, re := range valuePatterns {
		out = re.ReplaceAllString(out, Placeholder)
	}
	return assignPattern.ReplaceAllString(out, "$1="+Placeholder)
}

// Tail keeps at most max bytes from the end of s, aligned to a line start
// so the first kept line is never a fragment.
func Tail(s string, max int) string {
	if max <= 0 {
		max = DefaultTailBytes
	}
	if len(s) <= max {
		return s
	}
	cut := s[len(s)-max:]
	if idx := strings.IndexByte(cut, '\n'); idx >= 0 && idx+1 < len(cut) {
		cut = cut[idx+1:]
	}
	return cut
}

// HashText returns a deterministic short content hash. Used for audit
// correlation, not secrecy.
func HashText(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:16]
}

// HashJSON hashes the canonical JSON encoding of v. encoding/json sorts
// map keys and struct fields have a fixed order, so identical values
// always produce the identical hash.
func HashJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return HashText(string(data))
}

// ContextPack is the bounded, secret-free bundle handed to the advisory
// service. Built fresh per diagnosis.
type ContextPack struct {
	Meta        map[string]any `json:"meta"`
	RedactedLog string         `json:"redactedLog"`
	LogHash     string         `json:"logHash"`
	MetaHash    string         `json:"metaHash"`
	Hints       []string       `json:"hints,omitempty"`
}

// NewContextPack redacts and bounds the log, hashes both inputs and
// attaches the hints. meta should already be the subset safe to share.
func NewContextPack(meta map[string]any, logText string, hints []string) ContextPack {
	redacted := Redact(Tail(logText, DefaultTailBytes))
	return ContextPack{
		Meta:        meta,
		RedactedLog: redacted,
		LogHash:     HashText(redacted),
		MetaHash:    HashJSON(meta),
		Hints:       hints,
	}
}
