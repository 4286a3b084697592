package advisor

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dipole-sh/dipole/internal/analyzer"
	"github.com/dipole-sh/dipole/internal/diagnose"
	"github.com/dipole-sh/dipole/internal/redact"
	"github.com/dipole-sh/dipole/internal/rules"
)

// decisionSuggestion is the only shape accepted from the model for a
// decision refinement. Pointer fields distinguish "absent" from zero;
// anything invalid is dropped, never coerced.
type decisionSuggestion struct {
	Provider        *string             `json:"provider"`
	Method          *string             `json:"method"`
	Confidence      *float64            `json:"confidence"`
	AddRationales   []string            `json:"addRationales"`
	AddRisks        []string            `json:"addRisks"`
	AddAlternatives []rules.Alternative `json:"addAlternatives"`
}

// diagnosisSuggestion mirrors the diagnose.Result fields the model may
// override.
type diagnosisSuggestion struct {
	Summary    *string           `json:"summary"`
	Category   *string           `json:"category"`
	RootCauses []string          `json:"rootCauses"`
	Actions    *diagnose.Actions `json:"actions"`
	Confidence *float64          `json:"confidence"`
	Notes      []string          `json:"notes"`
}

// RefineDecision asks the advisory model to adjust dec. Nil client, any
// transport failure or a malformed response all return dec unchanged;
// this path is never fatal.
func RefineDecision(ctx context.Context, c *Client, meta *analyzer.ProjectMeta, dec rules.Decision, timeout time.Duration) rules.Decision {
	if c == nil {
		return dec
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	prompt := buildDecisionPrompt(meta, dec)
	raw, err := c.AskPrompt(ctx, prompt)
	if err != nil {
		c.debugf("decision refinement unavailable: %v", err)
		return dec
	}

	var sug decisionSuggestion
	cleaned := CleanJSONResponse(raw)
	if cleaned == "" || json.Unmarshal([]byte(cleaned), &sug) != nil {
		c.debugf("decision refinement returned an unusable shape")
		return dec
	}

	return mergeDecision(dec, sug)
}

// mergeDecision applies a suggestion additively: scalar fields replace
// only when present and valid, list fields concatenate. Unrelated fields
// are never touched.
func mergeDecision(dec rules.Decision, sug decisionSuggestion) rules.Decision {
	out := dec
	changed := false

	if sug.Provider != nil {
		switch *sug.Provider {
		case rules.ProviderNetlify, rules.ProviderVercel:
			if out.Provider != *sug.Provider {
				changed = true
			}
			out.Provider = *sug.Provider
		}
	}
	if sug.Method != nil {
		switch *sug.Method {
		case rules.MethodCLI, rules.MethodAPI:
			if out.Method != *sug.Method {
				changed = true
			}
			out.Method = *sug.Method
		}
	}
	if sug.Confidence != nil && *sug.Confidence >= 0 && *sug.Confidence <= 1 {
		out.Confidence = *sug.Confidence
	}

	out.Rationale = appendCopy(dec.Rationale, sug.AddRationales)
	out.Risks = appendCopy(dec.Risks, sug.AddRisks)
	for _, alt := range sug.AddAlternatives {
		if (alt.Provider == rules.ProviderNetlify || alt.Provider == rules.ProviderVercel) &&
			(alt.Method == rules.MethodCLI || alt.Method == rules.MethodAPI) {
			out.Alternatives = append(out.Alternatives, alt)
		}
	}

	// The default-fallback rationale is stale once the choice moved away
	// from it.
	if changed {
		kept := out.Rationale[:0:0]
		for _, r := range out.Rationale {
			if r != rules.DefaultRationale {
				kept = append(kept, r)
			}
		}
		out.Rationale = kept
	}

	return out
}

// RefineDiagnosis runs the optional advisory stage over a heuristic
// result, with the same reliability contract as RefineDecision.
func RefineDiagnosis(ctx context.Context, c *Client, pack redact.ContextPack, res diagnose.Result, timeout time.Duration) diagnose.Result {
	if c == nil {
		return res
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	prompt := buildDiagnosisPrompt(pack, res)
	raw, err := c.AskPrompt(ctx, prompt)
	if err != nil {
		c.debugf("diagnosis refinement unavailable: %v", err)
		return res
	}

	var sug diagnosisSuggestion
	cleaned := CleanJSONResponse(raw)
	if cleaned == "" || json.Unmarshal([]byte(cleaned), &sug) != nil {
		c.debugf("diagnosis refinement returned an unusable shape")
		return res
	}

	out := res
	if sug.Summary != nil && strings.TrimSpace(*sug.Summary) != "" {
		out.Summary = strings.TrimSpace(*sug.Summary)
	}
	if sug.Category != nil && diagnose.ValidCategory(*sug.Category) {
		out.Category = *sug.Category
	}
	if len(sug.RootCauses) > 0 {
		out.RootCauses = sug.RootCauses
	}
	if sug.Actions != nil {
		out.Actions = *sug.Actions
	}
	if sug.Confidence != nil && *sug.Confidence >= 0 && *sug.Confidence <= 1 {
		out.Confidence = *sug.Confidence
	}
	if len(sug.Notes) > 0 {
		out.Notes = appendCopy(res.Notes, sug.Notes)
	}
	return out
}

func buildDecisionPrompt(meta *analyzer.ProjectMeta, dec rules.Decision) string {
	metaJSON, _ := json.MarshalIndent(meta, "", "  ")
	decJSON, _ := json.MarshalIndent(dec, "", "  ")

	var sb strings.Builder
	sb.WriteString("You review deployment decisions for web projects.\n")
	sb.WriteString("Project metadata:\n")
	sb.Write([]byte(redact.Redact(string(metaJSON))))
	sb.WriteString("\n\nCurrent decision:\n")
	sb.Write(decJSON)
	sb.WriteString("\n\nIf the decision can be improved, respond with ONLY a JSON object of this shape:\n")
	sb.WriteString(`{"provider":"vercel|netlify","method":"cli|api","confidence":0.0,"addRationales":[],"addRisks":[],"addAlternatives":[{"provider":"","method":"","when":""}]}`)
	sb.WriteString("\nOmit any field you do not want to change. Respond with {} if the decision is already right.")
	return sb.String()
}

func buildDiagnosisPrompt(pack redact.ContextPack, res diagnose.Result) string {
	packJSON, _ := json.MarshalIndent(pack, "", "  ")
	resJSON, _ := json.MarshalIndent(res, "", "  ")

	var sb strings.Builder
	sb.WriteString("You diagnose failed web deployments from redacted logs.\n")
	sb.WriteString("Context:\n")
	sb.Write(packJSON)
	sb.WriteString("\n\nHeuristic result so far:\n")
	sb.Write(resJSON)
	sb.WriteString("\n\nRespond with ONLY a JSON object of this shape:\n")
	sb.WriteString(`{"summary":"","category":"missing_dependency|missing_script|config_error|rate_limit|unknown","rootCauses":[],"actions":{"patches":[],"commands":[],"configs":[]},"confidence":0.0,"notes":[]}`)
	sb.WriteString("\nOmit any field you do not want to change.")
	return sb.String()
}

func (c *Client) debugf(format string, args ...any) {
	if c != nil && c.debug {
		fmt.Fprintf(os.Stderr, "[advisor] "+format+"\n", args...)
	}
}

func appendCopy(base, extra []string) []string {
	if len(extra) == 0 {
		return base
	}
	out := make([]string, 0, len(base)+len(extra))
	out = append(out, base...)
	out = append(out, extra...)
	return out
}
