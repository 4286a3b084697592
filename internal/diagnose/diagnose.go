// Package diagnose classifies deployment failures from log text and
// project metadata. The heuristic stage is the guaranteed floor: it needs
// no network and always produces a result.
package diagnose

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/dipole-sh/dipole/internal/analyzer"
)

// Failure categories. Closed set; the advisory stage may only pick one of
// these.
const (
	CategoryMissingDependency = "missing_dependency"
	CategoryMissingScript     = "missing_script"
	CategoryConfigError       = "config_error"
	CategoryRateLimit         = "rate_limit"
	CategoryUnknown           = "unknown"
)

// ValidCategory reports whether s is a known category.
func ValidCategory(s string) bool {
	switch s {
	case CategoryMissingDependency, CategoryMissingScript, CategoryConfigError, CategoryRateLimit, CategoryUnknown:
		return true
	}
	return false
}

// Actions are concrete next steps grouped by kind.
type Actions struct {
	Patches  []string `json:"patches,omitempty"`
	Commands []string `json:"commands,omitempty"`
	Configs  []string `json:"configs,omitempty"`
}

// Result is the outcome of a diagnosis.
type Result struct {
	Summary    string   `json:"summary"`
	Category   string   `json:"category"`
	RootCauses []string `json:"rootCauses,omitempty"`
	Actions    Actions  `json:"actions"`
	Confidence float64  `json:"confidence"`
	Notes      []string `json:"notes,omitempty"`
}

type finding struct {
	category  string
	rootCause string
	actions   Actions
}

var (
	nodeModuleRe    = regexp.MustCompile(`(?i)cannot find module\s*["']([^"']+)["']`)
	pyModuleRe      = regexp.MustCompile(`ModuleNotFoundError: No module named '([A-Za-z0-9_.]+)'`)
	missingScriptRe = regexp.MustCompile(`(?i)missing script:?\s*"?([A-Za-z0-9:_-]+)?`)
	envVarRe        = regexp.MustCompile(`(?i:(?:missing |undefined )?environment variable)["'\s:]+([A-Z][A-Z0-9_]{2,})`)
	cliMissingRe    = regexp.MustCompile(`(?i)(netlify|vercel)(?:-cli)?[:\s].{0,20}(?:not found|not recognized)|command not found[:\s]+['"]?(netlify|vercel)`)
	status429Re     = regexp.MustCompile(`\b429\b`)
)

// Heuristics pattern-matches known failure signatures. Pure function of
// its inputs; meta may be nil when only a log file is available.
func Heuristics(logText string, meta *analyzer.ProjectMeta) Result {
	findings := logFindings(logText)
	findings = append(findings, metaFindings(meta)...)

	res := Result{Category: CategoryUnknown, Confidence: 0.3}

	if meta != nil && meta.UsesEnvFile {
		res.Notes = append(res.Notes, "project uses a .env file; make sure required variables are configured on the provider")
	}

	if len(findings) == 0 {
		res.Summary = "no known failure signature found in the log"
		return res
	}

	res.Category = findings[0].category
	for _, f := range findings {
		res.RootCauses = append(res.RootCauses, f.rootCause)
		res.Actions.Patches = append(res.Actions.Patches, f.actions.Patches...)
		res.Actions.Commands = append(res.Actions.Commands, f.actions.Commands...)
		res.Actions.Configs = append(res.Actions.Configs, f.actions.Configs...)
	}

	if len(findings) >= 2 {
		res.Confidence = 0.7
	} else {
		res.Confidence = 0.5
	}

	res.Summary = fmt.Sprintf("%s: %s", res.Category, findings[0].rootCause)
	return res
}

func logFindings(logText string) []finding {
	var out []finding
	lower := strings.ToLower(logText)

	nodeMissing := strings.Contains(lower, "err_module_not_found") ||
		strings.Contains(lower, "module_not_found") ||
		strings.Contains(lower, "cannot find module")
	if nodeMissing {
		var name string
		if m := nodeModuleRe.FindStringSubmatch(logText); m != nil {
			name = m[1]
		}
		cause := "a required module cannot be resolved"
		install := "npm install"
		if name != "" {
			cause = fmt.Sprintf("module %q cannot be resolved", name)
			if !strings.HasPrefix(name, ".") && !strings.HasPrefix(name, "/") {
				install = "npm install " + name
			}
		}
		out = append(out, finding{
			category:  CategoryMissingDependency,
			rootCause: cause,
			actions:   Actions{Commands: []string{install}},
		})
	} else if m := pyModuleRe.FindStringSubmatch(logText); m != nil {
		out = append(out, finding{
			category:  CategoryMissingDependency,
			rootCause: fmt.Sprintf("python module %q is not installed", m[1]),
			actions:   Actions{Commands: []string{"pip install " + m[1]}},
		})
	}

	if m := missingScriptRe.FindStringSubmatch(logText); m != nil && strings.Contains(lower, "missing script") {
		name := m[1]
		if name == "" {
			name = "build"
		}
		out = append(out, finding{
			category:  CategoryMissingScript,
			rootCause: fmt.Sprintf("package.json has no %q script", name),
			actions:   Actions{Patches: []string{fmt.Sprintf("add a %q script to package.json", name)}},
		})
	}

	if strings.Contains(lower, "rate limit") || strings.Contains(lower, "too many requests") || status429Re.MatchString(logText) {
		out = append(out, finding{
			category:  CategoryRateLimit,
			rootCause: "the provider rejected the request due to rate limiting",
			actions:   Actions{Commands: []string{"wait a few minutes and retry the deploy"}},
		})
	}

	if m := envVarRe.FindStringSubmatch(logText); m != nil {
		out = append(out, finding{
			category:  CategoryConfigError,
			rootCause: fmt.Sprintf("environment variable %s appears to be missing", m[1]),
			actions:   Actions{Configs: []string{fmt.Sprintf("set %s in the provider's environment settings", m[1])}},
		})
	}

	if m := cliMissingRe.FindStringSubmatch(logText); m != nil {
		tool := m[1]
		if tool == "" {
			tool = m[2]
		}
		tool = strings.ToLower(tool)
		install := "npm install -g " + tool
		if tool == "netlify" {
			install = "npm install -g netlify-cli"
		}
		out = append(out, finding{
			category:  CategoryConfigError,
			rootCause: fmt.Sprintf("the %s CLI is not installed", tool),
			actions:   Actions{Commands: []string{install}},
		})
	}

	// Generic build failure only counts when nothing specific matched the
	// same text; it would otherwise double-count every failure.
	if len(out) == 0 && (strings.Contains(lower, "npm err!") || strings.Contains(lower, "build failed") || strings.Contains(lower, "command failed with exit code")) {
		out = append(out, finding{
			category:  CategoryConfigError,
			rootCause: "the build command failed; inspect the log tail for the first error",
			actions:   Actions{Commands: []string{"run the build locally to reproduce the failure"}},
		})
	}

	return out
}

func metaFindings(meta *analyzer.ProjectMeta) []finding {
	if meta == nil {
		return nil
	}
	var out []finding

	buildable := meta.Type == analyzer.TypeCRA || meta.Type == analyzer.TypeViteReact || meta.Type == analyzer.TypeNext
	if buildable && meta.BuildCommand == "" {
		out = append(out, finding{
			category:  CategoryMissingScript,
			rootCause: fmt.Sprintf("%s project has no known build command", meta.Type),
			actions:   Actions{Patches: []string{`add a "build" script to package.json`}},
		})
	}

	server := meta.Type == analyzer.TypeExpress || meta.Type == analyzer.TypeFlask
	if server && !meta.HasDockerfile && !meta.HasProcfile {
		out = append(out, finding{
			category:  CategoryConfigError,
			rootCause: "server project declares neither a Dockerfile nor a Procfile",
			actions:   Actions{Patches: []string{"add a Dockerfile or Procfile so the provider knows how to run the app"}},
		})
	}

	return out
}
