// Package rules maps project metadata to a deployment decision. Pure and
// deterministic: no I/O, no ambient state, first matching rule wins.
package rules

import (
	"github.com/dipole-sh/dipole/internal/analyzer"
)

// Providers and methods form a closed set. Adding a provider means a new
// constant and a new adapter variant, not a new string scattered around.
const (
	ProviderNetlify = "netlify"
	ProviderVercel  = "vercel"

	MethodCLI = "cli"
	MethodAPI = "api"
)

// DefaultRationale marks the fallback rule. The advisory refiner removes
// it when a suggestion actually changes the provider or method.
const DefaultRationale = "no specific rule matched; defaulting to static hosting on netlify"

const largeStaticBytes = 10 * 1024 * 1024

// Decision is the chosen provider and method with its supporting
// rationale. Built here, optionally refined by the advisor, then
// immutable.
type Decision struct {
	Provider     string        `json:"provider"`
	Method       string        `json:"method"`
	Confidence   float64       `json:"confidence"`
	Rationale    []string      `json:"rationale"`
	EnvNeeded    []string      `json:"envNeeded,omitempty"`
	Risks        []string      `json:"risks,omitempty"`
	Alternatives []Alternative `json:"alternatives,omitempty"`
}

// Alternative is a fallback candidate with the condition under which it
// would be the better choice.
type Alternative struct {
	Provider string `json:"provider"`
	Method   string `json:"method"`
	When     string `json:"when"`
}

// Overrides are explicit operator choices. They replace the table's
// provider/method unconditionally, after rationale computation, so the
// rationale stays explainable even when overridden.
type Overrides struct {
	Provider string
	Method   string
}

// Tokens reports which provider credentials are configured. Computed once
// from config; absence adds a risk note but never blocks the decision.
type Tokens struct {
	Netlify bool
	Vercel  bool
}

// Decide applies the policy table to meta. First matching rule wins.
func Decide(meta *analyzer.ProjectMeta, ov Overrides, tokens Tokens) Decision {
	d := decideTable(meta)

	if ov.Provider != "" {
		if ov.Provider != d.Provider {
			d.Rationale = append(d.Rationale, "provider overridden by operator to "+ov.Provider)
		}
		d.Provider = ov.Provider
	}
	if ov.Method != "" {
		if ov.Method != d.Method {
			d.Rationale = append(d.Rationale, "method overridden by operator to "+ov.Method)
		}
		d.Method = ov.Method
	}

	switch d.Provider {
	case ProviderNetlify:
		d.EnvNeeded = []string{"NETLIFY_AUTH_TOKEN"}
		if !tokens.Netlify {
			d.Risks = append(d.Risks, "NETLIFY_AUTH_TOKEN is not configured; the deploy may require interactive login or fail")
		}
	case ProviderVercel:
		d.EnvNeeded = []string{"VERCEL_TOKEN"}
		if !tokens.Vercel {
			d.Risks = append(d.Risks, "VERCEL_TOKEN is not configured; the deploy may require interactive login or fail")
		}
	}

	return d
}

func decideTable(meta *analyzer.ProjectMeta) Decision {
	switch {
	case meta.Type == analyzer.TypeNext && meta.BuildOutputDir == "out":
		return Decision{
			Provider:   ProviderNetlify,
			Method:     MethodCLI,
			Confidence: 0.85,
			Rationale:  []string{"next.js static export fits static hosting"},
			Alternatives: []Alternative{
				{Provider: ProviderVercel, Method: MethodCLI, When: "if server-side rendering is reintroduced"},
			},
		}

	case meta.Type == analyzer.TypeNext:
		return Decision{
			Provider:   ProviderVercel,
			Method:     MethodCLI,
			Confidence: 0.9,
			Rationale:  []string{"next.js server build needs a compatible runtime"},
			Alternatives: []Alternative{
				{Provider: ProviderNetlify, Method: MethodCLI, When: "if the site is statically exported"},
			},
		}

	case isStaticBuild(meta.Type) && meta.ProjectSizeBytes < largeStaticBytes:
		return Decision{
			Provider:   ProviderNetlify,
			Method:     MethodCLI,
			Confidence: 0.9,
			Rationale:  []string{"small static build, fast path"},
			Alternatives: []Alternative{
				{Provider: ProviderVercel, Method: MethodCLI, When: "if netlify is unavailable"},
			},
		}

	case isStaticBuild(meta.Type):
		return Decision{
			Provider:   ProviderNetlify,
			Method:     MethodCLI,
			Confidence: 0.75,
			Rationale:  []string{"large build; the CLI avoids a naive file-by-file upload"},
			Risks:      []string{"build output exceeds 10MB; upload may be slow"},
			Alternatives: []Alternative{
				{Provider: ProviderVercel, Method: MethodCLI, When: "if netlify is unavailable"},
			},
		}

	case meta.Type == analyzer.TypeExpress || meta.Type == analyzer.TypeFlask:
		return Decision{
			Provider:   ProviderVercel,
			Method:     MethodCLI,
			Confidence: 0.6,
			Rationale:  []string{"server project; static-hosting flow cannot provision a server runtime"},
			Risks:      []string{"server runtimes may need extra provider configuration (serverless entrypoint or container)"},
			Alternatives: []Alternative{
				{Provider: ProviderNetlify, Method: MethodCLI, When: "if the app can be rebuilt as functions plus static assets"},
			},
		}

	default:
		return Decision{
			Provider:   ProviderNetlify,
			Method:     MethodCLI,
			Confidence: 0.5,
			Rationale:  []string{DefaultRationale},
			Alternatives: []Alternative{
				{Provider: ProviderVercel, Method: MethodCLI, When: "if netlify is unavailable"},
			},
		}
	}
}

func isStaticBuild(typ string) bool {
	return typ == analyzer.TypeViteReact || typ == analyzer.TypeCRA || typ == analyzer.TypeStatic
}
