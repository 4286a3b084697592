// Package plan turns a decision into the ordered, descriptive sequence of
// steps a deploy implies. The plan never executes anything itself.
package plan

import (
	"fmt"

	"github.com/dipole-sh/dipole/internal/analyzer"
	"github.com/dipole-sh/dipole/internal/rules"
)

type Step struct {
	ID     string `json:"id"`
	Run    string `json:"run,omitempty"`
	Cwd    string `json:"cwd,omitempty"`
	SkipIf string `json:"skipIf,omitempty"`
}

type Verification struct {
	ID     string `json:"id"`
	Type   string `json:"type"`
	Expect string `json:"expect"`
}

type Artifacts struct {
	OutputDir string `json:"outputDir"`
}

type Plan struct {
	Steps         []Step         `json:"steps"`
	Artifacts     Artifacts      `json:"artifacts"`
	Verifications []Verification `json:"verifications"`
}

// Build derives the plan for a decision. Deterministic: one conditional
// build step, exactly one deploy step templated by the provider, and an
// HTTP check on the resulting URL.
func Build(dec rules.Decision, meta *analyzer.ProjectMeta, projectPath string) Plan {
	outputDir := meta.BuildOutputDir
	if outputDir == "" {
		outputDir = "."
	}

	var steps []Step
	if meta.BuildCommand != "" {
		steps = append(steps, Step{
			ID:     "build",
			Run:    meta.BuildCommand,
			Cwd:    projectPath,
			SkipIf: "output directory already up to date",
		})
	}

	steps = append(steps, Step{
		ID:  "deploy",
		Run: deployCommand(dec, outputDir),
		Cwd: projectPath,
	})

	return Plan{
		Steps:     steps,
		Artifacts: Artifacts{OutputDir: outputDir},
		Verifications: []Verification{
			{ID: "http-2xx", Type: "http", Expect: "2xx status on the deployment URL"},
		},
	}
}

func deployCommand(dec rules.Decision, outputDir string) string {
	switch dec.Provider {
	case rules.ProviderVercel:
		// The vercel adapter serves api deploys through the CLI as well.
		return "vercel deploy --prod --yes"
	default:
		if dec.Method == rules.MethodAPI {
			return fmt.Sprintf("api: upload zip of %s to the netlify deploy endpoint", outputDir)
		}
		return fmt.Sprintf("netlify deploy --dir %s --prod", outputDir)
	}
}
