package plan

import (
	"strings"
	"testing"

	"github.com/dipole-sh/dipole/internal/analyzer"
	"github.com/dipole-sh/dipole/internal/rules"
)

func TestBuild(t *testing.T) {
	tests := []struct {
		name       string
		dec        rules.Decision
		meta       analyzer.ProjectMeta
		wantSteps  int
		wantDeploy string
		wantOutput string
	}{
		{
			name:       "static site without build step",
			dec:        rules.Decision{Provider: rules.ProviderNetlify, Method: rules.MethodCLI},
			meta:       analyzer.ProjectMeta{Type: analyzer.TypeStatic},
			wantSteps:  1,
			wantDeploy: "netlify deploy --dir . --prod",
			wantOutput: ".",
		},
		{
			name:       "cra build then netlify deploy",
			dec:        rules.Decision{Provider: rules.ProviderNetlify, Method: rules.MethodCLI},
			meta:       analyzer.ProjectMeta{Type: analyzer.TypeCRA, BuildCommand: "npm run build", BuildOutputDir: "build"},
			wantSteps:  2,
			wantDeploy: "netlify deploy --dir build --prod",
			wantOutput: "build",
		},
		{
			name:       "netlify api upload",
			dec:        rules.Decision{Provider: rules.ProviderNetlify, Method: rules.MethodAPI},
			meta:       analyzer.ProjectMeta{Type: analyzer.TypeViteReact, BuildCommand: "npm run build", BuildOutputDir: "dist"},
			wantSteps:  2,
			wantDeploy: "api: upload zip of dist to the netlify deploy endpoint",
			wantOutput: "dist",
		},
		{
			name:       "vercel deploy",
			dec:        rules.Decision{Provider: rules.ProviderVercel, Method: rules.MethodCLI},
			meta:       analyzer.ProjectMeta{Type: analyzer.TypeNext, BuildCommand: "npm run build", BuildOutputDir: ".next"},
			wantSteps:  2,
			wantDeploy: "vercel deploy --prod --yes",
			wantOutput: ".next",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pl := Build(tt.dec, &tt.meta, "/tmp/project")

			if len(pl.Steps) != tt.wantSteps {
				t.Fatalf("len(Steps) = %d, want %d", len(pl.Steps), tt.wantSteps)
			}

			deploy := pl.Steps[len(pl.Steps)-1]
			if deploy.ID != "deploy" {
				t.Errorf("last step ID = %s, want deploy", deploy.ID)
			}
			if deploy.Run != tt.wantDeploy {
				t.Errorf("deploy Run = %q, want %q", deploy.Run, tt.wantDeploy)
			}
			if pl.Artifacts.OutputDir != tt.wantOutput {
				t.Errorf("OutputDir = %q, want %q", pl.Artifacts.OutputDir, tt.wantOutput)
			}

			if tt.wantSteps == 2 {
				if pl.Steps[0].ID != "build" {
					t.Errorf("first step ID = %s, want build", pl.Steps[0].ID)
				}
				if pl.Steps[0].Run != tt.meta.BuildCommand {
					t.Errorf("build Run = %q, want %q", pl.Steps[0].Run, tt.meta.BuildCommand)
				}
			}

			if len(pl.Verifications) != 1 || pl.Verifications[0].ID != "http-2xx" {
				t.Errorf("Verifications = %v, want a single http-2xx entry", pl.Verifications)
			}
		})
	}
}

func TestBuildDeployStepCount(t *testing.T) {
	// Exactly one deploy step regardless of decision shape.
	dec := rules.Decision{Provider: rules.ProviderNetlify, Method: rules.MethodCLI, Alternatives: []rules.Alternative{
		{Provider: rules.ProviderVercel, Method: rules.MethodCLI, When: "if netlify is unavailable"},
	}}
	meta := analyzer.ProjectMeta{Type: analyzer.TypeStatic}

	pl := Build(dec, &meta, ".")

	count := 0
	for _, s := range pl.Steps {
		if strings.HasPrefix(s.ID, "deploy") {
			count++
		}
	}
	if count != 1 {
		t.Errorf("deploy steps = %d, want exactly 1", count)
	}
}
