package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dipole-sh/dipole/internal/advisor"
	"github.com/dipole-sh/dipole/internal/analyzer"
	"github.com/dipole-sh/dipole/internal/config"
	"github.com/dipole-sh/dipole/internal/plan"
	"github.com/dipole-sh/dipole/internal/rules"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Analyze a project and print the deployment decision and plan",
	Long: `Analyze the project directory, apply the provider policy, optionally
refine the decision through the advisory model, and print the resulting
decision and execution plan without deploying anything.

Examples:
  dipole plan --path ./my-app
  dipole plan --path ./my-app --provider vercel
  dipole plan --no-llm --json-only`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()

		path, meta, dec, err := resolveDecision(cmd.Context(), cmd, cfg)
		if err != nil {
			return err
		}

		pl := plan.Build(dec, meta, path)

		return printJSON(struct {
			Meta     *analyzer.ProjectMeta `json:"meta"`
			Decision rules.Decision        `json:"decision"`
			Plan     plan.Plan             `json:"plan"`
		}{meta, dec, pl})
	},
}

func init() {
	rootCmd.AddCommand(planCmd)
}

// resolveDecision runs the shared front half of plan and deploy:
// analyze the project, apply the policy table with any operator
// overrides, and let the advisory stage refine the result.
func resolveDecision(ctx context.Context, cmd *cobra.Command, cfg config.Config) (string, *analyzer.ProjectMeta, rules.Decision, error) {
	path, _ := cmd.Flags().GetString("path")
	providerOv, _ := cmd.Flags().GetString("provider")
	methodOv, _ := cmd.Flags().GetString("method")

	if providerOv != "" && providerOv != rules.ProviderNetlify && providerOv != rules.ProviderVercel {
		return "", nil, rules.Decision{}, fmt.Errorf("unknown provider %q (want netlify or vercel)", providerOv)
	}
	if methodOv != "" && methodOv != rules.MethodCLI && methodOv != rules.MethodAPI {
		return "", nil, rules.Decision{}, fmt.Errorf("unknown method %q (want cli or api)", methodOv)
	}

	if _, err := os.Stat(path); err != nil {
		return "", nil, rules.Decision{}, fmt.Errorf("project path %q: %w", path, err)
	}

	statusf("[plan] analyzing %s ...\n", path)
	meta, err := analyzer.Analyze(path)
	if err != nil {
		return "", nil, rules.Decision{}, fmt.Errorf("analysis failed: %w", err)
	}
	statusf("[plan] detected type=%s build=%q output=%q\n", meta.Type, meta.BuildCommand, meta.BuildOutputDir)

	dec := rules.Decide(meta, rules.Overrides{Provider: providerOv, Method: methodOv}, rules.Tokens{
		Netlify: cfg.NetlifyToken != "",
		Vercel:  cfg.VercelToken != "",
	})

	if client := advisor.NewClient(cfg); client != nil {
		statusf("[plan] consulting advisory model ...\n")
		dec = advisor.RefineDecision(ctx, client, meta, dec, cfg.AdvisoryTimeout)
	}

	statusf("[plan] decision: %s (%s), confidence %.2f\n", dec.Provider, dec.Method, dec.Confidence)
	return path, meta, dec, nil
}
