package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dipole-sh/dipole/internal/cli"
	"github.com/dipole-sh/dipole/internal/config"
	"github.com/dipole-sh/dipole/internal/orchestrator"
	"github.com/dipole-sh/dipole/internal/plan"
	"github.com/dipole-sh/dipole/internal/rules"
	"github.com/dipole-sh/dipole/internal/store"
)

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Deploy the project to the decided provider",
	Long: `Analyze the project, decide the provider, and execute the deployment
with sequential fallback to the alternative provider on failure. The
resulting record is appended to the state store together with the full
attempt log.

Examples:
  dipole deploy --path ./my-app
  dipole deploy --path ./my-app --provider netlify --yes
  dipole deploy --dry-run --json-only`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		session, _ := cmd.Flags().GetString("session")
		assumeYes, _ := cmd.Flags().GetBool("yes")

		path, meta, dec, err := resolveDecision(cmd.Context(), cmd, cfg)
		if err != nil {
			return err
		}

		pl := plan.Build(dec, meta, path)

		if !dryRun && dec.Method == rules.MethodCLI && cfg.MockMode == "" {
			checker := cli.NewDependencyChecker(cfg.Debug)
			if cfg.Debug && !jsonOnly() {
				cli.PrintDependencyStatus(checker.CheckAll())
			}
			if dep := checker.CheckProvider(dec.Provider); !dep.Installed {
				statusf("[deploy] warning: %s\n", dep.Message)
			}
		}

		if !dryRun && !assumeYes && !cfg.NonInteractive && !jsonOnly() {
			ok, err := cli.ConfirmDeploy(dec.Provider, dec.Method)
			if err != nil {
				return fmt.Errorf("confirmation failed: %w", err)
			}
			if !ok {
				return fmt.Errorf("deployment cancelled")
			}
		}

		st, err := store.Open(cfg.StateDir)
		if err != nil {
			statusf("[deploy] warning: state store unavailable: %v\n", err)
			st = nil
		}

		rec, execErr := orchestrator.Execute(cmd.Context(), cfg, st, meta, dec, pl, path, orchestrator.Options{
			DryRun:    dryRun,
			SessionID: session,
			Live:      os.Stderr,
		})

		if err := printJSON(rec); err != nil {
			return err
		}

		if execErr != nil {
			statusf("[deploy] %v\n", execErr)
			os.Exit(1)
		}
		return nil
	},
}

func init() {
	deployCmd.Flags().Bool("dry-run", false, "print the deploy record without touching any provider")
	deployCmd.Flags().String("session", "", "session identifier recorded on the deploy record")
	rootCmd.AddCommand(deployCmd)
}
