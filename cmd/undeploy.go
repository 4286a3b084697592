package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dipole-sh/dipole/internal/config"
	"github.com/dipole-sh/dipole/internal/rules"
	"github.com/dipole-sh/dipole/internal/store"
)

// undeployPlan is the suggested manual cleanup for a past deployment.
// Nothing here is executed; remote deletion stays a human decision.
type undeployPlan struct {
	RecordID string   `json:"recordId,omitempty"`
	Provider string   `json:"provider"`
	URL      string   `json:"url,omitempty"`
	Commands []string `json:"commands"`
	Note     string   `json:"note"`
}

var undeployCmd = &cobra.Command{
	Use:   "undeploy",
	Short: "Print suggested cleanup commands for a past deployment",
	Long: `Look up a deploy record and print the provider commands that would
remove the deployment. Nothing is executed or deleted automatically.

Examples:
  dipole undeploy --id 4f7c21aa-...
  dipole undeploy --path ./my-app`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		recordID, _ := cmd.Flags().GetString("id")
		path, _ := cmd.Flags().GetString("path")

		st, err := store.Open(cfg.StateDir)
		if err != nil {
			return fmt.Errorf("opening state store: %w", err)
		}

		rec, err := findRecord(st, recordID, path)
		if err != nil {
			return err
		}

		p := undeployPlan{
			RecordID: rec.ID,
			Provider: rec.Provider,
			Note:     "run these manually; undeploy never deletes remote resources",
		}
		if rec.URL != nil {
			p.URL = *rec.URL
		}

		switch rec.Provider {
		case rules.ProviderNetlify:
			p.Commands = []string{
				"netlify sites:list",
				"netlify sites:delete <site-id>",
			}
		case rules.ProviderVercel:
			p.Commands = []string{
				"vercel ls",
				"vercel remove <project-name> --yes",
			}
		default:
			p.Commands = []string{"# unknown provider; inspect the record manually"}
		}

		return printJSON(p)
	},
}

// findRecord resolves the target deployment: by id when given, otherwise
// the most recent successful record for the project path.
func findRecord(st *store.Store, recordID, path string) (*store.DeployRecord, error) {
	if recordID != "" {
		rec, err := st.Get(recordID)
		if err != nil {
			return nil, fmt.Errorf("record %s: %w", recordID, err)
		}
		return rec, nil
	}

	records, err := st.List()
	if err != nil {
		return nil, err
	}
	for i := len(records) - 1; i >= 0; i-- {
		if records[i].ProjectPath == path && records[i].Status == store.StatusSuccess {
			return &records[i], nil
		}
	}
	return nil, fmt.Errorf("no successful deployment found for %q; pass --id", path)
}

func init() {
	undeployCmd.Flags().String("id", "", "deploy record id to clean up")
	rootCmd.AddCommand(undeployCmd)
}
