package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dipole-sh/dipole/internal/advisor"
	"github.com/dipole-sh/dipole/internal/analyzer"
	"github.com/dipole-sh/dipole/internal/config"
	"github.com/dipole-sh/dipole/internal/diagnose"
	"github.com/dipole-sh/dipole/internal/redact"
	"github.com/dipole-sh/dipole/internal/store"
)

var diagnoseCmd = &cobra.Command{
	Use:   "diagnose",
	Short: "Diagnose a failed deployment from its log",
	Long: `Run the failure heuristics over a deployment log, optionally refined by
the advisory model. The log comes from a file or from a stored deploy
record.

Examples:
  dipole diagnose --log ./build.log
  dipole diagnose --id 4f7c21aa-... --path ./my-app
  dipole diagnose --log ./build.log --no-llm --json-only`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		logPath, _ := cmd.Flags().GetString("log")
		recordID, _ := cmd.Flags().GetString("id")

		if (logPath == "") == (recordID == "") {
			return fmt.Errorf("exactly one of --log or --id is required")
		}

		var logText string
		switch {
		case logPath != "":
			data, err := os.ReadFile(logPath)
			if err != nil {
				return fmt.Errorf("reading log file: %w", err)
			}
			logText = string(data)
		default:
			st, err := store.Open(cfg.StateDir)
			if err != nil {
				return fmt.Errorf("opening state store: %w", err)
			}
			logText, err = st.ReadLog(recordID)
			if err != nil {
				return fmt.Errorf("record %s: %w", recordID, err)
			}
		}

		// Metadata sharpens the heuristics but is optional: a log on its
		// own still diagnoses.
		var meta *analyzer.ProjectMeta
		path, _ := cmd.Flags().GetString("path")
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if m, err := analyzer.Analyze(path); err == nil {
				meta = m
			}
		}

		res := diagnose.Heuristics(logText, meta)

		if client := advisor.NewClient(cfg); client != nil {
			statusf("[diagnose] consulting advisory model ...\n")
			pack := redact.NewContextPack(metaMap(meta), logText, res.RootCauses)
			res = advisor.RefineDiagnosis(cmd.Context(), client, pack, res, cfg.AdvisoryTimeout)
		}

		return printJSON(res)
	},
}

// metaMap flattens ProjectMeta for the context pack. Nil meta is an
// empty map, not a nil one, so the pack hash stays stable.
func metaMap(meta *analyzer.ProjectMeta) map[string]any {
	out := map[string]any{}
	if meta == nil {
		return out
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return out
	}
	json.Unmarshal(data, &out)
	return out
}

func init() {
	diagnoseCmd.Flags().String("log", "", "path to a deployment log file")
	diagnoseCmd.Flags().String("id", "", "deploy record id whose stored log should be diagnosed")
	rootCmd.AddCommand(diagnoseCmd)
}
