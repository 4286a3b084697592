package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "dipole",
	Short: "Decide, deploy and diagnose web projects on netlify/vercel",
	Long: `Dipole analyzes a web project, decides which hosting provider and method
fit it best, executes the deployment with sequential provider fallback,
and diagnoses failed deployments from their captured logs.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		emitError(err)
	}
	return err
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.dipole.yaml)")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug output (shows progress + internal diagnostics)")
	rootCmd.PersistentFlags().Bool("json-only", false, "emit machine-readable JSON only")
	rootCmd.PersistentFlags().Bool("no-llm", false, "disable the advisory refinement stage")
	rootCmd.PersistentFlags().Bool("yes", false, "skip the interactive confirmation prompt")
	rootCmd.PersistentFlags().Bool("non-interactive", false, "never prompt, assume defaults")
	rootCmd.PersistentFlags().String("path", ".", "project directory")
	rootCmd.PersistentFlags().String("provider", "", "force provider: netlify or vercel")
	rootCmd.PersistentFlags().String("method", "", "force deploy method: cli or api")

	// TODO: add error return here
	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json_only", rootCmd.PersistentFlags().Lookup("json-only"))
	viper.BindPFlag("no_llm", rootCmd.PersistentFlags().Lookup("no-llm"))
	viper.BindPFlag("assume_yes", rootCmd.PersistentFlags().Lookup("yes"))
	viper.BindPFlag("non_interactive", rootCmd.PersistentFlags().Lookup("non-interactive"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			os.Exit(1)
		}

		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".dipole")
	}

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		if viper.GetBool("debug") {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	}
}
