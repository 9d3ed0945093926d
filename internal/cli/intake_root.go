// Package cli implements the intakectl operator commands.
package cli

import (
	"fmt"
	"os"

	"intake_server/config"

	"github.com/spf13/cobra"
)

var (
	appVersion = "dev"
	configFile string
)

// SetVersion sets the version reported by `intakectl version`.
func SetVersion(v string) {
	appVersion = v
}

var rootCmd = &cobra.Command{
	Use:   "intakectl",
	Short: "Operator tool for the citizen message intake server",
	Long: `intakectl runs one-off operations against the intake server's
configuration and database: schema migration, sender hashing, dry-run
classification and API document export.

Configuration is read from the same environment variables as the server.
--config names a YAML file whose keys are read before the environment.`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "intakectl %s\n", appVersion)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "YAML config file (overrides CONFIG_FILE)")
	rootCmd.AddCommand(versionCmd)
}

// loadConfig applies --config and loads the server configuration.
func loadConfig() (*config.Config, error) {
	if configFile != "" {
		if err := os.Setenv("CONFIG_FILE", configFile); err != nil {
			return nil, err
		}
	}
	return config.Load()
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
