package cli

import (
	"fmt"

	"intake_server/core/service/identity"

	"github.com/spf13/cobra"
)

var hashCmd = &cobra.Command{
	Use:   "hash <email>",
	Short: "Print the sender identity hash of an email address",
	Long: `Print the sender identity stored for an email address: the hex SHA-256
of the trimmed, lower-cased address. Useful for finding a citizen's messages
without storing their address.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintln(cmd.OutOrStdout(), identity.Hash(args[0]))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(hashCmd)
}
