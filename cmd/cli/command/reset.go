package command

import (
	"github.com/spf13/cobra"

	"fleethub/internal/protocol"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset the database back to its seed data",
	Long: `Drop every row and reinsert the fixed seed data. The server acknowledges
with a success message once the reset is done.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runJob("", protocol.Message{"action": "reset"})
	},
}

func init() {
	rootCmd.AddCommand(resetCmd)
}
