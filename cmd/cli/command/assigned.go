package command

import (
	"errors"

	"github.com/spf13/cobra"

	"fleethub/internal/protocol"
)

var (
	assignedModel    string
	assignedEngineer string
)

var assignedCmd = &cobra.Command{
	Use:   "assigned",
	Short: "Read the vehicle/engineer assignment join",
	Long: `Read the vehicle/engineer join from either side: --model lists the
engineers assigned to a vehicle model, --engineer lists the vehicle models
an engineer is assigned to. Both flags together return both lists.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		job := protocol.Message{
			"action":    "read",
			"data_type": "vehicle_engineers",
		}
		if cmd.Flags().Changed("model") {
			job["model"] = assignedModel
		}
		if cmd.Flags().Changed("engineer") {
			job["engineer"] = assignedEngineer
		}
		if !cmd.Flags().Changed("model") && !cmd.Flags().Changed("engineer") {
			return errors.New("at least one of --model and --engineer is required")
		}
		return runJob("vehicle_engineers", job)
	},
}

func init() {
	assignedCmd.Flags().StringVar(&assignedModel, "model", "", "vehicle model to list engineers for")
	assignedCmd.Flags().StringVar(&assignedEngineer, "engineer", "", "engineer to list vehicle models for")
	rootCmd.AddCommand(assignedCmd)
}
