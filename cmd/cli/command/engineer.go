package command

import (
	"github.com/spf13/cobra"

	"fleethub/internal/protocol"
)

var engineerCmd = &cobra.Command{
	Use:   "engineer",
	Short: "Engineer management commands",
	Long:  `Manage engineers: add, read, update and delete rows of the engineer table`,
}

var (
	engineerName     string
	engineerYear     int
	engineerMonth    int
	engineerDay      int
	engineerID       int
	engineerVehicles string
)

var addEngineerCmd = &cobra.Command{
	Use:   "add",
	Short: "Add an engineer",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runJob("engineer", protocol.Message{
			"action":      "add",
			"data_type":   "engineer",
			"name":        engineerName,
			"birth_year":  engineerYear,
			"birth_month": engineerMonth,
			"birth_date":  engineerDay,
		})
	},
}

var readEngineerCmd = &cobra.Command{
	Use:   "read [name|all]",
	Short: "Read engineers by name, by id, or all of them",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := "all"
		if len(args) == 1 {
			name = args[0]
		}
		job := protocol.Message{
			"action":    "read",
			"data_type": "engineer",
			"name":      name,
		}
		if cmd.Flags().Changed("id") {
			job["name"] = ""
			job["id"] = engineerID
		}
		return runJob("engineer", job)
	},
}

var deleteEngineerCmd = &cobra.Command{
	Use:   "delete [name]",
	Short: "Delete an engineer and everything that hangs off them",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runJob("engineer", protocol.Message{
			"action":    "delete",
			"data_type": "engineer",
			"name":      args[0],
		})
	},
}

var updateEngineerCmd = &cobra.Command{
	Use:   "update",
	Short: "Update an engineer by id",
	RunE: func(cmd *cobra.Command, args []string) error {
		job := protocol.Message{
			"action":    "update",
			"data_type": "engineer",
			"id":        engineerID,
		}
		if cmd.Flags().Changed("name") {
			job["name"] = engineerName
		}
		if cmd.Flags().Changed("year") {
			job["birth_year"] = engineerYear
		}
		if cmd.Flags().Changed("month") {
			job["birth_month"] = engineerMonth
		}
		if cmd.Flags().Changed("day") {
			job["birth_date"] = engineerDay
		}
		if cmd.Flags().Changed("vehicles") {
			job["vehicles"] = splitNames(engineerVehicles)
		}
		return runJob("engineer", job)
	},
}

func init() {
	addEngineerCmd.Flags().StringVar(&engineerName, "name", "", "engineer name (required)")
	addEngineerCmd.Flags().IntVar(&engineerYear, "year", 0, "birth year (required)")
	addEngineerCmd.Flags().IntVar(&engineerMonth, "month", 0, "birth month (required)")
	addEngineerCmd.Flags().IntVar(&engineerDay, "day", 0, "birth day (required)")
	addEngineerCmd.MarkFlagRequired("name")
	addEngineerCmd.MarkFlagRequired("year")
	addEngineerCmd.MarkFlagRequired("month")
	addEngineerCmd.MarkFlagRequired("day")

	readEngineerCmd.Flags().IntVar(&engineerID, "id", 0, "read a single engineer by id")

	updateEngineerCmd.Flags().IntVar(&engineerID, "id", 0, "engineer id (required)")
	updateEngineerCmd.Flags().StringVar(&engineerName, "name", "", "new name")
	updateEngineerCmd.Flags().IntVar(&engineerYear, "year", 0, "new birth year")
	updateEngineerCmd.Flags().IntVar(&engineerMonth, "month", 0, "new birth month")
	updateEngineerCmd.Flags().IntVar(&engineerDay, "day", 0, "new birth day")
	updateEngineerCmd.Flags().StringVar(&engineerVehicles, "vehicles", "", "comma-separated vehicle models replacing the assignment set")
	updateEngineerCmd.MarkFlagRequired("id")

	engineerCmd.AddCommand(addEngineerCmd)
	engineerCmd.AddCommand(readEngineerCmd)
	engineerCmd.AddCommand(deleteEngineerCmd)
	engineerCmd.AddCommand(updateEngineerCmd)
	rootCmd.AddCommand(engineerCmd)
}
