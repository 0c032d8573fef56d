package command

import (
	"github.com/spf13/cobra"

	"fleethub/internal/protocol"
)

var laptopCmd = &cobra.Command{
	Use:   "laptop",
	Short: "Laptop loan management commands",
	Long:  `Manage laptops on loan to engineers: add, read, update and delete`,
}

var (
	laptopModel    string
	laptopYear     int
	laptopMonth    int
	laptopDay      int
	laptopEngineer string
	laptopID       int
)

var addLaptopCmd = &cobra.Command{
	Use:   "add",
	Short: "Loan a laptop to an engineer",
	Long: `Loan a laptop to an engineer. The server asks for confirmation when the
engineer is unknown (add without a loaner?) or already holds a laptop
(replace it?).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runJob("laptop", protocol.Message{
			"action":     "add",
			"data_type":  "laptop",
			"model":      laptopModel,
			"loan_year":  laptopYear,
			"loan_month": laptopMonth,
			"loan_date":  laptopDay,
			"engineer":   laptopEngineer,
		})
	},
}

var readLaptopCmd = &cobra.Command{
	Use:   "read [model|all]",
	Short: "Read laptops by model, by loaning engineer, or all of them",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		model := "all"
		if len(args) == 1 {
			model = args[0]
		}
		job := protocol.Message{
			"action":    "read",
			"data_type": "laptop",
			"model":     model,
		}
		if cmd.Flags().Changed("engineer") {
			job["model"] = ""
			job["engineer"] = laptopEngineer
		}
		return runJob("laptop", job)
	},
}

var deleteLaptopCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete a laptop by loaning engineer or by id",
	RunE: func(cmd *cobra.Command, args []string) error {
		job := protocol.Message{
			"action":    "delete",
			"data_type": "laptop",
			"engineer":  laptopEngineer,
		}
		if cmd.Flags().Changed("id") {
			job["engineer"] = ""
			job["id"] = laptopID
		}
		return runJob("laptop", job)
	},
}

var updateLaptopCmd = &cobra.Command{
	Use:   "update",
	Short: "Update a laptop by id",
	RunE: func(cmd *cobra.Command, args []string) error {
		job := protocol.Message{
			"action":    "update",
			"data_type": "laptop",
			"id":        laptopID,
		}
		if cmd.Flags().Changed("model") {
			job["model"] = laptopModel
		}
		if cmd.Flags().Changed("year") {
			job["loan_year"] = laptopYear
		}
		if cmd.Flags().Changed("month") {
			job["loan_month"] = laptopMonth
		}
		if cmd.Flags().Changed("day") {
			job["loan_date"] = laptopDay
		}
		if cmd.Flags().Changed("engineer") {
			job["engineer"] = laptopEngineer
		}
		return runJob("laptop", job)
	},
}

func init() {
	addLaptopCmd.Flags().StringVar(&laptopModel, "model", "", "laptop model (required)")
	addLaptopCmd.Flags().IntVar(&laptopYear, "year", 0, "loan year (required)")
	addLaptopCmd.Flags().IntVar(&laptopMonth, "month", 0, "loan month (required)")
	addLaptopCmd.Flags().IntVar(&laptopDay, "day", 0, "loan day (required)")
	addLaptopCmd.Flags().StringVar(&laptopEngineer, "engineer", "", "loaning engineer (required)")
	addLaptopCmd.MarkFlagRequired("model")
	addLaptopCmd.MarkFlagRequired("year")
	addLaptopCmd.MarkFlagRequired("month")
	addLaptopCmd.MarkFlagRequired("day")
	addLaptopCmd.MarkFlagRequired("engineer")

	readLaptopCmd.Flags().StringVar(&laptopEngineer, "engineer", "", "read the laptop loaned to this engineer")

	deleteLaptopCmd.Flags().StringVar(&laptopEngineer, "engineer", "", "delete the laptop loaned to this engineer")
	deleteLaptopCmd.Flags().IntVar(&laptopID, "id", 0, "delete a laptop by id")

	updateLaptopCmd.Flags().IntVar(&laptopID, "id", 0, "laptop id (required)")
	updateLaptopCmd.Flags().StringVar(&laptopModel, "model", "", "new model")
	updateLaptopCmd.Flags().IntVar(&laptopYear, "year", 0, "new loan year")
	updateLaptopCmd.Flags().IntVar(&laptopMonth, "month", 0, "new loan month")
	updateLaptopCmd.Flags().IntVar(&laptopDay, "day", 0, "new loan day")
	updateLaptopCmd.Flags().StringVar(&laptopEngineer, "engineer", "", "new loaning engineer, empty string unassigns")
	updateLaptopCmd.MarkFlagRequired("id")

	laptopCmd.AddCommand(addLaptopCmd)
	laptopCmd.AddCommand(readLaptopCmd)
	laptopCmd.AddCommand(deleteLaptopCmd)
	laptopCmd.AddCommand(updateLaptopCmd)
	rootCmd.AddCommand(laptopCmd)
}
