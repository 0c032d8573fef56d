package command

import (
	"strings"

	"github.com/spf13/cobra"

	"fleethub/internal/protocol"
)

var vehicleCmd = &cobra.Command{
	Use:   "vehicle",
	Short: "Vehicle management commands",
	Long:  `Manage vehicles: add, read, update and delete rows of the vehicle table`,
}

var (
	vehicleModel    string
	vehicleQuantity int
	vehiclePrice    float64
	vehicleYear     int
	vehicleMonth    int
	vehicleDay      int
	vehicleID       int
	vehicleEngins   string
)

var addVehicleCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a vehicle to the inventory",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runJob("vehicle", protocol.Message{
			"action":            "add",
			"data_type":         "vehicle",
			"model":             vehicleModel,
			"quantity":          vehicleQuantity,
			"price":             vehiclePrice,
			"manufacture_year":  vehicleYear,
			"manufacture_month": vehicleMonth,
			"manufacture_date":  vehicleDay,
		})
	},
}

var readVehicleCmd = &cobra.Command{
	Use:   "read [model|all]",
	Short: "Read vehicles by model, by id, or all of them",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		model := "all"
		if len(args) == 1 {
			model = args[0]
		}
		job := protocol.Message{
			"action":    "read",
			"data_type": "vehicle",
			"model":     model,
		}
		if cmd.Flags().Changed("id") {
			job["model"] = ""
			job["id"] = vehicleID
		}
		return runJob("vehicle", job)
	},
}

var deleteVehicleCmd = &cobra.Command{
	Use:   "delete [model]",
	Short: "Delete every vehicle of a model",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runJob("vehicle", protocol.Message{
			"action":    "delete",
			"data_type": "vehicle",
			"model":     args[0],
		})
	},
}

var updateVehicleCmd = &cobra.Command{
	Use:   "update",
	Short: "Update a vehicle by id",
	RunE: func(cmd *cobra.Command, args []string) error {
		job := protocol.Message{
			"action":    "update",
			"data_type": "vehicle",
			"id":        vehicleID,
		}
		if cmd.Flags().Changed("model") {
			job["model"] = vehicleModel
		}
		if cmd.Flags().Changed("quantity") {
			job["quantity"] = vehicleQuantity
		}
		if cmd.Flags().Changed("price") {
			job["price"] = vehiclePrice
		}
		if cmd.Flags().Changed("year") {
			job["manufacture_year"] = vehicleYear
		}
		if cmd.Flags().Changed("month") {
			job["manufacture_month"] = vehicleMonth
		}
		if cmd.Flags().Changed("day") {
			job["manufacture_date"] = vehicleDay
		}
		if cmd.Flags().Changed("engineers") {
			job["engineers"] = splitNames(vehicleEngins)
		}
		return runJob("vehicle", job)
	},
}

func splitNames(raw string) []string {
	out := []string{}
	for _, n := range strings.Split(raw, ",") {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}
	return out
}

func init() {
	addVehicleCmd.Flags().StringVar(&vehicleModel, "model", "", "vehicle model (required)")
	addVehicleCmd.Flags().IntVar(&vehicleQuantity, "quantity", 0, "units in stock")
	addVehicleCmd.Flags().Float64Var(&vehiclePrice, "price", 0, "price per unit (required)")
	addVehicleCmd.Flags().IntVar(&vehicleYear, "year", 0, "manufacture year (required)")
	addVehicleCmd.Flags().IntVar(&vehicleMonth, "month", 0, "manufacture month (required)")
	addVehicleCmd.Flags().IntVar(&vehicleDay, "day", 0, "manufacture day (required)")
	addVehicleCmd.MarkFlagRequired("model")
	addVehicleCmd.MarkFlagRequired("price")
	addVehicleCmd.MarkFlagRequired("year")
	addVehicleCmd.MarkFlagRequired("month")
	addVehicleCmd.MarkFlagRequired("day")

	readVehicleCmd.Flags().IntVar(&vehicleID, "id", 0, "read a single vehicle by id")

	updateVehicleCmd.Flags().IntVar(&vehicleID, "id", 0, "vehicle id (required)")
	updateVehicleCmd.Flags().StringVar(&vehicleModel, "model", "", "new model")
	updateVehicleCmd.Flags().IntVar(&vehicleQuantity, "quantity", 0, "new quantity")
	updateVehicleCmd.Flags().Float64Var(&vehiclePrice, "price", 0, "new price")
	updateVehicleCmd.Flags().IntVar(&vehicleYear, "year", 0, "new manufacture year")
	updateVehicleCmd.Flags().IntVar(&vehicleMonth, "month", 0, "new manufacture month")
	updateVehicleCmd.Flags().IntVar(&vehicleDay, "day", 0, "new manufacture day")
	updateVehicleCmd.Flags().StringVar(&vehicleEngins, "engineers", "", "comma-separated engineer names replacing the assignment set")
	updateVehicleCmd.MarkFlagRequired("id")

	vehicleCmd.AddCommand(addVehicleCmd)
	vehicleCmd.AddCommand(readVehicleCmd)
	vehicleCmd.AddCommand(deleteVehicleCmd)
	vehicleCmd.AddCommand(updateVehicleCmd)
	rootCmd.AddCommand(vehicleCmd)
}
