package command

import (
	"github.com/spf13/cobra"

	"fleethub/internal/protocol"
)

var contactCmd = &cobra.Command{
	Use:   "contact",
	Short: "Contact details management commands",
	Long:  `Manage the contact details of engineers: add, read and delete`,
}

var (
	contactPhone    string
	contactAddress  string
	contactEngineer string
	contactID       int
)

var addContactCmd = &cobra.Command{
	Use:   "add",
	Short: "Add contact details for an engineer",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runJob("contact_details", protocol.Message{
			"action":       "add",
			"data_type":    "contact_details",
			"phone_number": contactPhone,
			"address":      contactAddress,
			"engineer":     contactEngineer,
		})
	},
}

var readContactCmd = &cobra.Command{
	Use:   "read [engineer|all]",
	Short: "Read contact details by engineer, by id, or all of them",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		engineer := "all"
		if len(args) == 1 {
			engineer = args[0]
		}
		job := protocol.Message{
			"action":    "read",
			"data_type": "contact_details",
			"engineer":  engineer,
		}
		if cmd.Flags().Changed("id") {
			job["engineer"] = ""
			job["id"] = contactID
		}
		return runJob("contact_details", job)
	},
}

var deleteContactCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete contact details by engineer or by id",
	RunE: func(cmd *cobra.Command, args []string) error {
		job := protocol.Message{
			"action":    "delete",
			"data_type": "contact_details",
			"engineer":  contactEngineer,
		}
		if cmd.Flags().Changed("id") {
			job["engineer"] = ""
			job["id"] = contactID
		}
		return runJob("contact_details", job)
	},
}

func init() {
	addContactCmd.Flags().StringVar(&contactPhone, "phone", "", "phone number (required)")
	addContactCmd.Flags().StringVar(&contactAddress, "address", "", "postal address")
	addContactCmd.Flags().StringVar(&contactEngineer, "engineer", "", "owning engineer (required)")
	addContactCmd.MarkFlagRequired("phone")
	addContactCmd.MarkFlagRequired("engineer")

	readContactCmd.Flags().IntVar(&contactID, "id", 0, "read a single contact row by id")

	deleteContactCmd.Flags().StringVar(&contactEngineer, "engineer", "", "delete every contact row of this engineer")
	deleteContactCmd.Flags().IntVar(&contactID, "id", 0, "delete a contact row by id")

	contactCmd.AddCommand(addContactCmd)
	contactCmd.AddCommand(readContactCmd)
	contactCmd.AddCommand(deleteContactCmd)
	rootCmd.AddCommand(contactCmd)
}
