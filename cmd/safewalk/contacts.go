package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"safewalk/internal/config"
	"safewalk/internal/contacts"
	"safewalk/internal/store"
)

var (
	contactsDBPath      string
	contactName         string
	contactPhone        string
	contactEmail        string
	contactRelationship string
	contactPrimary      bool
	contactInactive     bool
)

var contactsCmd = &cobra.Command{
	Use:   "contacts",
	Short: "Manage emergency contacts",
}

func openStore(cmd *cobra.Command) (*store.SQLiteStore, error) {
	st, err := store.NewSQLite(resolveDBPath(contactsDBPath, config.Default()))
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(cmd.Context()); err != nil {
		st.Close()
		return nil, err
	}
	return st, nil
}

var contactsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored contacts",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		list, err := st.List(cmd.Context())
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tPHONE\tEMAIL\tRELATION\tPRIMARY\tACTIVE")
		for _, c := range list {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%t\t%t\n",
				c.ID, c.Name, c.PhoneNumber, c.Email, c.Relationship, c.Primary, c.Active)
		}
		return tw.Flush()
	},
}

var contactsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a contact",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		c, err := st.Add(cmd.Context(), contacts.Contact{
			Name:         contactName,
			PhoneNumber:  contactPhone,
			Email:        contactEmail,
			Relationship: contactRelationship,
			Primary:      contactPrimary,
			Active:       !contactInactive,
		})
		if err != nil {
			return err
		}
		fmt.Println(c.ID)
		return nil
	},
}

var contactsRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove a contact",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close()
		return st.Remove(cmd.Context(), args[0])
	},
}

var contactsSetPrimaryCmd = &cobra.Command{
	Use:   "set-primary <id>",
	Short: "Mark one contact as primary",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close()
		return st.SetPrimary(cmd.Context(), args[0])
	},
}

func init() {
	contactsCmd.PersistentFlags().StringVar(&contactsDBPath, "db", "", "Path to the sqlite database (defaults to store_path from config)")
	contactsAddCmd.Flags().StringVar(&contactName, "name", "", "Contact name")
	contactsAddCmd.Flags().StringVar(&contactPhone, "phone", "", "Phone number")
	contactsAddCmd.Flags().StringVar(&contactEmail, "email", "", "Email address")
	contactsAddCmd.Flags().StringVar(&contactRelationship, "relationship", "", "Relationship to the user")
	contactsAddCmd.Flags().BoolVar(&contactPrimary, "primary", false, "Mark as the primary contact")
	contactsAddCmd.Flags().BoolVar(&contactInactive, "inactive", false, "Store but exclude from notifications")
	contactsAddCmd.MarkFlagRequired("name")
	contactsAddCmd.MarkFlagRequired("phone")

	contactsCmd.AddCommand(contactsListCmd)
	contactsCmd.AddCommand(contactsAddCmd)
	contactsCmd.AddCommand(contactsRemoveCmd)
	contactsCmd.AddCommand(contactsSetPrimaryCmd)
}
