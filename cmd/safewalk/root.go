package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "safewalk",
	Short: "Personal safety coordinator",
	Long:  "Safewalk tracks walks, shares routes with trusted contacts, and coordinates emergency alerts.",
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(contactsCmd)
	rootCmd.AddCommand(dashboardCmd)
}
