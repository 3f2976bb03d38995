package main

import (
	"github.com/spf13/cobra"

	"safewalk/internal/dashboard"
)

var dashboardOutDir string

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Render the Grafana dashboard from its template",
	RunE: func(cmd *cobra.Command, args []string) error {
		return dashboard.Render(dashboardOutDir)
	},
}

func init() {
	dashboardCmd.Flags().StringVar(&dashboardOutDir, "out", "dashboards", "Output directory for rendered dashboards")
}
