package cmd

import (
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "pickaudit",
	Short: "Warehouse picking analytics",
	Long: `pickaudit turns SAP picking exports into move counts per pick line
and reconciles billed handling units against picked deliveries.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", ".", "directory holding config.yaml or app.env")
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
