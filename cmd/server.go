package cmd

import (
	"github.com/spf13/cobra"

	"melody/server"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run the catalog service",
	Long:  `Starts the HTTP catalog service: ingestion, search and stream resolution.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		server.Start(cfg)
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
