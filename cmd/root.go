// Package cmd wires the melody subcommands.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"melody/config"
	"melody/logger"
)

var rootCmd = &cobra.Command{
	Use:   "melody",
	Short: "Melody is a personal music catalog and player.",
	Long: `Melody keeps a content-addressed music catalog behind an HTTP
service and plays it back from a merged local/remote queue.`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig loads the environment configuration and brings the logging
// facade up. Every subcommand starts here.
func loadConfig() *config.Config {
	cfg := config.Load()
	logger.Init(logger.Config{
		Level:      cfg.LogLevel,
		OutputPath: cfg.LogFile,
		MaxSize:    cfg.LogMaxMB,
		MaxAge:     cfg.LogMaxAge,
	})
	return cfg
}
