// Package main provides the entry point for the startup pipeline tracker HTTP API server.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "pipeline_server",
	Short: "Startup Pipeline Tracker HTTP API Server",
	Long:  "Pipeline tracks startups through a kanban-style investment pipeline with tasks, spreadsheet imports, and workflow automations via REST API.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
