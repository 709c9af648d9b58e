package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/venturedesk/pipeline/internal/db"
)

var migrateSchemaPath string

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema and seed default statuses",
	Long:  `Apply migrations/schema.sql to the database pointed at by DATABASE_URL, then seed the default pipeline statuses if none exist.`,
	RunE:  runMigrate,
}

func init() {
	migrateCmd.Flags().StringVar(&migrateSchemaPath, "schema", "migrations/schema.sql", "Path to the schema file")
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		return fmt.Errorf("DATABASE_URL environment variable is required")
	}

	schemaSQL, err := os.ReadFile(migrateSchemaPath)
	if err != nil {
		return fmt.Errorf("failed to read schema file: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	database, err := db.Connect(ctx, databaseURL)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := database.ApplySchema(ctx, string(schemaSQL)); err != nil {
		return err
	}
	fmt.Println("Schema applied.")

	if err := database.SeedStatuses(ctx); err != nil {
		return fmt.Errorf("failed to seed statuses: %w", err)
	}
	fmt.Println("Default statuses seeded.")

	return nil
}
