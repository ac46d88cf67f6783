package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sagarc03/rookery/config"
	"github.com/sagarc03/rookery/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or check the database schema",
	Long: `Create the resources table of the database driver and verify its schema.

serve runs the same migration on startup; this command is useful to prepare
a database ahead of time or to check one with --check.`,
	RunE: runMigrate,
}

var migrateCheck bool

func init() {
	migrateCmd.Flags().BoolVar(&migrateCheck, "check", false, "only validate the schema, do not create anything")
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := config.FromContext(cmd.Context())
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	db, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer func() { _ = db.Close() }()

	if err = db.Ping(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	if !migrateCheck {
		if err = db.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate database: %w", err)
		}
		slog.Info("database migration complete", "type", cfg.Database.Type, "table", cfg.Database.Tables.Resources)
	}

	if err = db.Validate(ctx); err != nil {
		return fmt.Errorf("validate database schema: %w", err)
	}

	slog.Info("database schema is valid", "type", cfg.Database.Type)
	return nil
}
