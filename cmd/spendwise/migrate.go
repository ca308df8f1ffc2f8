package main

import (
	"fmt"
	"log/slog"

	"github.com/Veraticus/spendwise/internal/cli"
	"github.com/Veraticus/spendwise/internal/storage"
	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	var status bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long: `Initialize or update the database schema to the latest version.

Every other command migrates on startup, so this is mostly useful with
--status to see where a database stands.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			store, err := storage.NewSQLiteStorage(cfg.Database.Path)
			if err != nil {
				return err
			}
			defer closeStorage(store)

			current, err := store.SchemaVersion(ctx)
			if err != nil {
				return err
			}

			if status {
				state := "up to date"
				if current < storage.ExpectedSchemaVersion {
					state = fmt.Sprintf("%d pending", storage.ExpectedSchemaVersion-current)
				}
				_, err = fmt.Fprintf(out, "Database: %s\nSchema:   %d of %d (%s)\n",
					store.Path(), current, storage.ExpectedSchemaVersion, state)
				return err
			}

			slog.Info("Running database migrations",
				"database", store.Path(),
				"from", current,
				"to", storage.ExpectedSchemaVersion)
			if err := store.Migrate(ctx); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			_, err = fmt.Fprintln(out, cli.FormatSuccess(
				fmt.Sprintf("Database schema at version %d", storage.ExpectedSchemaVersion)))
			return err
		},
	}

	cmd.Flags().BoolVar(&status, "status", false, "show the schema version without migrating")

	return cmd
}
