package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Veraticus/spendwise/internal/rulefile"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 3

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS categories (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					name TEXT NOT NULL COLLATE NOCASE UNIQUE,
					color TEXT NOT NULL DEFAULT '',
					icon TEXT NOT NULL DEFAULT '',
					is_default BOOLEAN NOT NULL DEFAULT 0,
					display_order INTEGER NOT NULL DEFAULT 0
				)`,

				`CREATE TABLE IF NOT EXISTS rules (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					category_id INTEGER NOT NULL,
					pattern TEXT NOT NULL,
					match_type TEXT NOT NULL,
					priority INTEGER NOT NULL DEFAULT 0,
					is_active BOOLEAN NOT NULL DEFAULT 1,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_rules_active_priority ON rules(is_active, priority DESC)`,

				`CREATE TABLE IF NOT EXISTS transactions (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					amount REAL NOT NULL,
					merchant TEXT NOT NULL,
					category_id INTEGER,
					timestamp DATETIME NOT NULL,
					raw_source_text TEXT NOT NULL DEFAULT '',
					bank_name TEXT NOT NULL DEFAULT '',
					account_last4 TEXT,
					transaction_type TEXT NOT NULL,
					is_manually_edited BOOLEAN NOT NULL DEFAULT 0,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_transactions_timestamp ON transactions(timestamp)`,
				`CREATE INDEX idx_transactions_category ON transactions(category_id)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Seed default categories and rules",
		Up: func(tx *sql.Tx) error {
			return seedDefaults(context.Background(), tx)
		},
	},
	{
		Version:     3,
		Description: "Add import batch id to transactions",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`ALTER TABLE transactions ADD COLUMN import_id TEXT`,
				`CREATE INDEX idx_transactions_import ON transactions(import_id)`,
			}
			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
}

// seedDefaults inserts the built-in categories, then the default rules.
// Existing categories are left alone.
func seedDefaults(ctx context.Context, q queryable) error {
	doc, err := rulefile.Defaults()
	if err != nil {
		return err
	}

	for _, c := range doc.Categories {
		_, err := q.ExecContext(ctx, `
			INSERT OR IGNORE INTO categories (id, name, color, icon, is_default, display_order)
			VALUES (?, ?, ?, ?, ?, ?)`,
			c.ID, c.Name, c.Color, c.Icon, c.IsDefault, c.DisplayOrder)
		if err != nil {
			return fmt.Errorf("failed to seed category %q: %w", c.Name, err)
		}
	}

	categories, err := listCategories(ctx, q)
	if err != nil {
		return err
	}

	rules, err := doc.ResolveRules(rulefile.CategoryLookup(categories))
	if err != nil {
		return fmt.Errorf("failed to resolve default rules: %w", err)
	}
	for i := range rules {
		if err := insertRule(ctx, q, &rules[i]); err != nil {
			return fmt.Errorf("failed to seed rule %q: %w", rules[i].Pattern, err)
		}
	}
	return nil
}

// Migrate applies all pending database migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	var currentVersion int
	err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		s.logger.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	var finalVersion int
	err = s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&finalVersion)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}

// SchemaVersion reports the database's current user_version.
func (s *SQLiteStorage) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}
