package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
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

func execAll(tx *sql.Tx, queries []string) error {
	for _, query := range queries {
		if _, err := tx.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query '%s': %w", query, err)
		}
	}
	return nil
}

// Balances and amounts are TEXT so SQLite never coerces them to REAL.
var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial accounts schema",
		Up: func(tx *sql.Tx) error {
			return execAll(tx, []string{
				`CREATE TABLE IF NOT EXISTS accounts (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					user_id INTEGER NOT NULL,
					account_type TEXT NOT NULL,
					name TEXT NOT NULL DEFAULT '',
					display_number TEXT NOT NULL DEFAULT '***0000',
					balance TEXT NOT NULL DEFAULT '0' CHECK (CAST(balance AS REAL) >= 0),
					version INTEGER NOT NULL DEFAULT 0,
					created_at DATETIME NOT NULL
				)`,
				`CREATE INDEX idx_accounts_user ON accounts(user_id)`,
			})
		},
	},
	{
		Version:     2,
		Description: "Add append-only transaction log",
		Up: func(tx *sql.Tx) error {
			return execAll(tx, []string{
				`CREATE TABLE IF NOT EXISTS transactions (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					user_id INTEGER NOT NULL,
					account_id INTEGER NOT NULL,
					transaction_type TEXT NOT NULL,
					amount TEXT NOT NULL,
					note TEXT NOT NULL DEFAULT '',
					category TEXT NOT NULL DEFAULT '',
					state TEXT NOT NULL DEFAULT '',
					created_at DATETIME NOT NULL,
					FOREIGN KEY (account_id) REFERENCES accounts(id)
				)`,
				`CREATE INDEX idx_transactions_user_created ON transactions(user_id, created_at)`,
				`CREATE INDEX idx_transactions_account ON transactions(account_id)`,
				`CREATE TRIGGER transactions_no_update
				BEFORE UPDATE ON transactions
				BEGIN
					SELECT RAISE(ABORT, 'transactions are append-only');
				END`,
				`CREATE TRIGGER transactions_no_delete
				BEFORE DELETE ON transactions
				BEGIN
					SELECT RAISE(ABORT, 'transactions are append-only');
				END`,
			})
		},
	},
	{
		Version:     3,
		Description: "Add external IDs for statement import deduplication",
		Up: func(tx *sql.Tx) error {
			return execAll(tx, []string{
				`ALTER TABLE transactions ADD COLUMN external_id TEXT`,
				`CREATE UNIQUE INDEX idx_transactions_external ON transactions(account_id, external_id) WHERE external_id IS NOT NULL`,
			})
		},
	},
}

// SchemaVersion reports the database's current PRAGMA user_version.
func (s *SQLiteStorage) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}

// Migrate applies all pending database migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	currentVersion, err := s.SchemaVersion(ctx)
	if err != nil {
		return err
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

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	finalVersion, err := s.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}
