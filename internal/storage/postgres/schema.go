package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
)

// codeAppendOnly is the SQLSTATE raised by the transaction log triggers.
const codeAppendOnly = "BF001"

// moneyType holds model.MaxIntegerDigits whole digits and model.MaxScale places.
const moneyType = "NUMERIC(19,6)"

// ExpectedSchemaVersion is the version Migrate brings a database to.
const ExpectedSchemaVersion = 4

type migration struct {
	description string
	statements  []string
	version     int
}

var migrations = []migration{
	{
		version:     1,
		description: "Initial accounts schema",
		statements: []string{
			`CREATE TABLE IF NOT EXISTS accounts (
				id BIGSERIAL PRIMARY KEY,
				user_id BIGINT NOT NULL,
				account_type TEXT NOT NULL,
				name TEXT NOT NULL DEFAULT '',
				display_number TEXT NOT NULL DEFAULT '***0000',
				balance NUMERIC NOT NULL DEFAULT 0 CHECK (balance >= 0),
				version BIGINT NOT NULL DEFAULT 0,
				created_at TIMESTAMPTZ NOT NULL DEFAULT now()
			)`,
			`CREATE INDEX IF NOT EXISTS idx_accounts_user ON accounts(user_id)`,
		},
	},
	{
		version:     2,
		description: "Add append-only transaction log",
		statements: []string{
			`CREATE TABLE IF NOT EXISTS transactions (
				id BIGSERIAL PRIMARY KEY,
				user_id BIGINT NOT NULL,
				account_id BIGINT NOT NULL REFERENCES accounts(id),
				transaction_type TEXT NOT NULL,
				amount NUMERIC NOT NULL,
				note TEXT NOT NULL DEFAULT '',
				category TEXT NOT NULL DEFAULT '',
				state TEXT NOT NULL DEFAULT '',
				created_at TIMESTAMPTZ NOT NULL DEFAULT now()
			)`,
			`CREATE INDEX IF NOT EXISTS idx_transactions_user_created ON transactions(user_id, created_at)`,
			`CREATE INDEX IF NOT EXISTS idx_transactions_account ON transactions(account_id)`,
			`CREATE OR REPLACE FUNCTION transactions_append_only() RETURNS trigger AS $$
			BEGIN
				RAISE EXCEPTION 'transactions are append-only' USING ERRCODE = '` + codeAppendOnly + `';
			END;
			$$ LANGUAGE plpgsql`,
			`DROP TRIGGER IF EXISTS transactions_no_update ON transactions`,
			`CREATE TRIGGER transactions_no_update BEFORE UPDATE OR DELETE ON transactions
				FOR EACH ROW EXECUTE FUNCTION transactions_append_only()`,
		},
	},
	{
		version:     3,
		description: "Add external IDs for statement import deduplication",
		statements: []string{
			`ALTER TABLE transactions ADD COLUMN IF NOT EXISTS external_id TEXT`,
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_transactions_external
				ON transactions(account_id, external_id) WHERE external_id IS NOT NULL`,
		},
	},
	{
		version:     4,
		description: "Bound money columns",
		statements: []string{
			`ALTER TABLE accounts ALTER COLUMN balance TYPE ` + moneyType,
			`ALTER TABLE transactions ALTER COLUMN amount TYPE ` + moneyType,
		},
	},
}

// SchemaVersion reports the highest applied migration.
func (s *Storage) SchemaVersion(ctx context.Context) (int, error) {
	if _, err := s.pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`); err != nil {
		return 0, fmt.Errorf("failed to create schema_version: %w", err)
	}
	var version int
	err := s.pool.QueryRow(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}

// Migrate applies all pending migrations, each in its own transaction.
func (s *Storage) Migrate(ctx context.Context) error {
	current, err := s.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}

		err := s.withTx(ctx, func(tx pgx.Tx) error {
			for _, stmt := range m.statements {
				if _, err := tx.Exec(ctx, stmt); err != nil {
					return fmt.Errorf("failed to execute query '%s': %w", stmt, err)
				}
			}
			_, err := tx.Exec(ctx, `INSERT INTO schema_version (version) VALUES ($1)`, m.version)
			return err
		})
		if err != nil {
			return fmt.Errorf("migration %d failed: %w", m.version, err)
		}

		slog.Info("Applied migration",
			"version", m.version,
			"description", m.description)
	}
	return nil
}
