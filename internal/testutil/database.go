// Package testutil provides test helpers shared across bloomfi packages.
package testutil

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/bloomfi/internal/model"
	"github.com/Veraticus/bloomfi/internal/service"
	"github.com/Veraticus/bloomfi/internal/storage"
)

// TestDB represents a test database with associated test utilities.
type TestDB struct {
	Storage service.Storage
	t       *testing.T
}

// SetupTestDB creates a new in-memory test database.
// It automatically handles migrations and cleanup.
//
// Example:
//
//	db := testutil.SetupTestDB(t)
//	checking := db.MustCreateAccount(1, "Checking", "100.00")
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()
	return SetupTestDBWithOptions(t, TestDBOptions{})
}

// TestDBOptions provides configuration options for test database setup.
type TestDBOptions struct {
	CustomSetup func(context.Context, service.Storage) error
	// OnDisk stores the database under t.TempDir instead of in memory.
	OnDisk         bool
	SkipMigrations bool
}

// SetupTestDBWithOptions creates a test database with custom options.
func SetupTestDBWithOptions(t *testing.T, opts TestDBOptions) *TestDB {
	t.Helper()

	path := ":memory:"
	if opts.OnDisk {
		path = filepath.Join(t.TempDir(), "bloomfi.db")
	}

	store, err := storage.NewSQLiteStorage(path)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	ctx := context.Background()

	if !opts.SkipMigrations {
		if err := store.Migrate(ctx); err != nil {
			t.Fatalf("failed to run migrations: %v", err)
		}
	}

	if opts.CustomSetup != nil {
		if err := opts.CustomSetup(ctx, store); err != nil {
			t.Fatalf("custom setup failed: %v", err)
		}
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	return &TestDB{
		Storage: store,
		t:       t,
	}
}

// MustCreateAccount opens a checking account for userID with the given balance.
func (db *TestDB) MustCreateAccount(userID int64, name, balance string) *model.Account {
	db.t.Helper()
	account := &model.Account{
		UserID:  userID,
		Type:    "checking",
		Name:    name,
		Balance: decimal.RequireFromString(balance),
	}
	if err := db.Storage.CreateAccount(context.Background(), account); err != nil {
		db.t.Fatalf("failed to create account %q: %v", name, err)
	}
	return account
}

// MustBalance returns the stored balance of an account.
func (db *TestDB) MustBalance(userID, accountID int64) decimal.Decimal {
	db.t.Helper()
	account, err := db.Storage.GetAccountForOwner(context.Background(), accountID, userID)
	if err != nil {
		db.t.Fatalf("failed to load account %d: %v", accountID, err)
	}
	return account.Balance
}

// MustTransactions returns every transaction of userID, newest first.
func (db *TestDB) MustTransactions(userID int64) []model.Transaction {
	db.t.Helper()
	txns, err := db.Storage.ListTransactions(context.Background(), service.TransactionFilter{UserID: userID})
	if err != nil {
		db.t.Fatalf("failed to list transactions: %v", err)
	}
	return txns
}

// WithTransaction executes the given function within a database transaction.
// The transaction is automatically rolled back after the function completes.
func (db *TestDB) WithTransaction(fn func(tx service.Transaction) error) error {
	ctx := context.Background()
	tx, err := db.Storage.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() { _ = tx.Rollback() }()

	return fn(tx)
}
