package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/bloomfi/internal/model"
	"github.com/Veraticus/bloomfi/internal/service"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// dbtx is satisfied by both *sql.DB and *sql.Tx so every query helper can run
// inside or outside a transaction.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLiteStorage implements the Storage interface using SQLite.
type SQLiteStorage struct {
	db     *sql.DB
	dbPath string
}

var _ service.Storage = (*SQLiteStorage)(nil)

// NewSQLiteStorage creates a new SQLite storage instance.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if err := validateString(dbPath, "dbPath"); err != nil {
		return nil, err
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// _txlock=immediate makes every BEGIN take the write lock up front, so the
	// balance read and the balance write of one unit of work see the same snapshot.
	dsn := dbPath + "?_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate&_foreign_keys=on"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite doesn't benefit from multiple connections
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLiteStorage{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// Path returns the database file location.
func (s *SQLiteStorage) Path() string {
	return s.dbPath
}

// BeginTx starts a new database transaction.
func (s *SQLiteStorage) BeginTx(ctx context.Context) (service.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", mapSQLiteError(err))
	}

	return &sqliteTransaction{tx: tx}, nil
}

// withTx runs fn inside a transaction that is committed only if fn succeeds.
func (s *SQLiteStorage) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", mapSQLiteError(err))
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", mapSQLiteError(err))
	}
	return nil
}

// sqliteTransaction wraps sql.Tx to implement service.Transaction.
type sqliteTransaction struct {
	tx *sql.Tx
}

func (t *sqliteTransaction) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", mapSQLiteError(err))
	}
	return nil
}

func (t *sqliteTransaction) Rollback() error {
	return t.tx.Rollback()
}

// Transaction methods delegate to the shared query helpers with the transaction.
func (t *sqliteTransaction) CreateAccount(ctx context.Context, account *model.Account) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateNewAccount(account); err != nil {
		return err
	}
	return createAccount(ctx, t.tx, account)
}

func (t *sqliteTransaction) GetAccountForOwner(ctx context.Context, accountID, ownerID int64) (*model.Account, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return getAccountForOwner(ctx, t.tx, accountID, ownerID)
}

func (t *sqliteTransaction) ListAccounts(ctx context.Context, ownerID int64) ([]model.Account, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return listAccounts(ctx, t.tx, ownerID)
}

func (t *sqliteTransaction) AdjustBalance(ctx context.Context, account *model.Account, delta decimal.Decimal) (decimal.Decimal, error) {
	if err := validateContext(ctx); err != nil {
		return decimal.Zero, err
	}
	return adjustBalance(ctx, t.tx, account, delta)
}

func (t *sqliteTransaction) AdjustPair(ctx context.Context, from, to *model.Account, amount decimal.Decimal) (decimal.Decimal, decimal.Decimal, error) {
	if err := validateContext(ctx); err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	return adjustPair(ctx, t.tx, from, to, amount)
}

func (t *sqliteTransaction) AppendTransaction(ctx context.Context, txn *model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateTransaction(txn); err != nil {
		return err
	}
	return appendTransaction(ctx, t.tx, txn)
}

func (t *sqliteTransaction) GetTransactionForOwner(ctx context.Context, transactionID, ownerID int64) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return getTransactionForOwner(ctx, t.tx, transactionID, ownerID)
}

func (t *sqliteTransaction) ListTransactions(ctx context.Context, filter service.TransactionFilter) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateFilter(filter); err != nil {
		return nil, err
	}
	return listTransactions(ctx, t.tx, filter)
}
