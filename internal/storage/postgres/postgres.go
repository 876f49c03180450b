// Package postgres implements service.Storage on PostgreSQL through pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/Veraticus/bloomfi/internal/common"
	"github.com/Veraticus/bloomfi/internal/model"
	"github.com/Veraticus/bloomfi/internal/service"
	"github.com/Veraticus/bloomfi/internal/storage"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Storage implements service.Storage on a pgx connection pool.
type Storage struct {
	pool *pgxpool.Pool
}

var _ service.Storage = (*Storage)(nil)

// Options tunes the connection pool.
type Options struct {
	MaxConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// New connects to dsn and verifies the connection.
func New(ctx context.Context, dsn string, opts Options) (*Storage, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("%w: postgres dsn", storage.ErrEmptyString)
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database URL: %w", err)
	}
	if opts.MaxConns > 0 {
		cfg.MaxConns = opts.MaxConns
	}
	if opts.MaxConnLifetime > 0 {
		cfg.MaxConnLifetime = opts.MaxConnLifetime
	}
	if opts.MaxConnIdleTime > 0 {
		cfg.MaxConnIdleTime = opts.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	return &Storage{pool: pool}, nil
}

// Close releases every pooled connection.
func (s *Storage) Close() error {
	s.pool.Close()
	return nil
}

// BeginTx starts a unit of work. Account reads through the returned
// transaction take row locks until Commit or Rollback.
func (s *Storage) BeginTx(ctx context.Context) (service.Transaction, error) {
	if ctx == nil {
		return nil, storage.ErrNilContext
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", mapPgError(err))
	}
	return &pgTransaction{tx: tx, ctx: ctx}, nil
}

func (s *Storage) withTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", mapPgError(err))
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", mapPgError(err))
	}
	return nil
}

// CreateAccount inserts a new account for its owner.
func (s *Storage) CreateAccount(ctx context.Context, account *model.Account) error {
	if err := storage.ValidateNewAccount(account); err != nil {
		return err
	}
	return createAccount(ctx, s.pool, account)
}

// GetAccountForOwner retrieves an account only if ownerID owns it.
func (s *Storage) GetAccountForOwner(ctx context.Context, accountID, ownerID int64) (*model.Account, error) {
	return getAccountForOwner(ctx, s.pool, accountID, ownerID, false)
}

// ListAccounts returns every account owned by ownerID ordered by ID.
func (s *Storage) ListAccounts(ctx context.Context, ownerID int64) ([]model.Account, error) {
	return listAccounts(ctx, s.pool, ownerID)
}

// AdjustBalance applies delta to a single account in its own transaction.
func (s *Storage) AdjustBalance(ctx context.Context, account *model.Account, delta decimal.Decimal) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		var adjErr error
		balance, adjErr = adjustBalance(ctx, tx, account, delta)
		return adjErr
	})
	return balance, err
}

// AdjustPair moves amount between two accounts in its own transaction.
func (s *Storage) AdjustPair(ctx context.Context, from, to *model.Account, amount decimal.Decimal) (decimal.Decimal, decimal.Decimal, error) {
	var fromBalance, toBalance decimal.Decimal
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		var adjErr error
		fromBalance, toBalance, adjErr = adjustPair(ctx, tx, from, to, amount)
		return adjErr
	})
	return fromBalance, toBalance, err
}

// AppendTransaction writes a single transaction row.
func (s *Storage) AppendTransaction(ctx context.Context, txn *model.Transaction) error {
	if err := storage.ValidateTransaction(txn); err != nil {
		return err
	}
	return appendTransaction(ctx, s.pool, txn)
}

// GetTransactionForOwner retrieves a transaction only if ownerID owns its account.
func (s *Storage) GetTransactionForOwner(ctx context.Context, transactionID, ownerID int64) (*model.Transaction, error) {
	return getTransactionForOwner(ctx, s.pool, transactionID, ownerID)
}

// ListTransactions returns the owner's transactions newest first.
func (s *Storage) ListTransactions(ctx context.Context, filter service.TransactionFilter) ([]model.Transaction, error) {
	if err := storage.ValidateFilter(filter); err != nil {
		return nil, err
	}
	return listTransactions(ctx, s.pool, filter)
}

// pgTransaction adapts pgx.Tx to service.Transaction. pgx wants a context on
// Commit and Rollback, so the one passed to BeginTx is kept for them.
type pgTransaction struct {
	tx  pgx.Tx
	ctx context.Context //nolint:containedctx // Commit has no context parameter
}

func (t *pgTransaction) Commit() error {
	if err := t.tx.Commit(t.ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", mapPgError(err))
	}
	return nil
}

func (t *pgTransaction) Rollback() error {
	err := t.tx.Rollback(t.ctx)
	if errors.Is(err, pgx.ErrTxClosed) {
		return nil
	}
	return err
}

func (t *pgTransaction) CreateAccount(ctx context.Context, account *model.Account) error {
	if err := storage.ValidateNewAccount(account); err != nil {
		return err
	}
	return createAccount(ctx, t.tx, account)
}

func (t *pgTransaction) GetAccountForOwner(ctx context.Context, accountID, ownerID int64) (*model.Account, error) {
	return getAccountForOwner(ctx, t.tx, accountID, ownerID, true)
}

func (t *pgTransaction) ListAccounts(ctx context.Context, ownerID int64) ([]model.Account, error) {
	return listAccounts(ctx, t.tx, ownerID)
}

func (t *pgTransaction) AdjustBalance(ctx context.Context, account *model.Account, delta decimal.Decimal) (decimal.Decimal, error) {
	return adjustBalance(ctx, t.tx, account, delta)
}

func (t *pgTransaction) AdjustPair(ctx context.Context, from, to *model.Account, amount decimal.Decimal) (decimal.Decimal, decimal.Decimal, error) {
	return adjustPair(ctx, t.tx, from, to, amount)
}

func (t *pgTransaction) AppendTransaction(ctx context.Context, txn *model.Transaction) error {
	if err := storage.ValidateTransaction(txn); err != nil {
		return err
	}
	return appendTransaction(ctx, t.tx, txn)
}

func (t *pgTransaction) GetTransactionForOwner(ctx context.Context, transactionID, ownerID int64) (*model.Transaction, error) {
	return getTransactionForOwner(ctx, t.tx, transactionID, ownerID)
}

func (t *pgTransaction) ListTransactions(ctx context.Context, filter service.TransactionFilter) ([]model.Transaction, error) {
	if err := storage.ValidateFilter(filter); err != nil {
		return nil, err
	}
	return listTransactions(ctx, t.tx, filter)
}

// mapPgError translates server errors into the application's sentinels.
// Serialization failures, deadlocks and lock timeouts become common.ErrConflict.
func mapPgError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case "40001", "40P01", "55P03":
		return fmt.Errorf("%w: %v", common.ErrConflict, err)
	case "23505":
		return fmt.Errorf("%w: %v", common.ErrDuplicateEntry, err)
	case "23514":
		return fmt.Errorf("%w: %v", common.ErrNegativeBalance, err)
	case "22003":
		return fmt.Errorf("%w: %v", model.ErrAmountOutOfRange, err)
	case codeAppendOnly:
		return fmt.Errorf("%w: %v", storage.ErrImmutableTransaction, err)
	case "XX001", "XX002":
		return fmt.Errorf("%w: %v", common.ErrDatabaseCorrupted, err)
	}
	return err
}
