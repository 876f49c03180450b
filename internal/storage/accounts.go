package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/bloomfi/internal/common"
	"github.com/Veraticus/bloomfi/internal/model"
)

const accountColumns = `id, user_id, account_type, name, display_number, balance, version, created_at`

// CreateAccount inserts a new account for its owner.
func (s *SQLiteStorage) CreateAccount(ctx context.Context, account *model.Account) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateNewAccount(account); err != nil {
		return err
	}
	return createAccount(ctx, s.db, account)
}

// GetAccountForOwner retrieves an account only if ownerID owns it.
func (s *SQLiteStorage) GetAccountForOwner(ctx context.Context, accountID, ownerID int64) (*model.Account, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return getAccountForOwner(ctx, s.db, accountID, ownerID)
}

// ListAccounts returns every account owned by ownerID ordered by ID.
func (s *SQLiteStorage) ListAccounts(ctx context.Context, ownerID int64) ([]model.Account, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return listAccounts(ctx, s.db, ownerID)
}

// AdjustBalance applies delta to a single account in its own transaction.
func (s *SQLiteStorage) AdjustBalance(ctx context.Context, account *model.Account, delta decimal.Decimal) (decimal.Decimal, error) {
	if err := validateContext(ctx); err != nil {
		return decimal.Zero, err
	}

	var balance decimal.Decimal
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var adjErr error
		balance, adjErr = adjustBalance(ctx, tx, account, delta)
		return adjErr
	})
	return balance, err
}

// AdjustPair moves amount between two accounts in its own transaction.
func (s *SQLiteStorage) AdjustPair(ctx context.Context, from, to *model.Account, amount decimal.Decimal) (decimal.Decimal, decimal.Decimal, error) {
	if err := validateContext(ctx); err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	var fromBalance, toBalance decimal.Decimal
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var adjErr error
		fromBalance, toBalance, adjErr = adjustPair(ctx, tx, from, to, amount)
		return adjErr
	})
	return fromBalance, toBalance, err
}

func createAccount(ctx context.Context, q dbtx, account *model.Account) error {
	if account.DisplayNumber == "" {
		account.DisplayNumber = model.DefaultDisplayNumber
	}
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now().UTC()
	}

	res, err := q.ExecContext(ctx, `
		INSERT INTO accounts (user_id, account_type, name, display_number, balance, version, created_at)
		VALUES (?, ?, ?, ?, ?, 0, ?)
	`, account.UserID, account.Type, account.Name, account.DisplayNumber, account.Balance.String(), account.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert account: %w", mapSQLiteError(err))
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read account id: %w", err)
	}
	account.ID = id
	account.Version = 0
	return nil
}

func getAccountForOwner(ctx context.Context, q dbtx, accountID, ownerID int64) (*model.Account, error) {
	if accountID <= 0 || ownerID <= 0 {
		return nil, common.ErrNotFound
	}

	row := q.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = ? AND user_id = ?`,
		accountID, ownerID)

	account, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", mapSQLiteError(err))
	}
	return account, nil
}

func listAccounts(ctx context.Context, q dbtx, ownerID int64) ([]model.Account, error) {
	if err := validateID(ownerID, "owner_id"); err != nil {
		return nil, err
	}

	rows, err := q.QueryContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE user_id = ? ORDER BY id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", mapSQLiteError(err))
	}
	defer func() { _ = rows.Close() }()

	var accounts []model.Account
	for rows.Next() {
		account, scanErr := scanAccount(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan account: %w", scanErr)
		}
		accounts = append(accounts, *account)
	}
	return accounts, rows.Err()
}

func adjustBalance(ctx context.Context, q dbtx, account *model.Account, delta decimal.Decimal) (decimal.Decimal, error) {
	if err := validateSnapshot(account); err != nil {
		return decimal.Zero, err
	}
	if delta.IsZero() {
		return decimal.Zero, fmt.Errorf("%w: zero delta", ErrInvalidAmount)
	}

	next := account.Balance.Add(delta)
	if next.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: account %d", common.ErrNegativeBalance, account.ID)
	}

	if err := casBalance(ctx, q, account, next); err != nil {
		return decimal.Zero, err
	}
	return next, nil
}

// adjustPair writes both rows in ascending ID order so that two transfers over
// the same pair in opposite directions always contend in the same sequence.
func adjustPair(ctx context.Context, q dbtx, from, to *model.Account, amount decimal.Decimal) (decimal.Decimal, decimal.Decimal, error) {
	if err := validateSnapshot(from); err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	if err := validateSnapshot(to); err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	if from.ID == to.ID {
		return decimal.Zero, decimal.Zero, fmt.Errorf("%w: source and destination are both %d", ErrInvalidAccount, from.ID)
	}
	if err := validatePositive(amount); err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	nextFrom := from.Balance.Sub(amount)
	if nextFrom.IsNegative() {
		return decimal.Zero, decimal.Zero, fmt.Errorf("%w: account %d", common.ErrNegativeBalance, from.ID)
	}
	nextTo := to.Balance.Add(amount)

	writes := []struct {
		account *model.Account
		balance decimal.Decimal
	}{{from, nextFrom}, {to, nextTo}}
	if to.ID < from.ID {
		writes[0], writes[1] = writes[1], writes[0]
	}

	for _, w := range writes {
		if err := casBalance(ctx, q, w.account, w.balance); err != nil {
			return decimal.Zero, decimal.Zero, err
		}
	}
	return nextFrom, nextTo, nil
}

// casBalance stores balance only if the row still carries the snapshot's version.
// On success the snapshot is updated in place.
func casBalance(ctx context.Context, q dbtx, account *model.Account, balance decimal.Decimal) error {
	res, err := q.ExecContext(ctx, `
		UPDATE accounts SET balance = ?, version = version + 1
		WHERE id = ? AND user_id = ? AND version = ?
	`, balance.String(), account.ID, account.UserID, account.Version)
	if err != nil {
		return fmt.Errorf("failed to update balance of account %d: %w", account.ID, mapSQLiteError(err))
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n != 1 {
		return fmt.Errorf("%w: account %d changed since version %d", common.ErrConflict, account.ID, account.Version)
	}

	account.Balance = balance
	account.Version++
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*model.Account, error) {
	var (
		account model.Account
		balance string
	)
	if err := row.Scan(
		&account.ID,
		&account.UserID,
		&account.Type,
		&account.Name,
		&account.DisplayNumber,
		&balance,
		&account.Version,
		&account.CreatedAt,
	); err != nil {
		return nil, err
	}

	parsed, err := decimal.NewFromString(balance)
	if err != nil {
		return nil, fmt.Errorf("%w: account %d balance %q", common.ErrDatabaseCorrupted, account.ID, balance)
	}
	account.Balance = parsed
	return &account, nil
}
