package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/Veraticus/bloomfi/internal/common"
	"github.com/Veraticus/bloomfi/internal/model"
	"github.com/Veraticus/bloomfi/internal/service"
	"github.com/Veraticus/bloomfi/internal/storage"
)

const (
	accountColumns     = `id, user_id, account_type, name, display_number, balance::text, version, created_at`
	transactionColumns = `t.id, t.user_id, t.account_id, t.transaction_type, t.amount::text, t.note, t.category, t.state, t.external_id, t.created_at`
)

func createAccount(ctx context.Context, q querier, account *model.Account) error {
	if account.DisplayNumber == "" {
		account.DisplayNumber = model.DefaultDisplayNumber
	}
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now().UTC()
	}

	err := q.QueryRow(ctx, `
		INSERT INTO accounts (user_id, account_type, name, display_number, balance, version, created_at)
		VALUES ($1, $2, $3, $4, $5::numeric, 0, $6)
		RETURNING id
	`, account.UserID, account.Type, account.Name, account.DisplayNumber, account.Balance.String(), account.CreatedAt).
		Scan(&account.ID)
	if err != nil {
		return fmt.Errorf("failed to insert account: %w", mapPgError(err))
	}
	account.Version = 0
	return nil
}

// getAccountForOwner locks the row when called inside a unit of work so no
// other transaction can move the balance between this read and the write.
func getAccountForOwner(ctx context.Context, q querier, accountID, ownerID int64, lock bool) (*model.Account, error) {
	if accountID <= 0 || ownerID <= 0 {
		return nil, common.ErrNotFound
	}

	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1 AND user_id = $2`
	if lock {
		query += ` FOR UPDATE`
	}

	account, err := scanAccount(q.QueryRow(ctx, query, accountID, ownerID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", mapPgError(err))
	}
	return account, nil
}

func listAccounts(ctx context.Context, q querier, ownerID int64) ([]model.Account, error) {
	if ownerID <= 0 {
		return nil, fmt.Errorf("%w: owner_id=%d", storage.ErrInvalidID, ownerID)
	}

	rows, err := q.Query(ctx, `SELECT `+accountColumns+` FROM accounts WHERE user_id = $1 ORDER BY id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", mapPgError(err))
	}
	defer rows.Close()

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

func adjustBalance(ctx context.Context, q querier, account *model.Account, delta decimal.Decimal) (decimal.Decimal, error) {
	if err := storage.ValidateSnapshot(account); err != nil {
		return decimal.Zero, err
	}
	if delta.IsZero() {
		return decimal.Zero, fmt.Errorf("%w: zero delta", storage.ErrInvalidAmount)
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

// adjustPair writes the lower account ID first, matching the SQLite backend.
func adjustPair(ctx context.Context, q querier, from, to *model.Account, amount decimal.Decimal) (decimal.Decimal, decimal.Decimal, error) {
	if err := storage.ValidateSnapshot(from); err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	if err := storage.ValidateSnapshot(to); err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	if from.ID == to.ID {
		return decimal.Zero, decimal.Zero, fmt.Errorf("%w: source and destination are both %d", storage.ErrInvalidAccount, from.ID)
	}
	if err := storage.ValidatePositive(amount); err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	nextFrom := from.Balance.Sub(amount)
	if nextFrom.IsNegative() {
		return decimal.Zero, decimal.Zero, fmt.Errorf("%w: account %d", common.ErrNegativeBalance, from.ID)
	}
	nextTo := to.Balance.Add(amount)

	first, firstBal, second, secondBal := from, nextFrom, to, nextTo
	if to.ID < from.ID {
		first, firstBal, second, secondBal = to, nextTo, from, nextFrom
	}
	if err := casBalance(ctx, q, first, firstBal); err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	if err := casBalance(ctx, q, second, secondBal); err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	return nextFrom, nextTo, nil
}

func casBalance(ctx context.Context, q querier, account *model.Account, balance decimal.Decimal) error {
	tag, err := q.Exec(ctx, `
		UPDATE accounts SET balance = $1::numeric, version = version + 1
		WHERE id = $2 AND user_id = $3 AND version = $4
	`, balance.String(), account.ID, account.UserID, account.Version)
	if err != nil {
		return fmt.Errorf("failed to update balance of account %d: %w", account.ID, mapPgError(err))
	}
	if tag.RowsAffected() != 1 {
		return fmt.Errorf("%w: account %d changed since version %d", common.ErrConflict, account.ID, account.Version)
	}

	account.Balance = balance
	account.Version++
	return nil
}

func appendTransaction(ctx context.Context, q querier, txn *model.Transaction) error {
	if txn.CreatedAt.IsZero() {
		txn.CreatedAt = time.Now().UTC()
	}

	var externalID *string
	if txn.ExternalID != "" {
		externalID = &txn.ExternalID
	}

	err := q.QueryRow(ctx, `
		INSERT INTO transactions (
			user_id, account_id, transaction_type, amount,
			note, category, state, external_id, created_at
		) VALUES ($1, $2, $3, $4::numeric, $5, $6, $7, $8, $9)
		RETURNING id
	`,
		txn.UserID,
		txn.AccountID,
		string(txn.Type),
		txn.Amount.String(),
		txn.Note,
		txn.Category,
		txn.State,
		externalID,
		txn.CreatedAt,
	).Scan(&txn.ID)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", mapPgError(err))
	}
	return nil
}

func getTransactionForOwner(ctx context.Context, q querier, transactionID, ownerID int64) (*model.Transaction, error) {
	if transactionID <= 0 || ownerID <= 0 {
		return nil, common.ErrNotFound
	}

	row := q.QueryRow(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions t
		JOIN accounts a ON a.id = t.account_id
		WHERE t.id = $1 AND a.user_id = $2
	`, transactionID, ownerID)

	txn, err := scanTransaction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", mapPgError(err))
	}
	return txn, nil
}

func listTransactions(ctx context.Context, q querier, filter service.TransactionFilter) ([]model.Transaction, error) {
	where := []string{"t.user_id = $1"}
	args := []any{filter.UserID}
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.AccountID > 0 {
		where = append(where, "t.account_id = "+next(filter.AccountID))
	}
	if filter.StartDate != nil {
		where = append(where, "t.created_at >= "+next(*filter.StartDate))
	}
	if filter.EndDate != nil {
		where = append(where, "t.created_at <= "+next(*filter.EndDate))
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions t WHERE ` +
		strings.Join(where, " AND ") +
		` ORDER BY t.created_at DESC, t.id DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ` + next(filter.Limit)
	}

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", mapPgError(err))
	}
	defer rows.Close()

	var transactions []model.Transaction
	for rows.Next() {
		txn, scanErr := scanTransaction(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", scanErr)
		}
		transactions = append(transactions, *txn)
	}
	return transactions, rows.Err()
}

func scanAccount(row pgx.Row) (*model.Account, error) {
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

func scanTransaction(row pgx.Row) (*model.Transaction, error) {
	var (
		txn        model.Transaction
		txnType    string
		amount     string
		externalID *string
	)
	if err := row.Scan(
		&txn.ID,
		&txn.UserID,
		&txn.AccountID,
		&txnType,
		&amount,
		&txn.Note,
		&txn.Category,
		&txn.State,
		&externalID,
		&txn.CreatedAt,
	); err != nil {
		return nil, err
	}

	parsed, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("%w: transaction %d amount %q", common.ErrDatabaseCorrupted, txn.ID, amount)
	}
	txn.Amount = parsed
	txn.Type = model.TransactionType(txnType)
	if externalID != nil {
		txn.ExternalID = *externalID
	}
	return &txn, nil
}
