package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/bloomfi/internal/common"
	"github.com/Veraticus/bloomfi/internal/model"
	"github.com/Veraticus/bloomfi/internal/service"
)

const transactionColumns = `id, user_id, account_id, transaction_type, amount, note, category, state, external_id, created_at`

// AppendTransaction writes a single transaction row.
func (s *SQLiteStorage) AppendTransaction(ctx context.Context, txn *model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateTransaction(txn); err != nil {
		return err
	}
	return appendTransaction(ctx, s.db, txn)
}

// GetTransactionForOwner retrieves a transaction only if ownerID owns its account.
func (s *SQLiteStorage) GetTransactionForOwner(ctx context.Context, transactionID, ownerID int64) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return getTransactionForOwner(ctx, s.db, transactionID, ownerID)
}

// ListTransactions returns the owner's transactions newest first.
func (s *SQLiteStorage) ListTransactions(ctx context.Context, filter service.TransactionFilter) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateFilter(filter); err != nil {
		return nil, err
	}
	return listTransactions(ctx, s.db, filter)
}

func appendTransaction(ctx context.Context, q dbtx, txn *model.Transaction) error {
	if txn.CreatedAt.IsZero() {
		txn.CreatedAt = time.Now().UTC()
	}

	var externalID sql.NullString
	if txn.ExternalID != "" {
		externalID = sql.NullString{String: txn.ExternalID, Valid: true}
	}

	res, err := q.ExecContext(ctx, `
		INSERT INTO transactions (
			user_id, account_id, transaction_type, amount,
			note, category, state, external_id, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		txn.UserID,
		txn.AccountID,
		string(txn.Type),
		txn.Amount.String(),
		txn.Note,
		txn.Category,
		txn.State,
		externalID,
		txn.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", mapSQLiteError(err))
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read transaction id: %w", err)
	}
	txn.ID = id
	return nil
}

// getTransactionForOwner joins through accounts so ownership is decided by the
// account, not only by the row's own user_id.
func getTransactionForOwner(ctx context.Context, q dbtx, transactionID, ownerID int64) (*model.Transaction, error) {
	if transactionID <= 0 || ownerID <= 0 {
		return nil, common.ErrNotFound
	}

	row := q.QueryRowContext(ctx, `
		SELECT t.id, t.user_id, t.account_id, t.transaction_type, t.amount, t.note,
			t.category, t.state, t.external_id, t.created_at
		FROM transactions t
		JOIN accounts a ON a.id = t.account_id
		WHERE t.id = ? AND a.user_id = ?
	`, transactionID, ownerID)

	txn, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", mapSQLiteError(err))
	}
	return txn, nil
}

func listTransactions(ctx context.Context, q dbtx, filter service.TransactionFilter) ([]model.Transaction, error) {
	var (
		where = []string{"user_id = ?"}
		args  = []any{filter.UserID}
	)

	if filter.AccountID > 0 {
		where = append(where, "account_id = ?")
		args = append(args, filter.AccountID)
	}
	if filter.StartDate != nil {
		where = append(where, "created_at >= ?")
		args = append(args, filter.StartDate.UTC())
	}
	if filter.EndDate != nil {
		where = append(where, "created_at <= ?")
		args = append(args, filter.EndDate.UTC())
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE ` +
		strings.Join(where, " AND ") +
		` ORDER BY created_at DESC, id DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", mapSQLiteError(err))
	}
	defer func() { _ = rows.Close() }()

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

func scanTransaction(row rowScanner) (*model.Transaction, error) {
	var (
		txn        model.Transaction
		txnType    string
		amount     string
		externalID sql.NullString
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
	txn.ExternalID = externalID.String
	return &txn, nil
}
