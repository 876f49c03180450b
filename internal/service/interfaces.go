// Package service defines the interfaces between the ledger engine and its collaborators.
package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/bloomfi/internal/model"
)

// TransactionFilter narrows transaction listings. Zero values mean "no bound".
type TransactionFilter struct {
	StartDate *time.Time
	EndDate   *time.Time
	AccountID int64
	UserID    int64
	Limit     int
}

// AccountStore is the owner-scoped account record store.
type AccountStore interface {
	// CreateAccount inserts account and fills in its ID, Version and CreatedAt.
	CreateAccount(ctx context.Context, account *model.Account) error
	// GetAccountForOwner returns common.ErrNotFound when the account does not exist
	// or belongs to someone else; the two cases are indistinguishable.
	GetAccountForOwner(ctx context.Context, accountID, ownerID int64) (*model.Account, error)
	ListAccounts(ctx context.Context, ownerID int64) ([]model.Account, error)
	// AdjustBalance adds delta to the snapshot's balance if its version is still
	// current, returning the new balance or common.ErrConflict.
	AdjustBalance(ctx context.Context, account *model.Account, delta decimal.Decimal) (decimal.Decimal, error)
	// AdjustPair moves amount from one snapshot to the other with the same
	// compare-and-swap guarantee on both rows.
	AdjustPair(ctx context.Context, from, to *model.Account, amount decimal.Decimal) (fromBalance, toBalance decimal.Decimal, err error)
}

// TransactionLog is the append-only transaction record store.
type TransactionLog interface {
	// AppendTransaction inserts txn and fills in its ID. Rows are never updated or deleted.
	AppendTransaction(ctx context.Context, txn *model.Transaction) error
	GetTransactionForOwner(ctx context.Context, transactionID, ownerID int64) (*model.Transaction, error)
	ListTransactions(ctx context.Context, filter TransactionFilter) ([]model.Transaction, error)
}

// Storage defines the contract for our persistence layer.
type Storage interface {
	AccountStore
	TransactionLog

	Migrate(ctx context.Context) error
	BeginTx(ctx context.Context) (Transaction, error)
	Close() error
}

// Transaction is a unit of work; nothing written through it is visible to
// other callers until Commit succeeds.
type Transaction interface {
	AccountStore
	TransactionLog

	Commit() error
	Rollback() error
}
