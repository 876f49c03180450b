package engine

import (
	"context"

	"github.com/Veraticus/bloomfi/internal/model"
	"github.com/Veraticus/bloomfi/internal/service"
)

// Transactions lists the user's transactions matching filter, newest first.
func (e *Engine) Transactions(ctx context.Context, filter service.TransactionFilter) ([]model.Transaction, error) {
	return e.storage.ListTransactions(ctx, filter)
}

// Transaction returns one of the user's transactions, or common.ErrNotFound.
func (e *Engine) Transaction(ctx context.Context, userID, transactionID int64) (*model.Transaction, error) {
	return e.storage.GetTransactionForOwner(ctx, transactionID, userID)
}
