package engine

import (
	"context"
	"fmt"

	"github.com/Veraticus/bloomfi/internal/model"
)

// Accounts lists the user's accounts.
func (e *Engine) Accounts(ctx context.Context, userID int64) ([]model.Account, error) {
	return e.storage.ListAccounts(ctx, userID)
}

// Account returns one of the user's accounts. Accounts owned by someone else
// report common.ErrNotFound like missing ones.
func (e *Engine) Account(ctx context.Context, userID, accountID int64) (*model.Account, error) {
	return e.storage.GetAccountForOwner(ctx, accountID, userID)
}

// OpenAccount creates an account for userID with a non-negative opening balance.
func (e *Engine) OpenAccount(ctx context.Context, account *model.Account) error {
	if account == nil || account.UserID <= 0 {
		return fmt.Errorf("%w: missing owner", ErrInvalidInput)
	}
	if err := checkAmount(account.Balance); err != nil {
		return err
	}
	if account.Balance.IsNegative() {
		return fmt.Errorf("%w: opening balance cannot be negative", ErrInvalidAmount)
	}
	return e.storage.CreateAccount(ctx, account)
}
