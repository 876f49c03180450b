package engine

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/bloomfi/internal/model"
	"github.com/Veraticus/bloomfi/internal/service"
)

// RecentLimit is how many transactions the dashboard shows.
const RecentLimit = 5

// Dashboard summarizes a user's money: the exact sum of their balances and
// their most recent activity.
type Dashboard struct {
	TotalBalance decimal.Decimal
	Accounts     []model.Account
	Recent       []model.Transaction
}

// Dashboard loads the summary for userID.
func (e *Engine) Dashboard(ctx context.Context, userID int64) (*Dashboard, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("%w: missing user", ErrInvalidInput)
	}

	accounts, err := e.storage.ListAccounts(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}

	total := decimal.Zero
	for _, account := range accounts {
		total = total.Add(account.Balance)
	}

	recent, err := e.storage.ListTransactions(ctx, service.TransactionFilter{
		UserID: userID,
		Limit:  RecentLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list recent transactions: %w", err)
	}

	return &Dashboard{
		TotalBalance: total,
		Accounts:     accounts,
		Recent:       recent,
	}, nil
}
