// Package engine implements the ledger: transfers between a user's accounts,
// single-account deposits and withdrawals, and the dashboard summary.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/bloomfi/internal/common"
	"github.com/Veraticus/bloomfi/internal/model"
	"github.com/Veraticus/bloomfi/internal/service"
)

// Engine runs ledger operations against a storage backend. It is safe for
// concurrent use; all coordination happens inside storage transactions.
type Engine struct {
	storage service.Storage
	now     func() time.Time
	retry   common.RetryOptions
}

// Config holds configuration options for the engine.
type Config struct {
	// Now stamps transaction rows. Defaults to time.Now in UTC.
	Now          func() time.Time
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  3,
		InitialDelay: 10 * time.Millisecond,
		MaxDelay:     250 * time.Millisecond,
	}
}

// New creates an engine with the default configuration.
func New(storage service.Storage) *Engine {
	return NewWithConfig(storage, DefaultConfig())
}

// NewWithConfig creates an engine with custom configuration.
func NewWithConfig(storage service.Storage, config Config) *Engine {
	now := config.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Engine{
		storage: storage,
		now:     now,
		retry: common.RetryOptions{
			MaxAttempts:  config.MaxAttempts,
			InitialDelay: config.InitialDelay,
			MaxDelay:     config.MaxDelay,
			Multiplier:   2.0,
		},
	}
}

// TransferResult carries the committed balances at full precision and the two
// log rows written for the transfer.
type TransferResult struct {
	FromBalance decimal.Decimal
	ToBalance   decimal.Decimal
	Debit       model.Transaction
	Credit      model.Transaction
}

// Transfer moves req.Amount between two accounts owned by req.RequesterID.
// Both balance writes and both log rows commit together or not at all.
func (e *Engine) Transfer(ctx context.Context, req TransferRequest) (*TransferResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var result *TransferResult
	attempt := 0
	err := common.WithRetry(ctx, func() error {
		attempt++
		slog.Debug("Attempting transfer",
			"attempt", attempt,
			"user_id", req.RequesterID,
			"from_account", req.FromAccountID,
			"to_account", req.ToAccountID)

		r, err := e.transferOnce(ctx, req)
		if err != nil {
			return err
		}
		result = r
		return nil
	}, e.retry)
	if err != nil {
		return nil, e.finalError(err)
	}

	slog.Info("Transfer committed",
		"user_id", req.RequesterID,
		"from_account", req.FromAccountID,
		"to_account", req.ToAccountID,
		"amount", req.Amount.String(),
		"attempts", attempt)
	return result, nil
}

func (e *Engine) transferOnce(ctx context.Context, req TransferRequest) (result *TransferResult, err error) {
	tx, err := e.storage.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transfer: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	// Accounts are read in ascending ID order so two transfers over the same
	// pair lock rows in the same sequence.
	firstID, secondID := req.FromAccountID, req.ToAccountID
	if secondID < firstID {
		firstID, secondID = secondID, firstID
	}
	first, err := ownedAccount(ctx, tx, firstID, req.RequesterID)
	if err != nil {
		return nil, err
	}
	second, err := ownedAccount(ctx, tx, secondID, req.RequesterID)
	if err != nil {
		return nil, err
	}
	from, to := first, second
	if from.ID != req.FromAccountID {
		from, to = second, first
	}

	if from.Balance.LessThan(req.Amount) {
		return nil, ErrInsufficientFunds
	}
	if err := checkAmount(to.Balance.Add(req.Amount)); err != nil {
		return nil, err
	}

	fromBalance, toBalance, err := tx.AdjustPair(ctx, from, to, req.Amount)
	if err != nil {
		if errors.Is(err, common.ErrNegativeBalance) {
			return nil, ErrInsufficientFunds
		}
		return nil, fmt.Errorf("failed to adjust balances: %w", err)
	}

	debit, credit := model.NewTransferPair(req.RequesterID, from, to, req.Amount, e.now())
	if err := tx.AppendTransaction(ctx, &debit); err != nil {
		return nil, fmt.Errorf("failed to record debit: %w", err)
	}
	if err := tx.AppendTransaction(ctx, &credit); err != nil {
		return nil, fmt.Errorf("failed to record credit: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transfer: %w", err)
	}
	committed = true

	return &TransferResult{
		FromBalance: fromBalance,
		ToBalance:   toBalance,
		Debit:       debit,
		Credit:      credit,
	}, nil
}

// AdjustResult carries the committed balance and the log row of a deposit or withdrawal.
type AdjustResult struct {
	Balance     decimal.Decimal
	Transaction model.Transaction
}

// Deposit credits req.Amount to one of the requester's accounts.
func (e *Engine) Deposit(ctx context.Context, req AdjustRequest) (*AdjustResult, error) {
	return e.adjust(ctx, req, model.TypeDeposit)
}

// Withdraw debits req.Amount from one of the requester's accounts.
func (e *Engine) Withdraw(ctx context.Context, req AdjustRequest) (*AdjustResult, error) {
	return e.adjust(ctx, req, model.TypeWithdrawal)
}

func (e *Engine) adjust(ctx context.Context, req AdjustRequest, kind model.TransactionType) (*AdjustResult, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	delta := req.Amount
	if kind == model.TypeWithdrawal {
		delta = delta.Neg()
	}

	var result *AdjustResult
	err := common.WithRetry(ctx, func() error {
		r, err := e.adjustOnce(ctx, req, kind, delta)
		if err != nil {
			return err
		}
		result = r
		return nil
	}, e.retry)
	if err != nil {
		return nil, e.finalError(err)
	}

	slog.Info("Balance adjusted",
		"user_id", req.RequesterID,
		"account", req.AccountID,
		"type", string(kind),
		"amount", req.Amount.String())
	return result, nil
}

func (e *Engine) adjustOnce(ctx context.Context, req AdjustRequest, kind model.TransactionType, delta decimal.Decimal) (*AdjustResult, error) {
	tx, err := e.storage.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin %s: %w", kind, err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	account, err := ownedAccount(ctx, tx, req.AccountID, req.RequesterID)
	if err != nil {
		return nil, err
	}
	next := account.Balance.Add(delta)
	if next.IsNegative() {
		return nil, ErrInsufficientFunds
	}
	if err := checkAmount(next); err != nil {
		return nil, err
	}

	// The log row goes first so a duplicate statement entry is rejected
	// before any balance moves.
	txn := model.Transaction{
		UserID:     req.RequesterID,
		AccountID:  account.ID,
		Amount:     delta,
		Type:       kind,
		Note:       req.Note,
		Category:   req.Category,
		State:      model.StateCompleted,
		ExternalID: req.ExternalID,
		CreatedAt:  e.now(),
	}
	if err := tx.AppendTransaction(ctx, &txn); err != nil {
		return nil, fmt.Errorf("failed to record %s: %w", kind, err)
	}

	balance, err := tx.AdjustBalance(ctx, account, delta)
	if err != nil {
		if errors.Is(err, common.ErrNegativeBalance) {
			return nil, ErrInsufficientFunds
		}
		return nil, fmt.Errorf("failed to adjust balance: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit %s: %w", kind, err)
	}
	committed = true

	return &AdjustResult{Balance: balance, Transaction: txn}, nil
}

// ownedAccount hides whether a missing account exists under another owner.
func ownedAccount(ctx context.Context, tx service.Transaction, accountID, ownerID int64) (*model.Account, error) {
	account, err := tx.GetAccountForOwner(ctx, accountID, ownerID)
	if errors.Is(err, common.ErrNotFound) {
		return nil, ErrForbidden
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load account: %w", err)
	}
	return account, nil
}

// finalError turns an exhausted retry budget into ErrConflict. Every other
// error is already final and passes through.
func (e *Engine) finalError(err error) error {
	if errors.Is(err, common.ErrMaxRetries) || common.IsRetryable(err) {
		slog.Warn("Ledger operation abandoned after conflicts", "error", err)
		return fmt.Errorf("%w: %w", ErrConflict, err)
	}
	return err
}
