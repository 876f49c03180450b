// Package storage provides the data persistence layer for bloomfi.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/bloomfi/internal/model"
	"github.com/Veraticus/bloomfi/internal/service"
)

// Validation errors.
var (
	ErrNilContext         = errors.New("context cannot be nil")
	ErrEmptyString        = errors.New("string parameter cannot be empty")
	ErrNilParameter       = errors.New("parameter cannot be nil")
	ErrInvalidDateRange   = errors.New("start date must be before end date")
	ErrInvalidID          = errors.New("identifier must be positive")
	ErrInvalidAccount     = errors.New("invalid account")
	ErrInvalidTransaction = errors.New("invalid transaction")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidLimit       = errors.New("limit cannot be negative")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

func validateID(id int64, paramName string) error {
	if id <= 0 {
		return fmt.Errorf("%w: %s=%d", ErrInvalidID, paramName, id)
	}
	return nil
}

// validateNewAccount validates an account before insert.
func validateNewAccount(account *model.Account) error {
	if account == nil {
		return fmt.Errorf("%w: account", ErrNilParameter)
	}
	if err := validateID(account.UserID, "user_id"); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidAccount, err)
	}
	if strings.TrimSpace(account.Type) == "" {
		return fmt.Errorf("%w: missing type", ErrInvalidAccount)
	}
	if account.Balance.IsNegative() {
		return fmt.Errorf("%w: opening balance %s is negative", ErrInvalidAccount, account.Balance)
	}
	return nil
}

// validateSnapshot validates an account read earlier and about to be written back.
func validateSnapshot(account *model.Account) error {
	if account == nil {
		return fmt.Errorf("%w: account", ErrNilParameter)
	}
	if err := validateID(account.ID, "account_id"); err != nil {
		return err
	}
	return validateID(account.UserID, "user_id")
}

func validatePositive(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: %s must be greater than zero", ErrInvalidAmount, amount)
	}
	return nil
}

// validateTransaction validates a single transaction row before append.
func validateTransaction(txn *model.Transaction) error {
	if txn == nil {
		return fmt.Errorf("%w: transaction", ErrNilParameter)
	}
	if txn.ID != 0 {
		return fmt.Errorf("%w: already persisted as %d", ErrInvalidTransaction, txn.ID)
	}
	if txn.UserID <= 0 {
		return fmt.Errorf("%w: missing user ID", ErrInvalidTransaction)
	}
	if txn.AccountID <= 0 {
		return fmt.Errorf("%w: missing account ID", ErrInvalidTransaction)
	}
	if txn.Amount.IsZero() {
		return fmt.Errorf("%w: zero amount", ErrInvalidTransaction)
	}
	if txn.Type == "" {
		return fmt.Errorf("%w: missing type", ErrInvalidTransaction)
	}
	return nil
}

func validateFilter(filter service.TransactionFilter) error {
	if err := validateID(filter.UserID, "user_id"); err != nil {
		return err
	}
	if filter.StartDate != nil && filter.EndDate != nil && filter.EndDate.Before(*filter.StartDate) {
		return fmt.Errorf("%w: end date %v is before start date %v", ErrInvalidDateRange, *filter.EndDate, *filter.StartDate)
	}
	if filter.Limit < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidLimit, filter.Limit)
	}
	return nil
}

// Exported validators let other storage backends enforce the same rules.
var (
	ValidateNewAccount  = validateNewAccount
	ValidateSnapshot    = validateSnapshot
	ValidatePositive    = validatePositive
	ValidateTransaction = validateTransaction
	ValidateFilter      = validateFilter
)
