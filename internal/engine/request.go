package engine

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/bloomfi/internal/model"
)

// TransferRequest asks to move Amount from one of the requester's accounts to another.
type TransferRequest struct {
	Amount        decimal.Decimal
	RequesterID   int64
	FromAccountID int64
	ToAccountID   int64
}

// ParseTransferRequest builds a request from raw text fields as they arrive
// from a form, a JSON body or command-line flags. Missing or unparseable
// fields yield ErrInvalidInput; the amount's sign is checked later by Validate.
func ParseTransferRequest(requesterID int64, from, to, amount string) (TransferRequest, error) {
	fromID, err := parseAccountID("from_account", from)
	if err != nil {
		return TransferRequest{}, err
	}
	toID, err := parseAccountID("to_account", to)
	if err != nil {
		return TransferRequest{}, err
	}
	value, err := model.ParseAmount(amount)
	if err != nil {
		return TransferRequest{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	return TransferRequest{
		RequesterID:   requesterID,
		FromAccountID: fromID,
		ToAccountID:   toID,
		Amount:        value,
	}, nil
}

func parseAccountID(field, raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("%w: %s is required", ErrInvalidInput, field)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", ErrInvalidInput, field)
	}
	return id, nil
}

// checkAmount rejects amounts outside the storable range as malformed input.
func checkAmount(d decimal.Decimal) error {
	if err := model.CheckAmount(d); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return nil
}

// Validate checks the request-local preconditions in their fixed order:
// well-formed input, positive amount, distinct accounts.
func (r TransferRequest) Validate() error {
	if r.RequesterID <= 0 {
		return fmt.Errorf("%w: missing requester", ErrInvalidInput)
	}
	if r.FromAccountID <= 0 || r.ToAccountID <= 0 {
		return fmt.Errorf("%w: account ids must be positive", ErrInvalidInput)
	}
	if err := checkAmount(r.Amount); err != nil {
		return err
	}
	if !r.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if r.FromAccountID == r.ToAccountID {
		return ErrSameAccount
	}
	return nil
}

// AdjustRequest is a single-account deposit or withdrawal.
type AdjustRequest struct {
	Amount      decimal.Decimal
	Note        string
	Category    string
	ExternalID  string
	RequesterID int64
	AccountID   int64
}

func (r AdjustRequest) validate() error {
	if r.RequesterID <= 0 {
		return fmt.Errorf("%w: missing requester", ErrInvalidInput)
	}
	if r.AccountID <= 0 {
		return fmt.Errorf("%w: account id must be positive", ErrInvalidInput)
	}
	if err := checkAmount(r.Amount); err != nil {
		return err
	}
	if !r.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}
