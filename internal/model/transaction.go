// Package model holds the ledger's persisted types and money helpers.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType classifies what produced a ledger row.
type TransactionType string

// Transaction types.
const (
	TypeTransfer   TransactionType = "transfer"
	TypeDeposit    TransactionType = "deposit"
	TypeWithdrawal TransactionType = "withdrawal"
)

// StateCompleted marks rows written by a committed operation.
const StateCompleted = "completed"

// CategoryTransfer is the category tag on both legs of a transfer.
const CategoryTransfer = "Transfer"

// Transaction is an immutable record of one balance change.
// Negative amounts are debits, positive amounts are credits.
type Transaction struct {
	CreatedAt  time.Time
	Amount     decimal.Decimal
	Type       TransactionType
	Note       string
	Category   string
	State      string
	ExternalID string // statement FITID for imported rows
	ID         int64
	UserID     int64
	AccountID  int64
}

// IsDebit reports whether the row decreased its account balance.
func (t *Transaction) IsDebit() bool {
	return t.Amount.IsNegative()
}

// NewTransferPair builds the debit and credit legs of a transfer of amount from
// one account to another. The amounts are exact additive inverses.
func NewTransferPair(userID int64, from, to *Account, amount decimal.Decimal, at time.Time) (Transaction, Transaction) {
	debit := Transaction{
		UserID:    userID,
		AccountID: from.ID,
		Amount:    amount.Neg(),
		Type:      TypeTransfer,
		Note:      "Transfer to " + to.Label(),
		Category:  CategoryTransfer,
		State:     StateCompleted,
		CreatedAt: at,
	}
	credit := Transaction{
		UserID:    userID,
		AccountID: to.ID,
		Amount:    amount,
		Type:      TypeTransfer,
		Note:      "Transfer from " + from.Label(),
		Category:  CategoryTransfer,
		State:     StateCompleted,
		CreatedAt: at,
	}
	return debit, credit
}
