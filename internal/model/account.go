package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultDisplayNumber masks an account number that was never supplied.
const DefaultDisplayNumber = "***0000"

// Account is a user-owned balance holder.
type Account struct {
	CreatedAt     time.Time
	Balance       decimal.Decimal
	Type          string // checking, savings, ...
	Name          string
	DisplayNumber string
	ID            int64
	UserID        int64
	// Version increments on every balance write and guards compare-and-swap updates.
	Version int64
}

// OwnedBy reports whether the account belongs to userID.
func (a *Account) OwnedBy(userID int64) bool {
	return a != nil && a.UserID == userID
}

// Label is the human-facing name used in transaction notes.
func (a *Account) Label() string {
	if a.Name != "" {
		return a.Name
	}
	if a.Type != "" {
		return a.Type + " " + a.DisplayNumber
	}
	return a.DisplayNumber
}
