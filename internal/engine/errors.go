package engine

import "errors"

// Error kinds returned by ledger operations. Callers match them with errors.Is.
var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidAmount     = errors.New("amount must be greater than zero")
	ErrSameAccount       = errors.New("cannot transfer to the same account")
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrConflict means concurrent modifications kept invalidating the
	// snapshot until the retry budget ran out.
	ErrConflict = errors.New("transfer conflicted with concurrent activity")
)

// ErrForbidden is returned for accounts that do not exist and for accounts the
// requester does not own. It is never wrapped with account details so both
// cases produce exactly the same error.
var ErrForbidden = errors.New("account not found or access denied")
