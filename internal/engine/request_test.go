package engine

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTransferRequest(t *testing.T) {
	tests := []struct {
		name      string
		from      string
		to        string
		amount    string
		wantErr   error
		wantValid error
	}{
		{name: "well formed", from: "1", to: "2", amount: "40.00"},
		{name: "missing from", from: "", to: "2", amount: "1", wantErr: ErrInvalidInput},
		{name: "missing to", from: "1", to: " ", amount: "1", wantErr: ErrInvalidInput},
		{name: "non-numeric id", from: "abc", to: "2", amount: "1", wantErr: ErrInvalidInput},
		{name: "missing amount", from: "1", to: "2", amount: "", wantErr: ErrInvalidInput},
		{name: "garbage amount", from: "1", to: "2", amount: "ten", wantErr: ErrInvalidInput},
		{name: "tiny exponent", from: "1", to: "2", amount: "1e-20000000", wantErr: ErrInvalidInput},
		{name: "huge exponent", from: "1", to: "2", amount: "1e999999999", wantErr: ErrInvalidInput},
		{name: "over-precise amount", from: "1", to: "2", amount: "0.0000001", wantErr: ErrInvalidInput},
		{name: "too many integer digits", from: "1", to: "2", amount: "10000000000000", wantErr: ErrInvalidInput},
		{name: "zero amount", from: "1", to: "2", amount: "0", wantValid: ErrInvalidAmount},
		{name: "negative amount", from: "1", to: "2", amount: "-5", wantValid: ErrInvalidAmount},
		{name: "same account", from: "3", to: "3", amount: "5", wantValid: ErrSameAccount},
		// Amount is checked before account identity.
		{name: "same account and zero", from: "3", to: "3", amount: "0", wantValid: ErrInvalidAmount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := ParseTransferRequest(7, tt.from, tt.to, tt.amount)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, int64(7), req.RequesterID)

			err = req.Validate()
			if tt.wantValid != nil {
				assert.ErrorIs(t, err, tt.wantValid)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestTransferRequest_ValidateBoundsAmount(t *testing.T) {
	tests := []struct {
		name   string
		amount decimal.Decimal
		want   error
	}{
		{name: "scale past the bound", amount: decimal.New(1, -20000000), want: ErrInvalidInput},
		{name: "exponent past the bound", amount: decimal.New(1, 999999999), want: ErrInvalidInput},
		{name: "negative and unbounded", amount: decimal.New(-1, 999999999), want: ErrInvalidInput},
		{name: "bounded but negative", amount: decimal.New(-1, 0), want: ErrInvalidAmount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := TransferRequest{RequesterID: alice, FromAccountID: 1, ToAccountID: 2, Amount: tt.amount}
			assert.ErrorIs(t, req.Validate(), tt.want)

			adj := AdjustRequest{RequesterID: alice, AccountID: 1, Amount: tt.amount}
			assert.ErrorIs(t, adj.validate(), tt.want)
		})
	}
}

func TestParseTransferRequest_KeepsFullPrecision(t *testing.T) {
	req, err := ParseTransferRequest(1, "1", "2", "0.105")
	require.NoError(t, err)
	assert.Equal(t, "0.105", req.Amount.String())
}
