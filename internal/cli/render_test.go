package cli

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/Veraticus/bloomfi/internal/engine"
	"github.com/Veraticus/bloomfi/internal/model"
)

func amt(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestRenderAccounts(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		assert.Contains(t, RenderAccounts(nil), "No accounts yet")
	})

	t.Run("rows", func(t *testing.T) {
		out := RenderAccounts([]model.Account{
			{ID: 1, Name: "Everyday", Type: "checking", DisplayNumber: "***1234", Balance: amt("1234.5")},
			{ID: 2, Name: "Rainy day", Type: "savings", DisplayNumber: "***0000", Balance: amt("0.105")},
		})
		assert.Contains(t, out, "Everyday")
		assert.Contains(t, out, "$1,234.50")
		assert.Contains(t, out, "Rainy day")
		assert.Contains(t, out, "$0.11")
	})
}

func TestRenderDashboard(t *testing.T) {
	at := time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)
	out := RenderDashboard(&engine.Dashboard{
		TotalBalance: amt("1234.56"),
		Accounts:     []model.Account{{ID: 1, Name: "Everyday", Balance: amt("1234.56")}},
		Recent: []model.Transaction{
			{Amount: amt("-40"), Note: "Transfer to Savings", Category: "Transfer", CreatedAt: at},
			{Amount: amt("12.5"), CreatedAt: at},
		},
	})

	assert.Contains(t, out, "Dashboard")
	assert.Contains(t, out, "$1,234.56")
	assert.Contains(t, out, "Transfer to Savings")
	assert.Contains(t, out, "-$40.00")
	assert.Contains(t, out, "+$12.50")
	assert.Contains(t, out, "Unknown")
	assert.Contains(t, out, "Uncategorized")
	assert.Contains(t, out, "2025-03-01 09:30")
}

func TestRenderDashboard_NoActivity(t *testing.T) {
	out := RenderDashboard(&engine.Dashboard{TotalBalance: decimal.Zero})
	assert.Contains(t, out, "$0.00")
	assert.Contains(t, out, "No transactions yet")
}

func TestRenderTransfer(t *testing.T) {
	out := RenderTransfer(&engine.TransferResult{
		FromBalance: amt("60"),
		ToBalance:   amt("90"),
		Debit:       model.Transaction{AccountID: 1, Amount: amt("-40"), Note: "Transfer to Savings"},
		Credit:      model.Transaction{AccountID: 2, Amount: amt("40"), Note: "Transfer from Checking"},
	})
	assert.Contains(t, out, "Transfer successful")
	assert.Contains(t, out, "Transfer to Savings")
	assert.Contains(t, out, "Account 1 balance: $60.00")
	assert.Contains(t, out, "Account 2 balance: $90.00")
}

func TestRenderAdjustment(t *testing.T) {
	tests := []struct {
		name   string
		amount string
		want   string
	}{
		{name: "deposit", amount: "25", want: "Deposited $25.00"},
		{name: "withdrawal", amount: "-25", want: "Withdrew $25.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := RenderAdjustment(&engine.AdjustResult{
				Balance:     amt("75"),
				Transaction: model.Transaction{AccountID: 4, Amount: amt(tt.amount)},
			})
			assert.Contains(t, out, tt.want)
			assert.Contains(t, out, "Account 4 balance: $75.00")
		})
	}
}

func TestRenderImportSummary(t *testing.T) {
	out := RenderImportSummary(ImportSummary{Files: 2, Applied: 5})
	assert.Contains(t, out, "Imported 5 entries from 2 file(s)")
	assert.NotContains(t, out, "already imported")

	out = RenderImportSummary(ImportSummary{Files: 1, Applied: 1, Duplicates: 3, Overdrawn: 2})
	assert.Contains(t, out, "3 already imported")
	assert.Contains(t, out, "2 withdrawals skipped")
}

func TestNewProgressBar(t *testing.T) {
	var out syncBuffer
	bar := NewProgressBar(&out, 3, "Applying entries")
	for i := 0; i < 3; i++ {
		assert.NoError(t, bar.Add(1))
	}
	assert.True(t, bar.IsFinished())
	assert.Contains(t, out.String(), "Applying entries")
}
