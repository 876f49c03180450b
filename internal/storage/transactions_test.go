package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/bloomfi/internal/common"
	"github.com/Veraticus/bloomfi/internal/model"
	"github.com/Veraticus/bloomfi/internal/service"
)

func serviceFilter(userID int64) service.TransactionFilter {
	return service.TransactionFilter{UserID: userID}
}

func appendTestTransaction(t *testing.T, store *SQLiteStorage, account *model.Account, amount string, at time.Time) *model.Transaction {
	t.Helper()
	txn := &model.Transaction{
		UserID:    account.UserID,
		AccountID: account.ID,
		Amount:    dec(amount),
		Type:      model.TypeDeposit,
		Note:      "test " + amount,
		Category:  "Income",
		State:     model.StateCompleted,
		CreatedAt: at,
	}
	require.NoError(t, store.AppendTransaction(context.Background(), txn))
	return txn
}

func TestAppendTransaction(t *testing.T) {
	ctx := context.Background()

	t.Run("round trips exact amount", func(t *testing.T) {
		store, cleanup := createTestStorage(t)
		defer cleanup()
		account := createTestAccount(t, store, 1, "Checking", "0")

		at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
		txn := appendTestTransaction(t, store, account, "-0.1", at)
		assert.Positive(t, txn.ID)

		got, err := store.GetTransactionForOwner(ctx, txn.ID, 1)
		require.NoError(t, err)
		assert.True(t, got.Amount.Equal(dec("-0.1")))
		assert.Equal(t, model.TypeDeposit, got.Type)
		assert.Equal(t, "Income", got.Category)
		assert.Equal(t, model.StateCompleted, got.State)
		assert.True(t, got.CreatedAt.Equal(at))
		assert.Empty(t, got.ExternalID)
	})

	t.Run("validation", func(t *testing.T) {
		store, cleanup := createTestStorage(t)
		defer cleanup()

		tests := []struct {
			name string
			txn  *model.Transaction
		}{
			{"nil", nil},
			{"missing user", &model.Transaction{AccountID: 1, Amount: dec("1"), Type: model.TypeDeposit}},
			{"missing account", &model.Transaction{UserID: 1, Amount: dec("1"), Type: model.TypeDeposit}},
			{"zero amount", &model.Transaction{UserID: 1, AccountID: 1, Type: model.TypeDeposit}},
			{"missing type", &model.Transaction{UserID: 1, AccountID: 1, Amount: dec("1")}},
			{"already persisted", &model.Transaction{ID: 4, UserID: 1, AccountID: 1, Amount: dec("1"), Type: model.TypeDeposit}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				assert.Error(t, store.AppendTransaction(ctx, tt.txn))
			})
		}
	})

	t.Run("duplicate external id per account", func(t *testing.T) {
		store, cleanup := createTestStorage(t)
		defer cleanup()
		account := createTestAccount(t, store, 1, "Checking", "0")
		other := createTestAccount(t, store, 1, "Savings", "0")

		first := &model.Transaction{UserID: 1, AccountID: account.ID, Amount: dec("5"), Type: model.TypeDeposit, ExternalID: "FIT1"}
		require.NoError(t, store.AppendTransaction(ctx, first))

		dup := &model.Transaction{UserID: 1, AccountID: account.ID, Amount: dec("5"), Type: model.TypeDeposit, ExternalID: "FIT1"}
		assert.ErrorIs(t, store.AppendTransaction(ctx, dup), common.ErrDuplicateEntry)

		elsewhere := &model.Transaction{UserID: 1, AccountID: other.ID, Amount: dec("5"), Type: model.TypeDeposit, ExternalID: "FIT1"}
		assert.NoError(t, store.AppendTransaction(ctx, elsewhere))
	})

	t.Run("log is append-only", func(t *testing.T) {
		store, cleanup := createTestStorage(t)
		defer cleanup()
		account := createTestAccount(t, store, 1, "Checking", "0")
		txn := appendTestTransaction(t, store, account, "1", time.Now())

		_, err := store.db.Exec(`UPDATE transactions SET amount = '2' WHERE id = ?`, txn.ID)
		assert.ErrorIs(t, mapSQLiteError(err), ErrImmutableTransaction)

		_, err = store.db.Exec(`DELETE FROM transactions WHERE id = ?`, txn.ID)
		assert.ErrorIs(t, mapSQLiteError(err), ErrImmutableTransaction)
	})
}

func TestGetTransactionForOwner_ScopedByAccountOwner(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	theirs := createTestAccount(t, store, 2, "Theirs", "0")
	txn := appendTestTransaction(t, store, theirs, "3", time.Now())

	_, err := store.GetTransactionForOwner(ctx, txn.ID, 1)
	assert.ErrorIs(t, err, common.ErrNotFound)

	_, err = store.GetTransactionForOwner(ctx, txn.ID, 2)
	assert.NoError(t, err)
}

func TestListTransactions(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	checking := createTestAccount(t, store, 1, "Checking", "0")
	savings := createTestAccount(t, store, 1, "Savings", "0")
	foreign := createTestAccount(t, store, 2, "Foreign", "0")

	base := time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)
	jan10 := appendTestTransaction(t, store, checking, "1", base)
	jan11 := appendTestTransaction(t, store, savings, "2", base.Add(24*time.Hour))
	jan12 := appendTestTransaction(t, store, checking, "3", base.Add(48*time.Hour))
	appendTestTransaction(t, store, foreign, "4", base)

	t.Run("newest first, owner only", func(t *testing.T) {
		txns, err := store.ListTransactions(ctx, serviceFilter(1))
		require.NoError(t, err)
		require.Len(t, txns, 3)
		assert.Equal(t, jan12.ID, txns[0].ID)
		assert.Equal(t, jan11.ID, txns[1].ID)
		assert.Equal(t, jan10.ID, txns[2].ID)
	})

	t.Run("limit", func(t *testing.T) {
		txns, err := store.ListTransactions(ctx, service.TransactionFilter{UserID: 1, Limit: 2})
		require.NoError(t, err)
		require.Len(t, txns, 2)
		assert.Equal(t, jan12.ID, txns[0].ID)
	})

	t.Run("date range", func(t *testing.T) {
		start := base.Add(12 * time.Hour)
		end := base.Add(36 * time.Hour)
		txns, err := store.ListTransactions(ctx, service.TransactionFilter{UserID: 1, StartDate: &start, EndDate: &end})
		require.NoError(t, err)
		require.Len(t, txns, 1)
		assert.Equal(t, jan11.ID, txns[0].ID)
	})

	t.Run("by account", func(t *testing.T) {
		txns, err := store.ListTransactions(ctx, service.TransactionFilter{UserID: 1, AccountID: checking.ID})
		require.NoError(t, err)
		assert.Len(t, txns, 2)
	})

	t.Run("inverted range", func(t *testing.T) {
		start := base.Add(48 * time.Hour)
		end := base
		_, err := store.ListTransactions(ctx, service.TransactionFilter{UserID: 1, StartDate: &start, EndDate: &end})
		assert.ErrorIs(t, err, ErrInvalidDateRange)
	})

	t.Run("negative limit", func(t *testing.T) {
		_, err := store.ListTransactions(ctx, service.TransactionFilter{UserID: 1, Limit: -1})
		assert.ErrorIs(t, err, ErrInvalidLimit)
	})
}
