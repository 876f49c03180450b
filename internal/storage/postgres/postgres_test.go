package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/bloomfi/internal/common"
	"github.com/Veraticus/bloomfi/internal/model"
	"github.com/Veraticus/bloomfi/internal/service"
	"github.com/Veraticus/bloomfi/internal/storage"
)

func TestMapPgError(t *testing.T) {
	tests := []struct {
		want error
		code string
	}{
		{code: "40001", want: common.ErrConflict},
		{code: "40P01", want: common.ErrConflict},
		{code: "55P03", want: common.ErrConflict},
		{code: "23505", want: common.ErrDuplicateEntry},
		{code: "23514", want: common.ErrNegativeBalance},
		{code: "22003", want: model.ErrAmountOutOfRange},
		{code: codeAppendOnly, want: storage.ErrImmutableTransaction},
		{code: "XX001", want: common.ErrDatabaseCorrupted},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := mapPgError(fmt.Errorf("wrapped: %w", &pgconn.PgError{Code: tt.code}))
			assert.ErrorIs(t, err, tt.want)
		})
	}

	t.Run("unknown passes through", func(t *testing.T) {
		plain := errors.New("boom")
		assert.Equal(t, plain, mapPgError(plain))
		assert.Nil(t, mapPgError(nil))
	})
}

func TestNew_EmptyDSN(t *testing.T) {
	_, err := New(context.Background(), " ", Options{})
	assert.ErrorIs(t, err, storage.ErrEmptyString)
}

// setupPostgres connects to BLOOMFI_TEST_POSTGRES_DSN and resets the schema.
func setupPostgres(t *testing.T) *Storage {
	t.Helper()
	dsn := os.Getenv("BLOOMFI_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("BLOOMFI_TEST_POSTGRES_DSN not set")
	}

	ctx := context.Background()
	store, err := New(ctx, dsn, Options{MaxConns: 8})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	_, err = store.pool.Exec(ctx, `DROP TABLE IF EXISTS transactions, accounts, schema_version CASCADE`)
	require.NoError(t, err)
	require.NoError(t, store.Migrate(ctx))
	return store
}

func TestPostgres_AccountsAndLog(t *testing.T) {
	store := setupPostgres(t)
	ctx := context.Background()

	from := &model.Account{UserID: 1, Type: "checking", Name: "X", Balance: decimal.RequireFromString("100.00")}
	to := &model.Account{UserID: 1, Type: "savings", Name: "Y"}
	require.NoError(t, store.CreateAccount(ctx, from))
	require.NoError(t, store.CreateAccount(ctx, to))

	_, err := store.GetAccountForOwner(ctx, from.ID, 2)
	assert.ErrorIs(t, err, common.ErrNotFound)

	tx, err := store.BeginTx(ctx)
	require.NoError(t, err)
	fromSnap, err := tx.GetAccountForOwner(ctx, from.ID, 1)
	require.NoError(t, err)
	toSnap, err := tx.GetAccountForOwner(ctx, to.ID, 1)
	require.NoError(t, err)

	fromBal, toBal, err := tx.AdjustPair(ctx, fromSnap, toSnap, decimal.RequireFromString("40"))
	require.NoError(t, err)
	debit, credit := model.NewTransferPair(1, fromSnap, toSnap, decimal.RequireFromString("40"), time.Now())
	require.NoError(t, tx.AppendTransaction(ctx, &debit))
	require.NoError(t, tx.AppendTransaction(ctx, &credit))
	require.NoError(t, tx.Commit())

	assert.Equal(t, "60", fromBal.String())
	assert.Equal(t, "40", toBal.String())

	txns, err := store.ListTransactions(ctx, service.TransactionFilter{UserID: 1})
	require.NoError(t, err)
	require.Len(t, txns, 2)
	assert.True(t, txns[0].Amount.Add(txns[1].Amount).IsZero())

	_, err = store.pool.Exec(ctx, `DELETE FROM transactions WHERE id = $1`, debit.ID)
	assert.ErrorIs(t, mapPgError(err), storage.ErrImmutableTransaction)
}

func TestPostgres_ConcurrentAdjustments(t *testing.T) {
	store := setupPostgres(t)
	ctx := context.Background()

	account := &model.Account{UserID: 1, Type: "checking"}
	require.NoError(t, store.CreateAccount(ctx, account))

	const workers = 10
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			err := common.WithRetry(ctx, func() error {
				tx, err := store.BeginTx(ctx)
				if err != nil {
					return err
				}
				defer func() { _ = tx.Rollback() }()
				snap, err := tx.GetAccountForOwner(ctx, account.ID, 1)
				if err != nil {
					return err
				}
				if _, err := tx.AdjustBalance(ctx, snap, decimal.RequireFromString("0.10")); err != nil {
					return err
				}
				return tx.Commit()
			}, common.RetryOptions{MaxAttempts: 20})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := store.GetAccountForOwner(ctx, account.ID, 1)
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(decimal.RequireFromString("1.00")), "got %s", got.Balance)
}
