package common

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetry(attempts int) RetryOptions {
	return RetryOptions{
		MaxAttempts:  attempts,
		InitialDelay: time.Millisecond,
		MaxDelay:     2 * time.Millisecond,
		Multiplier:   2,
	}
}

func TestWithRetry(t *testing.T) {
	ctx := context.Background()

	t.Run("succeeds after conflicts", func(t *testing.T) {
		calls := 0
		err := WithRetry(ctx, func() error {
			calls++
			if calls < 3 {
				return ErrConflict
			}
			return nil
		}, fastRetry(3))

		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("non-retryable error returns immediately", func(t *testing.T) {
		sentinel := errors.New("boom")
		calls := 0
		err := WithRetry(ctx, func() error {
			calls++
			return sentinel
		}, fastRetry(5))

		require.ErrorIs(t, err, sentinel)
		assert.Equal(t, 1, calls)
	})

	t.Run("exhausted attempts wrap both sentinels", func(t *testing.T) {
		calls := 0
		err := WithRetry(ctx, func() error {
			calls++
			return ErrConflict
		}, fastRetry(2))

		require.ErrorIs(t, err, ErrMaxRetries)
		assert.ErrorIs(t, err, ErrConflict)
		assert.Equal(t, 2, calls)
	})

	t.Run("explicitly non-retryable wrapper", func(t *testing.T) {
		calls := 0
		err := WithRetry(ctx, func() error {
			calls++
			return &RetryableError{Err: ErrConflict, Retryable: false}
		}, fastRetry(3))

		require.Error(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("cancelled context stops waiting", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		err := WithRetry(cctx, func() error {
			return ErrConflict
		}, RetryOptions{MaxAttempts: 3, InitialDelay: time.Second})

		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestIsRetryable(t *testing.T) {
	assert.False(t, IsRetryable(nil))
	assert.True(t, IsRetryable(ErrConflict))
	assert.True(t, IsRetryable(errors.Join(errors.New("wrapped"), ErrConflict)))
	assert.False(t, IsRetryable(ErrNotFound))
	assert.True(t, IsRetryable(&RetryableError{Err: errors.New("x"), Retryable: true}))
}
