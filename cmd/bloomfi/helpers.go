package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/Veraticus/bloomfi/internal/config"
	"github.com/Veraticus/bloomfi/internal/engine"
	"github.com/Veraticus/bloomfi/internal/service"
	"github.com/Veraticus/bloomfi/internal/storage"
	"github.com/Veraticus/bloomfi/internal/storage/postgres"
)

// versionedStorage is a store that can report its applied schema version.
type versionedStorage interface {
	service.Storage
	SchemaVersion(ctx context.Context) (int, error)
}

// openStorage connects to the configured backend without migrating it.
func openStorage(ctx context.Context, cfg config.Database) (versionedStorage, int, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		store, err := postgres.New(ctx, cfg.DSN, postgres.Options{})
		if err != nil {
			return nil, 0, err
		}
		return store, postgres.ExpectedSchemaVersion, nil
	default:
		store, err := storage.NewSQLiteStorage(cfg.Path)
		if err != nil {
			return nil, 0, err
		}
		return store, storage.ExpectedSchemaVersion, nil
	}
}

// initStorage opens the configured store and brings its schema up to date.
func initStorage(ctx context.Context, cfg config.Database) (service.Storage, error) {
	store, _, err := openStorage(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// newEngine builds the ledger engine with the configured retry budget.
func newEngine(store service.Storage, cfg config.Ledger) *engine.Engine {
	ec := engine.DefaultConfig()
	ec.MaxAttempts = cfg.MaxAttempts
	if cfg.RetryDelay > 0 {
		ec.InitialDelay = cfg.RetryDelay
		ec.MaxDelay = 25 * cfg.RetryDelay
	}
	return engine.NewWithConfig(store, ec)
}

// withEngine opens storage, runs fn against a fresh engine and closes storage.
func (a *app) withEngine(ctx context.Context, fn func(*engine.Engine) error) error {
	store, err := initStorage(ctx, a.cfg.Database)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			slog.Warn("Failed to close storage", "error", err)
		}
	}()

	return fn(newEngine(store, a.cfg.Ledger))
}

// addUserFlag registers the required --user flag naming the acting account holder.
func addUserFlag(cmd *cobra.Command) {
	cmd.Flags().Int64("user", 0, "user id performing the operation")
	_ = cmd.MarkFlagRequired("user")
}

func userFlag(cmd *cobra.Command) (int64, error) {
	userID, err := cmd.Flags().GetInt64("user")
	if err != nil {
		return 0, err
	}
	if userID <= 0 {
		return 0, fmt.Errorf("%w: --user must be a positive id", engine.ErrInvalidInput)
	}
	return userID, nil
}

// shutdownTimeout bounds how long serve waits for in-flight requests.
const shutdownTimeout = 10 * time.Second
