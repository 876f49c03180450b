package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/bloomfi/internal/auth"
	"github.com/Veraticus/bloomfi/internal/common"
	"github.com/Veraticus/bloomfi/internal/engine"
)

const testSecret = "0123456789abcdef0123456789abcdef"

// setupCLI points the CLI at a fresh on-disk database and an empty home directory.
func setupCLI(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("BLOOMFI_DATABASE_DRIVER", "sqlite")
	t.Setenv("BLOOMFI_DATABASE_PATH", filepath.Join(dir, "data", "bloomfi.db"))
	t.Setenv("BLOOMFI_AUTH_JWT_SECRET", "")
	return dir
}

func runCLI(t *testing.T, stdin io.Reader, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	if stdin != nil {
		root.SetIn(stdin)
	}
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := runCLI(t, nil, args...)
	require.NoError(t, err, out)
	return out
}

func TestVersion(t *testing.T) {
	out := mustRun(t, "version")
	assert.Equal(t, "bloomfi dev\n", out)
}

func TestInvalidLogLevel(t *testing.T) {
	setupCLI(t)
	_, err := runCLI(t, nil, "accounts", "list", "--user", "1", "--log-level", "loud")
	assert.ErrorIs(t, err, common.ErrInvalidConfig)
}

func TestUnknownDriver(t *testing.T) {
	setupCLI(t)
	t.Setenv("BLOOMFI_DATABASE_DRIVER", "oracle")
	_, err := runCLI(t, nil, "accounts", "list", "--user", "1")
	assert.ErrorIs(t, err, common.ErrInvalidConfig)
}

func TestConfigFile(t *testing.T) {
	dir := setupCLI(t)
	t.Setenv("BLOOMFI_DATABASE_PATH", "")
	dbPath := filepath.Join(dir, "from-config.db")
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("database:\n  path: "+dbPath+"\n"), 0o600))

	mustRun(t, "--config", cfgPath, "migrate")
	assert.FileExists(t, dbPath)
}

func TestLedgerCommands(t *testing.T) {
	setupCLI(t)

	out := mustRun(t, "accounts", "open", "--user", "1", "--name", "Everyday", "--balance", "250.00")
	assert.Contains(t, out, "Opened account 1 (Everyday) with $250.00")
	out = mustRun(t, "accounts", "open", "--user", "1", "--name", "Savings", "--type", "savings")
	assert.Contains(t, out, "Opened account 2 (Savings) with $0.00")
	mustRun(t, "accounts", "open", "--user", "2", "--name", "Theirs", "--balance", "10")

	out = mustRun(t, "deposit", "--user", "1", "--account", "1", "--amount", "25", "--note", "Paycheck")
	assert.Contains(t, out, "Deposited $25.00")
	assert.Contains(t, out, "Account 1 balance: $275.00")

	out = mustRun(t, "transfer", "--user", "1", "--from", "1", "--to", "2", "--amount", "75")
	assert.Contains(t, out, "Transfer successful")
	assert.Contains(t, out, "Account 1 balance: $200.00")
	assert.Contains(t, out, "Account 2 balance: $75.00")

	out = mustRun(t, "withdraw", "--user", "1", "--account", "2", "--amount", "5.25")
	assert.Contains(t, out, "Withdrew $5.25")
	assert.Contains(t, out, "Account 2 balance: $69.75")

	out = mustRun(t, "accounts", "list", "--user", "1")
	assert.Contains(t, out, "Everyday")
	assert.Contains(t, out, "$200.00")
	assert.NotContains(t, out, "Theirs")

	out = mustRun(t, "dashboard", "--user", "1")
	assert.Contains(t, out, "$269.75")
	assert.Contains(t, out, "Transfer to Savings")
	assert.Contains(t, out, "Paycheck")
}

func TestLedgerCommandErrors(t *testing.T) {
	setupCLI(t)
	mustRun(t, "accounts", "open", "--user", "1", "--name", "A", "--balance", "10")
	mustRun(t, "accounts", "open", "--user", "1", "--name", "B")
	mustRun(t, "accounts", "open", "--user", "2", "--name", "C", "--balance", "10")

	tests := []struct {
		name    string
		args    []string
		wantErr error
	}{
		{name: "overdraw", args: []string{"withdraw", "--user", "1", "--account", "1", "--amount", "10.01"}, wantErr: engine.ErrInsufficientFunds},
		{name: "transfer overdraw", args: []string{"transfer", "--user", "1", "--from", "1", "--to", "2", "--amount", "11"}, wantErr: engine.ErrInsufficientFunds},
		{name: "someone else's account", args: []string{"transfer", "--user", "1", "--from", "1", "--to", "3", "--amount", "1"}, wantErr: engine.ErrForbidden},
		{name: "same account", args: []string{"transfer", "--user", "1", "--from", "1", "--to", "1", "--amount", "1"}, wantErr: engine.ErrSameAccount},
		{name: "zero amount", args: []string{"deposit", "--user", "1", "--account", "1", "--amount", "0"}, wantErr: engine.ErrInvalidAmount},
		{name: "garbage amount", args: []string{"deposit", "--user", "1", "--account", "1", "--amount", "lots"}, wantErr: engine.ErrInvalidInput},
		{name: "negative opening balance", args: []string{"accounts", "open", "--user", "1", "--balance", "-1"}, wantErr: engine.ErrInvalidAmount},
		{name: "non-positive user", args: []string{"accounts", "list", "--user", "0"}, wantErr: engine.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCLI(t, nil, tt.args...)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	_, err := runCLI(t, nil, "transfer", "--user", "1", "--from", "1")
	assert.Error(t, err, "missing required flags")

	out := mustRun(t, "accounts", "list", "--user", "1")
	assert.Contains(t, out, "$10.00")
}

func TestTokenCommand(t *testing.T) {
	setupCLI(t)

	_, err := runCLI(t, nil, "token", "--user", "7")
	assert.ErrorIs(t, err, common.ErrMissingConfig)

	t.Setenv("BLOOMFI_AUTH_JWT_SECRET", testSecret)
	out := mustRun(t, "token", "--user", "7")

	userID, err := auth.NewVerifier(testSecret).Verify(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, int64(7), userID)
}

func TestServeRequiresSecret(t *testing.T) {
	setupCLI(t)
	_, err := runCLI(t, nil, "serve")
	assert.ErrorIs(t, err, common.ErrMissingConfig)
}

func TestMigrateStatus(t *testing.T) {
	setupCLI(t)

	out := mustRun(t, "migrate", "--status")
	assert.Contains(t, out, "Current version: 0")
	assert.Contains(t, out, "pending")

	out = mustRun(t, "migrate")
	assert.Contains(t, out, "Database migrated from version 0 to 3")

	out = mustRun(t, "migrate", "--status")
	assert.Contains(t, out, "Current version: 3")
	assert.Contains(t, out, "Up to date")
}

func TestUserFacing(t *testing.T) {
	tests := []struct {
		err  error
		name string
		want string
	}{
		{name: "insufficient funds", err: fmt.Errorf("entry W1: %w", engine.ErrInsufficientFunds), want: "Insufficient funds"},
		{name: "forbidden", err: engine.ErrForbidden, want: "Account not found"},
		{name: "conflict", err: fmt.Errorf("%w: busy", engine.ErrConflict), want: "please try again"},
		{name: "missing secret", err: fmt.Errorf("%w: auth.jwt_secret", common.ErrMissingConfig), want: "Configuration incomplete"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := userFacing(tt.err)

			var userErr *common.UserError
			require.ErrorAs(t, got, &userErr)
			assert.Contains(t, userErr.UserMessage, tt.want)
			assert.ErrorIs(t, got, tt.err)
		})
	}

	plain := errors.New("disk on fire")
	assert.Same(t, plain, userFacing(plain))
}
