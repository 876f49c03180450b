package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Veraticus/bloomfi/internal/cli"
	"github.com/Veraticus/bloomfi/internal/common"
	"github.com/Veraticus/bloomfi/internal/engine"
	"github.com/Veraticus/bloomfi/internal/ofx"
)

func importOFXCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import-ofx [files...]",
		Short: "Apply OFX/QFX statement entries to an account",
		Long: `Apply the entries of OFX or QFX (Quicken) statements exported from your bank
to one of your accounts. Credits become deposits and debits become withdrawals.

Each entry is recorded with its FITID, so importing the same statement twice
applies every entry once. Withdrawals that would overdraw the account are
reported and skipped.

Examples:
  # Import single file
  bloomfi import-ofx --user 1 --account 3 ~/Downloads/chase_jan_2024.qfx

  # Import all QFX files in a directory, without prompting
  bloomfi import-ofx --user 1 --account 3 --yes ~/Downloads/*.qfx

  # Only entries for one institution account
  bloomfi import-ofx --user 1 --account 3 --statement-account 1234567890 export.ofx`,
		Args: cobra.MinimumNArgs(1),
		RunE: a.runImportOFX,
	}

	addUserFlag(cmd)
	cmd.Flags().Int64("account", 0, "ledger account id receiving the entries")
	cmd.Flags().String("statement-account", "", "only apply entries from this institution account number")
	cmd.Flags().BoolP("dry-run", "d", false, "Preview import without saving")
	cmd.Flags().BoolP("yes", "y", false, "Apply without asking for confirmation")
	_ = cmd.MarkFlagRequired("account")

	return cmd
}

// expandFiles resolves glob patterns, keeping literal paths that exist.
func expandFiles(patterns []string) ([]string, error) {
	var files []string
	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %s: %w", pattern, err)
		}
		if len(matches) > 0 {
			files = append(files, matches...)
			continue
		}
		if _, err := os.Stat(pattern); err == nil {
			files = append(files, pattern)
		} else {
			slog.Warn("No files found matching pattern", "pattern", pattern)
		}
	}

	if len(files) == 0 {
		return nil, errors.New("no files found to import")
	}
	return files, nil
}

// readStatements parses every file and returns the entries together with the
// institution accounts they belong to.
func readStatements(ctx context.Context, files []string) ([]ofx.Entry, []string, error) {
	parser := ofx.NewParser()
	var entries []ofx.Entry
	seen := make(map[string]bool)

	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read %s: %w", path, err)
		}

		parsed, err := parser.ParseFile(ctx, bytes.NewReader(data))
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
		accounts, err := parser.GetAccounts(ctx, bytes.NewReader(data))
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
		for _, acct := range accounts {
			seen[acct] = true
		}

		slog.Info("Processed file",
			"file", filepath.Base(path),
			"entries", len(parsed),
			"statement_accounts", len(accounts))
		entries = append(entries, parsed...)
	}

	statementAccounts := make([]string, 0, len(seen))
	for acct := range seen {
		statementAccounts = append(statementAccounts, acct)
	}
	sort.Strings(statementAccounts)

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].PostedAt.Before(entries[j].PostedAt)
	})
	return entries, statementAccounts, nil
}

func filterStatementAccount(entries []ofx.Entry, statementAccounts []string, want string) ([]ofx.Entry, error) {
	if want == "" {
		if len(statementAccounts) > 1 {
			return nil, fmt.Errorf("%w: statements cover %d institution accounts (%s); choose one with --statement-account",
				engine.ErrInvalidInput, len(statementAccounts), strings.Join(statementAccounts, ", "))
		}
		return entries, nil
	}

	kept := entries[:0:0]
	for _, e := range entries {
		if e.StatementAccount == want {
			kept = append(kept, e)
		}
	}
	return kept, nil
}

func (a *app) runImportOFX(cmd *cobra.Command, args []string) error {
	userID, err := userFlag(cmd)
	if err != nil {
		return err
	}
	accountID, _ := cmd.Flags().GetInt64("account")
	statementAccount, _ := cmd.Flags().GetString("statement-account")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	yes, _ := cmd.Flags().GetBool("yes")
	out := cmd.OutOrStdout()

	files, err := expandFiles(args)
	if err != nil {
		return err
	}

	slog.Info("Importing OFX files",
		"file_count", len(files),
		"account", accountID,
		"dry_run", dryRun)

	entries, statementAccounts, err := readStatements(cmd.Context(), files)
	if err != nil {
		return err
	}
	entries, err = filterStatementAccount(entries, statementAccounts, statementAccount)
	if err != nil {
		return err
	}

	if len(entries) == 0 {
		fmt.Fprintln(out, cli.FormatInfo("No statement entries to import"))
		return nil
	}

	if dryRun {
		fmt.Fprintln(out, cli.FormatInfo(fmt.Sprintf(
			"Dry run: %d entries from %d file(s) would be applied to account %d",
			len(entries), len(files), accountID)))
		return nil
	}

	if !yes {
		ok, err := cli.NewNonBlockingReader(cmd.InOrStdin()).Confirm(cmd.Context(), out,
			fmt.Sprintf("Apply %d entries to account %d?", len(entries), accountID))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(out, cli.FormatInfo("Import canceled"))
			return nil
		}
	}

	interrupts := cli.NewInterruptHandler(cmd.ErrOrStderr())
	ctx, stop := interrupts.HandleInterrupts(cmd.Context(),
		"Entries applied so far are kept; re-running the import skips them.")
	defer stop()

	return a.withEngine(ctx, func(eng *engine.Engine) error {
		summary, err := applyEntries(ctx, eng, cmd, userID, accountID, entries)
		summary.Files = len(files)
		common.LogInfo("Statement import finished", common.Fields{
			"account":    accountID,
			"applied":    summary.Applied,
			"duplicates": summary.Duplicates,
			"overdrawn":  summary.Overdrawn,
		})
		fmt.Fprintln(out, cli.RenderImportSummary(summary))
		return err
	})
}

// applyEntries records each entry as a deposit or withdrawal. Entries seen
// before and withdrawals that would overdraw are counted and skipped; any
// other failure stops the import.
func applyEntries(ctx context.Context, eng *engine.Engine, cmd *cobra.Command, userID, accountID int64, entries []ofx.Entry) (cli.ImportSummary, error) {
	var summary cli.ImportSummary
	bar := cli.NewProgressBar(cmd.ErrOrStderr(), len(entries), "Applying entries...")

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		err := applyEntry(ctx, eng, userID, accountID, entry)
		switch {
		case err == nil:
			summary.Applied++
		case errors.Is(err, common.ErrDuplicateEntry):
			summary.Duplicates++
			slog.Debug("Entry already imported", "fitid", entry.FITID)
		case errors.Is(err, engine.ErrInsufficientFunds):
			summary.Overdrawn++
			slog.Warn("Skipping withdrawal that would overdraw",
				"fitid", entry.FITID,
				"amount", entry.Amount.String())
		default:
			return summary, fmt.Errorf("entry %s: %w", entry.FITID, err)
		}

		if err := bar.Add(1); err != nil {
			slog.Warn("Failed to update progress bar", "error", err)
		}
	}

	return summary, nil
}

func applyEntry(ctx context.Context, eng *engine.Engine, userID, accountID int64, entry ofx.Entry) error {
	if entry.Amount.IsZero() {
		return nil
	}

	req := engine.AdjustRequest{
		RequesterID: userID,
		AccountID:   accountID,
		Amount:      entry.Amount.Abs(),
		Note:        entry.Description,
		Category:    entry.Category,
		ExternalID:  entry.FITID,
	}

	var err error
	if entry.IsDebit() {
		_, err = eng.Withdraw(ctx, req)
	} else {
		_, err = eng.Deposit(ctx, req)
	}
	return err
}
