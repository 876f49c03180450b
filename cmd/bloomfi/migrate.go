package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Veraticus/bloomfi/internal/cli"
	"github.com/Veraticus/bloomfi/internal/common"
)

func migrateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long: `Initialize or update the database schema to the latest version.

Works against either backend selected by database.driver.`,
		RunE: a.runMigrate,
	}

	cmd.Flags().Bool("status", false, "Show current migration status without applying changes")

	return cmd
}

func (a *app) runMigrate(cmd *cobra.Command, _ []string) error {
	status, _ := cmd.Flags().GetBool("status")
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	slog.Info("Opening database",
		"driver", a.cfg.Database.Driver,
		"status_only", status)

	store, latest, err := openStorage(ctx, a.cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = store.Close() }()

	current, err := store.SchemaVersion(ctx)
	if err != nil {
		return err
	}
	common.LogDebug("Schema version", common.Fields{"current": current, "latest": latest})

	if status {
		fmt.Fprintln(out, cli.FormatTitle("Database Migration Status"))
		fmt.Fprintf(out, "Driver:          %s\n", a.cfg.Database.Driver)
		fmt.Fprintf(out, "Current version: %d\n", current)
		fmt.Fprintf(out, "Latest version:  %d\n", latest)
		if current < latest {
			fmt.Fprintln(out, cli.FormatWarning(fmt.Sprintf("%d migration(s) pending", latest-current)))
		} else {
			fmt.Fprintln(out, cli.FormatSuccess("Up to date"))
		}
		return nil
	}

	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Database migrated from version %d to %d", current, latest)))
	return nil
}
