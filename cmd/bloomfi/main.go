package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/bloomfi/internal/cli"
	"github.com/Veraticus/bloomfi/internal/common"
	"github.com/Veraticus/bloomfi/internal/config"
	"github.com/Veraticus/bloomfi/internal/engine"
)

var version = "dev"

// app carries state shared by every subcommand of one root command.
type app struct {
	v       *viper.Viper
	cfg     *config.Config
	cfgFile string
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	rootCmd := &cobra.Command{
		Use:   "bloomfi",
		Short: "💰 Personal ledger with atomic transfers",
		Long: `bloomfi keeps balances for your accounts and moves money between them.

Every transfer debits one account and credits another in a single atomic
step, and every balance change is written to an append-only log.`,
		PersistentPreRunE: a.initConfig,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default: $HOME/.config/bloomfi/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "console", "log format (console, json)")

	_ = a.v.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = a.v.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))

	rootCmd.AddCommand(serveCmd(a))
	rootCmd.AddCommand(migrateCmd(a))
	rootCmd.AddCommand(accountsCmd(a))
	rootCmd.AddCommand(depositCmd(a))
	rootCmd.AddCommand(withdrawCmd(a))
	rootCmd.AddCommand(transferCmd(a))
	rootCmd.AddCommand(dashboardCmd(a))
	rootCmd.AddCommand(tokenCmd(a))
	rootCmd.AddCommand(importOFXCmd(a))
	rootCmd.AddCommand(versionCmd())

	return rootCmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := newRootCmd().ExecuteContext(ctx)
	stop()

	if err != nil {
		var userErr *common.UserError
		if errors.As(userFacing(err), &userErr) {
			fmt.Fprintln(os.Stderr, cli.FormatError(userErr.UserMessage))
			slog.Debug("Command failed", "error", err)
		} else {
			fmt.Fprintln(os.Stderr, cli.FormatError(err.Error()))
		}
		os.Exit(1)
	}
}

// userFacing attaches a short explanation to ledger errors for the terminal.
func userFacing(err error) error {
	messages := []struct {
		err error
		msg string
	}{
		{engine.ErrInsufficientFunds, "Insufficient funds"},
		{engine.ErrForbidden, "Account not found"},
		{engine.ErrSameAccount, "Source and destination accounts must differ"},
		{engine.ErrInvalidAmount, "Amount must be greater than zero"},
		{engine.ErrConflict, "The account changed while we were updating it, please try again"},
		{engine.ErrInvalidInput, "Invalid input"},
		{common.ErrMissingConfig, "Configuration incomplete"},
		{common.ErrInvalidConfig, "Configuration invalid"},
	}
	for _, m := range messages {
		if errors.Is(err, m.err) {
			return common.NewUserError(m.msg, err)
		}
	}
	return err
}

func (a *app) initConfig(_ *cobra.Command, _ []string) error {
	config.SetDefaults(a.v)

	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}

		a.v.AddConfigPath(filepath.Join(home, ".config", "bloomfi"))
		a.v.AddConfigPath(".")
		a.v.SetConfigName("config")
		a.v.SetConfigType("yaml")
	}

	config.BindEnv(a.v)

	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, we'll use defaults
	}

	cfg, err := config.Load(a.v)
	if err != nil {
		return err
	}
	a.cfg = cfg

	if err := common.SetupLogger(cfg.Logging.Level, cfg.Logging.Format); err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	slog.Debug("Configuration loaded",
		"config_file", a.v.ConfigFileUsed(),
		"driver", cfg.Database.Driver)

	return nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		// version needs no configuration or database
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "bloomfi %s\n", version)
		},
	}
}
