package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Veraticus/bloomfi/internal/auth"
	"github.com/Veraticus/bloomfi/internal/cli"
	"github.com/Veraticus/bloomfi/internal/engine"
	"github.com/Veraticus/bloomfi/internal/model"
)

func transferCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "transfer",
		Short:   "Move money between two of your accounts",
		Example: `  bloomfi transfer --user 1 --from 3 --to 4 --amount 40.00`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			userID, err := userFlag(cmd)
			if err != nil {
				return err
			}
			from, _ := cmd.Flags().GetString("from")
			to, _ := cmd.Flags().GetString("to")
			amount, _ := cmd.Flags().GetString("amount")

			req, err := engine.ParseTransferRequest(userID, from, to, amount)
			if err != nil {
				return err
			}

			return a.withEngine(cmd.Context(), func(eng *engine.Engine) error {
				res, err := eng.Transfer(cmd.Context(), req)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.RenderTransfer(res))
				return nil
			})
		},
	}

	addUserFlag(cmd)
	cmd.Flags().String("from", "", "source account id")
	cmd.Flags().String("to", "", "destination account id")
	cmd.Flags().String("amount", "", "amount to move, e.g. 40.00")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

func depositCmd(a *app) *cobra.Command {
	return adjustCmd(a, "deposit", "Add money to one of your accounts", (*engine.Engine).Deposit)
}

func withdrawCmd(a *app) *cobra.Command {
	return adjustCmd(a, "withdraw", "Take money out of one of your accounts", (*engine.Engine).Withdraw)
}

type adjustOp func(*engine.Engine, context.Context, engine.AdjustRequest) (*engine.AdjustResult, error)

func adjustCmd(a *app, use, short string, op adjustOp) *cobra.Command {
	cmd := &cobra.Command{
		Use:     use,
		Short:   short,
		Example: fmt.Sprintf("  bloomfi %s --user 1 --account 3 --amount 25.00 --note \"Paycheck\"", use),
		RunE: func(cmd *cobra.Command, _ []string) error {
			userID, err := userFlag(cmd)
			if err != nil {
				return err
			}
			accountID, _ := cmd.Flags().GetInt64("account")
			rawAmount, _ := cmd.Flags().GetString("amount")
			note, _ := cmd.Flags().GetString("note")
			category, _ := cmd.Flags().GetString("category")

			amount, err := model.ParseAmount(rawAmount)
			if err != nil {
				return fmt.Errorf("%w: %w", engine.ErrInvalidInput, err)
			}

			req := engine.AdjustRequest{
				RequesterID: userID,
				AccountID:   accountID,
				Amount:      amount,
				Note:        note,
				Category:    category,
			}

			return a.withEngine(cmd.Context(), func(eng *engine.Engine) error {
				res, err := op(eng, cmd.Context(), req)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.RenderAdjustment(res))
				return nil
			})
		},
	}

	addUserFlag(cmd)
	cmd.Flags().Int64("account", 0, "account id")
	cmd.Flags().String("amount", "", "amount, e.g. 25.00")
	cmd.Flags().String("note", "", "description stored on the transaction")
	cmd.Flags().String("category", "", "category stored on the transaction")
	_ = cmd.MarkFlagRequired("account")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

func dashboardCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Show total balance and recent activity",
		RunE: func(cmd *cobra.Command, _ []string) error {
			userID, err := userFlag(cmd)
			if err != nil {
				return err
			}

			return a.withEngine(cmd.Context(), func(eng *engine.Engine) error {
				dash, err := eng.Dashboard(cmd.Context(), userID)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.RenderDashboard(dash))
				return nil
			})
		},
	}

	addUserFlag(cmd)

	return cmd
}

func tokenCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Print a signed bearer token for local use",
		RunE: func(cmd *cobra.Command, _ []string) error {
			userID, err := userFlag(cmd)
			if err != nil {
				return err
			}
			if err := a.cfg.RequireSecret(); err != nil {
				return err
			}

			issuer, err := auth.NewIssuer(a.cfg.Auth.JWTSecret, a.cfg.Auth.TokenTTL)
			if err != nil {
				return err
			}
			token, err := issuer.Issue(userID)
			if err != nil {
				return err
			}

			slog.Debug("Issued token", "user_id", userID, "ttl", issuer.TTL())
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	addUserFlag(cmd)

	return cmd
}
