package main

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/Veraticus/bloomfi/internal/cli"
	"github.com/Veraticus/bloomfi/internal/engine"
	"github.com/Veraticus/bloomfi/internal/model"
)

func accountsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Open and list accounts",
	}

	cmd.AddCommand(accountsOpenCmd(a))
	cmd.AddCommand(accountsListCmd(a))

	return cmd
}

func accountsOpenCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "open",
		Short: "Open a new account",
		Example: `  bloomfi accounts open --user 1 --name Everyday --type checking --balance 250.00
  bloomfi accounts open --user 1 --name "Rainy day" --type savings --number ***4321`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			userID, err := userFlag(cmd)
			if err != nil {
				return err
			}
			name, _ := cmd.Flags().GetString("name")
			kind, _ := cmd.Flags().GetString("type")
			number, _ := cmd.Flags().GetString("number")
			rawBalance, _ := cmd.Flags().GetString("balance")

			balance := decimal.Zero
			if rawBalance != "" {
				balance, err = model.ParseAmount(rawBalance)
				if err != nil {
					return fmt.Errorf("%w: %w", engine.ErrInvalidInput, err)
				}
			}

			account := &model.Account{
				UserID:        userID,
				Name:          name,
				Type:          kind,
				DisplayNumber: number,
				Balance:       balance,
			}

			return a.withEngine(cmd.Context(), func(eng *engine.Engine) error {
				if err := eng.OpenAccount(cmd.Context(), account); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf(
					"Opened account %d (%s) with %s",
					account.ID, account.Label(), model.FormatCurrency(account.Balance))))
				return nil
			})
		},
	}

	addUserFlag(cmd)
	cmd.Flags().String("name", "", "account name")
	cmd.Flags().String("type", "checking", "account type (checking, savings, ...)")
	cmd.Flags().String("number", model.DefaultDisplayNumber, "masked account number shown to the user")
	cmd.Flags().String("balance", "0", "opening balance")

	return cmd
}

func accountsListCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a user's accounts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			userID, err := userFlag(cmd)
			if err != nil {
				return err
			}

			return a.withEngine(cmd.Context(), func(eng *engine.Engine) error {
				accounts, err := eng.Accounts(cmd.Context(), userID)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.RenderAccounts(accounts))
				return nil
			})
		},
	}

	addUserFlag(cmd)

	return cmd
}
