package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/FACorreiaa/statement-import/internal/domain/ledger"
	"github.com/FACorreiaa/statement-import/pkg/money"
)

func newAccountsCommand(global *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Inspect and manage ledger accounts",
	}
	cmd.AddCommand(newAccountsListCommand(global), newAccountsAddCommand(global))
	return cmd
}

func newAccountsListCommand(global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List accounts with their balances",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := setup(cmd, global)
			if err != nil {
				return err
			}
			defer deps.Cleanup()

			accounts, err := deps.Ledger.ListAccounts(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list accounts: %w", err)
			}
			printAccounts(cmd.OutOrStdout(), accounts, deps.Config.Ledger.Currency)
			return nil
		},
	}
}

func newAccountsAddCommand(global *globalOptions) *cobra.Command {
	var (
		name     string
		currency string
		balance  string
	)

	cmd := &cobra.Command{
		Use:   "add ID",
		Short: "Add an account to the file-backed ledger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opening, err := decimal.NewFromString(balance)
			if err != nil {
				return fmt.Errorf("invalid --balance %q: %w", balance, err)
			}

			deps, err := setup(cmd, global)
			if err != nil {
				return err
			}
			defer deps.Cleanup()
			if deps.Memory == nil {
				return fmt.Errorf("accounts add: %w", errMemoryOnly)
			}

			if currency == "" {
				currency = deps.Config.Ledger.Currency
			}
			acc := ledger.Account{
				ID:       args[0],
				Name:     name,
				Currency: strings.ToUpper(currency),
				Balance:  opening,
			}
			if acc.Name == "" {
				acc.Name = acc.ID
			}
			if err := deps.Memory.AddAccount(cmd.Context(), acc); err != nil {
				return err
			}
			if err := deps.Memory.Save(); err != nil {
				return fmt.Errorf("saving ledger: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Added account %s with balance %s\n", acc.ID, money.Format(acc.Balance, acc.Currency))
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "display name (default: the id)")
	cmd.Flags().StringVar(&currency, "currency", "", "ISO currency code (default CURRENCY)")
	cmd.Flags().StringVar(&balance, "balance", "0", "opening balance")

	return cmd
}

func printAccounts(w io.Writer, accounts []ledger.Account, fallbackCurrency string) {
	if len(accounts) == 0 {
		fmt.Fprintln(w, "No accounts. Add one with: importctl accounts add ID --balance 0")
		return
	}
	fmt.Fprintf(w, "%-16s  %-24s  %16s\n", "ID", "NAME", "BALANCE")
	for _, a := range accounts {
		cur := a.Currency
		if cur == "" {
			cur = fallbackCurrency
		}
		fmt.Fprintf(w, "%-16s  %-24s  %16s\n", a.ID, a.Name, money.Format(a.Balance, cur))
	}
}
