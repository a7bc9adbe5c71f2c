// Command importctl imports bank statement exports into a ledger.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// globalOptions are shared by every subcommand.
type globalOptions struct {
	envFile string
}

func newRootCommand() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:     "importctl",
		Short:   "Import bank statements into the ledger",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&opts.envFile, "env", ".env", "environment file to load before reading configuration")

	rootCmd.AddCommand(
		newImportCommand(opts),
		newBanksCommand(opts),
		newAccountsCommand(opts),
		newCategoriesCommand(opts),
		newArchiveCommand(opts),
		newWatchCommand(opts),
		newMigrateCommand(opts),
	)
	return rootCmd
}
