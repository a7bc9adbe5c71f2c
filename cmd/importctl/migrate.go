package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newMigrateCommand(global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the ledger schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := setup(cmd, global)
			if err != nil {
				return err
			}
			defer deps.Cleanup()
			if deps.DB == nil {
				return fmt.Errorf("migrate: %w", errPostgresOnly)
			}

			if err := deps.DB.RunMigrations(); err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Migrations applied")
			return nil
		},
	}
}
