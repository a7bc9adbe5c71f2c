package main

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/FACorreiaa/statement-import/pkg/storage"
)

func newArchiveCommand(global *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Browse the statement files kept for committed imports",
	}
	cmd.AddCommand(
		newArchiveListCommand(global),
		newArchiveShowCommand(global),
		newArchiveRemoveCommand(global),
	)
	return cmd
}

func newArchiveListCommand(global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list ACCOUNT",
		Short: "List archived statements of an account, oldest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withArchive(cmd, global, func(ctx context.Context, archive storage.Archive) error {
				infos, err := archive.List(ctx, args[0])
				if err != nil {
					return fmt.Errorf("failed to list statements: %w", err)
				}
				printArchive(cmd.OutOrStdout(), infos)
				return nil
			})
		},
	}
}

func newArchiveShowCommand(global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show ACCOUNT ID",
		Short: "Write an archived statement file to stdout",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[1])
			if err != nil {
				return fmt.Errorf("invalid statement id %q: %w", args[1], err)
			}
			return withArchive(cmd, global, func(ctx context.Context, archive storage.Archive) error {
				rc, _, err := archive.Open(ctx, args[0], id)
				if err != nil {
					return err
				}
				defer rc.Close()

				if _, err := io.Copy(cmd.OutOrStdout(), rc); err != nil {
					return fmt.Errorf("failed to read statement: %w", err)
				}
				return nil
			})
		},
	}
}

func newArchiveRemoveCommand(global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rm ACCOUNT ID",
		Short: "Delete an archived statement so the same file can be imported again",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[1])
			if err != nil {
				return fmt.Errorf("invalid statement id %q: %w", args[1], err)
			}
			return withArchive(cmd, global, func(ctx context.Context, archive storage.Archive) error {
				info, err := archive.GetInfo(ctx, args[0], id)
				if err != nil {
					return err
				}
				if err := archive.Delete(ctx, args[0], id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s (%s)\n", info.Name, info.ID)
				return nil
			})
		},
	}
}

func withArchive(cmd *cobra.Command, global *globalOptions, fn func(ctx context.Context, archive storage.Archive) error) error {
	deps, err := setup(cmd, global)
	if err != nil {
		return err
	}
	defer deps.Cleanup()
	if deps.Archive == nil {
		return errNoArchive
	}
	return fn(cmd.Context(), deps.Archive)
}

func printArchive(w io.Writer, infos []*storage.StatementInfo) {
	if len(infos) == 0 {
		fmt.Fprintln(w, "No archived statements.")
		return
	}
	fmt.Fprintf(w, "%-36s  %-16s  %-10s  %6s  %s\n", "ID", "IMPORTED", "BANK", "ROWS", "FILE")
	for _, info := range infos {
		bank := info.BankID
		if bank == "" {
			bank = "-"
		}
		fmt.Fprintf(w, "%-36s  %-16s  %-10s  %6d  %s\n",
			info.ID, info.CreatedAt.Local().Format("2006-01-02 15:04"), bank, info.RowsImported, info.Name)
	}
}
