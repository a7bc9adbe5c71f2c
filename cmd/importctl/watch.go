package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/FACorreiaa/statement-import/internal/domain/import/inbox"
	"github.com/FACorreiaa/statement-import/pkg/cron"
)

type watchOptions struct {
	account        string
	bank           string
	schedule       string
	skipDuplicates bool
	once           bool
}

func newWatchCommand(global *globalOptions) *cobra.Command {
	opts := &watchOptions{}

	cmd := &cobra.Command{
		Use:   "watch DIR",
		Short: "Import statements dropped into DIR on a schedule",
		Long: `Every run imports each CSV/XLSX file in DIR into one account, then moves it
to DIR/processed or, when it cannot be imported, to DIR/failed. Files whose
exact content was already imported are set aside without a commit.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := setup(cmd, global)
			if err != nil {
				return err
			}
			defer deps.Cleanup()

			if opts.schedule == "" {
				opts.schedule = deps.Config.Import.InboxSchedule
			}
			return runWatch(cmd.Context(), deps, args[0], opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.account, "account", "", "ledger account id (required)")
	_ = cmd.MarkFlagRequired("account")
	cmd.Flags().StringVar(&opts.bank, "bank", "", "bank template id for every file (default: detected per file)")
	cmd.Flags().StringVar(&opts.schedule, "schedule", "", `cron schedule, e.g. "*/10 * * * *" (default IMPORT_INBOX_SCHEDULE)`)
	cmd.Flags().BoolVar(&opts.skipDuplicates, "skip-duplicates", true, "leave rows that match existing ledger transactions out")
	cmd.Flags().BoolVar(&opts.once, "once", false, "sweep the directory once and exit")

	return cmd
}

func runWatch(ctx context.Context, deps *Dependencies, dir string, opts *watchOptions, out io.Writer) error {
	box, err := inbox.New(inbox.Config{
		Dir:            dir,
		AccountID:      opts.account,
		BankID:         opts.bank,
		SkipDuplicates: opts.skipDuplicates,
		NewSession:     deps.NewSession,
		Logger:         deps.Logger,
	})
	if err != nil {
		return err
	}

	sweep := func(ctx context.Context) error {
		summary, err := box.Sweep(ctx)
		if err != nil {
			return err
		}
		printSweep(out, summary)
		return nil
	}

	if opts.once {
		return sweep(ctx)
	}

	scheduler := cron.NewScheduler(deps.Logger, 0)
	if err := scheduler.Add(opts.schedule, "inbox", sweep); err != nil {
		return err
	}
	// Files already waiting are handled right away.
	if err := scheduler.RunNow(); err != nil {
		deps.Logger.Warn("initial sweep failed", slog.Any("error", err))
	}
	scheduler.Start()
	if next, ok := scheduler.Next(); ok {
		fmt.Fprintf(out, "Watching %s, next sweep at %s\n", dir, next.Format("15:04:05"))
	}

	<-ctx.Done()
	<-scheduler.Stop().Done()
	return nil
}

func printSweep(w io.Writer, s inbox.Summary) {
	for _, r := range s.Results {
		switch {
		case r.Err != nil:
			fmt.Fprintf(w, "%s: failed: %v\n", r.File, r.Err)
		case r.Skipped != "":
			fmt.Fprintf(w, "%s: skipped, %s\n", r.File, r.Skipped)
		default:
			fmt.Fprintf(w, "%s: imported %d transactions, %d rows left out\n", r.File, r.Committed, r.Excluded)
		}
	}
}
