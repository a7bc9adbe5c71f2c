package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/FACorreiaa/statement-import/internal/domain/import/session"
)

type importOptions struct {
	bank           string
	account        string
	delimiter      string
	mappings       []string
	skipDuplicates bool
	dryRun         bool
	export         string
	rows           int
}

func newImportCommand(global *globalOptions) *cobra.Command {
	opts := &importOptions{}

	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Preview a statement export and commit it to an account",
		Long: `Parses FILE (CSV or XLSX), maps its columns through a bank template or the
header heuristic, and shows what would be imported. Without --dry-run the
accepted rows are appended to the account in one ledger transaction.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := setup(cmd, global)
			if err != nil {
				return err
			}
			defer deps.Cleanup()

			if opts.rows < 0 {
				opts.rows = deps.Config.Import.PreviewRows
			}
			return runImport(cmd.Context(), deps, args[0], opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.bank, "bank", "", `bank template id, or "manual" for header auto-mapping (default: detected from headers)`)
	cmd.Flags().StringVar(&opts.account, "account", "", "ledger account id (required when the ledger has several accounts)")
	cmd.Flags().StringVar(&opts.delimiter, "delimiter", "", `field delimiter, e.g. ";" or "tab" (default: detected)`)
	cmd.Flags().StringArrayVar(&opts.mappings, "map", nil, "column override as field=header, repeatable (fields: date, amount, description, category, subCategory, type)")
	cmd.Flags().BoolVar(&opts.skipDuplicates, "skip-duplicates", false, "leave rows that match existing ledger transactions out of the commit")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "show the preview without writing to the ledger")
	cmd.Flags().StringVar(&opts.export, "export", "", "write every previewed row with its status to this CSV file")
	cmd.Flags().IntVar(&opts.rows, "rows", -1, "preview rows to print (default IMPORT_PREVIEW_ROWS, 0 prints all)")

	return cmd
}

func runImport(ctx context.Context, deps *Dependencies, path string, opts *importOptions, out io.Writer) error {
	delimiter, err := parseDelimiter(opts.delimiter)
	if err != nil {
		return err
	}
	edits, err := parseMappings(opts.mappings)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading statement: %w", err)
	}

	s, err := deps.NewSession()
	if err != nil {
		return err
	}

	if err := s.Upload(ctx, filepath.Base(path), data, delimiter); err != nil {
		return err
	}

	bankID := opts.bank
	if bankID == "" {
		bankID = session.ManualBankID
		if st := s.State().(session.BankSelectState); st.Suggested != nil {
			bankID = st.Suggested.ID
			fmt.Fprintf(out, "Detected %s export\n", st.Suggested.DisplayName)
		}
	}
	if err := s.SelectBank(ctx, bankID); err != nil {
		return err
	}

	accountID := opts.account
	if accountID == "" {
		accounts := s.State().(session.AccountSelectState).Accounts
		switch len(accounts) {
		case 0:
			return session.ErrNoAccounts
		case 1:
			accountID = accounts[0].ID
		default:
			ids := make([]string, len(accounts))
			for i, a := range accounts {
				ids[i] = a.ID
			}
			return fmt.Errorf("--account is required, choose one of: %s", strings.Join(ids, ", "))
		}
	}
	if err := s.SelectAccount(ctx, accountID); err != nil {
		return err
	}

	if len(edits) > 0 {
		if err := s.EditMapping(edits); err != nil {
			return err
		}
	}
	if err := s.Preview(ctx); err != nil {
		var incomplete *session.MappingIncompleteError
		if errors.As(err, &incomplete) {
			return fmt.Errorf("%w (set them with --map field=header)", err)
		}
		return err
	}
	if err := s.SetSkipDuplicates(opts.skipDuplicates); err != nil {
		return err
	}

	st := s.State().(session.PreviewState)
	currency := st.Account.Currency
	if currency == "" {
		currency = deps.Config.Ledger.Currency
	}
	printPreview(out, st, opts.rows, currency)

	if opts.export != "" {
		if err := exportPreviewFile(opts.export, st.Preview); err != nil {
			return err
		}
		fmt.Fprintf(out, "Preview written to %s\n", opts.export)
	}

	if opts.dryRun {
		if err := s.Abort(); err != nil {
			return err
		}
		fmt.Fprintln(out, "Dry run, nothing was written")
		return nil
	}

	res, err := s.Commit(ctx)
	if err != nil {
		return err
	}
	printCommit(out, res, currency)
	return nil
}

func parseDelimiter(s string) (rune, error) {
	switch strings.ToLower(s) {
	case "":
		return 0, nil
	case "tab", `\t`:
		return '\t', nil
	}
	if utf8.RuneCountInString(s) != 1 {
		return 0, fmt.Errorf("delimiter must be a single character, got %q", s)
	}
	r, _ := utf8.DecodeRuneInString(s)
	return r, nil
}

// parseMappings turns repeated field=header flags into mapping edits.
// "field=" unmaps the field.
func parseMappings(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	edits := make(map[string]string, len(pairs))
	for _, p := range pairs {
		field, header, ok := strings.Cut(p, "=")
		field = strings.TrimSpace(field)
		if !ok || field == "" {
			return nil, fmt.Errorf("invalid --map %q, want field=header", p)
		}
		edits[field] = strings.TrimSpace(header)
	}
	return edits, nil
}
