package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/FACorreiaa/statement-import/internal/domain/import/session"
	"github.com/FACorreiaa/statement-import/internal/domain/import/template"
	"github.com/FACorreiaa/statement-import/pkg/config"
)

func newBanksCommand(global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "banks",
		Short: "List the bank export templates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(global.envFile)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			registry, err := loadRegistry(cfg.Import.TemplatesFile)
			if err != nil {
				return err
			}
			printBanks(cmd.OutOrStdout(), registry)
			return nil
		},
	}
}

func printBanks(w io.Writer, r *template.Registry) {
	fmt.Fprintf(w, "%-16s  %-26s  %-5s  %-7s  %s\n", "ID", "BANK", "DELIM", "DECIMAL", "COLUMNS")
	for _, t := range r.List() {
		m := t.Columns
		cols := []string{"date=" + m.Date, "amount=" + m.Amount, "description=" + m.Description}
		if m.Category != "" {
			cols = append(cols, "category="+m.Category)
		}
		if m.Type != "" {
			cols = append(cols, "type="+m.Type)
		}
		fmt.Fprintf(w, "%-16s  %-26s  %-5s  %-7s  %s\n",
			t.ID, t.DisplayName, orDash(t.Delimiter), orDash(t.DecimalSeparator), strings.Join(cols, ", "))
	}
	fmt.Fprintf(w, "\nRegistry version %d. Use --bank %s to auto-map headers instead.\n", r.Version(), session.ManualBankID)
}
