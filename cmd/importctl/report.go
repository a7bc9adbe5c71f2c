package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/gocarina/gocsv"

	"github.com/FACorreiaa/statement-import/internal/domain/import/model"
	"github.com/FACorreiaa/statement-import/internal/domain/import/pipeline"
	"github.com/FACorreiaa/statement-import/internal/domain/import/session"
	"github.com/FACorreiaa/statement-import/pkg/money"
)

const descWidth = 36

var statusColors = map[pipeline.RowStatus]*color.Color{
	pipeline.StatusOK:        color.New(color.FgGreen),
	pipeline.StatusDuplicate: color.New(color.FgYellow),
	pipeline.StatusSkipped:   color.New(color.FgHiBlack),
	pipeline.StatusError:     color.New(color.FgRed, color.Bold),
}

func printPreview(w io.Writer, st session.PreviewState, limit int, currency string) {
	p := st.Preview
	counts := p.Counts()

	source := "auto-mapped"
	if st.Template != nil {
		source = st.Template.DisplayName
	}
	fmt.Fprintf(w, "File:     %s (%s)\n", st.File.Name, source)
	fmt.Fprintf(w, "Account:  %s (%s)\n", st.Account.Name, st.Account.ID)
	fmt.Fprintf(w, "Rows:     %d total, %d valid, %d duplicate, %d with errors, %d to import\n",
		counts.Total, counts.Valid, counts.Duplicate, counts.Error, counts.Accepted)
	if prev := st.PreviouslyImported; prev != nil {
		color.New(color.FgYellow).Fprintf(w, "Warning:  this file was already imported on %s\n",
			prev.CreatedAt.Format("2006-01-02 15:04"))
	}
	fmt.Fprintln(w)

	rows := p.Rows(limit)
	fmt.Fprintf(w, "%5s  %-9s  %-10s  %-7s  %14s  %-*s  %s\n",
		"ROW", "STATUS", "DATE", "TYPE", "AMOUNT", descWidth, "DESCRIPTION", "CATEGORY")
	for _, r := range rows {
		c := r.Candidate
		amount := c.RawAmount
		if c.AmountValid {
			amount = money.Format(c.Amount, currency)
		}
		fmt.Fprintf(w, "%5d  ", c.SourceRowIndex+1)
		statusColor(r.Status).Fprintf(w, "%-9s", r.Status)
		fmt.Fprintf(w, "  %-10s  %-7s  %14s  %-*s  %s\n",
			orDash(c.Date), c.Type, amount, descWidth, truncate(c.Description, descWidth), category(c))
		for _, e := range r.Errors {
			statusColor(pipeline.StatusError).Fprintf(w, "%18s %s: %s\n", "", e.Field, e.Reason)
		}
	}
	if len(rows) < counts.Total {
		fmt.Fprintf(w, "... %d more rows\n", counts.Total-len(rows))
	}

	imp := p.Impact
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Starting balance:   %s\n", money.Format(imp.StartingBalance, currency))
	fmt.Fprintf(w, "Income:             %s\n", money.FormatSigned(imp.IncomeTotal, currency))
	fmt.Fprintf(w, "Expenses:           %s\n", money.FormatSigned(imp.ExpenseTotal.Neg(), currency))
	fmt.Fprintf(w, "Net impact:         %s\n", money.FormatSigned(imp.NetImpact, currency))
	fmt.Fprintf(w, "Projected balance:  %s\n", money.Format(imp.ProjectedEndingBalance, currency))
}

func printCommit(w io.Writer, res *session.CommitResult, currency string) {
	fmt.Fprintf(w, "Imported %d transactions into %s", len(res.TransactionIDs), res.AccountID)
	if res.Excluded > 0 {
		fmt.Fprintf(w, " (%d rows left out)", res.Excluded)
	}
	if res.BalanceRead {
		fmt.Fprintf(w, ", balance is now %s\n", money.Format(res.Balance, currency))
	} else {
		fmt.Fprintf(w, ", projected balance %s\n", money.Format(res.Impact.ProjectedEndingBalance, currency))
	}
	if res.Archived != nil {
		fmt.Fprintf(w, "Statement archived as %s\n", res.Archived.ID)
	}
}

func statusColor(s pipeline.RowStatus) *color.Color {
	if c, ok := statusColors[s]; ok {
		return c
	}
	return color.New(color.Reset)
}

func category(c model.Candidate) string {
	if c.SubCategory != "" {
		return c.Category + " / " + c.SubCategory
	}
	return c.Category
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// previewRecord is one exported row. Row numbers are 1-based data rows.
type previewRecord struct {
	Row         int    `csv:"row"`
	Status      string `csv:"status"`
	Date        string `csv:"date"`
	Type        string `csv:"type"`
	Amount      string `csv:"amount"`
	RawAmount   string `csv:"raw_amount"`
	Description string `csv:"description"`
	Category    string `csv:"category"`
	SubCategory string `csv:"subcategory"`
	Errors      string `csv:"errors"`
	DuplicateOf string `csv:"duplicate_of"`
}

func previewRecords(p *pipeline.Preview) []*previewRecord {
	rows := p.Rows(0)
	out := make([]*previewRecord, 0, len(rows))
	for _, r := range rows {
		c := r.Candidate
		rec := &previewRecord{
			Row:         c.SourceRowIndex + 1,
			Status:      string(r.Status),
			Date:        c.Date,
			Type:        string(c.Type),
			RawAmount:   c.RawAmount,
			Description: c.Description,
			Category:    c.Category,
			SubCategory: c.SubCategory,
			DuplicateOf: strings.Join(r.MatchedIDs, " "),
		}
		if c.AmountValid {
			rec.Amount = c.Amount.StringFixed(2)
		}
		reasons := make([]string, len(r.Errors))
		for i, e := range r.Errors {
			reasons[i] = e.Field + ": " + e.Reason
		}
		rec.Errors = strings.Join(reasons, "; ")
		out = append(out, rec)
	}
	return out
}

func writePreviewCSV(w io.Writer, p *pipeline.Preview) error {
	records := previewRecords(p)
	if err := gocsv.Marshal(&records, w); err != nil {
		return fmt.Errorf("failed to write preview csv: %w", err)
	}
	return nil
}

func exportPreviewFile(path string, p *pipeline.Preview) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating export: %w", err)
	}
	if err := writePreviewCSV(f, p); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
