// Package normalizer converts raw statement rows into candidate transactions.
// It never fails on a single row: unparseable fields are left as sentinels
// (empty date, AmountValid=false) for the validator to report.
package normalizer

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/statement-import/internal/domain/import/model"
	"github.com/FACorreiaa/statement-import/internal/domain/import/textnorm"
)

// Markers found in type/direction columns. Matched after folding.
var (
	debitMarkers = map[string]bool{
		"debit": true, "debito": true, "cargo": true, "dr": true, "d": true,
		"expense": true, "gasto": true, "adeudo": true, "out": true, "withdrawal": true,
	}
	creditMarkers = map[string]bool{
		"credit": true, "credito": true, "abono": true, "cr": true, "c": true,
		"income": true, "ingreso": true, "in": true, "deposit": true,
	}
)

// Normalizer turns RawRows into Candidates. It is immutable and safe for
// concurrent use; With returns a reconfigured copy.
type Normalizer struct {
	cleaner    *DescriptionCleaner
	decimalSep rune
	dateLayout string
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithCleaner replaces the description cleaner.
func WithCleaner(c *DescriptionCleaner) Option {
	return func(n *Normalizer) { n.cleaner = c }
}

// WithDecimalSeparator pins the decimal mark instead of inferring it per cell.
func WithDecimalSeparator(sep rune) Option {
	return func(n *Normalizer) { n.decimalSep = sep }
}

// WithDateLayout tries layout before the built-in date layouts.
func WithDateLayout(layout string) Option {
	return func(n *Normalizer) { n.dateLayout = layout }
}

// New creates a normalizer with the default strip patterns.
func New(opts ...Option) *Normalizer {
	cleaner, _ := NewDescriptionCleaner(nil)
	n := &Normalizer{cleaner: cleaner}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// With returns a copy of n with opts applied.
func (n *Normalizer) With(opts ...Option) *Normalizer {
	cp := *n
	for _, opt := range opts {
		opt(&cp)
	}
	return &cp
}

// DecimalSeparator reports the pinned decimal mark, 0 when inferred.
func (n *Normalizer) DecimalSeparator() rune {
	return n.decimalSep
}

// Normalize builds the candidate for one row.
func (n *Normalizer) Normalize(row model.RawRow, m model.ColumnMapping, rowIndex int) model.Candidate {
	c := model.Candidate{
		SourceRowIndex: rowIndex,
		RawDate:        cell(row, m.Date),
		RawAmount:      cell(row, m.Amount),
		Category:       strings.TrimSpace(cell(row, m.Category)),
		SubCategory:    strings.TrimSpace(cell(row, m.SubCategory)),
	}

	if iso, ok := ParseDate(c.RawDate, n.dateLayout); ok {
		c.Date = iso
	}

	signed, err := ParseAmount(c.RawAmount, n.decimalSep)
	if err == nil {
		c.AmountValid = true
		switch direction(cell(row, m.Type)) {
		case model.TxExpense:
			signed = signed.Abs().Neg()
		case model.TxIncome:
			signed = signed.Abs()
		}
	} else {
		signed = decimal.Zero
	}
	c.SignedRawAmount = signed
	c.Amount = signed.Abs()
	c.Type = model.TypeForSigned(signed)

	c.Description = n.cleaner.Clean(cell(row, m.Description))
	return c
}

// NormalizeAll normalizes every row; the candidate at position i has SourceRowIndex i.
func (n *Normalizer) NormalizeAll(rows []model.RawRow, m model.ColumnMapping) []model.Candidate {
	out := make([]model.Candidate, len(rows))
	for i, row := range rows {
		out[i] = n.Normalize(row, m, i)
	}
	return out
}

// direction reads an explicit debit/credit marker. An empty TxType means the
// cell carries no direction and the amount sign decides.
func direction(v string) model.TxType {
	key := textnorm.Fold(v)
	switch {
	case key == "":
		return ""
	case debitMarkers[key]:
		return model.TxExpense
	case creditMarkers[key]:
		return model.TxIncome
	}
	return ""
}

func cell(row model.RawRow, header string) string {
	if header == "" {
		return ""
	}
	return row[header]
}
