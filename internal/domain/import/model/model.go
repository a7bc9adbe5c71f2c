// Package model holds the records that flow between the statement import stages.
// Every stage receives its inputs explicitly and returns new values; nothing here is
// mutated after the stage that built it returns.
package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ISODate is the layout used for every normalized date in the pipeline.
const ISODate = "2006-01-02"

// TxType is the direction of a transaction relative to the target account.
type TxType string

const (
	TxIncome  TxType = "INCOME"
	TxExpense TxType = "EXPENSE"
)

// TypeForSigned returns INCOME for non-negative amounts and EXPENSE otherwise.
func TypeForSigned(signed decimal.Decimal) TxType {
	if signed.IsNegative() {
		return TxExpense
	}
	return TxIncome
}

// RawRow maps a source column header to the raw cell value of one imported line.
type RawRow map[string]string

// Table is the parsed form of an uploaded statement.
type Table struct {
	Headers     []string // Column order as it appears in the file
	Rows        []RawRow
	Delimiter   rune   // Zero for workbook sources
	Fingerprint string // SHA256 of the normalized header row
	Format      string // "csv" or "xlsx"
}

// Column returns every value of the named column in row order.
func (t *Table) Column(header string) []string {
	if t == nil || header == "" {
		return nil
	}
	values := make([]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		values = append(values, row[header])
	}
	return values
}

// ColumnMapping associates canonical fields with source headers. Empty means unmapped.
type ColumnMapping struct {
	Date        string `yaml:"date" json:"date"`
	Amount      string `yaml:"amount" json:"amount"`
	Description string `yaml:"description" json:"description"`
	Category    string `yaml:"category,omitempty" json:"category,omitempty"`
	SubCategory string `yaml:"subcategory,omitempty" json:"subCategory,omitempty"`
	Type        string `yaml:"type,omitempty" json:"type,omitempty"`
}

// Missing lists the required fields (date, amount, description) that are unmapped.
func (m ColumnMapping) Missing() []string {
	var missing []string
	if m.Date == "" {
		missing = append(missing, FieldDate)
	}
	if m.Amount == "" {
		missing = append(missing, FieldAmount)
	}
	if m.Description == "" {
		missing = append(missing, FieldDescription)
	}
	return missing
}

// Canonical field names shared by the mapper, the validator and error reporting.
const (
	FieldDate        = "date"
	FieldAmount      = "amount"
	FieldDescription = "description"
	FieldCategory    = "category"
	FieldSubCategory = "subCategory"
	FieldType        = "type"
)

// Candidate is a normalized transaction that has not been committed yet.
type Candidate struct {
	Date            string // ISO date, empty when the raw date could not be parsed
	RawDate         string
	Amount          decimal.Decimal // Always the absolute value
	SignedRawAmount decimal.Decimal
	AmountValid     bool
	RawAmount       string
	Description     string
	Category        string
	SubCategory     string
	Type            TxType
	AccountID       string
	SourceRowIndex  int
}

// Time returns the parsed candidate date.
func (c Candidate) Time() (time.Time, bool) {
	if c.Date == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(ISODate, c.Date)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// WithClassification returns a copy of c carrying the given category pair.
func (c Candidate) WithClassification(category, subCategory string) Candidate {
	c.Category = category
	c.SubCategory = subCategory
	return c
}

// WithAccount returns a copy of c bound to accountID.
func (c Candidate) WithAccount(accountID string) Candidate {
	c.AccountID = accountID
	return c
}

// ValidationError describes one invalid field of one candidate.
type ValidationError struct {
	RowIndex int
	Field    string
	Reason   string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("row %d, field %s: %s", e.RowIndex, e.Field, e.Reason)
}

// DuplicateMatch links a candidate to ledger transactions that look identical.
type DuplicateMatch struct {
	CandidateIndex              int
	MatchedLedgerTransactionIDs []string
}

// BalanceImpactSummary is the projected effect of an accepted batch on one account.
type BalanceImpactSummary struct {
	StartingBalance        decimal.Decimal
	IncomeTotal            decimal.Decimal
	ExpenseTotal           decimal.Decimal
	NetImpact              decimal.Decimal
	ProjectedEndingBalance decimal.Decimal
}
