package pipeline

import (
	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/statement-import/internal/domain/balance"
	"github.com/FACorreiaa/statement-import/internal/domain/import/model"
	"github.com/FACorreiaa/statement-import/internal/domain/import/validator"
)

// RowStatus is the per-row verdict shown in a preview table.
type RowStatus string

const (
	StatusOK        RowStatus = "OK"
	StatusError     RowStatus = "ERROR"
	StatusDuplicate RowStatus = "DUPLICATE" // flagged but still accepted
	StatusSkipped   RowStatus = "SKIPPED"   // flagged and excluded by skip-duplicates
)

// Row is one annotated preview line.
type Row struct {
	Candidate  model.Candidate
	Status     RowStatus
	Errors     []model.ValidationError
	MatchedIDs []string
}

// Counts summarizes a preview.
type Counts struct {
	Total     int
	Valid     int // rows without validation errors
	Duplicate int // rows flagged as probable duplicates
	Error     int // rows with at least one validation error
	Accepted  int
}

// Preview is the captured output of one pipeline run. Candidates are never
// modified; errors and duplicate flags are keyed by SourceRowIndex.
type Preview struct {
	Candidates     []model.Candidate
	Errors         []model.ValidationError
	Duplicates     []model.DuplicateMatch
	Impact         model.BalanceImpactSummary
	SkipDuplicates bool

	errorsByRow    map[int][]model.ValidationError
	duplicateByRow map[int][]string
}

func newPreview(cands []model.Candidate, errs []model.ValidationError, dups []model.DuplicateMatch, starting decimal.Decimal, skip bool) *Preview {
	p := &Preview{
		Candidates:     cands,
		Errors:         errs,
		Duplicates:     dups,
		SkipDuplicates: skip,
		errorsByRow:    validator.ByRow(errs),
		duplicateByRow: make(map[int][]string, len(dups)),
	}
	for _, d := range dups {
		if d.CandidateIndex < 0 || d.CandidateIndex >= len(cands) {
			continue
		}
		row := cands[d.CandidateIndex].SourceRowIndex
		p.duplicateByRow[row] = append(p.duplicateByRow[row], d.MatchedLedgerTransactionIDs...)
	}
	p.Impact = balance.ComputeImpact(p.Accepted(), starting)
	return p
}

// WithSkipDuplicates returns a preview sharing the same batch with the
// duplicate toggle set and the impact recomputed.
func (p *Preview) WithSkipDuplicates(skip bool) *Preview {
	cp := *p
	cp.SkipDuplicates = skip
	cp.Impact = balance.ComputeImpact(cp.Accepted(), p.Impact.StartingBalance)
	return &cp
}

// HasErrors reports whether the row failed validation.
func (p *Preview) HasErrors(rowIndex int) bool {
	return len(p.errorsByRow[rowIndex]) > 0
}

// IsDuplicate reports whether the row was flagged as a probable duplicate.
func (p *Preview) IsDuplicate(rowIndex int) bool {
	return len(p.duplicateByRow[rowIndex]) > 0
}

// status is the verdict for one row under the current toggle.
func (p *Preview) status(rowIndex int) RowStatus {
	switch {
	case p.HasErrors(rowIndex):
		return StatusError
	case p.IsDuplicate(rowIndex) && p.SkipDuplicates:
		return StatusSkipped
	case p.IsDuplicate(rowIndex):
		return StatusDuplicate
	default:
		return StatusOK
	}
}

// Accepted returns the candidates the next commit would write, in row order.
func (p *Preview) Accepted() []model.Candidate {
	out := make([]model.Candidate, 0, len(p.Candidates))
	for _, c := range p.Candidates {
		switch p.status(c.SourceRowIndex) {
		case StatusOK, StatusDuplicate:
			out = append(out, c)
		}
	}
	return out
}

// Counts tallies the preview under the current toggle.
func (p *Preview) Counts() Counts {
	c := Counts{Total: len(p.Candidates)}
	for _, cand := range p.Candidates {
		idx := cand.SourceRowIndex
		if p.HasErrors(idx) {
			c.Error++
		} else {
			c.Valid++
		}
		if p.IsDuplicate(idx) {
			c.Duplicate++
		}
		switch p.status(idx) {
		case StatusOK, StatusDuplicate:
			c.Accepted++
		}
	}
	return c
}

// Rows returns the first limit annotated rows; limit <= 0 returns all of them.
func (p *Preview) Rows(limit int) []Row {
	n := len(p.Candidates)
	if limit > 0 && limit < n {
		n = limit
	}
	rows := make([]Row, n)
	for i := 0; i < n; i++ {
		c := p.Candidates[i]
		rows[i] = Row{
			Candidate:  c,
			Status:     p.status(c.SourceRowIndex),
			Errors:     p.errorsByRow[c.SourceRowIndex],
			MatchedIDs: p.duplicateByRow[c.SourceRowIndex],
		}
	}
	return rows
}
