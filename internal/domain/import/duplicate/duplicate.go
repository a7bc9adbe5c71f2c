// Package duplicate flags candidates that probably already exist in the ledger.
// Matches are advisory; the detector never removes a candidate.
package duplicate

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/FACorreiaa/statement-import/internal/domain/import/model"
	"github.com/FACorreiaa/statement-import/internal/domain/import/textnorm"
	"github.com/FACorreiaa/statement-import/internal/domain/ledger"
)

// Policy holds the matching tolerances.
type Policy struct {
	// DateWindowDays is the largest allowed distance between dates. 0 means same day.
	DateWindowDays int
	// MinSimilarity enables edit-distance matching when > 0: descriptions whose
	// Levenshtein similarity (0..1) reaches it also match.
	MinSimilarity float64
	// RequireSameType additionally requires equal INCOME/EXPENSE direction.
	RequireSameType bool
}

// DefaultPolicy is same-day, equal amount, exact or contained description.
func DefaultPolicy() Policy {
	return Policy{}
}

// Detector compares candidates with existing ledger transactions.
type Detector struct {
	policy Policy
}

// New creates a detector. Negative tolerances are clamped to zero.
func New(policy Policy) *Detector {
	if policy.DateWindowDays < 0 {
		policy.DateWindowDays = 0
	}
	if policy.MinSimilarity < 0 {
		policy.MinSimilarity = 0
	}
	return &Detector{policy: policy}
}

// Policy returns the detector's tolerances.
func (d *Detector) Policy() Policy {
	return d.policy
}

type indexed struct {
	tx   ledger.Transaction
	day  time.Time
	desc string
}

// Detect returns one DuplicateMatch per candidate with at least one matching
// ledger transaction, in candidate order. Matched ids keep ledger order.
func (d *Detector) Detect(candidates []model.Candidate, existing []ledger.Transaction) []model.DuplicateMatch {
	// Bucket by amount: equality is required, so only same-amount rows are compared.
	byAmount := make(map[string][]indexed, len(existing))
	for _, tx := range existing {
		key := tx.Amount.String()
		byAmount[key] = append(byAmount[key], indexed{
			tx:   tx,
			day:  truncateDay(tx.Date),
			desc: textnorm.Key(tx.Description),
		})
	}

	var matches []model.DuplicateMatch
	for i, c := range candidates {
		if !c.AmountValid {
			continue
		}
		day, ok := c.Time()
		if !ok {
			continue
		}
		desc := textnorm.Key(c.Description)

		var ids []string
		for _, e := range byAmount[c.Amount.String()] {
			if d.matches(c, day, desc, e) {
				ids = append(ids, e.tx.ID)
			}
		}
		if len(ids) > 0 {
			matches = append(matches, model.DuplicateMatch{CandidateIndex: i, MatchedLedgerTransactionIDs: ids})
		}
	}
	return matches
}

func (d *Detector) matches(c model.Candidate, day time.Time, desc string, e indexed) bool {
	if c.AccountID != "" && e.tx.AccountID != "" && c.AccountID != e.tx.AccountID {
		return false
	}
	if !c.Amount.Equal(e.tx.Amount) {
		return false
	}
	if d.policy.RequireSameType && c.Type != e.tx.Type {
		return false
	}
	if daysApart(day, e.day) > d.policy.DateWindowDays {
		return false
	}
	return d.similar(desc, e.desc)
}

// similar compares two descriptions already folded with textnorm.Key.
func (d *Detector) similar(a, b string) bool {
	if a == b {
		return true
	}
	if a == "" || b == "" {
		return false
	}
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return true
	}
	if d.policy.MinSimilarity > 0 {
		return Similarity(a, b) >= d.policy.MinSimilarity
	}
	return false
}

// Similarity is 1 minus the Levenshtein distance over the longer length.
func Similarity(a, b string) float64 {
	longest := utf8.RuneCountInString(a)
	if n := utf8.RuneCountInString(b); n > longest {
		longest = n
	}
	if longest == 0 {
		return 1
	}
	return 1 - float64(fuzzy.LevenshteinDistance(a, b))/float64(longest)
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func daysApart(a, b time.Time) int {
	diff := a.Sub(b)
	if diff < 0 {
		diff = -diff
	}
	return int(diff.Hours() / 24)
}
