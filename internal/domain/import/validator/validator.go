// Package validator reports structurally invalid candidates. It annotates and
// never stops the pipeline.
package validator

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/statement-import/internal/domain/import/model"
)

// Limits bounds the values a candidate may carry.
type Limits struct {
	Earliest  time.Time       // Dates before this are rejected
	Latest    time.Time       // Zero means "one year from now"
	MaxAmount decimal.Decimal // Zero disables the check
}

// DefaultLimits accepts dates from 1900 up to one year ahead and any amount.
func DefaultLimits() Limits {
	return Limits{Earliest: time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)}
}

// Validator checks candidates against Limits.
type Validator struct {
	limits Limits
	now    func() time.Time
}

// New creates a validator.
func New(limits Limits) *Validator {
	return &Validator{limits: limits, now: time.Now}
}

// WithClock replaces the clock used to derive the default latest date.
func (v *Validator) WithClock(now func() time.Time) *Validator {
	v.now = now
	return v
}

// Validate returns one error per offending field, ordered by row then field.
// A clean batch yields an empty slice.
func (v *Validator) Validate(candidates []model.Candidate) []model.ValidationError {
	latest := v.limits.Latest
	if latest.IsZero() {
		latest = v.now().AddDate(1, 0, 0)
	}

	errs := make([]model.ValidationError, 0)
	for _, c := range candidates {
		errs = append(errs, v.validateOne(c, latest)...)
	}
	return errs
}

func (v *Validator) validateOne(c model.Candidate, latest time.Time) []model.ValidationError {
	var errs []model.ValidationError
	fail := func(field, format string, args ...any) {
		errs = append(errs, model.ValidationError{
			RowIndex: c.SourceRowIndex,
			Field:    field,
			Reason:   fmt.Sprintf(format, args...),
		})
	}

	if day, ok := c.Time(); !ok {
		if strings.TrimSpace(c.RawDate) == "" {
			fail(model.FieldDate, "date is missing")
		} else {
			fail(model.FieldDate, "unparseable date %q", c.RawDate)
		}
	} else if day.Before(v.limits.Earliest) || day.After(latest) {
		fail(model.FieldDate, "date %s is outside %s..%s", c.Date,
			v.limits.Earliest.Format(model.ISODate), latest.Format(model.ISODate))
	}

	switch {
	case !c.AmountValid && strings.TrimSpace(c.RawAmount) == "":
		fail(model.FieldAmount, "amount is missing")
	case !c.AmountValid:
		fail(model.FieldAmount, "amount %q is not a number", c.RawAmount)
	case c.Amount.IsNegative():
		fail(model.FieldAmount, "amount %s is negative", c.Amount)
	case !v.limits.MaxAmount.IsZero() && c.Amount.GreaterThan(v.limits.MaxAmount):
		fail(model.FieldAmount, "amount %s exceeds %s", c.Amount, v.limits.MaxAmount)
	}

	if strings.TrimSpace(c.Description) == "" {
		fail(model.FieldDescription, "description is empty")
	}
	return errs
}

// ByRow groups errors by candidate row index.
func ByRow(errs []model.ValidationError) map[int][]model.ValidationError {
	out := make(map[int][]model.ValidationError)
	for _, e := range errs {
		out[e.RowIndex] = append(out[e.RowIndex], e)
	}
	return out
}
