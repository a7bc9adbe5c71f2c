package normalizer

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

var (
	ErrEmptyAmount   = errors.New("amount is empty")
	ErrInvalidAmount = errors.New("amount is not a number")
)

// ParseAmount converts a bank amount cell to a signed decimal.
//
// Currency symbols, codes and spaces are dropped. The sign comes from a leading
// or trailing minus, from parentheses, or from a D/DR/C/CR marker. When decimalSep is 0 the decimal mark
// is inferred per cell:
//   - the last separator followed by exactly two digits is the decimal mark
//   - with both ',' and '.' present the last one is the decimal mark
//   - a repeated separator, or a single one followed by three digits, groups thousands
//   - any other single separator is the decimal mark
func ParseAmount(raw string, decimalSep rune) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero, ErrEmptyAmount
	}

	s = strings.Map(func(r rune) rune {
		switch {
		case r == '−': // unicode minus sign
			return '-'
		case unicode.IsSpace(r), unicode.Is(unicode.Sc, r), r == '\'':
			return -1
		}
		return r
	}, s)

	// Currency codes and debit/credit markers sit at either end ("EUR", "45,00 DR", "45,00 C").
	var marker string
	core := strings.TrimFunc(s, unicode.IsLetter)
	if letters := strings.ToUpper(strings.Replace(s, core, "", 1)); core != "" {
		if utf8.RuneCountInString(letters) > 3 {
			return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
		}
		marker = letters
		s = core
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
		if strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") ||
			strings.HasSuffix(s, "-") || strings.HasSuffix(s, "+") {
			return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
		}
	}

	switch {
	case strings.HasSuffix(s, "-"):
		negative = !negative
		s = strings.TrimSuffix(s, "-")
	case strings.HasSuffix(s, "+"):
		s = strings.TrimSuffix(s, "+")
	}
	switch {
	case strings.HasPrefix(s, "-"):
		negative = !negative
		s = s[1:]
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	}

	// A marker decides the direction on its own.
	switch marker {
	case "D", "DR":
		negative = true
	case "C", "CR":
		negative = false
	}

	if s == "" || strings.Trim(s, "0123456789.,") != "" || strings.Trim(s, ".,") == "" {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
	}

	plain := canonicalDigits(s, decimalSep)
	d, err := decimal.NewFromString(plain)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
	}
	if negative {
		d = d.Neg()
	}
	return d, nil
}

// canonicalDigits rewrites s (digits and separators only) with '.' as the only
// separator, marking the decimal position.
func canonicalDigits(s string, decimalSep rune) string {
	if decimalSep != 0 {
		var b strings.Builder
		for _, r := range s {
			switch {
			case r == decimalSep:
				b.WriteRune('.')
			case r == ',' || r == '.':
				// thousands separator
			default:
				b.WriteRune(r)
			}
		}
		return b.String()
	}

	last := strings.LastIndexAny(s, ",.")
	if last < 0 {
		return s
	}
	sep := s[last]
	before, after := s[:last], s[last+1:]
	hasBoth := strings.ContainsAny(s, ",") && strings.ContainsAny(s, ".")

	isDecimal := true
	switch {
	case len(after) == 2:
		isDecimal = true
	case hasBoth:
		isDecimal = true
	case strings.Count(s, string(sep)) > 1:
		isDecimal = false
	case len(after) == 3 && before != "" && before != "0":
		isDecimal = false
	}

	stripped := strings.NewReplacer(",", "", ".", "")
	if !isDecimal {
		return stripped.Replace(s)
	}
	out := stripped.Replace(before) + "." + after
	if strings.HasPrefix(out, ".") {
		out = "0" + out
	}
	return out
}
