// Package textnorm folds free text from bank exports into comparable forms.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Collapse trims s and replaces every run of whitespace with one space.
func Collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// StripAccents removes combining marks, so "Categoría" becomes "Categoria".
func StripAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Fold lower-cases s, strips accents and collapses whitespace.
func Fold(s string) string {
	return Collapse(strings.ToLower(StripAccents(s)))
}

// Key upper-cases s, strips accents and collapses whitespace. It is the form used
// for keyword matching and description comparison.
func Key(s string) string {
	return Collapse(strings.ToUpper(StripAccents(s)))
}
