package normalizer

import (
	"fmt"
	"regexp"

	"github.com/FACorreiaa/statement-import/internal/domain/import/textnorm"
)

// DefaultStripPatterns remove the reference boilerplate banks append to
// descriptions. Merchant names and locations are left alone.
var DefaultStripPatterns = []string{
	// "REF: 2026011512345", "Nº 00123/45", "No. 8812", "Referencia 8812"
	`(?i)(?:\bref(?:er[eê]ncia)?\b\.?|\bn[º°]\.?|\bno\.)\s*[:.]?\s*[a-z0-9/-]*\d[a-z0-9/-]*`,
	// masked card numbers: "XXXX1234", "**** 1234"
	`(?i)(?:[x*]{4}[\s-]?)+\d{4}\b`,
	// terminal/reference numbers at the end
	`\s+\d{6,}$`,
	// trailing booking dates: "15/01/26", "15.01.2026"
	`\s+\d{1,2}[/.-]\d{1,2}[/.-](?:\d{2}|\d{4})$`,
	// short dates only when labelled: "DATA 15/01", "FECHA: 15.01"
	`(?i)\s+(?:data|fecha|date)\b[:.]?\s*\d{1,2}[/.-]\d{1,2}$`,
}

// DescriptionCleaner trims, collapses whitespace and removes boilerplate.
type DescriptionCleaner struct {
	patterns []*regexp.Regexp
}

// NewDescriptionCleaner compiles patterns. Passing nil uses DefaultStripPatterns.
func NewDescriptionCleaner(patterns []string) (*DescriptionCleaner, error) {
	if patterns == nil {
		patterns = DefaultStripPatterns
	}
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid strip pattern %q: %w", p, err)
		}
		compiled = append(compiled, re)
	}
	return &DescriptionCleaner{patterns: compiled}, nil
}

// Clean returns the cleaned description. If stripping would leave nothing, the
// whitespace-collapsed original is returned so no row loses its only text.
func (c *DescriptionCleaner) Clean(raw string) string {
	collapsed := textnorm.Collapse(raw)
	result := collapsed
	for _, re := range c.patterns {
		result = textnorm.Collapse(re.ReplaceAllString(result, " "))
	}
	if result == "" {
		return collapsed
	}
	return result
}
