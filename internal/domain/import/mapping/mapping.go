// Package mapping guesses which source columns hold each canonical field.
package mapping

import (
	"fmt"
	"strings"

	"github.com/FACorreiaa/statement-import/internal/domain/import/model"
	"github.com/FACorreiaa/statement-import/internal/domain/import/textnorm"
)

// Keyword sets per canonical field, accent-folded. A header matches when it
// contains any keyword of the field.
var (
	dateKeywords        = []string{"date", "fecha", "time"}
	amountKeywords      = []string{"amount", "cantidad", "importe", "monto", "valor"}
	descriptionKeywords = []string{"description", "descripcion", "concepto", "memo", "detail"}
	categoryKeywords    = []string{"category", "categoria"}
	subCategoryKeywords = []string{"subcategory", "subcategoria", "subcat"}
	typeKeywords        = []string{"type", "tipo"}
)

// AutoMap returns a best-effort mapping for headers. It never fails; fields
// with no matching header stay empty and are reported later.
func AutoMap(headers []string) model.ColumnMapping {
	folded := make([]string, len(headers))
	for i, h := range headers {
		folded[i] = textnorm.Fold(h)
	}
	taken := make(map[int]bool, len(headers))

	pick := func(keywords []string, skip func(h string) bool) string {
		for i, h := range folded {
			if taken[i] || (skip != nil && skip(h)) {
				continue
			}
			if containsAny(h, keywords) {
				taken[i] = true
				return headers[i]
			}
		}
		return ""
	}

	var m model.ColumnMapping
	m.Date = pick(dateKeywords, nil)
	// "Fecha valor" is a date column even though it contains "valor".
	m.Amount = pick(amountKeywords, func(h string) bool { return containsAny(h, dateKeywords) })
	m.Description = pick(descriptionKeywords, nil)
	m.SubCategory = pick(subCategoryKeywords, nil)
	m.Category = pick(categoryKeywords, func(h string) bool { return containsAny(h, subCategoryKeywords) })
	m.Type = pick(typeKeywords, nil)
	return m
}

func containsAny(h string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(h, kw) {
			return true
		}
	}
	return false
}

// Override applies user edits keyed by canonical field name. An empty value
// unmaps the field.
func Override(base model.ColumnMapping, edits map[string]string) (model.ColumnMapping, error) {
	for field, header := range edits {
		switch field {
		case model.FieldDate:
			base.Date = header
		case model.FieldAmount:
			base.Amount = header
		case model.FieldDescription:
			base.Description = header
		case model.FieldCategory:
			base.Category = header
		case model.FieldSubCategory, "subcategory":
			base.SubCategory = header
		case model.FieldType:
			base.Type = header
		default:
			return base, fmt.Errorf("unknown mapping field %q", field)
		}
	}
	return base, nil
}

// UnknownHeaders returns the mapped headers that do not exist in headers.
func UnknownHeaders(m model.ColumnMapping, headers []string) []string {
	known := make(map[string]bool, len(headers))
	for _, h := range headers {
		known[h] = true
	}
	var unknown []string
	for _, h := range []string{m.Date, m.Amount, m.Description, m.Category, m.SubCategory, m.Type} {
		if h != "" && !known[h] {
			unknown = append(unknown, h)
		}
	}
	return unknown
}
