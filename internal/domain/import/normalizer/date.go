package normalizer

import (
	"strings"
	"time"

	"github.com/FACorreiaa/statement-import/internal/domain/import/model"
)

// dateLayouts in priority order. Day-first forms come before the US form so that
// "03/04/2026" reads as 3 April; the US layout only wins when the day-first
// reading is impossible (e.g. "01/31/2026").
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2/1/2006",
	"2-1-2006",
	"2.1.2006",
	"2006/1/2",
	"2/1/06",
	"2-1-06",
	"2.1.06",
	"1/2/2006",
	"2 Jan 2006",
	"Jan 2, 2006",
	"02-Jan-2006",
	"20060102",
}

// ParseDate converts a bank date cell to an ISO date. preferred is tried before
// the built-in layouts when non-empty. ok is false when nothing matches.
func ParseDate(raw, preferred string) (string, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", false
	}

	if t, ok := parseWithLayouts(s, preferred); ok {
		return t.Format(model.ISODate), true
	}

	// "15/01/2026 10:23" style: retry with the date part only.
	if i := strings.IndexAny(s, " T"); i > 0 {
		if t, ok := parseWithLayouts(s[:i], preferred); ok {
			return t.Format(model.ISODate), true
		}
	}
	return "", false
}

func parseWithLayouts(s, preferred string) (time.Time, bool) {
	if preferred != "" {
		if t, err := time.Parse(preferred, s); err == nil {
			return t, true
		}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
