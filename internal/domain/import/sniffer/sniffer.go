// Package sniffer inspects raw statement bytes before they are parsed.
// It identifies delimiters, repairs encodings and fingerprints header rows for bank recognition.
package sniffer

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// candidateDelimiters in tie-break order: semicolon exports are the norm for EU banks.
var candidateDelimiters = []rune{';', '\t', ',', '|'}

// NormalizeBytes strips a UTF-8 BOM and re-encodes ISO-8859-1 exports as UTF-8.
func NormalizeBytes(data []byte) []byte {
	data = stripUTF8BOM(data)
	if utf8.Valid(data) {
		return data
	}
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return data
	}
	return decoded
}

func stripUTF8BOM(data []byte) []byte {
	if len(data) >= 3 && data[0] == 0xEF && data[1] == 0xBB && data[2] == 0xBF {
		return data[3:]
	}
	return data
}

// DetectDelimiter returns the candidate delimiter occurring most often in line,
// outside double-quoted sections, and how many times it occurs.
// It returns (0, 0) when none is present.
func DetectDelimiter(line string) (rune, int) {
	counts := make(map[rune]int, len(candidateDelimiters))
	inQuotes := false
	for _, r := range line {
		if r == '"' {
			inQuotes = !inQuotes
			continue
		}
		if !inQuotes {
			counts[r]++
		}
	}

	best := rune(0)
	bestCount := 0
	for _, d := range candidateDelimiters {
		if counts[d] > bestCount {
			best = d
			bestCount = counts[d]
		}
	}
	return best, bestCount
}

// FirstLine returns the first line of data that is not blank, without line terminators.
func FirstLine(data []byte) string {
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) != "" {
			return line
		}
	}
	return ""
}

// Fingerprint creates a stable hash from header names. Case, punctuation and
// spacing differences between exports of the same bank do not change it.
func Fingerprint(headers []string) string {
	var normalized []string
	for _, h := range headers {
		clean := strings.Map(func(r rune) rune {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				return unicode.ToLower(r)
			}
			return -1
		}, h)
		if clean != "" {
			normalized = append(normalized, clean)
		}
	}

	hash := sha256.Sum256([]byte(strings.Join(normalized, "|")))
	return hex.EncodeToString(hash[:])
}

// ProbeDecimalSeparator votes over amount samples and returns the decimal mark the
// file uses. ok is false when no sample is conclusive or the samples disagree.
func ProbeDecimalSeparator(samples []string) (sep rune, ok bool) {
	european, us := 0, 0
	for _, s := range samples {
		switch analyzeAmountFormat(s) {
		case 1:
			european++
		case -1:
			us++
		}
	}

	switch {
	case european > 0 && us == 0:
		return ',', true
	case us > 0 && european == 0:
		return '.', true
	default:
		return 0, false
	}
}

// analyzeAmountFormat returns >0 for European, <0 for US, 0 for ambiguous.
func analyzeAmountFormat(val string) int {
	cleaned := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' || r == ',' || r == '.' {
			return r
		}
		return -1
	}, val)

	lastComma := strings.LastIndex(cleaned, ",")
	lastDot := strings.LastIndex(cleaned, ".")

	switch {
	case lastComma >= 0 && lastDot >= 0:
		// Both present: last one is decimal separator
		if lastComma > lastDot {
			return 1
		}
		return -1
	case lastComma >= 0:
		if strings.Count(cleaned, ",") > 1 {
			return -1 // 1,234,567
		}
		if len(cleaned)-lastComma-1 <= 2 {
			return 1
		}
	case lastDot >= 0:
		if strings.Count(cleaned, ".") > 1 {
			return 1 // 1.234.567
		}
		if len(cleaned)-lastDot-1 <= 2 {
			return -1
		}
	}
	return 0
}
