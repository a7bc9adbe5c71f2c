// Package parser turns raw statement exports into header-keyed rows.
// Delimited text goes through encoding/csv; XLSX workbooks go through excelize.
package parser

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/FACorreiaa/statement-import/internal/domain/import/model"
	"github.com/FACorreiaa/statement-import/internal/domain/import/sniffer"
)

var (
	ErrEmptyFile   = errors.New("file is empty")
	ErrNoHeaders   = errors.New("could not determine headers: need at least 2 columns")
	ErrNoDataRows  = errors.New("file has no data rows")
	ErrMalformed   = errors.New("malformed file")
	ErrUnreadable  = errors.New("workbook could not be read")
	ErrNoSheetRows = errors.New("sheet has no rows")
)

// ParseError reports why a file could not be turned into a table.
// Kind is one of the package sentinels; Err carries the underlying cause, if any.
type ParseError struct {
	Kind error
	Line int // 1-based source line, 0 when not applicable
	Err  error
}

func (e *ParseError) Error() string {
	msg := e.Kind.Error()
	if e.Line > 0 {
		msg = fmt.Sprintf("line %d: %s", e.Line, msg)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return "parse error: " + msg
}

func (e *ParseError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Options configures a single Parse call. The zero value auto-detects everything.
type Options struct {
	Delimiter rune   // Field delimiter; 0 means detect from the header line
	SkipLines int    // Non-empty records to skip before the header (bank preambles)
	Sheet     string // Workbook sheet; empty means the first sheet
}

// Parse reads a statement export. The first non-empty record is the header row,
// fully empty records are skipped and column order is preserved.
func Parse(data []byte, opts Options) (*model.Table, error) {
	if isWorkbook(data) {
		return parseWorkbook(data, opts)
	}

	data = sniffer.NormalizeBytes(data)
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &ParseError{Kind: ErrEmptyFile}
	}

	delimiter := opts.Delimiter
	if delimiter == 0 {
		delimiter, _ = sniffer.DetectDelimiter(sniffer.FirstLine(data))
		if delimiter == 0 {
			// A single column never forms a usable header.
			return nil, &ParseError{Kind: ErrNoHeaders, Line: 1}
		}
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = delimiter
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var records [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			line := 0
			var csvErr *csv.ParseError
			if errors.As(err, &csvErr) {
				line = csvErr.Line
			}
			return nil, &ParseError{Kind: ErrMalformed, Line: line, Err: err}
		}
		records = append(records, record)
	}

	table, err := buildTable(records, opts.SkipLines)
	if err != nil {
		return nil, err
	}
	table.Delimiter = delimiter
	table.Format = "csv"
	return table, nil
}

// buildTable applies the header and blank-row rules shared by every source format.
func buildTable(records [][]string, skip int) (*model.Table, error) {
	headerIdx := -1
	for i, record := range records {
		if isBlank(record) {
			continue
		}
		if skip > 0 {
			skip--
			continue
		}
		headerIdx = i
		break
	}
	if headerIdx < 0 {
		return nil, &ParseError{Kind: ErrEmptyFile}
	}

	headers := uniqueHeaders(records[headerIdx])
	if countNonEmpty(records[headerIdx]) < 2 {
		return nil, &ParseError{Kind: ErrNoHeaders}
	}

	rows := make([]model.RawRow, 0, len(records)-headerIdx-1)
	for _, record := range records[headerIdx+1:] {
		if isBlank(record) {
			continue
		}
		row := make(model.RawRow, len(headers))
		for i, h := range headers {
			if i < len(record) {
				row[h] = record[i]
			} else {
				row[h] = ""
			}
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil, &ParseError{Kind: ErrNoDataRows}
	}

	return &model.Table{
		Headers:     headers,
		Rows:        rows,
		Fingerprint: sniffer.Fingerprint(headers),
	}, nil
}

// uniqueHeaders trims header cells and renames blanks and repeats so every
// column stays addressable by name.
func uniqueHeaders(record []string) []string {
	headers := make([]string, len(record))
	seen := make(map[string]int, len(record))
	for i, raw := range record {
		h := strings.TrimSpace(raw)
		if h == "" {
			h = fmt.Sprintf("column_%d", i+1)
		}
		seen[h]++
		if n := seen[h]; n > 1 {
			h = fmt.Sprintf("%s_%d", h, n)
		}
		headers[i] = h
	}
	return headers
}

func isBlank(record []string) bool {
	return countNonEmpty(record) == 0
}

func countNonEmpty(record []string) int {
	n := 0
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			n++
		}
	}
	return n
}
