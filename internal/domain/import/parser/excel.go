package parser

import (
	"bytes"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/FACorreiaa/statement-import/internal/domain/import/model"
)

// zip local file header; every XLSX workbook starts with it
var workbookMagic = []byte{'P', 'K', 0x03, 0x04}

func isWorkbook(data []byte) bool {
	return bytes.HasPrefix(data, workbookMagic)
}

// parseWorkbook reads the first sheet (or opts.Sheet, or one named like a
// transaction list) of an XLSX export into a table.
func parseWorkbook(data []byte, opts Options) (*model.Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, &ParseError{Kind: ErrUnreadable, Err: err}
	}
	defer f.Close()

	sheet := opts.Sheet
	if sheet == "" {
		sheet = findTransactionSheet(f)
	}
	if sheet == "" {
		return nil, &ParseError{Kind: ErrNoSheetRows}
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, &ParseError{Kind: ErrUnreadable, Err: err}
	}
	if len(rows) == 0 {
		return nil, &ParseError{Kind: ErrNoSheetRows}
	}

	table, err := buildTable(rows, opts.SkipLines)
	if err != nil {
		return nil, err
	}
	table.Format = "xlsx"
	return table, nil
}

func findTransactionSheet(f *excelize.File) string {
	sheets := f.GetSheetList()
	for _, name := range sheets {
		lower := strings.ToLower(name)
		if strings.Contains(lower, "transac") || strings.Contains(lower, "movim") || strings.Contains(lower, "extract") {
			return name
		}
	}
	if len(sheets) > 0 {
		return sheets[0]
	}
	return ""
}
