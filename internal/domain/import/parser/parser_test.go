package parser

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/FACorreiaa/statement-import/internal/domain/import/model"
)

func TestParse(t *testing.T) {
	t.Run("parses standard CSV", func(t *testing.T) {
		data := `date,description,amount,category
2024-01-15,Coffee Shop,-4.50,Food
2024-01-16,Salary,5000.00,Income
2024-01-17,Groceries,-125.30,Food`

		table, err := Parse([]byte(data), Options{})

		require.NoError(t, err)
		assert.Equal(t, []string{"date", "description", "amount", "category"}, table.Headers)
		assert.Equal(t, ',', table.Delimiter)
		assert.Equal(t, "csv", table.Format)
		require.Len(t, table.Rows, 3)
		assert.Equal(t, model.RawRow{
			"date": "2024-01-15", "description": "Coffee Shop", "amount": "-4.50", "category": "Food",
		}, table.Rows[0])
		assert.NotEmpty(t, table.Fingerprint)
	})

	t.Run("detects semicolon delimiter and keeps decimal commas", func(t *testing.T) {
		data := "Fecha;Importe;Concepto\n15/01/2026;-45,50;MERCADONA  MADRID\n"

		table, err := Parse([]byte(data), Options{})

		require.NoError(t, err)
		assert.Equal(t, ';', table.Delimiter)
		require.Len(t, table.Rows, 1)
		assert.Equal(t, "-45,50", table.Rows[0]["Importe"])
		assert.Equal(t, "MERCADONA  MADRID", table.Rows[0]["Concepto"])
	})

	t.Run("honors delimiter override", func(t *testing.T) {
		data := "a|b,c\n1|2,3\n"

		table, err := Parse([]byte(data), Options{Delimiter: ','})

		require.NoError(t, err)
		assert.Equal(t, []string{"a|b", "c"}, table.Headers)
	})

	t.Run("skips leading and interior blank lines", func(t *testing.T) {
		data := "\n\n  \nDate;Amount;Memo\n\n2026-01-01;10;a\n;;\n2026-01-02;20;b\n\n"

		table, err := Parse([]byte(data), Options{})

		require.NoError(t, err)
		assert.Equal(t, []string{"Date", "Amount", "Memo"}, table.Headers)
		require.Len(t, table.Rows, 2)
		assert.Equal(t, "b", table.Rows[1]["Memo"])
	})

	t.Run("skips preamble lines", func(t *testing.T) {
		data := "Account;ES12 3456\nDate;Amount;Memo\n2026-01-01;10;a\n"

		table, err := Parse([]byte(data), Options{SkipLines: 1})

		require.NoError(t, err)
		assert.Equal(t, []string{"Date", "Amount", "Memo"}, table.Headers)
	})

	t.Run("fills short rows and ignores extra cells", func(t *testing.T) {
		data := "Date,Amount,Memo\n2026-01-01,10\n2026-01-02,20,b,extra\n"

		table, err := Parse([]byte(data), Options{})

		require.NoError(t, err)
		assert.Equal(t, "", table.Rows[0]["Memo"])
		assert.Len(t, table.Rows[1], 3)
	})

	t.Run("renames blank and duplicate headers", func(t *testing.T) {
		data := "Importe;;Importe\n1;2;3\n"

		table, err := Parse([]byte(data), Options{})

		require.NoError(t, err)
		assert.Equal(t, []string{"Importe", "column_2", "Importe_2"}, table.Headers)
		assert.Equal(t, "3", table.Rows[0]["Importe_2"])
	})

	t.Run("decodes latin-1 exports", func(t *testing.T) {
		data := []byte("Fecha;Descripci\xf3n\n2026-01-01;Caf\xe9\n")

		table, err := Parse(data, Options{})

		require.NoError(t, err)
		assert.Equal(t, "Café", table.Rows[0]["Descripción"])
	})
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
		kind error
	}{
		{"empty file", "", ErrEmptyFile},
		{"whitespace only", "\n  \n", ErrEmptyFile},
		{"single column", "Date\n2026-01-01\n", ErrNoHeaders},
		{"header only", "Date;Amount;Memo\n", ErrNoDataRows},
		{"header and blank rows", "Date;Amount\n;\n\n", ErrNoDataRows},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := Parse([]byte(tt.data), Options{})

			require.Error(t, err)
			assert.Nil(t, table)
			assert.True(t, errors.Is(err, tt.kind), "got %v", err)

			var parseErr *ParseError
			assert.True(t, errors.As(err, &parseErr))
		})
	}
}

func TestParse_Workbook(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"Date", "Amount", "Description"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{"2026-01-15", "-45.50", "MERCADONA"}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]any{"2026-01-16", "1200", "SALARY"}))

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	table, err := Parse(buf.Bytes(), Options{})

	require.NoError(t, err)
	assert.Equal(t, "xlsx", table.Format)
	assert.Equal(t, []string{"Date", "Amount", "Description"}, table.Headers)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "SALARY", table.Rows[1]["Description"])
}
