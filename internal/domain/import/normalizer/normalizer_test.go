package normalizer

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/statement-import/internal/domain/import/model"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		preferred string
		want      string
		ok        bool
	}{
		{"iso", "2026-01-15", "", "2026-01-15", true},
		{"european slash", "15/01/2026", "", "2026-01-15", true},
		{"european dash", "15-01-2026", "", "2026-01-15", true},
		{"european dot", "15.01.2026", "", "2026-01-15", true},
		{"single digit day", "5/1/2026", "", "2026-01-05", true},
		{"ambiguous reads day first", "03/04/2026", "", "2026-04-03", true},
		{"us fallback", "01/31/2026", "", "2026-01-31", true},
		{"two digit year", "15/01/26", "", "2026-01-15", true},
		{"year first slash", "2026/01/15", "", "2026-01-15", true},
		{"timestamp", "2026-01-15 10:23:00", "", "2026-01-15", true},
		{"rfc3339", "2026-01-15T10:23:00Z", "", "2026-01-15", true},
		{"european with time", "15/01/2026 10:23", "", "2026-01-15", true},
		{"preferred us layout", "03/04/2026", "01/02/2006", "2026-03-04", true},
		{"padded", "  15/01/2026 ", "", "2026-01-15", true},
		{"garbage", "yesterday", "", "", false},
		{"impossible date", "32/13/2026", "", "", false},
		{"empty", "", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseDate(tt.raw, tt.preferred)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		sep  rune
		want string
	}{
		{"comma decimal", "-45,50", 0, "-45.5"},
		{"dot decimal", "-45.50", 0, "-45.5"},
		{"european thousands", "1.234,56", 0, "1234.56"},
		{"us thousands", "1,234.56", 0, "1234.56"},
		{"repeated dots are thousands", "1.234.567", 0, "1234567"},
		{"repeated commas are thousands", "1,234,567", 0, "1234567"},
		{"two trailing digits win over repeats", "1.234.56", 0, "1234.56"},
		{"single separator then three digits", "1.234", 0, "1234"},
		{"leading zero keeps decimals", "0,123", 0, "0.123"},
		{"one decimal digit", "12,5", 0, "12.5"},
		{"integer", "200", 0, "200"},
		{"euro symbol", "€ 1.234,56", 0, "1234.56"},
		{"currency code suffix", "-45,50 EUR", 0, "-45.5"},
		{"dollar prefix", "$1,000.00", 0, "1000"},
		{"parentheses negative", "(45.50)", 0, "-45.5"},
		{"trailing minus", "45,50-", 0, "-45.5"},
		{"explicit plus", "+200,00", 0, "200"},
		{"unicode minus", "−12,00", 0, "-12"},
		{"non-breaking space thousands", "1 234,56", 0, "1234.56"},
		{"swiss apostrophe", "1'234.50", 0, "1234.5"},
		{"debit suffix", "45,00 DR", 0, "-45"},
		{"single letter debit suffix", "45,00 D", 0, "-45"},
		{"credit suffix", "45,00 CR", 0, "45"},
		{"single letter credit suffix", "45,00 C", 0, "45"},
		{"debit marker with minus stays negative", "-45,00 D", 0, "-45"},
		{"template comma override", "1.234", ',', "1234"},
		{"template dot override", "1.234", '.', "1.234"},
		{"template override ignores thousands", "1,234.5", '.', "1234.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAmount(tt.raw, tt.sep)
			require.NoError(t, err)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s", got)
		})
	}
}

func TestParseAmount_Invalid(t *testing.T) {
	for _, raw := range []string{"abc", "12abc34", "--", ",", "1-2", "N/A", "CREDITO", "(-5)", "(5-)", "(+5)"} {
		t.Run(raw, func(t *testing.T) {
			_, err := ParseAmount(raw, 0)
			assert.True(t, errors.Is(err, ErrInvalidAmount), "got %v", err)
		})
	}

	_, err := ParseAmount("   ", 0)
	assert.ErrorIs(t, err, ErrEmptyAmount)
}

func TestDescriptionCleaner(t *testing.T) {
	c, err := NewDescriptionCleaner(nil)
	require.NoError(t, err)

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"collapses whitespace", "  MERCADONA   MADRID ", "MERCADONA MADRID"},
		{"strips reference", "TRANSFERENCIA ALQUILER REF: 2026011512345", "TRANSFERENCIA ALQUILER"},
		{"strips card mask", "COMPRA TARJ XXXX1234 ZARA GRAN VIA", "COMPRA TARJ ZARA GRAN VIA"},
		{"strips trailing terminal id", "PINGO DOCE ALVALADE 00012345", "PINGO DOCE ALVALADE"},
		{"strips trailing booking date", "STARBUCKS SOL 15/01/26", "STARBUCKS SOL"},
		{"strips labelled short date", "STARBUCKS SOL DATA 15/01", "STARBUCKS SOL"},
		{"strips numero marker", "PAGAMENTO SERVICOS Nº 00123/45", "PAGAMENTO SERVICOS"},
		{"keeps merchant starting with no", "NO1 BURGER MADRID", "NO1 BURGER MADRID"},
		{"keeps street number after no", "CAFE NO 5 LISBOA", "CAFE NO 5 LISBOA"},
		{"keeps unlabelled short pair", "7 ELEVEN 24/7", "7 ELEVEN 24/7"},
		{"keeps short store numbers", "7-ELEVEN 2024", "7-ELEVEN 2024"},
		{"keeps text when everything would go", "REF: 12345", "REF: 12345"},
		{"empty stays empty", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Clean(tt.raw))
		})
	}

	_, err = NewDescriptionCleaner([]string{"("})
	assert.Error(t, err)
}

func TestNormalize(t *testing.T) {
	mapping := model.ColumnMapping{Date: "date", Amount: "amount", Description: "description"}
	n := New()

	t.Run("european expense row", func(t *testing.T) {
		row := model.RawRow{"date": "15/01/2026", "amount": "-45,50", "description": "MERCADONA  MADRID"}

		c := n.Normalize(row, mapping, 0)

		assert.Equal(t, "2026-01-15", c.Date)
		assert.True(t, decimal.RequireFromString("45.50").Equal(c.Amount))
		assert.True(t, decimal.RequireFromString("-45.50").Equal(c.SignedRawAmount))
		assert.True(t, c.AmountValid)
		assert.Equal(t, model.TxExpense, c.Type)
		assert.Equal(t, "MERCADONA MADRID", c.Description)
		assert.Equal(t, 0, c.SourceRowIndex)
	})

	t.Run("income row", func(t *testing.T) {
		row := model.RawRow{"date": "2026-01-31", "amount": "2.500,00", "description": "NOMINA"}

		c := n.Normalize(row, mapping, 3)

		assert.Equal(t, model.TxIncome, c.Type)
		assert.True(t, decimal.NewFromInt(2500).Equal(c.Amount))
		assert.Equal(t, 3, c.SourceRowIndex)
	})

	t.Run("malformed fields become sentinels", func(t *testing.T) {
		row := model.RawRow{"date": "not a date", "amount": "abc", "description": "X"}

		c := n.Normalize(row, mapping, 4)

		assert.Empty(t, c.Date)
		assert.Equal(t, "not a date", c.RawDate)
		assert.False(t, c.AmountValid)
		assert.Equal(t, "abc", c.RawAmount)
		assert.True(t, c.Amount.IsZero())
	})

	t.Run("unmapped columns", func(t *testing.T) {
		c := n.Normalize(model.RawRow{"x": "1"}, model.ColumnMapping{}, 0)

		assert.Empty(t, c.Date)
		assert.False(t, c.AmountValid)
		assert.Empty(t, c.Description)
	})

	t.Run("debit marker flips positive amount", func(t *testing.T) {
		m := mapping
		m.Type = "type"
		row := model.RawRow{"date": "2026-01-15", "amount": "45,50", "description": "RECIBO LUZ", "type": "Cargo"}

		c := n.Normalize(row, m, 0)

		assert.Equal(t, model.TxExpense, c.Type)
		assert.True(t, decimal.RequireFromString("-45.50").Equal(c.SignedRawAmount))
		assert.True(t, decimal.RequireFromString("45.50").Equal(c.Amount))
	})

	t.Run("credit marker and unknown marker", func(t *testing.T) {
		m := mapping
		m.Type = "type"
		credit := model.RawRow{"date": "2026-01-15", "amount": "-10", "description": "DEVOLUCION", "type": "Crédito"}
		other := model.RawRow{"date": "2026-01-15", "amount": "-10", "description": "UBER", "type": "CARD_PAYMENT"}

		assert.Equal(t, model.TxIncome, n.Normalize(credit, m, 0).Type)
		assert.Equal(t, model.TxExpense, n.Normalize(other, m, 1).Type)
	})

	t.Run("category cells are carried through", func(t *testing.T) {
		m := mapping
		m.Category = "cat"
		m.SubCategory = "sub"
		row := model.RawRow{"date": "2026-01-15", "amount": "-1", "description": "X", "cat": " Food ", "sub": "Coffee"}

		c := n.Normalize(row, m, 0)

		assert.Equal(t, "Food", c.Category)
		assert.Equal(t, "Coffee", c.SubCategory)
	})

	t.Run("template overrides", func(t *testing.T) {
		us := n.With(WithDecimalSeparator('.'), WithDateLayout("01/02/2006"))
		row := model.RawRow{"date": "03/04/2026", "amount": "1.234", "description": "X"}

		c := us.Normalize(row, mapping, 0)

		assert.Equal(t, "2026-03-04", c.Date)
		assert.True(t, decimal.RequireFromString("1.234").Equal(c.Amount))
		assert.Equal(t, rune(0), n.DecimalSeparator())
	})
}

func TestNormalizeAll(t *testing.T) {
	mapping := model.ColumnMapping{Date: "d", Amount: "a", Description: "m"}
	rows := []model.RawRow{
		{"d": "2026-01-01", "a": "1", "m": "a"},
		{"d": "2026-01-02", "a": "-2", "m": "b"},
	}

	got := New().NormalizeAll(rows, mapping)

	require.Len(t, got, 2)
	for i, c := range got {
		assert.Equal(t, i, c.SourceRowIndex)
	}
}
