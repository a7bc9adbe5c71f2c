package importtest

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestEuropeanAmount(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0", "0,00"},
		{"-45.5", "-45,50"},
		{"1234.56", "1.234,56"},
		{"-1234567.8", "-1.234.567,80"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, EuropeanAmount(decimal.RequireFromString(tt.in)))
		})
	}
}

func TestGenerator_Reproducible(t *testing.T) {
	a := New(42).Rows(20)
	b := New(42).Rows(20)

	for i := range a {
		assert.Equal(t, a[i].Description, b[i].Description)
		assert.True(t, a[i].Amount.Equal(b[i].Amount))
		assert.False(t, a[i].Amount.IsZero())
	}
}

func TestTable(t *testing.T) {
	rows := New(1).Rows(3)
	tbl := Table(rows)

	assert.Len(t, tbl.Rows, 3)
	assert.Equal(t, rows[0].Date.Format("02/01/2006"), tbl.Rows[0][HeaderDate])
	assert.Empty(t, Mapping.Missing())
}
