package sniffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectDelimiter(t *testing.T) {
	tests := []struct {
		name      string
		line      string
		want      rune
		wantCount int
	}{
		{"semicolon", "Fecha;Importe;Concepto", ';', 2},
		{"comma", "Date,Amount,Description", ',', 2},
		{"tab", "Date\tAmount\tDescription", '\t', 2},
		{"pipe", "Date|Amount", '|', 1},
		{"quoted commas ignored", `"Date, booked";"Amount";"Memo"`, ';', 2},
		{"none", "Date", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, count := DetectDelimiter(tt.line)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantCount, count)
		})
	}
}

func TestNormalizeBytes(t *testing.T) {
	t.Run("strips BOM", func(t *testing.T) {
		out := NormalizeBytes([]byte("\xEF\xBB\xBFDate,Amount"))
		assert.Equal(t, "Date,Amount", string(out))
	})

	t.Run("decodes latin-1", func(t *testing.T) {
		// "Descripción" in ISO-8859-1
		out := NormalizeBytes([]byte("Descripci\xf3n"))
		assert.Equal(t, "Descripción", string(out))
	})

	t.Run("leaves utf-8 untouched", func(t *testing.T) {
		out := NormalizeBytes([]byte("Categoría"))
		assert.Equal(t, "Categoría", string(out))
	})
}

func TestFirstLine(t *testing.T) {
	assert.Equal(t, "a;b", FirstLine([]byte("\r\n   \na;b\r\n1;2")))
	assert.Equal(t, "", FirstLine([]byte("\n\n")))
}

func TestFingerprint(t *testing.T) {
	a := Fingerprint([]string{"Fecha", "Importe", "Concepto"})
	b := Fingerprint([]string{" fecha ", "IMPORTE", "Concepto."})
	c := Fingerprint([]string{"Date", "Amount"})

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}

func TestProbeDecimalSeparator(t *testing.T) {
	tests := []struct {
		name    string
		samples []string
		want    rune
		wantOK  bool
	}{
		{"european", []string{"-45,50", "1.234,56", "12"}, ',', true},
		{"us", []string{"-45.50", "1,234.56"}, '.', true},
		{"ambiguous thousands only", []string{"1.234", "2,345"}, 0, false},
		{"conflicting", []string{"45,50", "45.50"}, 0, false},
		{"empty", nil, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ProbeDecimalSeparator(tt.samples)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
