// Package importtest generates realistic bank statements and ledger rows for
// tests. Seeded generators are reproducible.
package importtest

import (
	"fmt"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/statement-import/internal/domain/import/model"
	"github.com/FACorreiaa/statement-import/internal/domain/ledger"
)

// Spanish-style headers used by generated statements.
const (
	HeaderDate        = "Fecha"
	HeaderAmount      = "Importe"
	HeaderDescription = "Concepto"
)

// Mapping maps the generated headers.
var Mapping = model.ColumnMapping{Date: HeaderDate, Amount: HeaderAmount, Description: HeaderDescription}

var merchants = []string{
	"MERCADONA", "CARREFOUR", "LIDL", "PINGO DOCE", "STARBUCKS",
	"MCDONALDS", "UBER", "NETFLIX", "SPOTIFY", "AMAZON",
	"IKEA", "ZARA", "REPSOL", "GALP", "FARMACIA CENTRAL",
	"RENFE", "IBERIA", "VODAFONE", "ENDESA", "TELEPIZZA",
}

var incomeDescriptions = []string{
	"NOMINA EMPRESA SA",
	"TRANSFERENCIA RECIBIDA",
	"DEVOLUCION COMPRA",
	"ABONO INTERESES",
}

// Generator produces statement rows and ledger transactions.
type Generator struct {
	faker *gofakeit.Faker
	from  time.Time
	to    time.Time
}

// New creates a generator with a fixed seed and a 2025 date range.
func New(seed int64) *Generator {
	return &Generator{
		faker: gofakeit.New(seed),
		from:  time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		to:    time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC),
	}
}

// Row is one generated statement line with its expected parse.
type Row struct {
	Date        time.Time
	Amount      decimal.Decimal // signed
	Description string
}

// Raw renders r the way a European bank export would.
func (r Row) Raw() model.RawRow {
	return model.RawRow{
		HeaderDate:        r.Date.Format("02/01/2006"),
		HeaderAmount:      EuropeanAmount(r.Amount),
		HeaderDescription: r.Description,
	}
}

// Row generates one statement line; roughly one in five is income.
func (g *Generator) Row() Row {
	date := g.faker.DateRange(g.from, g.to)
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)

	if g.faker.Number(1, 5) == 1 {
		return Row{
			Date:        day,
			Amount:      g.amount(500, 4000),
			Description: g.faker.RandomString(incomeDescriptions),
		}
	}
	desc := g.faker.RandomString(merchants)
	if g.faker.Bool() {
		desc += " " + strings.ToUpper(g.faker.City())
	}
	return Row{Date: day, Amount: g.amount(0.5, 300).Neg(), Description: desc}
}

// Rows generates n statement lines.
func (g *Generator) Rows(n int) []Row {
	out := make([]Row, n)
	for i := range out {
		out[i] = g.Row()
	}
	return out
}

// Table renders rows as a parsed statement.
func Table(rows []Row) *model.Table {
	t := &model.Table{
		Headers:   []string{HeaderDate, HeaderAmount, HeaderDescription},
		Delimiter: ';',
		Format:    "csv",
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, r.Raw())
	}
	return t
}

// CSV renders rows as a semicolon separated file with a header line.
func CSV(rows []Row) []byte {
	var b strings.Builder
	b.WriteString(HeaderDate + ";" + HeaderAmount + ";" + HeaderDescription + "\n")
	for _, r := range rows {
		raw := r.Raw()
		fmt.Fprintf(&b, "%s;%s;%s\n", raw[HeaderDate], raw[HeaderAmount], raw[HeaderDescription])
	}
	return []byte(b.String())
}

// LedgerCopy returns the ledger transaction an earlier import of r would have stored.
func LedgerCopy(r Row, accountID string) ledger.Transaction {
	return ledger.Transaction{
		ID:          uuid.NewString(),
		Date:        r.Date,
		Amount:      r.Amount.Abs(),
		Type:        model.TypeForSigned(r.Amount),
		Category:    "Uncategorized",
		AccountID:   accountID,
		Description: r.Description,
	}
}

// EuropeanAmount formats d as "-1.234,56".
func EuropeanAmount(d decimal.Decimal) string {
	s := d.Abs().StringFixed(2)
	intPart, frac, _ := strings.Cut(s, ".")

	var grouped []string
	for len(intPart) > 3 {
		grouped = append([]string{intPart[len(intPart)-3:]}, grouped...)
		intPart = intPart[:len(intPart)-3]
	}
	grouped = append([]string{intPart}, grouped...)

	out := strings.Join(grouped, ".") + "," + frac
	if d.IsNegative() {
		out = "-" + out
	}
	return out
}

func (g *Generator) amount(min, max float64) decimal.Decimal {
	return decimal.NewFromFloat(g.faker.Float64Range(min, max)).Round(2)
}
