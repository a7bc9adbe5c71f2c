package classifier

import (
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/statement-import/internal/domain/import/model"
	"github.com/FACorreiaa/statement-import/internal/domain/ledger"
)

func testTaxonomy() ledger.Taxonomy {
	return ledger.Taxonomy{Categories: []ledger.Category{
		{Name: "Groceries", SubCategories: []string{"Supermarket", "Bakery"}},
		{Name: "Food & Drink", SubCategories: []string{"Coffee", "Delivery"}},
		{Name: "Transport", SubCategories: []string{"Rideshare"}},
		{Name: "Income"},
		{Name: "Uncategorized"},
	}}
}

func newTestClassifier(t *testing.T, cfg Config) *Classifier {
	t.Helper()
	c, err := New(cfg)
	require.NoError(t, err)
	return c
}

func TestClassify_Precedence(t *testing.T) {
	c := newTestClassifier(t, DefaultConfig())
	tax := testTaxonomy()
	withCategory := model.ColumnMapping{Date: "d", Amount: "a", Description: "m", Category: "cat", SubCategory: "sub"}
	plain := model.ColumnMapping{Date: "d", Amount: "a", Description: "m"}

	tests := []struct {
		name    string
		desc    string
		row     model.RawRow
		mapping model.ColumnMapping
		want    Classification
	}{
		{
			name:    "column value matching taxonomy wins over rules",
			desc:    "MERCADONA MADRID",
			row:     model.RawRow{"cat": "transport"},
			mapping: withCategory,
			want:    Classification{Category: "Transport", Source: SourceColumn},
		},
		{
			name:    "column subcategory restricted to chosen category",
			desc:    "PANADERIA",
			row:     model.RawRow{"cat": "GROCERIES", "sub": "bakery"},
			mapping: withCategory,
			want:    Classification{Category: "Groceries", SubCategory: "Bakery", Source: SourceColumn},
		},
		{
			name:    "unknown column value falls through to rules",
			desc:    "MERCADONA MADRID",
			row:     model.RawRow{"cat": "Supermercados"},
			mapping: withCategory,
			want:    Classification{Category: "Groceries", SubCategory: "Supermarket", Source: SourceRule},
		},
		{
			name:    "keyword rule",
			desc:    "Compra Starbucks Sol",
			mapping: plain,
			want:    Classification{Category: "Food & Drink", SubCategory: "Coffee", Source: SourceRule},
		},
		{
			name:    "earlier rule wins",
			desc:    "UBER EATS MADRID",
			mapping: plain,
			want:    Classification{Category: "Food & Drink", SubCategory: "Delivery", Source: SourceRule},
		},
		{
			name:    "rules for categories outside taxonomy are skipped",
			desc:    "NETFLIX.COM",
			mapping: plain,
			want:    Classification{Category: "Uncategorized", Source: SourceFallback},
		},
		{
			name:    "category known but subcategory not",
			desc:    "NOMINA ACME SL",
			mapping: plain,
			want:    Classification{Category: "Income", Source: SourceRule},
		},
		{
			name:    "accented description",
			desc:    "Cafetería Central",
			mapping: plain,
			want:    Classification{Category: "Food & Drink", SubCategory: "Coffee", Source: SourceRule},
		},
		{
			name:    "fallback",
			desc:    "XYZZY",
			mapping: plain,
			want:    Classification{Category: "Uncategorized", Source: SourceFallback},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cand := model.Candidate{Description: tt.desc}
			assert.Equal(t, tt.want, c.Classify(cand, tt.row, tt.mapping, tax))
		})
	}
}

func TestClassify_EmptyTaxonomy(t *testing.T) {
	c := newTestClassifier(t, DefaultConfig())
	m := model.ColumnMapping{Category: "cat"}

	got := c.Classify(model.Candidate{Description: "NETFLIX"}, model.RawRow{"cat": "Fun"}, m, ledger.Taxonomy{})

	assert.Equal(t, Classification{Category: "Entertainment", SubCategory: "Streaming", Source: SourceRule}, got)
}

func TestClassify_CustomConfig(t *testing.T) {
	cfg, err := LoadConfig([]byte(`
fallback: Other
rules:
  - category: Pets
    subcategory: Vet
    keywords: [VETERINARIO]
  - category: Pets
    keywords: [TIENDANIMAL, KIWOKO]
`))
	require.NoError(t, err)
	c := newTestClassifier(t, cfg)

	assert.Equal(t, "Other", c.Fallback())
	assert.Equal(t,
		Classification{Category: "Pets", Source: SourceRule},
		c.Classify(model.Candidate{Description: "KIWOKO ONLINE"}, nil, model.ColumnMapping{}, ledger.Taxonomy{}))
	assert.Equal(t,
		Classification{Category: "Other", Source: SourceFallback},
		c.Classify(model.Candidate{Description: ""}, nil, model.ColumnMapping{}, ledger.Taxonomy{}))
}

func TestNew_InvalidConfig(t *testing.T) {
	_, err := New(Config{Rules: []Rule{{Keywords: []string{"X"}}}})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = New(Config{Rules: []Rule{{Category: "X"}}})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = LoadConfig([]byte("rules: {"))
	assert.ErrorIs(t, err, ErrInvalidConfig)

	c, err := New(Config{})
	require.NoError(t, err)
	assert.Equal(t, DefaultFallback, c.Fallback())
}

func TestClassify_Idempotent(t *testing.T) {
	c := newTestClassifier(t, DefaultConfig())
	tax := testTaxonomy()
	faker := gofakeit.New(42)
	merchants := []string{"MERCADONA", "UBER", "STARBUCKS", "NOMINA", "IKEA", "FARMACIA"}

	for i := 0; i < 200; i++ {
		desc := faker.RandomString(merchants) + " " + faker.City()
		cand := model.Candidate{Description: desc, SourceRowIndex: i}

		first := c.Classify(cand, nil, model.ColumnMapping{}, tax)
		second := c.Classify(cand, nil, model.ColumnMapping{}, tax)

		require.Equal(t, first, second, "description %q", desc)
	}
}

func TestClassifyAll(t *testing.T) {
	c := newTestClassifier(t, DefaultConfig())
	rows := []model.RawRow{{"m": "LIDL"}, {"m": "XYZ"}}
	cands := []model.Candidate{
		{Description: "LIDL", SourceRowIndex: 0},
		{Description: "XYZ", SourceRowIndex: 1},
	}

	out := c.ClassifyAll(cands, rows, model.ColumnMapping{Description: "m"}, testTaxonomy())

	require.Len(t, out, 2)
	assert.Equal(t, "Groceries", out[0].Category)
	assert.Equal(t, "Supermarket", out[0].SubCategory)
	assert.Equal(t, "Uncategorized", out[1].Category)
	assert.Empty(t, cands[0].Category, "input must not be modified")
}
