package balance

import (
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/statement-import/internal/domain/import/model"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestComputeImpact(t *testing.T) {
	t.Run("income and expense", func(t *testing.T) {
		accepted := []model.Candidate{
			{Amount: dec("200"), Type: model.TxIncome},
			{Amount: dec("50"), Type: model.TxExpense},
		}

		got := ComputeImpact(accepted, dec("1000"))

		assert.True(t, dec("1000").Equal(got.StartingBalance))
		assert.True(t, dec("200").Equal(got.IncomeTotal))
		assert.True(t, dec("50").Equal(got.ExpenseTotal))
		assert.True(t, dec("150").Equal(got.NetImpact))
		assert.True(t, dec("1150").Equal(got.ProjectedEndingBalance))
	})

	t.Run("empty batch keeps balance", func(t *testing.T) {
		got := ComputeImpact(nil, dec("-12.34"))

		assert.True(t, got.NetImpact.IsZero())
		assert.True(t, dec("-12.34").Equal(got.ProjectedEndingBalance))
	})

	t.Run("decimal precision", func(t *testing.T) {
		accepted := []model.Candidate{
			{Amount: dec("0.10"), Type: model.TxIncome},
			{Amount: dec("0.20"), Type: model.TxIncome},
		}

		got := ComputeImpact(accepted, decimal.Zero)

		assert.Equal(t, "0.3", got.IncomeTotal.String())
	})
}

func TestComputeImpact_Consistency(t *testing.T) {
	faker := gofakeit.New(2026)

	for i := 0; i < 100; i++ {
		start := decimal.NewFromFloat(faker.Price(-1000, 10000)).Round(2)
		n := faker.Number(0, 30)
		accepted := make([]model.Candidate, n)
		want := start
		for j := range accepted {
			amount := decimal.NewFromFloat(faker.Price(0.01, 2000)).Round(2)
			typ := model.TxExpense
			if faker.Bool() {
				typ = model.TxIncome
				want = want.Add(amount)
			} else {
				want = want.Sub(amount)
			}
			accepted[j] = model.Candidate{Amount: amount, Type: typ}
		}

		got := ComputeImpact(accepted, start)

		require.True(t, want.Equal(got.ProjectedEndingBalance), "iteration %d: want %s got %s", i, want, got.ProjectedEndingBalance)
		require.True(t, got.IncomeTotal.Sub(got.ExpenseTotal).Equal(got.NetImpact))
	}
}
