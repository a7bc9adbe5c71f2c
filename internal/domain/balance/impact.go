// Package balance projects how an import batch changes an account balance.
package balance

import (
	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/statement-import/internal/domain/import/model"
)

// ComputeImpact sums the accepted candidates by direction and projects the
// ending balance. Callers pass only the rows they intend to commit.
func ComputeImpact(accepted []model.Candidate, startingBalance decimal.Decimal) model.BalanceImpactSummary {
	income := decimal.Zero
	expense := decimal.Zero
	for _, c := range accepted {
		switch c.Type {
		case model.TxIncome:
			income = income.Add(c.Amount)
		case model.TxExpense:
			expense = expense.Add(c.Amount)
		}
	}

	net := income.Sub(expense)
	return model.BalanceImpactSummary{
		StartingBalance:        startingBalance,
		IncomeTotal:            income,
		ExpenseTotal:           expense,
		NetImpact:              net,
		ProjectedEndingBalance: startingBalance.Add(net),
	}
}
