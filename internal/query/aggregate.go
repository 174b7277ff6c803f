package query

import (
	"fmt"

	"github.com/shopspring/decimal"

	"budget/internal/core"
)

// SumByKind totals income and expense in a single pass. Any kind other than
// income is counted as expense.
func SumByKind(records []core.Record) (core.Totals, error) {
	totals := core.Totals{Income: decimal.Zero, Expense: decimal.Zero}
	for i, r := range records {
		amt, err := r.Amount.Decimal()
		if err != nil {
			return core.Totals{}, fmt.Errorf("record %d (%s): %w", i, r.Date, err)
		}
		if r.Kind == core.Income {
			totals.Income = totals.Income.Add(amt)
		} else {
			totals.Expense = totals.Expense.Add(amt)
		}
	}
	return totals, nil
}

// SumExpenseByCategory totals expense amounts per category. Income records
// are ignored entirely, including their amounts. The result iterates in the
// order categories first appear in records.
func SumExpenseByCategory(records []core.Record) (core.CategoryTotals, error) {
	out := make(core.CategoryTotals, 0)
	index := map[string]int{}
	for i, r := range records {
		if r.Kind == core.Income {
			continue
		}
		amt, err := r.Amount.Decimal()
		if err != nil {
			return nil, fmt.Errorf("record %d (%s): %w", i, r.Date, err)
		}
		pos, ok := index[r.Category]
		if !ok {
			index[r.Category] = len(out)
			out = append(out, core.CategoryAmount{Name: r.Category, Amount: amt})
			continue
		}
		out[pos].Amount = out[pos].Amount.Add(amt)
	}
	return out, nil
}
