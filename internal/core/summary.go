package core

import "github.com/shopspring/decimal"

// Totals holds income and expense sums for a set of records.
type Totals struct {
	Income  decimal.Decimal
	Expense decimal.Decimal
}

// Balance is income minus expense.
func (t Totals) Balance() decimal.Decimal {
	return t.Income.Sub(t.Expense)
}

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string
	Amount decimal.Decimal
}

// CategoryTotals is a category → amount mapping that iterates in the order
// categories were first seen.
type CategoryTotals []CategoryAmount

// Get returns the total for name.
func (c CategoryTotals) Get(name string) (decimal.Decimal, bool) {
	for _, ca := range c {
		if ca.Name == name {
			return ca.Amount, true
		}
	}
	return decimal.Zero, false
}

// Sum adds up every category.
func (c CategoryTotals) Sum() decimal.Decimal {
	total := decimal.Zero
	for _, ca := range c {
		total = total.Add(ca.Amount)
	}
	return total
}

// CategoryShare is a category's percentage of the expense total.
type CategoryShare struct {
	Name    string
	Amount  decimal.Decimal
	Percent decimal.Decimal
}

// Shares computes each category's percentage of the sum, rounded to one
// decimal. An empty or zero-sum mapping yields zero percentages.
func (c CategoryTotals) Shares() []CategoryShare {
	total := c.Sum()
	out := make([]CategoryShare, 0, len(c))
	for _, ca := range c {
		pct := decimal.Zero
		if !total.IsZero() {
			pct = ca.Amount.Div(total).Mul(decimal.NewFromInt(100)).Round(1)
		}
		out = append(out, CategoryShare{Name: ca.Name, Amount: ca.Amount, Percent: pct})
	}
	return out
}

// DayOverview is the listing and totals for one calendar day.
type DayOverview struct {
	Date    Date
	Records []Record
	Totals  Totals
}

// MonthOverview is a compact summary for a specific year+month.
type MonthOverview struct {
	Year       int
	Month      int // 1-12
	Records    []Record
	Totals     Totals
	ByCategory CategoryTotals
}
