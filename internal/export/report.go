package export

import (
	"errors"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
)

// Source is the read side of the tracker a report is built from.
type Source interface {
	PreferredCurrency() core.CurrencyCode
	FilteredExpenses(f ledger.Filter) []core.Expense
	TotalExpenses(c core.CurrencyCode) (core.Money, error)
	CategoryTotals(c core.CurrencyCode) ([]core.CategoryAmount, error)
	BudgetStatus() (core.BudgetStatus, error)
}

// BuildReport collects the report data in the preferred currency. A zero
// budget leaves the budget section out.
func BuildReport(src Source, now time.Time) (Report, error) {
	c := src.PreferredCurrency()
	total, err := src.TotalExpenses(c)
	if err != nil {
		return Report{}, err
	}
	byCategory, err := src.CategoryTotals(c)
	if err != nil {
		return Report{}, err
	}
	r := Report{
		Title:          "Expense report",
		GeneratedAt:    now,
		Currency:       c,
		Expenses:       src.FilteredExpenses(ledger.Filter{}),
		Total:          total,
		CategoryTotals: byCategory,
	}
	status, err := src.BudgetStatus()
	switch {
	case err == nil:
		r.Budget = &status
	case !errors.Is(err, core.ErrDivisionByZero):
		return Report{}, err
	}
	return r, nil
}
