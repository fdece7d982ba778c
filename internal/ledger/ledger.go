// Package ledger holds expenses, incomes, categories and the active budget,
// and derives every currency-normalized total from them.
package ledger

import (
	"fmt"
	"sort"

	"fintrack/internal/core"
	"fintrack/internal/currency"

	"github.com/shopspring/decimal"
)

// Filter selects expenses. Empty fields match everything. A From date
// without a To date selects that single day.
type Filter struct {
	Category string
	Tag      string
	From     core.Date
	To       core.Date
}

func (f Filter) match(e core.Expense) bool {
	if f.Category != "" && e.Category != core.NormalizeCategory(f.Category) {
		return false
	}
	if f.Tag != "" && !e.HasTag(f.Tag) {
		return false
	}
	from, to := f.From, f.To
	if !from.IsZero() && to.IsZero() {
		to = from
	}
	if !from.IsZero() && e.Date.Before(from) {
		return false
	}
	if !to.IsZero() && e.Date.After(to) {
		return false
	}
	return true
}

// State is the persisted content of a ledger.
type State struct {
	Expenses   []core.Expense
	Incomes    []core.Income
	Categories []string
	Budget     core.Budget
}

// Ledger is not safe for concurrent use; the owning tracker serializes access.
type Ledger struct {
	conv       *currency.Converter
	expenses   []core.Expense
	incomes    []core.Income
	categories []string
	budget     core.Budget
}

// New returns an empty ledger seeded with the default categories and a zero
// budget in budgetCurrency.
func New(conv *currency.Converter, budgetCurrency core.CurrencyCode) *Ledger {
	l := &Ledger{
		conv:   conv,
		budget: core.Budget{Money: core.Zero(budgetCurrency)},
	}
	for _, c := range core.DefaultCategories {
		l.categories = append(l.categories, c)
	}
	l.ensureReserved()
	return l
}

// Load replaces the ledger content with s. Records are trusted to have been
// validated when they were first added.
func (l *Ledger) Load(s State) {
	l.expenses = append([]core.Expense(nil), s.Expenses...)
	l.incomes = append([]core.Income(nil), s.Incomes...)
	if len(s.Categories) > 0 {
		l.categories = nil
		for _, c := range s.Categories {
			l.addCategory(c)
		}
	}
	// Categories referenced by loaded expenses stay selectable.
	for _, e := range l.expenses {
		l.addCategory(e.Category)
	}
	l.ensureReserved()
	if s.Budget.Money.Currency != "" {
		l.budget = s.Budget
	}
}

// State returns a copy of the ledger content.
func (l *Ledger) State() State {
	return State{
		Expenses:   l.Expenses(),
		Incomes:    l.Incomes(),
		Categories: l.Categories(),
		Budget:     l.budget,
	}
}

func (l *Ledger) ensureReserved() {
	l.addCategory(core.RecurringCategory)
}

func (l *Ledger) addCategory(name string) bool {
	name = core.NormalizeCategory(name)
	if name == "" || l.HasCategory(name) {
		return false
	}
	l.categories = append(l.categories, name)
	return true
}

// HasCategory reports whether name is a known category.
func (l *Ledger) HasCategory(name string) bool {
	name = core.NormalizeCategory(name)
	for _, c := range l.categories {
		if c == name {
			return true
		}
	}
	return false
}

// AddCategory registers a new category. Adding an existing one is a no-op.
func (l *Ledger) AddCategory(name string) error {
	if core.NormalizeCategory(name) == "" {
		return fmt.Errorf("%w: %w", core.ErrInvalidInput, core.ErrEmptyCategory)
	}
	l.addCategory(name)
	return nil
}

// Categories returns the known categories in insertion order.
func (l *Ledger) Categories() []string {
	return append([]string(nil), l.categories...)
}

// RemoveCategory deletes a category together with every expense filed
// under it. The reserved recurring marker cannot be removed.
func (l *Ledger) RemoveCategory(name string) (removed int, err error) {
	name = core.NormalizeCategory(name)
	if name == core.RecurringCategory {
		return 0, fmt.Errorf("%w: category %q is reserved", core.ErrInvalidInput, name)
	}
	if !l.HasCategory(name) {
		return 0, fmt.Errorf("%w: category %q", core.ErrNotFound, name)
	}

	categories := make([]string, 0, len(l.categories)-1)
	for _, c := range l.categories {
		if c != name {
			categories = append(categories, c)
		}
	}
	expenses := make([]core.Expense, 0, len(l.expenses))
	for _, e := range l.expenses {
		if e.Category != name {
			expenses = append(expenses, e)
		}
	}
	removed = len(l.expenses) - len(expenses)
	l.categories, l.expenses = categories, expenses
	return removed, nil
}

// AddExpense appends e after validating it.
func (l *Ledger) AddExpense(e core.Expense) error {
	e.Category = core.NormalizeCategory(e.Category)
	e.Tags = core.NormalizeTags(e.Tags)
	if err := e.Validate(); err != nil {
		return err
	}
	if e.ID == "" {
		return fmt.Errorf("%w: missing id", core.ErrInvalidExpense)
	}
	if !l.HasCategory(e.Category) {
		return fmt.Errorf("%w: unknown category %q", core.ErrInvalidExpense, e.Category)
	}
	l.expenses = append(l.expenses, e)
	return nil
}

// RemoveExpense deletes the expense with the given id.
func (l *Ledger) RemoveExpense(id string) error {
	for i, e := range l.expenses {
		if e.ID == id {
			l.expenses = append(l.expenses[:i:i], l.expenses[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: expense %q", core.ErrNotFound, id)
}

// Expenses returns every expense in insertion order.
func (l *Ledger) Expenses() []core.Expense {
	return append([]core.Expense(nil), l.expenses...)
}

// FilteredExpenses returns the expenses matching f in insertion order.
func (l *Ledger) FilteredExpenses(f Filter) []core.Expense {
	out := make([]core.Expense, 0, len(l.expenses))
	for _, e := range l.expenses {
		if f.match(e) {
			out = append(out, e)
		}
	}
	return out
}

// AddIncome appends i after validating it.
func (l *Ledger) AddIncome(i core.Income) error {
	if err := i.Validate(); err != nil {
		return err
	}
	if i.ID == "" {
		return fmt.Errorf("%w: missing id", core.ErrInvalidIncome)
	}
	l.incomes = append(l.incomes, i)
	return nil
}

// RemoveIncome deletes the income with the given id.
func (l *Ledger) RemoveIncome(id string) error {
	for i, in := range l.incomes {
		if in.ID == id {
			l.incomes = append(l.incomes[:i:i], l.incomes[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: income %q", core.ErrNotFound, id)
}

// Incomes returns every income in insertion order.
func (l *Ledger) Incomes() []core.Income {
	return append([]core.Income(nil), l.incomes...)
}

func (l *Ledger) sum(amounts []core.Money, target core.CurrencyCode) (core.Money, error) {
	if err := target.Validate(); err != nil {
		return core.Money{}, err
	}
	total := decimal.Zero
	for _, m := range amounts {
		v, err := l.conv.Convert(m.Amount, m.Currency, target)
		if err != nil {
			return core.Money{}, err
		}
		total = total.Add(v)
	}
	return core.Money{Amount: total, Currency: target}, nil
}

func expenseAmounts(expenses []core.Expense) []core.Money {
	out := make([]core.Money, len(expenses))
	for i, e := range expenses {
		out[i] = e.Money
	}
	return out
}

// TotalExpenses sums every expense converted into target.
func (l *Ledger) TotalExpenses(target core.CurrencyCode) (core.Money, error) {
	return l.sum(expenseAmounts(l.expenses), target)
}

// TotalIncome sums every income converted into target.
func (l *Ledger) TotalIncome(target core.CurrencyCode) (core.Money, error) {
	amounts := make([]core.Money, len(l.incomes))
	for i, in := range l.incomes {
		amounts[i] = in.Money
	}
	return l.sum(amounts, target)
}

// NetBalance is total income minus total expenses, in target.
func (l *Ledger) NetBalance(target core.CurrencyCode) (core.Money, error) {
	income, err := l.TotalIncome(target)
	if err != nil {
		return core.Money{}, err
	}
	spent, err := l.TotalExpenses(target)
	if err != nil {
		return core.Money{}, err
	}
	return core.Money{Amount: income.Amount.Sub(spent.Amount), Currency: target}, nil
}

// SetBudget replaces the active budget.
func (l *Ledger) SetBudget(m core.Money) error {
	b := core.Budget{Money: m}
	if err := b.Validate(); err != nil {
		return err
	}
	l.budget = b
	return nil
}

// Budget returns the active budget.
func (l *Ledger) Budget() core.Budget { return l.budget }

// BudgetStatus reports spending against the active budget in the budget's
// currency. A zero budget has no defined percentage and yields
// core.ErrDivisionByZero.
func (l *Ledger) BudgetStatus() (core.BudgetStatus, error) {
	b := l.budget.Money
	spent, err := l.TotalExpenses(b.Currency)
	if err != nil {
		return core.BudgetStatus{}, err
	}
	if b.Amount.IsZero() {
		return core.BudgetStatus{}, fmt.Errorf("%w: budget amount is zero", core.ErrDivisionByZero)
	}
	remaining := b.Amount.Sub(spent.Amount)
	percent := spent.Amount.Div(b.Amount).Mul(decimal.NewFromInt(100))
	return core.BudgetStatus{
		Budget:      b,
		Spent:       spent,
		Remaining:   core.Money{Amount: remaining, Currency: b.Currency},
		PercentUsed: percent.InexactFloat64(),
		OverBudget:  remaining.IsNegative(),
	}, nil
}

// CategoryTotals sums expenses per category in target, sorted by name.
func (l *Ledger) CategoryTotals(target core.CurrencyCode) ([]core.CategoryAmount, error) {
	if err := target.Validate(); err != nil {
		return nil, err
	}
	totals := make(map[string]decimal.Decimal)
	for _, e := range l.expenses {
		v, err := l.conv.Convert(e.Money.Amount, e.Money.Currency, target)
		if err != nil {
			return nil, err
		}
		totals[e.Category] = totals[e.Category].Add(v)
	}
	out := make([]core.CategoryAmount, 0, len(totals))
	for name, amount := range totals {
		out = append(out, core.CategoryAmount{Name: name, Amount: core.Money{Amount: amount, Currency: target}})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Trend sums expenses per day in target, sorted by date.
func (l *Ledger) Trend(target core.CurrencyCode) ([]core.TrendPoint, error) {
	if err := target.Validate(); err != nil {
		return nil, err
	}
	totals := make(map[core.Date]decimal.Decimal)
	for _, e := range l.expenses {
		v, err := l.conv.Convert(e.Money.Amount, e.Money.Currency, target)
		if err != nil {
			return nil, err
		}
		totals[e.Date] = totals[e.Date].Add(v)
	}
	out := make([]core.TrendPoint, 0, len(totals))
	for d, amount := range totals {
		out = append(out, core.TrendPoint{Date: d, Amount: core.Money{Amount: amount, Currency: target}})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}
