package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"fintrack/internal/core"
	"fintrack/internal/currency"
	"fintrack/internal/ledger"
	applog "fintrack/internal/log"
	"fintrack/internal/savings"
	"fintrack/internal/snapshot"
	"fintrack/internal/storage"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EventPublisher announces expenses materialized by ApplyDue.
type EventPublisher interface {
	PublishMaterialized(ctx context.Context, recurringID string, e core.Expense) error
}

// RecurringView is a template with its dueness for a given day.
type RecurringView struct {
	core.RecurringExpense
	DueToday bool `json:"dueToday"`
}

// SavingsView lists the goals with their progress and the mean progress.
type SavingsView struct {
	Goals           []core.GoalView `json:"goals"`
	AverageProgress float64         `json:"averageProgress"`
}

// Totals summarizes the ledger in one currency.
type Totals struct {
	Currency      core.CurrencyCode `json:"currency"`
	TotalExpenses core.Money        `json:"totalExpenses"`
	TotalIncome   core.Money        `json:"totalIncome"`
	NetBalance    core.Money        `json:"netBalance"`
	ExpenseCount  int               `json:"expenseCount"`
	IncomeCount   int               `json:"incomeCount"`
}

// Tracker is the single state container. It owns one ledger, one
// recurrence engine and one savings tracker, serializes every call behind
// one mutex and saves a full snapshot after each successful mutation. A
// mutation whose snapshot cannot be saved is rolled back.
type Tracker struct {
	mu sync.Mutex

	conv       *currency.Converter
	ledger     *ledger.Ledger
	recurrence *RecurrenceEngine
	savings    *savings.Tracker
	preferred  core.CurrencyCode

	defaultCurrency core.CurrencyCode
	store           storage.SnapshotStore
	publisher       EventPublisher
	logger          *applog.Logger
	today           func() core.Date
	newID           func() string
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithPublisher publishes one event per materialized expense.
func WithPublisher(p EventPublisher) Option {
	return func(t *Tracker) { t.publisher = p }
}

// WithLogger sets the logger; the default logger is used otherwise.
func WithLogger(l *applog.Logger) Option {
	return func(t *Tracker) { t.logger = l.WithComponent(applog.ComponentTracker) }
}

// WithDefaultCurrency sets the preferred currency of an empty tracker.
func WithDefaultCurrency(c core.CurrencyCode) Option {
	return func(t *Tracker) {
		if c.Validate() == nil {
			t.defaultCurrency = c
		}
	}
}

// WithClock overrides the day used when a record has no date.
func WithClock(today func() core.Date) Option {
	return func(t *Tracker) { t.today = today }
}

// NewTracker returns an empty tracker persisting to store. Call Load to
// read the last saved snapshot.
func NewTracker(store storage.SnapshotStore, opts ...Option) *Tracker {
	t := &Tracker{
		conv:            currency.NewConverter(),
		store:           store,
		defaultCurrency: core.DefaultCurrency,
		today:           core.Today,
		newID:           uuid.NewString,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.logger == nil {
		t.logger = applog.FromContext(context.Background()).WithComponent(applog.ComponentTracker)
	}
	empty := snapshot.Empty()
	empty.PreferredCurrency = t.defaultCurrency
	empty.Budget = core.Budget{Money: core.Zero(t.defaultCurrency)}
	t.restoreLocked(empty)
	return t
}

// Converter returns the converter used for every total.
func (t *Tracker) Converter() *currency.Converter { return t.conv }

// Load replaces the state with the stored snapshot. A store with nothing
// saved leaves the tracker empty. A corrupt snapshot is logged, the tracker
// stays empty and an error wrapping core.ErrInvalidSnapshot is returned so
// the caller can report it and carry on.
func (t *Tracker) Load(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	data, err := t.store.Load(ctx)
	if errors.Is(err, storage.ErrNoSnapshot) {
		t.logger.InfoContext(ctx, "No snapshot saved yet, starting empty")
		return nil
	}
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}

	s, err := snapshot.Decode(data)
	if err != nil {
		t.logger.LogError(ctx, "Snapshot is corrupt, starting empty", err, applog.OpRestore, nil)
		return err
	}
	t.restoreLocked(s)
	t.logger.InfoContext(ctx, "Snapshot loaded",
		"expenses", len(s.Expenses),
		"recurring", len(s.RecurringExpenses),
		"goals", len(s.SavingsGoals))
	return nil
}

func (t *Tracker) restoreLocked(s snapshot.Snapshot) {
	preferred := s.PreferredCurrency
	if preferred.Validate() != nil {
		preferred = t.defaultCurrency
	}
	budget := s.Budget
	if budget.Money.Currency == "" {
		budget = core.Budget{Money: core.Zero(preferred)}
	}

	t.preferred = preferred
	t.ledger = ledger.New(t.conv, preferred)
	t.ledger.Load(ledger.State{
		Expenses:   s.Expenses,
		Incomes:    s.Incomes,
		Categories: s.Categories,
		Budget:     budget,
	})
	t.recurrence = NewRecurrenceEngine()
	t.recurrence.newID = t.newIDFunc
	t.recurrence.Load(s.RecurringExpenses)
	t.savings = savings.NewTracker(t.conv)
	t.savings.Load(s.SavingsGoals)
}

func (t *Tracker) newIDFunc() string { return t.newID() }

func (t *Tracker) snapshotLocked() snapshot.Snapshot {
	st := t.ledger.State()
	return snapshot.Snapshot{
		Version:           snapshot.Version,
		Expenses:          st.Expenses,
		Incomes:           st.Incomes,
		RecurringExpenses: t.recurrence.List(),
		SavingsGoals:      t.savings.Goals(),
		Budget:            st.Budget,
		Categories:        st.Categories,
		PreferredCurrency: t.preferred,
	}
}

func (t *Tracker) persistLocked(ctx context.Context) error {
	data, err := snapshot.Encode(t.snapshotLocked())
	if err != nil {
		return err
	}
	if err := t.store.Save(ctx, data); err != nil {
		return fmt.Errorf("persist snapshot: %w", err)
	}
	return nil
}

// mutate runs fn under the lock, then saves. The previous state comes back
// when fn fails part way or the save fails.
func (t *Tracker) mutate(ctx context.Context, op string, fn func() error) error {
	before := t.snapshotLocked()
	if err := fn(); err != nil {
		t.restoreLocked(before)
		return err
	}
	if err := t.persistLocked(ctx); err != nil {
		t.restoreLocked(before)
		t.logger.LogError(ctx, "Failed to save snapshot", err, op, nil)
		return err
	}
	return nil
}

func (t *Tracker) fillMoney(m core.Money) core.Money {
	if m.Currency == "" {
		m.Currency = t.preferred
	}
	return m
}

func (t *Tracker) fillDate(d core.Date) core.Date {
	if d.IsZero() {
		return t.today()
	}
	return d
}

func (t *Tracker) target(c core.CurrencyCode) core.CurrencyCode {
	if c == "" {
		return t.preferred
	}
	return c
}

// SubmitExpense records an expense. Missing currency means the preferred
// currency and a missing date means today.
func (t *Tracker) SubmitExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e.ID = t.newID()
	e.Name = strings.TrimSpace(e.Name)
	e.Category = core.NormalizeCategory(e.Category)
	e.Tags = core.NormalizeTags(e.Tags)
	e.Money = t.fillMoney(e.Money)
	e.Date = t.fillDate(e.Date)

	if err := t.mutate(ctx, applog.OpCreate, func() error { return t.ledger.AddExpense(e) }); err != nil {
		return core.Expense{}, err
	}
	t.logger.InfoContext(ctx, "Expense added", applog.NewFields().WithExpense(e).ToSlice()...)
	return e, nil
}

// SubmitIncome records an income with the same defaults as SubmitExpense.
func (t *Tracker) SubmitIncome(ctx context.Context, in core.Income) (core.Income, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	in.ID = t.newID()
	in.Source = strings.TrimSpace(in.Source)
	in.Money = t.fillMoney(in.Money)
	in.Date = t.fillDate(in.Date)

	if err := t.mutate(ctx, applog.OpCreate, func() error { return t.ledger.AddIncome(in) }); err != nil {
		return core.Income{}, err
	}
	t.logger.InfoContext(ctx, "Income added", "income_id", in.ID, "amount", in.Money.String())
	return in, nil
}

// SubmitRecurring adds a never-applied recurring template.
func (t *Tracker) SubmitRecurring(ctx context.Context, re core.RecurringExpense) (core.RecurringExpense, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	re.ID = ""
	re.Name = strings.TrimSpace(re.Name)
	re.Money = t.fillMoney(re.Money)

	var added core.RecurringExpense
	err := t.mutate(ctx, applog.OpCreate, func() error {
		var err error
		added, err = t.recurrence.Add(re)
		return err
	})
	if err != nil {
		return core.RecurringExpense{}, err
	}
	t.logger.InfoContext(ctx, "Recurring expense added", applog.NewFields().WithRecurring(added).ToSlice()...)
	return added, nil
}

// SubmitBudget replaces the active budget.
func (t *Tracker) SubmitBudget(ctx context.Context, m core.Money) (core.Budget, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	m = t.fillMoney(m)
	if err := t.mutate(ctx, applog.OpCreate, func() error { return t.ledger.SetBudget(m) }); err != nil {
		return core.Budget{}, err
	}
	return t.ledger.Budget(), nil
}

// AddGoal adds a savings goal; a missing currency is the preferred one.
func (t *Tracker) AddGoal(ctx context.Context, g core.SavingsGoal) (core.SavingsGoal, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	g.ID = ""
	g.Name = strings.TrimSpace(g.Name)
	g.Target = t.fillMoney(g.Target)
	if g.Current.Currency == "" {
		g.Current = core.Money{Amount: g.Current.Amount, Currency: g.Target.Currency}
	}

	var added core.SavingsGoal
	err := t.mutate(ctx, applog.OpCreate, func() error {
		var err error
		added, err = t.savings.AddGoal(g)
		return err
	})
	if err != nil {
		return core.SavingsGoal{}, err
	}
	return added, nil
}

// Deposit adds money to a goal, converted into the goal currency.
func (t *Tracker) Deposit(ctx context.Context, goalID string, amount core.Money) (core.GoalView, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	amount = t.fillMoney(amount)
	var g core.SavingsGoal
	err := t.mutate(ctx, applog.OpDeposit, func() error {
		var err error
		g, err = t.savings.Deposit(goalID, amount)
		return err
	})
	if err != nil {
		return core.GoalView{}, err
	}
	t.logger.InfoContext(ctx, "Deposit recorded", applog.FieldGoalID, goalID, applog.FieldAmount, amount.String())
	return core.GoalView{SavingsGoal: g, Progress: savings.Progress(g)}, nil
}

// SetPreferredCurrency changes the currency totals are reported in.
func (t *Tracker) SetPreferredCurrency(ctx context.Context, code core.CurrencyCode) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := code.Validate(); err != nil {
		return err
	}
	return t.mutate(ctx, "set_currency", func() error {
		t.preferred = code
		return nil
	})
}

// AddCategory registers a category.
func (t *Tracker) AddCategory(ctx context.Context, name string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.mutate(ctx, applog.OpCreate, func() error { return t.ledger.AddCategory(name) })
}

func (t *Tracker) DeleteExpense(ctx context.Context, id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.mutate(ctx, applog.OpDelete, func() error { return t.ledger.RemoveExpense(id) })
}

func (t *Tracker) DeleteIncome(ctx context.Context, id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.mutate(ctx, applog.OpDelete, func() error { return t.ledger.RemoveIncome(id) })
}

// DeleteRecurring removes a template. Expenses it produced are kept.
func (t *Tracker) DeleteRecurring(ctx context.Context, id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.mutate(ctx, applog.OpDelete, func() error { return t.recurrence.Remove(id) })
}

func (t *Tracker) DeleteGoal(ctx context.Context, id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.mutate(ctx, applog.OpDelete, func() error { return t.savings.RemoveGoal(id) })
}

// DeleteCategory removes a category and every expense filed under it,
// returning how many expenses went with it.
func (t *Tracker) DeleteCategory(ctx context.Context, name string) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var removed int
	err := t.mutate(ctx, applog.OpDelete, func() error {
		var err error
		removed, err = t.ledger.RemoveCategory(name)
		return err
	})
	if err != nil {
		return 0, err
	}
	t.logger.InfoContext(ctx, "Category deleted", applog.FieldCategory, core.NormalizeCategory(name), "expenses_removed", removed)
	return removed, nil
}

// ApplyDue materializes every due recurring template into the ledger,
// saves, and then publishes one event per new expense. Publish failures
// are logged and never undo the materialization.
func (t *Tracker) ApplyDue(ctx context.Context, today core.Date) ([]Applied, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var applied []Applied
	err := t.mutate(ctx, applog.OpApplyDue, func() error {
		var err error
		applied, err = t.recurrence.ApplyDue(ctx, today, t.ledger)
		return err
	})
	if err != nil {
		return nil, err
	}

	if t.publisher != nil {
		for _, a := range applied {
			if err := t.publisher.PublishMaterialized(ctx, a.RecurringID, a.Expense); err != nil {
				t.logger.LogError(ctx, "Failed to publish materialized expense", err, applog.OpPublish,
					applog.NewFields().WithExpense(a.Expense))
			}
		}
	}
	return applied, nil
}

// Restore replaces the whole state with s and saves it.
func (t *Tracker) Restore(ctx context.Context, s snapshot.Snapshot) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.mutate(ctx, applog.OpRestore, func() error {
		t.restoreLocked(s)
		return nil
	})
}

// RestoreJSON decodes data as a snapshot and restores it.
func (t *Tracker) RestoreJSON(ctx context.Context, data []byte) error {
	s, err := snapshot.Decode(data)
	if err != nil {
		return err
	}
	return t.Restore(ctx, s)
}

// Snapshot returns the current state.
func (t *Tracker) Snapshot() snapshot.Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

// SnapshotJSON returns the current state encoded as JSON.
func (t *Tracker) SnapshotJSON() ([]byte, error) {
	return snapshot.Encode(t.Snapshot())
}

// PreferredCurrency returns the currency totals default to.
func (t *Tracker) PreferredCurrency() core.CurrencyCode {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.preferred
}

// TotalExpenses sums every expense in c, or in the preferred currency when
// c is empty.
func (t *Tracker) TotalExpenses(c core.CurrencyCode) (core.Money, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ledger.TotalExpenses(t.target(c))
}

// NetBalance is total income minus total expenses.
func (t *Tracker) NetBalance(c core.CurrencyCode) (core.Money, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ledger.NetBalance(t.target(c))
}

// Totals reports expenses, income and net balance in one currency.
func (t *Tracker) Totals(c core.CurrencyCode) (Totals, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	c = t.target(c)
	spent, err := t.ledger.TotalExpenses(c)
	if err != nil {
		return Totals{}, err
	}
	income, err := t.ledger.TotalIncome(c)
	if err != nil {
		return Totals{}, err
	}
	return Totals{
		Currency:      c,
		TotalExpenses: spent,
		TotalIncome:   income,
		NetBalance:    core.Money{Amount: income.Amount.Sub(spent.Amount), Currency: c},
		ExpenseCount:  len(t.ledger.Expenses()),
		IncomeCount:   len(t.ledger.Incomes()),
	}, nil
}

func (t *Tracker) Budget() core.Budget {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ledger.Budget()
}

func (t *Tracker) BudgetStatus() (core.BudgetStatus, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ledger.BudgetStatus()
}

func (t *Tracker) FilteredExpenses(f ledger.Filter) []core.Expense {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ledger.FilteredExpenses(f)
}

func (t *Tracker) Incomes() []core.Income {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ledger.Incomes()
}

func (t *Tracker) Categories() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ledger.Categories()
}

func (t *Tracker) CategoryTotals(c core.CurrencyCode) ([]core.CategoryAmount, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ledger.CategoryTotals(t.target(c))
}

func (t *Tracker) Trend(c core.CurrencyCode) ([]core.TrendPoint, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ledger.Trend(t.target(c))
}

// SavingsGoalsView returns every goal with its progress.
func (t *Tracker) SavingsGoalsView() SavingsView {
	t.mu.Lock()
	defer t.mu.Unlock()
	return SavingsView{Goals: t.savings.View(), AverageProgress: t.savings.AverageProgress()}
}

// RecurringExpensesView returns the templates and whether each is due on today.
func (t *Tracker) RecurringExpensesView(today core.Date) []RecurringView {
	t.mu.Lock()
	defer t.mu.Unlock()

	list := t.recurrence.List()
	out := make([]RecurringView, len(list))
	for i, re := range list {
		out[i] = RecurringView{RecurringExpense: re, DueToday: t.recurrence.IsDue(re, today)}
	}
	return out
}

// ParseMoney parses a user-entered amount and optional currency code. An
// empty code means the preferred currency.
func (t *Tracker) ParseMoney(amount, code string) (core.Money, error) {
	d, err := core.ParseAmount(amount)
	if err != nil {
		return core.Money{}, err
	}
	return t.MoneyOf(d, code)
}

// MoneyOf pairs d with a currency code, or the preferred currency when code
// is empty. The amount is not validated.
func (t *Tracker) MoneyOf(d decimal.Decimal, code string) (core.Money, error) {
	if strings.TrimSpace(code) == "" {
		return core.Money{Amount: d, Currency: t.PreferredCurrency()}, nil
	}
	c, err := core.ParseCurrency(code)
	if err != nil {
		return core.Money{}, err
	}
	return core.Money{Amount: d, Currency: c}, nil
}
