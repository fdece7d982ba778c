package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
	"fintrack/internal/snapshot"
	"fintrack/internal/storage"

	"github.com/shopspring/decimal"
)

var testDay = core.NewDate(2024, 3, 10)

type failingStore struct {
	storage.MemoryStore
	failSave bool
}

func (s *failingStore) Save(ctx context.Context, data []byte) error {
	if s.failSave {
		return errors.New("disk full")
	}
	return s.MemoryStore.Save(ctx, data)
}

type recordingPublisher struct {
	published []string
	fail      bool
}

func (p *recordingPublisher) PublishMaterialized(_ context.Context, recurringID string, _ core.Expense) error {
	if p.fail {
		return errors.New("broker down")
	}
	p.published = append(p.published, recurringID)
	return nil
}

func newTestTracker(t *testing.T, store storage.SnapshotStore, opts ...Option) *Tracker {
	t.Helper()
	n := 0
	tr := NewTracker(store, append([]Option{WithClock(func() core.Date { return testDay })}, opts...)...)
	tr.newID = func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
	return tr
}

func usd(v int64) core.Money { return core.NewMoney(decimal.NewFromInt(v), core.USD) }

func TestTracker_LoadEmptyStore(t *testing.T) {
	tr := newTestTracker(t, storage.NewMemoryStore())
	if err := tr.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := tr.PreferredCurrency(); got != core.INR {
		t.Errorf("PreferredCurrency() = %s, want INR", got)
	}
	if got := len(tr.FilteredExpenses(ledger.Filter{})); got != 0 {
		t.Errorf("expenses = %d, want 0", got)
	}
}

func TestTracker_LoadCorruptSnapshot(t *testing.T) {
	store := storage.NewMemoryStore()
	if err := store.Save(context.Background(), []byte("not json")); err != nil {
		t.Fatal(err)
	}
	tr := newTestTracker(t, store)
	err := tr.Load(context.Background())
	if !errors.Is(err, core.ErrInvalidSnapshot) {
		t.Fatalf("Load() error = %v, want ErrInvalidSnapshot", err)
	}
	if got := len(tr.Categories()); got == 0 {
		t.Error("tracker should still hold the default categories")
	}
}

func TestTracker_SubmitExpenseDefaultsAndPersists(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	tr := newTestTracker(t, store)

	got, err := tr.SubmitExpense(ctx, core.Expense{
		Name:     " Lunch ",
		Category: "Food",
		Money:    core.Money{Amount: decimal.NewFromInt(250)},
	})
	if err != nil {
		t.Fatalf("SubmitExpense() error = %v", err)
	}
	if got.ID != "id-1" || got.Name != "Lunch" || got.Category != "food" {
		t.Errorf("SubmitExpense() = %+v", got)
	}
	if got.Money.Currency != core.INR {
		t.Errorf("currency = %s, want preferred INR", got.Money.Currency)
	}
	if got.Date != testDay {
		t.Errorf("date = %s, want %s", got.Date, testDay)
	}

	reloaded := newTestTracker(t, store)
	if err := reloaded.Load(ctx); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if n := len(reloaded.FilteredExpenses(ledger.Filter{})); n != 1 {
		t.Errorf("reloaded expenses = %d, want 1", n)
	}
}

func TestTracker_SubmitExpenseRejectsUnknownCategory(t *testing.T) {
	tr := newTestTracker(t, storage.NewMemoryStore())
	_, err := tr.SubmitExpense(context.Background(), core.Expense{
		Name:     "Book",
		Category: "hobbies",
		Money:    usd(10),
	})
	if !errors.Is(err, core.ErrInvalidInput) {
		t.Errorf("SubmitExpense() error = %v, want ErrInvalidInput", err)
	}
}

func TestTracker_SaveFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{failSave: true}
	tr := newTestTracker(t, store)

	_, err := tr.SubmitExpense(ctx, core.Expense{Name: "Taxi", Category: "transport", Money: usd(12)})
	if err == nil {
		t.Fatal("SubmitExpense() expected a persistence error")
	}
	if n := len(tr.FilteredExpenses(ledger.Filter{})); n != 0 {
		t.Errorf("expenses after failed save = %d, want 0", n)
	}

	store.failSave = false
	if _, err := tr.SubmitExpense(ctx, core.Expense{Name: "Taxi", Category: "transport", Money: usd(12)}); err != nil {
		t.Fatalf("SubmitExpense() after recovery error = %v", err)
	}
}

func TestTracker_ApplyDuePublishesAndIsIdempotent(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	tr := newTestTracker(t, storage.NewMemoryStore(), WithPublisher(pub))

	re, err := tr.SubmitRecurring(ctx, core.RecurringExpense{
		Name:      "Gym",
		Category:  "entertainment",
		Money:     usd(30),
		Frequency: core.Monthly,
	})
	if err != nil {
		t.Fatalf("SubmitRecurring() error = %v", err)
	}

	views := tr.RecurringExpensesView(testDay)
	if len(views) != 1 || !views[0].DueToday {
		t.Fatalf("RecurringExpensesView() = %+v, want one due template", views)
	}

	applied, err := tr.ApplyDue(ctx, testDay)
	if err != nil {
		t.Fatalf("ApplyDue() error = %v", err)
	}
	if len(applied) != 1 || applied[0].RecurringID != re.ID {
		t.Fatalf("ApplyDue() = %+v", applied)
	}
	if len(pub.published) != 1 || pub.published[0] != re.ID {
		t.Errorf("published = %v, want [%s]", pub.published, re.ID)
	}

	again, err := tr.ApplyDue(ctx, testDay)
	if err != nil {
		t.Fatalf("second ApplyDue() error = %v", err)
	}
	if len(again) != 0 {
		t.Errorf("second ApplyDue() = %d expenses, want 0", len(again))
	}

	recurring := tr.FilteredExpenses(ledger.Filter{Category: core.RecurringCategory})
	if len(recurring) != 1 || !recurring[0].HasTag("entertainment") {
		t.Errorf("recurring expenses = %+v", recurring)
	}
}

func TestTracker_ApplyDuePublishFailureKeepsExpense(t *testing.T) {
	ctx := context.Background()
	tr := newTestTracker(t, storage.NewMemoryStore(), WithPublisher(&recordingPublisher{fail: true}))

	if _, err := tr.SubmitRecurring(ctx, core.RecurringExpense{
		Name: "News", Category: "other", Money: usd(5), Frequency: core.Daily,
	}); err != nil {
		t.Fatal(err)
	}
	applied, err := tr.ApplyDue(ctx, testDay)
	if err != nil {
		t.Fatalf("ApplyDue() error = %v", err)
	}
	if len(applied) != 1 {
		t.Errorf("ApplyDue() = %d, want 1", len(applied))
	}
}

func TestTracker_BudgetAndTotals(t *testing.T) {
	ctx := context.Background()
	tr := newTestTracker(t, storage.NewMemoryStore())

	if _, err := tr.BudgetStatus(); !errors.Is(err, core.ErrDivisionByZero) {
		t.Errorf("BudgetStatus() with zero budget error = %v, want ErrDivisionByZero", err)
	}
	if _, err := tr.SubmitBudget(ctx, usd(100)); err != nil {
		t.Fatalf("SubmitBudget() error = %v", err)
	}
	if _, err := tr.SubmitExpense(ctx, core.Expense{Name: "Dinner", Category: "food", Money: usd(40)}); err != nil {
		t.Fatal(err)
	}
	if _, err := tr.SubmitIncome(ctx, core.Income{Source: "Salary", Money: usd(100)}); err != nil {
		t.Fatal(err)
	}

	status, err := tr.BudgetStatus()
	if err != nil {
		t.Fatalf("BudgetStatus() error = %v", err)
	}
	if status.PercentUsed != 40 {
		t.Errorf("PercentUsed = %v, want 40", status.PercentUsed)
	}

	totals, err := tr.Totals(core.USD)
	if err != nil {
		t.Fatalf("Totals() error = %v", err)
	}
	if !totals.NetBalance.Amount.Equal(decimal.NewFromInt(60)) {
		t.Errorf("NetBalance = %s, want 60", totals.NetBalance.Amount)
	}
	if totals.ExpenseCount != 1 || totals.IncomeCount != 1 {
		t.Errorf("counts = %d/%d, want 1/1", totals.ExpenseCount, totals.IncomeCount)
	}
}

func TestTracker_GoalsAndDeposit(t *testing.T) {
	ctx := context.Background()
	tr := newTestTracker(t, storage.NewMemoryStore())

	g, err := tr.AddGoal(ctx, core.SavingsGoal{Name: "Bike", Target: usd(200)})
	if err != nil {
		t.Fatalf("AddGoal() error = %v", err)
	}
	view, err := tr.Deposit(ctx, g.ID, usd(50))
	if err != nil {
		t.Fatalf("Deposit() error = %v", err)
	}
	if view.Progress != 25 {
		t.Errorf("Progress = %v, want 25", view.Progress)
	}
	if _, err := tr.Deposit(ctx, "missing", usd(5)); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Deposit() unknown goal error = %v, want ErrNotFound", err)
	}
	if got := tr.SavingsGoalsView().AverageProgress; got != 25 {
		t.Errorf("AverageProgress = %v, want 25", got)
	}
}

func TestTracker_DeleteCategoryCascades(t *testing.T) {
	ctx := context.Background()
	tr := newTestTracker(t, storage.NewMemoryStore())

	for _, name := range []string{"Bus", "Train"} {
		if _, err := tr.SubmitExpense(ctx, core.Expense{Name: name, Category: "transport", Money: usd(3)}); err != nil {
			t.Fatal(err)
		}
	}
	removed, err := tr.DeleteCategory(ctx, "Transport")
	if err != nil {
		t.Fatalf("DeleteCategory() error = %v", err)
	}
	if removed != 2 {
		t.Errorf("removed = %d, want 2", removed)
	}
	if _, err := tr.DeleteCategory(ctx, core.RecurringCategory); !errors.Is(err, core.ErrInvalidInput) {
		t.Errorf("DeleteCategory(recurring) error = %v, want ErrInvalidInput", err)
	}
}

func TestTracker_SetPreferredCurrency(t *testing.T) {
	ctx := context.Background()
	tr := newTestTracker(t, storage.NewMemoryStore())

	if err := tr.SetPreferredCurrency(ctx, "JPY"); !errors.Is(err, core.ErrUnknownCurrency) {
		t.Errorf("SetPreferredCurrency(JPY) error = %v, want ErrUnknownCurrency", err)
	}
	if err := tr.SetPreferredCurrency(ctx, core.EUR); err != nil {
		t.Fatalf("SetPreferredCurrency() error = %v", err)
	}
	total, err := tr.TotalExpenses("")
	if err != nil {
		t.Fatal(err)
	}
	if total.Currency != core.EUR {
		t.Errorf("TotalExpenses currency = %s, want EUR", total.Currency)
	}
}

func TestTracker_RestoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := newTestTracker(t, storage.NewMemoryStore())
	if _, err := src.SubmitExpense(ctx, core.Expense{Name: "Tea", Category: "food", Money: usd(2)}); err != nil {
		t.Fatal(err)
	}
	data, err := src.SnapshotJSON()
	if err != nil {
		t.Fatalf("SnapshotJSON() error = %v", err)
	}

	dst := newTestTracker(t, storage.NewMemoryStore())
	if err := dst.RestoreJSON(ctx, data); err != nil {
		t.Fatalf("RestoreJSON() error = %v", err)
	}
	if n := len(dst.FilteredExpenses(ledger.Filter{})); n != 1 {
		t.Errorf("restored expenses = %d, want 1", n)
	}
	if err := dst.RestoreJSON(ctx, []byte(`[]`)); !errors.Is(err, core.ErrInvalidSnapshot) {
		t.Errorf("RestoreJSON([]) error = %v, want ErrInvalidSnapshot", err)
	}

	var s snapshot.Snapshot = dst.Snapshot()
	if s.Version != snapshot.Version {
		t.Errorf("Version = %d, want %d", s.Version, snapshot.Version)
	}
}

func TestTracker_ParseMoney(t *testing.T) {
	tr := newTestTracker(t, storage.NewMemoryStore())

	m, err := tr.ParseMoney("12,50", "")
	if err != nil {
		t.Fatalf("ParseMoney() error = %v", err)
	}
	if m.Currency != core.INR || !m.Amount.Equal(decimal.RequireFromString("12.5")) {
		t.Errorf("ParseMoney() = %v", m)
	}
	if _, err := tr.ParseMoney("5", "xyz"); !errors.Is(err, core.ErrUnknownCurrency) {
		t.Errorf("ParseMoney() bad currency error = %v", err)
	}
}
