package services

import (
	"context"
	"io"
	"testing"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
	applog "fintrack/internal/log"
	"fintrack/internal/storage"
)

func TestScheduler_AppliesOnStartAndStops(t *testing.T) {
	tr := newTestTracker(t, storage.NewMemoryStore())
	ctx := context.Background()
	if _, err := tr.SubmitRecurring(ctx, core.RecurringExpense{Name: "Rent", Money: usd(900), Frequency: core.Monthly}); err != nil {
		t.Fatal(err)
	}

	logger := applog.New(applog.Config{Output: io.Discard})
	s := NewScheduler(tr, time.Hour, logger)
	s.now = func() time.Time { return time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC) }

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- s.Run(runCtx) }()

	deadline := time.Now().Add(2 * time.Second)
	for len(tr.FilteredExpenses(ledger.Filter{})) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("initial run did not apply the due template")
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}

	if got := len(tr.FilteredExpenses(ledger.Filter{})); got != 1 {
		t.Errorf("expenses = %d, want 1", got)
	}
}
