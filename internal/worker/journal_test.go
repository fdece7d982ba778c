package worker

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	applog "fintrack/internal/log"

	"github.com/shopspring/decimal"
)

func quietLogger() *applog.Logger {
	return applog.New(applog.Config{Output: io.Discard})
}

func sampleMessage(id string) *amqp.ExpenseMaterializedMessage {
	return amqp.NewExpenseMaterializedMessage("rec-1", core.Expense{
		ID:       id,
		Name:     "Rent",
		Category: core.RecurringCategory,
		Money:    core.NewMoney(decimal.RequireFromString("900.50"), core.USD),
		Date:     core.NewDate(2024, 6, 1),
	})
}

func TestJournal_WritesAndDedupes(t *testing.T) {
	var buf bytes.Buffer
	j := NewJournal(&buf, quietLogger())
	j.now = func() time.Time { return time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC) }
	ctx := context.Background()

	for _, id := range []string{"e-1", "e-1", "e-2"} {
		if err := j.Handle(ctx, sampleMessage(id)); err != nil {
			t.Fatalf("Handle(%s) error = %v", id, err)
		}
	}

	if got, want := j.Stats(), (Stats{Written: 2, Duplicates: 1}); got != want {
		t.Errorf("Stats() = %+v, want %+v", got, want)
	}

	var entries []Entry
	sc := bufio.NewScanner(&buf)
	for sc.Scan() {
		var e Entry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			t.Fatalf("line %q: %v", sc.Text(), err)
		}
		entries = append(entries, e)
	}
	if len(entries) != 2 {
		t.Fatalf("journal has %d lines, want 2", len(entries))
	}
	first := entries[0]
	if first.ExpenseID != "e-1" || first.RecurringID != "rec-1" || first.Date != "2024-06-01" {
		t.Errorf("entry = %+v", first)
	}
	if !first.Amount.Equal(decimal.RequireFromString("900.50")) || first.Currency != "USD" {
		t.Errorf("amount = %s %s", first.Amount, first.Currency)
	}
}

func TestJournal_RejectsMalformed(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*amqp.ExpenseMaterializedMessage)
	}{
		{"missing id", func(m *amqp.ExpenseMaterializedMessage) { m.ExpenseID = "" }},
		{"bad amount", func(m *amqp.ExpenseMaterializedMessage) { m.Amount = "lots" }},
		{"negative amount", func(m *amqp.ExpenseMaterializedMessage) { m.Amount = "-3" }},
		{"unknown currency", func(m *amqp.ExpenseMaterializedMessage) { m.Currency = "XYZ" }},
		{"bad date", func(m *amqp.ExpenseMaterializedMessage) { m.Date = "June" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			j := NewJournal(&buf, quietLogger())
			msg := sampleMessage("e-1")
			tt.mutate(msg)
			if err := j.Handle(context.Background(), msg); err != nil {
				t.Fatalf("Handle() error = %v, want nil", err)
			}
			if j.Stats().Rejected != 1 || buf.Len() != 0 {
				t.Errorf("stats = %+v, journal = %q", j.Stats(), buf.String())
			}
		})
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestJournal_WriteFailureAllowsRedelivery(t *testing.T) {
	j := NewJournal(failingWriter{}, quietLogger())
	ctx := context.Background()

	if err := j.Handle(ctx, sampleMessage("e-1")); err == nil {
		t.Fatal("Handle() error = nil, want write failure")
	}
	j.w = io.Discard
	j.enc = json.NewEncoder(io.Discard)
	if err := j.Handle(ctx, sampleMessage("e-1")); err != nil {
		t.Fatalf("redelivery error = %v", err)
	}
	if got := j.Stats(); got.Written != 1 || got.Duplicates != 0 {
		t.Errorf("Stats() = %+v", got)
	}
}
