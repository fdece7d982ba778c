package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"fintrack/internal/core"

	"github.com/google/uuid"
)

// ExpenseSink receives expenses materialized from recurring templates.
// The engine only writes to it and never reads expenses back.
type ExpenseSink interface {
	AddExpense(e core.Expense) error
}

// Applied links a materialized expense to the template that produced it.
type Applied struct {
	RecurringID string       `json:"recurringId"`
	Expense     core.Expense `json:"expense"`
}

// RecurrenceEngine owns the recurring expense templates and turns due ones
// into concrete expenses.
type RecurrenceEngine struct {
	templates []core.RecurringExpense
	newID     func() string
}

// NewRecurrenceEngine creates an engine with no templates.
func NewRecurrenceEngine() *RecurrenceEngine {
	return &RecurrenceEngine{newID: uuid.NewString}
}

// Load replaces every template, keeping their lastApplied dates.
func (e *RecurrenceEngine) Load(templates []core.RecurringExpense) {
	e.templates = append([]core.RecurringExpense(nil), templates...)
}

// List returns the templates in insertion order.
func (e *RecurrenceEngine) List() []core.RecurringExpense {
	return append([]core.RecurringExpense(nil), e.templates...)
}

// Add validates re and stores it as a never-applied template. A missing id
// is generated.
func (e *RecurrenceEngine) Add(re core.RecurringExpense) (core.RecurringExpense, error) {
	re.Category = core.NormalizeCategory(re.Category)
	re.LastApplied = core.Date{}
	if err := re.Validate(); err != nil {
		return core.RecurringExpense{}, err
	}
	if strings.Contains(re.Category, core.TagDelimiter) {
		return core.RecurringExpense{}, fmt.Errorf("%w: %w", core.ErrInvalidRecurring, core.ErrTagDelimiter)
	}
	if re.ID == "" {
		re.ID = e.newID()
	}
	for _, t := range e.templates {
		if t.ID == re.ID {
			return core.RecurringExpense{}, fmt.Errorf("%w: duplicate id %q", core.ErrInvalidRecurring, re.ID)
		}
	}
	e.templates = append(e.templates, re)
	return re, nil
}

// Remove deletes the template with the given id. Expenses it already
// produced stay in the ledger.
func (e *RecurrenceEngine) Remove(id string) error {
	for i, t := range e.templates {
		if t.ID == id {
			e.templates = append(e.templates[:i:i], e.templates[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: recurring expense %q", core.ErrNotFound, id)
}

// IsDue reports whether re would be materialized on today.
func (e *RecurrenceEngine) IsDue(re core.RecurringExpense, today core.Date) bool {
	return IsDue(re, today)
}

// ApplyDue materializes exactly one expense dated today for every due
// template and marks it applied. Missed periods are not back-filled, so a
// second call with the same day produces nothing. A template whose expense
// the sink rejects is logged and stays pending.
func (e *RecurrenceEngine) ApplyDue(ctx context.Context, today core.Date, sink ExpenseSink) ([]Applied, error) {
	if sink == nil {
		return nil, errors.New("recurrence engine: nil expense sink")
	}
	if err := today.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrInvalidInput, err)
	}

	slog.InfoContext(ctx, "Processing recurring expenses",
		"total_templates", len(e.templates),
		"processing_date", today.String())

	var applied []Applied
	for i := range e.templates {
		re := &e.templates[i]
		if !IsDue(*re, today) {
			continue
		}

		tags := []string{core.RecurringCategory}
		if re.Category != "" {
			tags = append(tags, re.Category)
		}
		expense := core.Expense{
			ID:       e.newID(),
			Name:     re.Name,
			Category: core.RecurringCategory,
			Tags:     core.NormalizeTags(tags),
			Money:    re.Money,
			Date:     today,
		}

		if err := sink.AddExpense(expense); err != nil {
			slog.ErrorContext(ctx, "Failed to create expense from recurring template",
				"recurring_id", re.ID,
				"name", re.Name,
				"error", err)
			continue
		}

		re.LastApplied = today
		applied = append(applied, Applied{RecurringID: re.ID, Expense: expense})
		slog.InfoContext(ctx, "Created expense from recurring template",
			"recurring_id", re.ID,
			"expense_id", expense.ID,
			"amount", re.Money.String(),
			"frequency", string(re.Frequency))
	}

	slog.InfoContext(ctx, "Recurring expense processing complete",
		"processed", len(applied),
		"total_checked", len(e.templates))

	return applied, nil
}
