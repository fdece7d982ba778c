// Package worker consumes materialized-expense events and keeps a journal
// of them on disk.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/cache"
	"fintrack/internal/core"
	applog "fintrack/internal/log"

	"github.com/shopspring/decimal"
)

// Redeliveries of an event seen within this window are dropped.
const (
	dedupeWindow = 24 * time.Hour
	dedupeSize   = 10000
)

// Entry is one journal line.
type Entry struct {
	ExpenseID   string          `json:"expenseId"`
	RecurringID string          `json:"recurringId"`
	Name        string          `json:"name"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Date        string          `json:"date"`
	PublishedAt time.Time       `json:"publishedAt"`
	ReceivedAt  time.Time       `json:"receivedAt"`
}

// Stats counts what the journal did with the events it was handed.
type Stats struct {
	Written    int `json:"written"`
	Duplicates int `json:"duplicates"`
	Rejected   int `json:"rejected"`
}

// Journal appends each distinct event to w as one JSON line.
type Journal struct {
	mu     sync.Mutex
	w      io.Writer
	enc    *json.Encoder
	seen   *cache.LRU[struct{}]
	logger *applog.Logger
	now    func() time.Time
	stats  Stats
}

// NewJournal writes to w. A nil logger uses the default logger.
func NewJournal(w io.Writer, logger *applog.Logger) *Journal {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &Journal{
		w:      w,
		enc:    json.NewEncoder(w),
		seen:   cache.NewLRU[struct{}](dedupeSize, dedupeWindow),
		logger: logger.WithComponent(applog.ComponentWorker),
		now:    time.Now,
	}
}

// Seen exposes the dedupe cache so it can be swept.
func (j *Journal) Seen() cache.Cleaner { return j.seen }

// Handle records msg. Malformed events are logged and dropped; only a
// failed write returns an error, so the broker redelivers it.
func (j *Journal) Handle(ctx context.Context, msg *amqp.ExpenseMaterializedMessage) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	entry, err := validate(msg)
	if err != nil {
		j.stats.Rejected++
		j.logger.WarnContext(ctx, "Dropping malformed event", applog.FieldError, err, applog.FieldExpenseID, msg.ExpenseID)
		return nil
	}
	if _, dup := j.seen.Get(entry.ExpenseID); dup {
		j.stats.Duplicates++
		j.logger.DebugContext(ctx, "Duplicate event ignored", applog.FieldExpenseID, entry.ExpenseID)
		return nil
	}

	entry.ReceivedAt = j.now().UTC()
	if err := j.enc.Encode(entry); err != nil {
		return fmt.Errorf("write journal entry: %w", err)
	}
	if s, ok := j.w.(interface{ Sync() error }); ok {
		if err := s.Sync(); err != nil {
			return fmt.Errorf("sync journal: %w", err)
		}
	}
	j.seen.Set(entry.ExpenseID, struct{}{})
	j.stats.Written++

	j.logger.InfoContext(ctx, "Event journaled",
		applog.FieldExpenseID, entry.ExpenseID,
		applog.FieldRecurringID, entry.RecurringID,
		applog.FieldAmount, entry.Amount.String(),
		applog.FieldCurrency, entry.Currency)
	return nil
}

// Stats returns a copy of the counters.
func (j *Journal) Stats() Stats {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.stats
}

func validate(msg *amqp.ExpenseMaterializedMessage) (Entry, error) {
	if msg.ExpenseID == "" {
		return Entry{}, fmt.Errorf("%w: missing expense id", core.ErrInvalidInput)
	}
	amount, err := decimal.NewFromString(msg.Amount)
	if err != nil || !amount.IsPositive() {
		return Entry{}, fmt.Errorf("%w: amount %q", core.ErrInvalidAmount, msg.Amount)
	}
	code, err := core.ParseCurrency(msg.Currency)
	if err != nil {
		return Entry{}, err
	}
	date, err := core.ParseDate(msg.Date)
	if err != nil {
		return Entry{}, fmt.Errorf("%w: %w", core.ErrInvalidInput, err)
	}
	return Entry{
		ExpenseID:   msg.ExpenseID,
		RecurringID: msg.RecurringID,
		Name:        msg.Name,
		Amount:      amount,
		Currency:    string(code),
		Date:        date.String(),
		PublishedAt: msg.Timestamp,
	}, nil
}
