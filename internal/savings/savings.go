// Package savings tracks savings goals and deposits toward them.
package savings

import (
	"fmt"

	"fintrack/internal/core"
	"fintrack/internal/currency"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Tracker owns the savings goals. It is not safe for concurrent use.
type Tracker struct {
	conv  *currency.Converter
	goals []core.SavingsGoal
	newID func() string
}

// NewTracker returns a tracker with no goals.
func NewTracker(conv *currency.Converter) *Tracker {
	return &Tracker{conv: conv, newID: uuid.NewString}
}

// Load replaces every goal.
func (t *Tracker) Load(goals []core.SavingsGoal) {
	t.goals = append([]core.SavingsGoal(nil), goals...)
}

// Goals returns the goals in insertion order.
func (t *Tracker) Goals() []core.SavingsGoal {
	return append([]core.SavingsGoal(nil), t.goals...)
}

// AddGoal validates g and stores it. A zero current amount is set to zero in
// the target currency and a missing id is generated.
func (t *Tracker) AddGoal(g core.SavingsGoal) (core.SavingsGoal, error) {
	if g.Current.Currency == "" && g.Current.Amount.IsZero() {
		g.Current = core.Zero(g.Target.Currency)
	}
	if err := g.Validate(); err != nil {
		return core.SavingsGoal{}, err
	}
	if g.ID == "" {
		g.ID = t.newID()
	}
	if _, err := t.index(g.ID); err == nil {
		return core.SavingsGoal{}, fmt.Errorf("%w: duplicate id %q", core.ErrInvalidGoal, g.ID)
	}
	t.goals = append(t.goals, g)
	return g, nil
}

func (t *Tracker) index(id string) (int, error) {
	for i, g := range t.goals {
		if g.ID == id {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: savings goal %q", core.ErrNotFound, id)
}

// Deposit adds amount to the goal's current value. Deposits in another
// currency are converted into the goal currency now, so later rate changes
// never move past deposits.
func (t *Tracker) Deposit(id string, amount core.Money) (core.SavingsGoal, error) {
	if err := amount.Validate(); err != nil {
		return core.SavingsGoal{}, err
	}
	i, err := t.index(id)
	if err != nil {
		return core.SavingsGoal{}, err
	}
	g := &t.goals[i]
	converted, err := t.conv.Convert(amount.Amount, amount.Currency, g.Target.Currency)
	if err != nil {
		return core.SavingsGoal{}, err
	}
	g.Current = core.Money{Amount: g.Current.Amount.Add(converted), Currency: g.Target.Currency}
	return *g, nil
}

// RemoveGoal deletes the goal with the given id.
func (t *Tracker) RemoveGoal(id string) error {
	i, err := t.index(id)
	if err != nil {
		return err
	}
	t.goals = append(t.goals[:i:i], t.goals[i+1:]...)
	return nil
}

var hundred = decimal.NewFromInt(100)

// Progress returns current/target*100. It is not clamped, so an overfunded
// goal reports more than 100.
func Progress(g core.SavingsGoal) float64 {
	if !g.Target.Amount.IsPositive() {
		return 0
	}
	return g.Current.Amount.Div(g.Target.Amount).Mul(hundred).InexactFloat64()
}

// AverageProgress is the mean of every goal's progress, or 0 with no goals.
func (t *Tracker) AverageProgress() float64 {
	if len(t.goals) == 0 {
		return 0
	}
	var sum float64
	for _, g := range t.goals {
		sum += Progress(g)
	}
	return sum / float64(len(t.goals))
}

// View returns every goal with its progress.
func (t *Tracker) View() []core.GoalView {
	out := make([]core.GoalView, len(t.goals))
	for i, g := range t.goals {
		out[i] = core.GoalView{SavingsGoal: g, Progress: Progress(g)}
	}
	return out
}
