package core

import (
	"fmt"
	"sort"
	"strings"
)

const (
	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
	Yearly  Frequency = "yearly"
)

// RecurringCategory marks expenses materialized from a recurring template.
const RecurringCategory = "recurring"

// TagDelimiter separates tags in flat exports, so tags may not contain it.
const TagDelimiter = ";"

const maxNameLength = 200

// DefaultCategories seeds a fresh ledger.
var DefaultCategories = []string{"food", "transport", "utilities", "entertainment", "other"}

type (
	Frequency string

	Expense struct {
		ID       string   `json:"id"`
		Name     string   `json:"name"`
		Category string   `json:"category"`
		Tags     []string `json:"tags"`
		Money    Money    `json:"money"`
		Date     Date     `json:"date"`
	}

	Income struct {
		ID     string `json:"id"`
		Source string `json:"source"`
		Money  Money  `json:"money"`
		Date   Date   `json:"date"`
	}

	RecurringExpense struct {
		ID          string    `json:"id"`
		Name        string    `json:"name"`
		Category    string    `json:"category"`
		Money       Money     `json:"money"`
		Frequency   Frequency `json:"frequency"`
		LastApplied Date      `json:"lastApplied"` // zero until first applied
	}

	Budget struct {
		Money Money `json:"money"`
	}

	SavingsGoal struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		Target   Money  `json:"target"`
		Current  Money  `json:"current"`
		Deadline Date   `json:"deadline"`
	}
)

// Valid reports whether f is one of the supported cadences.
func (f Frequency) Valid() bool {
	switch f {
	case Daily, Weekly, Monthly, Yearly:
		return true
	}
	return false
}

// NormalizeCategory lowercases and trims a category name.
func NormalizeCategory(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// NormalizeTags trims, deduplicates and sorts tags, dropping empty ones.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// HasTag reports whether the expense carries tag.
func (e Expense) HasTag(tag string) bool {
	for _, t := range e.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

func validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrEmptyName
	}
	if len(name) > maxNameLength {
		return ErrNameTooLong
	}
	return nil
}

// Validate checks the fields an expense needs regardless of ledger state.
// Category membership is checked by the ledger.
func (e Expense) Validate() error {
	if err := validateName(e.Name); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidExpense, err)
	}
	if strings.TrimSpace(e.Category) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidExpense, ErrEmptyCategory)
	}
	if err := e.Money.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidExpense, err)
	}
	if err := e.Date.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidExpense, err)
	}
	for _, t := range e.Tags {
		if strings.Contains(t, TagDelimiter) {
			return fmt.Errorf("%w: %w: %q", ErrInvalidExpense, ErrTagDelimiter, t)
		}
	}
	return nil
}

func (i Income) Validate() error {
	if err := validateName(i.Source); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidIncome, err)
	}
	if err := i.Money.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidIncome, err)
	}
	if err := i.Date.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidIncome, err)
	}
	return nil
}

func (re RecurringExpense) Validate() error {
	if err := validateName(re.Name); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRecurring, err)
	}
	if err := re.Money.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRecurring, err)
	}
	if !re.Frequency.Valid() {
		return fmt.Errorf("%w: %w: %q", ErrInvalidRecurring, ErrInvalidFrequency, string(re.Frequency))
	}
	return nil
}

func (g SavingsGoal) Validate() error {
	if err := validateName(g.Name); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidGoal, err)
	}
	if err := g.Target.Validate(); err != nil {
		return fmt.Errorf("%w: target: %w", ErrInvalidGoal, err)
	}
	if g.Current.Currency != g.Target.Currency {
		return fmt.Errorf("%w: current and target currencies differ", ErrInvalidGoal)
	}
	if g.Current.Amount.IsNegative() {
		return fmt.Errorf("%w: current amount is negative", ErrInvalidGoal)
	}
	return nil
}

// Validate allows a zero budget; percent-used is undefined for it and is
// reported as ErrDivisionByZero by the ledger.
func (b Budget) Validate() error {
	if err := b.Money.Currency.Validate(); err != nil {
		return err
	}
	if b.Money.Amount.IsNegative() {
		return fmt.Errorf("%w: budget cannot be negative", ErrInvalidInput)
	}
	return nil
}
