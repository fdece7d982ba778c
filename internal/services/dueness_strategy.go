// Package services provides the recurrence engine and the tracker that
// orchestrates every component behind one lock.
//
// This file implements the Strategy Pattern for recurring expense dueness checking.
// Each frequency has its own strategy that decides, from calendar dates only,
// whether a template is due again.

package services

import (
	"fmt"
	"sync"

	"fintrack/internal/core"
)

// DuenessChecker is the strategy interface for checking if a recurring expense is due.
type DuenessChecker interface {
	// IsDue reports whether a template last applied on lastApplied should be
	// materialized on today. lastApplied is never zero and never after today;
	// the engine handles those cases before calling a checker.
	IsDue(lastApplied, today core.Date) bool
}

// DailyChecker implements DuenessChecker for daily recurring expenses.
type DailyChecker struct{}

// IsDue returns true once at least one calendar day has elapsed.
func (DailyChecker) IsDue(lastApplied, today core.Date) bool {
	return today.DaysSince(lastApplied) >= 1
}

// WeeklyChecker implements DuenessChecker for weekly recurring expenses.
type WeeklyChecker struct{}

// IsDue returns true if 7 or more days have passed since the last application.
func (WeeklyChecker) IsDue(lastApplied, today core.Date) bool {
	return today.DaysSince(lastApplied) >= 7
}

// MonthlyChecker implements DuenessChecker for monthly recurring expenses.
type MonthlyChecker struct{}

// IsDue returns true as soon as the calendar month changes, so Jan 31 is
// followed by Feb 1.
func (MonthlyChecker) IsDue(lastApplied, today core.Date) bool {
	return lastApplied.Month() != today.Month() || lastApplied.Year() != today.Year()
}

// YearlyChecker implements DuenessChecker for yearly recurring expenses.
type YearlyChecker struct{}

// IsDue returns true as soon as the calendar year changes.
func (YearlyChecker) IsDue(lastApplied, today core.Date) bool {
	return lastApplied.Year() != today.Year()
}

var (
	strategiesMu sync.RWMutex
	// duenessStrategies maps frequencies to their corresponding checkers.
	duenessStrategies = map[core.Frequency]DuenessChecker{
		core.Daily:   DailyChecker{},
		core.Weekly:  WeeklyChecker{},
		core.Monthly: MonthlyChecker{},
		core.Yearly:  YearlyChecker{},
	}
)

// GetDuenessChecker returns the dueness checker for a frequency.
// Returns an error if the frequency is not supported.
func GetDuenessChecker(frequency core.Frequency) (DuenessChecker, error) {
	strategiesMu.RLock()
	defer strategiesMu.RUnlock()
	checker, ok := duenessStrategies[frequency]
	if !ok {
		return nil, fmt.Errorf("%w: %q", core.ErrInvalidFrequency, string(frequency))
	}
	return checker, nil
}

// RegisterDuenessChecker registers a checker for an additional frequency.
func RegisterDuenessChecker(frequency core.Frequency, checker DuenessChecker) {
	strategiesMu.Lock()
	defer strategiesMu.Unlock()
	duenessStrategies[frequency] = checker
}

// IsDue applies the shared rules before delegating to the frequency strategy:
// a never-applied template is due, a clock that moved backwards is not, and
// an unknown frequency is never due.
func IsDue(re core.RecurringExpense, today core.Date) bool {
	if re.LastApplied.IsZero() {
		return true
	}
	if today.Before(re.LastApplied) {
		return false
	}
	checker, err := GetDuenessChecker(re.Frequency)
	if err != nil {
		return false
	}
	return checker.IsDue(re.LastApplied, today)
}
