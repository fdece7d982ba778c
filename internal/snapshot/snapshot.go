// Package snapshot encodes the full tracker state as JSON and decodes it back,
// accepting partially-present and older snapshots.
package snapshot

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"fintrack/internal/core"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Version is written into every encoded snapshot.
const Version = 1

// Snapshot is the persisted state of one tracker.
type Snapshot struct {
	Version           int                     `json:"version"`
	Expenses          []core.Expense          `json:"expenses"`
	Incomes           []core.Income           `json:"incomes"`
	RecurringExpenses []core.RecurringExpense `json:"recurringExpenses"`
	SavingsGoals      []core.SavingsGoal      `json:"savingsGoals"`
	Budget            core.Budget             `json:"budget"`
	Categories        []string                `json:"categories"`
	PreferredCurrency core.CurrencyCode       `json:"preferredCurrency"`
}

// Empty returns the state of a fresh tracker.
func Empty() Snapshot {
	return Snapshot{
		Version:           Version,
		Budget:            core.Budget{Money: core.Zero(core.DefaultCurrency)},
		Categories:        append([]string(nil), core.DefaultCategories...),
		PreferredCurrency: core.DefaultCurrency,
	}
}

// Encode renders s as indented JSON. Nil lists are written as [].
func Encode(s Snapshot) ([]byte, error) {
	s.Version = Version
	if s.Expenses == nil {
		s.Expenses = []core.Expense{}
	}
	if s.Incomes == nil {
		s.Incomes = []core.Income{}
	}
	if s.RecurringExpenses == nil {
		s.RecurringExpenses = []core.RecurringExpense{}
	}
	if s.SavingsGoals == nil {
		s.SavingsGoals = []core.SavingsGoal{}
	}
	if s.Categories == nil {
		s.Categories = []string{}
	}
	for i := range s.Expenses {
		if s.Expenses[i].Tags == nil {
			s.Expenses[i].Tags = []string{}
		}
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}

// Decode parses a snapshot. Missing keys take their defaults, records
// without ids get fresh ones, and the older layout is accepted:
// selectedCurrency instead of preferredCurrency, a bare number for the
// budget and flat amount/currency fields instead of a money object.
//
// Malformed JSON, a wrong shape or a record that cannot be repaired yields
// core.ErrInvalidSnapshot.
func Decode(data []byte) (Snapshot, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Snapshot{}, invalid(err)
	}
	if raw == nil {
		return Snapshot{}, invalid(fmt.Errorf("snapshot is not an object"))
	}

	s := Empty()
	if err := decodeCurrency(raw, &s); err != nil {
		return Snapshot{}, err
	}
	def := s.PreferredCurrency

	if v, ok := raw["categories"]; ok && !isNull(v) {
		var cats []string
		if err := json.Unmarshal(v, &cats); err != nil {
			return Snapshot{}, invalid(fmt.Errorf("categories: %w", err))
		}
		s.Categories = normalizeCategories(cats)
	}

	if v, ok := raw["budget"]; ok && !isNull(v) {
		var fm flexMoney
		if err := json.Unmarshal(v, &fm); err != nil {
			return Snapshot{}, invalid(fmt.Errorf("budget: %w", err))
		}
		m, err := fm.resolve("", def)
		if err != nil {
			return Snapshot{}, invalid(fmt.Errorf("budget: %w", err))
		}
		s.Budget = core.Budget{Money: m}
		if err := s.Budget.Validate(); err != nil {
			return Snapshot{}, invalid(fmt.Errorf("budget: %w", err))
		}
	} else {
		s.Budget = core.Budget{Money: core.Zero(def)}
	}

	var err error
	if s.Expenses, err = decodeList(raw["expenses"], "expenses", def, wireExpense.record); err != nil {
		return Snapshot{}, err
	}
	if s.Incomes, err = decodeList(raw["incomes"], "incomes", def, wireIncome.record); err != nil {
		return Snapshot{}, err
	}
	if s.RecurringExpenses, err = decodeList(raw["recurringExpenses"], "recurringExpenses", def, wireRecurring.record); err != nil {
		return Snapshot{}, err
	}
	if s.SavingsGoals, err = decodeList(raw["savingsGoals"], "savingsGoals", def, wireGoal.record); err != nil {
		return Snapshot{}, err
	}
	return s, nil
}

func invalid(err error) error {
	return fmt.Errorf("%w: %w", core.ErrInvalidSnapshot, err)
}

func isNull(v json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}

func decodeCurrency(raw map[string]json.RawMessage, s *Snapshot) error {
	for _, key := range []string{"preferredCurrency", "selectedCurrency"} {
		v, ok := raw[key]
		if !ok || isNull(v) {
			continue
		}
		var code string
		if err := json.Unmarshal(v, &code); err != nil {
			return invalid(fmt.Errorf("%s: %w", key, err))
		}
		if strings.TrimSpace(code) == "" {
			continue
		}
		c, err := core.ParseCurrency(code)
		if err != nil {
			return invalid(fmt.Errorf("%s: %w", key, err))
		}
		s.PreferredCurrency = c
		return nil
	}
	return nil
}

func normalizeCategories(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, c := range in {
		c = core.NormalizeCategory(c)
		if c == "" {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

func decodeList[W any, R any](v json.RawMessage, key string, def core.CurrencyCode, convert func(W, core.CurrencyCode) (R, error)) ([]R, error) {
	if v == nil || isNull(v) {
		return nil, nil
	}
	var wire []W
	if err := json.Unmarshal(v, &wire); err != nil {
		return nil, invalid(fmt.Errorf("%s: %w", key, err))
	}
	out := make([]R, 0, len(wire))
	for i, w := range wire {
		r, err := convert(w, def)
		if err != nil {
			return nil, invalid(fmt.Errorf("%s[%d]: %w", key, i, err))
		}
		out = append(out, r)
	}
	return out, nil
}

func idOrNew(id string) string {
	if id = strings.TrimSpace(id); id != "" {
		return id
	}
	return uuid.NewString()
}

// flexMoney accepts a bare number, a quoted number, {amount, currency} or
// {money: {amount, currency}}.
type flexMoney struct {
	set      bool
	amount   decimal.Decimal
	currency string
}

func (f *flexMoney) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '{' {
		var obj struct {
			Amount   *flexMoney `json:"amount"`
			Currency string     `json:"currency"`
			Money    *flexMoney `json:"money"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		if obj.Money != nil && obj.Money.set {
			*f = *obj.Money
			return nil
		}
		if obj.Amount != nil && obj.Amount.set {
			f.amount = obj.Amount.amount
		}
		f.currency = obj.Currency
		f.set = true
		return nil
	}
	if err := f.amount.UnmarshalJSON(data); err != nil {
		return err
	}
	f.set = true
	return nil
}

func (f flexMoney) resolve(flatCurrency string, def core.CurrencyCode) (core.Money, error) {
	code := f.currency
	if code == "" {
		code = flatCurrency
	}
	c := def
	if strings.TrimSpace(code) != "" {
		var err error
		if c, err = core.ParseCurrency(code); err != nil {
			return core.Money{}, err
		}
	}
	return core.Money{Amount: f.amount, Currency: c}, nil
}

// recordMoney prefers the money object and falls back to flat fields.
func recordMoney(money, amount flexMoney, currency string, def core.CurrencyCode) (core.Money, error) {
	if money.set {
		return money.resolve(currency, def)
	}
	return amount.resolve(currency, def)
}

// tagList accepts a JSON array or a single string joined by the tag delimiter.
type tagList []string

func (t *tagList) UnmarshalJSON(data []byte) error {
	if isNull(data) {
		*t = nil
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*t = list
		return nil
	}
	var joined string
	if err := json.Unmarshal(data, &joined); err != nil {
		return fmt.Errorf("tags must be a list or a string: %w", err)
	}
	*t = strings.Split(joined, core.TagDelimiter)
	return nil
}

type wireExpense struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Category string    `json:"category"`
	Tags     tagList   `json:"tags"`
	Money    flexMoney `json:"money"`
	Amount   flexMoney `json:"amount"`
	Currency string    `json:"currency"`
	Date     core.Date `json:"date"`
}

func (w wireExpense) record(def core.CurrencyCode) (core.Expense, error) {
	m, err := recordMoney(w.Money, w.Amount, w.Currency, def)
	if err != nil {
		return core.Expense{}, err
	}
	e := core.Expense{
		ID:       idOrNew(w.ID),
		Name:     w.Name,
		Category: core.NormalizeCategory(w.Category),
		Tags:     core.NormalizeTags(w.Tags),
		Money:    m,
		Date:     w.Date,
	}
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	return e, nil
}

type wireIncome struct {
	ID       string    `json:"id"`
	Source   string    `json:"source"`
	Name     string    `json:"name"`
	Money    flexMoney `json:"money"`
	Amount   flexMoney `json:"amount"`
	Currency string    `json:"currency"`
	Date     core.Date `json:"date"`
}

func (w wireIncome) record(def core.CurrencyCode) (core.Income, error) {
	m, err := recordMoney(w.Money, w.Amount, w.Currency, def)
	if err != nil {
		return core.Income{}, err
	}
	source := w.Source
	if source == "" {
		source = w.Name
	}
	i := core.Income{ID: idOrNew(w.ID), Source: source, Money: m, Date: w.Date}
	if err := i.Validate(); err != nil {
		return core.Income{}, err
	}
	return i, nil
}

type wireRecurring struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Category    string    `json:"category"`
	Money       flexMoney `json:"money"`
	Amount      flexMoney `json:"amount"`
	Currency    string    `json:"currency"`
	Frequency   string    `json:"frequency"`
	LastApplied core.Date `json:"lastApplied"`
}

// Templates with an unrecognized frequency are kept; they are simply never due.
func (w wireRecurring) record(def core.CurrencyCode) (core.RecurringExpense, error) {
	m, err := recordMoney(w.Money, w.Amount, w.Currency, def)
	if err != nil {
		return core.RecurringExpense{}, err
	}
	if strings.TrimSpace(w.Name) == "" {
		return core.RecurringExpense{}, core.ErrEmptyName
	}
	if err := m.Validate(); err != nil {
		return core.RecurringExpense{}, err
	}
	return core.RecurringExpense{
		ID:          idOrNew(w.ID),
		Name:        w.Name,
		Category:    core.NormalizeCategory(w.Category),
		Money:       m,
		Frequency:   core.Frequency(strings.ToLower(strings.TrimSpace(w.Frequency))),
		LastApplied: w.LastApplied,
	}, nil
}

type wireGoal struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Target   flexMoney `json:"target"`
	Current  flexMoney `json:"current"`
	Currency string    `json:"currency"`
	Deadline core.Date `json:"deadline"`
}

func (w wireGoal) record(def core.CurrencyCode) (core.SavingsGoal, error) {
	target, err := w.Target.resolve(w.Currency, def)
	if err != nil {
		return core.SavingsGoal{}, err
	}
	current, err := w.Current.resolve(string(target.Currency), target.Currency)
	if err != nil {
		return core.SavingsGoal{}, err
	}
	g := core.SavingsGoal{
		ID:       idOrNew(w.ID),
		Name:     w.Name,
		Target:   target,
		Current:  current,
		Deadline: w.Deadline,
	}
	if err := g.Validate(); err != nil {
		return core.SavingsGoal{}, err
	}
	return g, nil
}
