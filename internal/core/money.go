// Package core provides the value types of the tracker and their validation.
//
// This file contains the Money type, the known currency codes and the
// parsing of user-entered amounts.
package core

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	USD CurrencyCode = "USD"
	EUR CurrencyCode = "EUR"
	GBP CurrencyCode = "GBP"
	INR CurrencyCode = "INR"
)

// DefaultCurrency is used when no preference has been saved.
const DefaultCurrency = INR

// CurrencyCode is an ISO-4217 code from the known set.
type CurrencyCode string

var knownCurrencies = map[CurrencyCode]struct{}{
	USD: {}, EUR: {}, GBP: {}, INR: {},
}

// KnownCurrencies returns the supported codes in a stable order.
func KnownCurrencies() []CurrencyCode {
	return []CurrencyCode{EUR, GBP, INR, USD}
}

// ParseCurrency normalizes s and checks it against the known set.
func ParseCurrency(s string) (CurrencyCode, error) {
	c := CurrencyCode(strings.ToUpper(strings.TrimSpace(s)))
	if err := c.Validate(); err != nil {
		return "", err
	}
	return c, nil
}

// Validate reports ErrUnknownCurrency for codes outside the known set.
func (c CurrencyCode) Validate() error {
	if _, ok := knownCurrencies[c]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownCurrency, string(c))
	}
	return nil
}

func (c CurrencyCode) String() string { return string(c) }

// Money is an exact decimal amount in a currency.
type Money struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency CurrencyCode    `json:"currency"`
}

// NewMoney builds Money from a decimal amount.
func NewMoney(amount decimal.Decimal, currency CurrencyCode) Money {
	return Money{Amount: amount, Currency: currency}
}

// MoneyFromFloat builds Money from a float, rejecting NaN and infinities.
func MoneyFromFloat(amount float64, currency CurrencyCode) (Money, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return Money{}, fmt.Errorf("%w: amount is not a finite number", ErrInvalidInput)
	}
	return Money{Amount: decimal.NewFromFloat(amount), Currency: currency}, nil
}

// Zero returns a zero amount in currency.
func Zero(currency CurrencyCode) Money {
	return Money{Amount: decimal.Zero, Currency: currency}
}

func (m Money) IsZero() bool     { return m.Amount.IsZero() }
func (m Money) IsPositive() bool { return m.Amount.IsPositive() }

// Validate checks that the currency is known and the amount is positive.
func (m Money) Validate() error {
	if err := m.Currency.Validate(); err != nil {
		return err
	}
	if !m.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}

// String renders the amount with two decimals and the currency code.
func (m Money) String() string {
	return m.Amount.StringFixed(2) + " " + string(m.Currency)
}

// ParseAmount converts a user-entered decimal string into a positive amount.
//
// Both dot (12.34) and comma (12,34) decimal separators are accepted. Signs,
// exponents, empty input and non-positive values are rejected with
// ErrInvalidAmount.
//
// Examples:
//
//	ParseAmount("12.34") -> 12.34, nil
//	ParseAmount("12,34") -> 12.34, nil
//	ParseAmount("-1")    -> 0, ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.Count(s, ".") > 1 {
		return decimal.Zero, ErrInvalidAmount
	}
	for _, r := range s {
		if (r < '0' || r > '9') && r != '.' {
			return decimal.Zero, ErrInvalidAmount
		}
	}
	if strings.HasPrefix(s, ".") {
		s = "0" + s
	}
	d, err := decimal.NewFromString(strings.TrimSuffix(s, "."))
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if !d.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}
