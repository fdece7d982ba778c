// Package currency converts amounts between the known currencies using one
// static rate table.
package currency

import (
	"fmt"

	"fintrack/internal/core"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Rates are expressed per one unit of the INR base.
var defaultRates = map[core.CurrencyCode]decimal.Decimal{
	core.INR: decimal.NewFromInt(1),
	core.USD: decimal.RequireFromString("0.012"),
	core.EUR: decimal.RequireFromString("0.011"),
	core.GBP: decimal.RequireFromString("0.0093"),
}

// Converter holds an immutable rate table.
type Converter struct {
	rates map[core.CurrencyCode]decimal.Decimal
}

// NewConverter returns a converter over the canonical rate table.
func NewConverter() *Converter {
	return &Converter{rates: defaultRates}
}

// Rate returns the rate of code relative to the base unit.
func (c *Converter) Rate(code core.CurrencyCode) (decimal.Decimal, error) {
	r, ok := c.rates[code]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %q", core.ErrUnknownCurrency, string(code))
	}
	return r, nil
}

// Convert returns amount * rate(to) / rate(from).
func (c *Converter) Convert(amount decimal.Decimal, from, to core.CurrencyCode) (decimal.Decimal, error) {
	rf, err := c.Rate(from)
	if err != nil {
		return decimal.Zero, err
	}
	rt, err := c.Rate(to)
	if err != nil {
		return decimal.Zero, err
	}
	if from == to {
		return amount, nil
	}
	return amount.Mul(rt).Div(rf), nil
}

// Codes returns the convertible currency codes in a stable order.
func (c *Converter) Codes() []core.CurrencyCode {
	out := make([]core.CurrencyCode, 0, len(c.rates))
	for _, code := range core.KnownCurrencies() {
		if _, ok := c.rates[code]; ok {
			out = append(out, code)
		}
	}
	return out
}

// ConvertMoney converts m into the target currency.
func (c *Converter) ConvertMoney(m core.Money, to core.CurrencyCode) (core.Money, error) {
	amount, err := c.Convert(m.Amount, m.Currency, to)
	if err != nil {
		return core.Money{}, err
	}
	return core.Money{Amount: amount, Currency: to}, nil
}

// Format renders m the way the currency is usually written, e.g. "$5.00"
// or "₹1,200.50", rounding to the currency's minor unit.
func Format(m core.Money) string {
	cur := money.GetCurrency(string(m.Currency))
	if cur == nil {
		return m.String()
	}
	minor := m.Amount.Shift(int32(cur.Fraction)).Round(0).IntPart()
	return money.New(minor, cur.Code).Display()
}
