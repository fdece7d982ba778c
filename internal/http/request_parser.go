// This file implements request decoding: JSON bodies with amounts given as
// strings or numbers, optional dates, and expense filters from the query.

package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
)

// maxBodyBytes bounds every request body; snapshots are the largest.
const maxBodyBytes = 8 << 20

// amountField accepts "12.50", "12,50" or 12.5 and keeps the text form so
// it can be parsed exactly.
type amountField string

func (a *amountField) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = amountField(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("amount must be a number or a string")
	}
	*a = amountField(n.String())
	return nil
}

type moneyInput struct {
	Amount   amountField `json:"amount"`
	Currency string      `json:"currency"`
}

type expenseRequest struct {
	Name     string   `json:"name"`
	Category string   `json:"category"`
	Tags     []string `json:"tags"`
	Date     string   `json:"date"`
	moneyInput
}

type incomeRequest struct {
	Source string `json:"source"`
	Date   string `json:"date"`
	moneyInput
}

type recurringRequest struct {
	Name      string `json:"name"`
	Category  string `json:"category"`
	Frequency string `json:"frequency"`
	moneyInput
}

type goalRequest struct {
	Name     string      `json:"name"`
	Target   amountField `json:"target"`
	Current  amountField `json:"current"`
	Currency string      `json:"currency"`
	Deadline string      `json:"deadline"`
}

type categoryRequest struct {
	Name string `json:"name"`
}

type currencyRequest struct {
	Currency string `json:"currency"`
}

type applyRequest struct {
	Date string `json:"date"`
}

// decodeJSON reads one JSON object into dst. Unknown fields and trailing
// data are rejected. An empty body is allowed when optional is true.
func decodeJSON(r *http.Request, dst any, optional bool) error {
	body, err := io.ReadAll(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("%w: reading body: %v", errBadRequest, err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		if optional {
			return nil
		}
		return fmt.Errorf("%w: empty body", errBadRequest)
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data after JSON object", errBadRequest)
	}
	return nil
}

// readBody returns the raw body, bounded like decodeJSON.
func readBody(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %v", errBadRequest, err)
	}
	return body, nil
}

// optionalDate parses s, returning the zero date for an empty string.
func optionalDate(s string) (core.Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return core.Date{}, nil
	}
	d, err := core.ParseDate(s)
	if err != nil {
		return core.Date{}, fmt.Errorf("%w: %w", core.ErrInvalidInput, err)
	}
	return d, nil
}

// ParseFilter reads category, tag, from and to from the query string.
func ParseFilter(query url.Values) (ledger.Filter, error) {
	f := ledger.Filter{
		Category: sanitizeInput(query.Get("category")),
		Tag:      sanitizeInput(query.Get("tag")),
	}
	var err error
	if f.From, err = optionalDate(query.Get("from")); err != nil {
		return ledger.Filter{}, err
	}
	if f.To, err = optionalDate(query.Get("to")); err != nil {
		return ledger.Filter{}, err
	}
	return f, nil
}

// sanitizeInput removes control characters except tab, newline and
// carriage return, and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

func sanitizeAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, sanitizeInput(s))
	}
	return out
}
