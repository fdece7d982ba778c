package amqp

import (
	"encoding/json"
	"time"

	"fintrack/internal/core"
)

// ExpenseMaterializedMessage announces an expense created from a recurring
// template. Amounts travel as decimal strings so no precision is lost.
type ExpenseMaterializedMessage struct {
	ExpenseID   string    `json:"expenseId"`
	RecurringID string    `json:"recurringId"`
	Name        string    `json:"name"`
	Amount      string    `json:"amount"`
	Currency    string    `json:"currency"`
	Date        string    `json:"date"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewExpenseMaterializedMessage builds the message for e.
func NewExpenseMaterializedMessage(recurringID string, e core.Expense) *ExpenseMaterializedMessage {
	return &ExpenseMaterializedMessage{
		ExpenseID:   e.ID,
		RecurringID: recurringID,
		Name:        e.Name,
		Amount:      e.Money.Amount.String(),
		Currency:    string(e.Money.Currency),
		Date:        e.Date.String(),
		Timestamp:   time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ExpenseMaterializedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ExpenseMaterializedMessageFromJSON parses a message body.
func ExpenseMaterializedMessageFromJSON(data []byte) (*ExpenseMaterializedMessage, error) {
	var msg ExpenseMaterializedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
