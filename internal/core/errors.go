package core

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by every component. Callers match with errors.Is.
var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrNotFound        = errors.New("not found")
	ErrUnknownCurrency = errors.New("unknown currency")
	ErrDivisionByZero  = errors.New("division by zero")
	ErrInvalidSnapshot = errors.New("invalid snapshot")
)

// Specialized input errors. Each one wraps ErrInvalidInput.
var (
	ErrInvalidExpense   = fmt.Errorf("%w: expense", ErrInvalidInput)
	ErrInvalidIncome    = fmt.Errorf("%w: income", ErrInvalidInput)
	ErrInvalidRecurring = fmt.Errorf("%w: recurring expense", ErrInvalidInput)
	ErrInvalidGoal      = fmt.Errorf("%w: savings goal", ErrInvalidInput)
	ErrInvalidAmount    = fmt.Errorf("%w: amount must be positive", ErrInvalidInput)

	ErrEmptyName        = errors.New("empty name")
	ErrNameTooLong      = errors.New("name too long (max 200 characters)")
	ErrEmptyCategory    = errors.New("empty category")
	ErrInvalidDate      = errors.New("date cannot be zero")
	ErrInvalidFrequency = errors.New("invalid frequency")
	ErrTagDelimiter     = errors.New("tag contains the ';' delimiter")
)
