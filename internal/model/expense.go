// Package model holds the core domain types shared by the assistant
// pipeline, the analytics layer and the persistence store.
package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DateLayout is the calendar-date wire format used throughout the API.
const DateLayout = "2006-01-02"

// Expense is a single stored expense record. Amount is always non-negative
// and rounded to two decimal places before the record reaches the store.
type Expense struct {
	ID        string
	UserID    string
	Amount    decimal.Decimal
	Category  Category
	Date      time.Time // calendar date, midnight local time
	Title     string
	CreatedAt time.Time
}

// NewExpense builds a validated expense record. The amount is rounded to
// 2dp here so every write path (manual entry, receipt confirmation,
// assistant) stores the same precision.
func NewExpense(userID string, amount decimal.Decimal, category Category, date time.Time, title string) (*Expense, error) {
	if userID == "" {
		return nil, &ValidationError{Field: "userId", Message: "user id is required"}
	}
	amount = amount.Round(2)
	if amount.IsNegative() {
		return nil, &ValidationError{Field: "amount", Message: "amount must be non-negative"}
	}
	if _, ok := ParseCategory(string(category)); !ok {
		return nil, &ValidationError{Field: "category", Message: fmt.Sprintf("unknown category %q", category)}
	}
	if title == "" {
		return nil, &ValidationError{Field: "title", Message: "title is required"}
	}
	return &Expense{
		ID:        uuid.New().String(),
		UserID:    userID,
		Amount:    amount,
		Category:  category,
		Date:      Midnight(date),
		Title:     title,
		CreatedAt: time.Now(),
	}, nil
}

// Midnight truncates t to the start of its calendar day.
func Midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// DateString renders the expense date in the API's calendar-date format.
func (e *Expense) DateString() string {
	return e.Date.Format(DateLayout)
}

// Intent is the classified purpose of a conversational turn.
type Intent string

const (
	IntentAddExpense Intent = "add_expense"
	IntentQuery      Intent = "query"
	IntentChitchat   Intent = "chitchat"
)

// ParseIntent maps a raw string onto the closed intent set.
func ParseIntent(s string) (Intent, bool) {
	switch Intent(s) {
	case IntentAddExpense, IntentQuery, IntentChitchat:
		return Intent(s), true
	}
	return "", false
}

// ValidationError signals client-correctable input problems. Handlers map it
// to a 400-class response; it is never retried.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}
