package assistant

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spendlens/backend/internal/llm"
	"github.com/spendlens/backend/internal/model"
)

var extractNow = time.Date(2025, time.April, 15, 10, 0, 0, 0, time.UTC)

func newExtractor(gw llm.Gateway) *ExpenseExtractor {
	return NewExpenseExtractor(gw, NewCategoryNormalizer(gw, testLogger()), testLogger())
}

func TestExtractSpentOnGroceries(t *testing.T) {
	gw := newScriptedGateway(t,
		scriptedReply{text: `{"amount": 200, "category": "groceries", "date": "2025-04-15", "title": "groceries"}`},
		scriptedReply{text: `{"category": "Groceries"}`},
	)
	e := newExtractor(gw)

	extraction, err := e.Extract(context.Background(), "I spent 200 on groceries today", extractNow)
	require.NoError(t, err)
	require.Empty(t, extraction.Err)

	require.NotNil(t, extraction.Amount)
	assert.Equal(t, 200.0, *extraction.Amount)
	assert.Equal(t, "Groceries", extraction.Category)
	assert.Equal(t, "2025-04-15", extraction.Date)
	// Titles are title-cased on the way out.
	assert.Equal(t, "Groceries", extraction.Title)

	expense, err := extraction.ToExpense("user-1", extractNow)
	require.NoError(t, err)
	assert.Equal(t, "user-1", expense.UserID)
	assert.True(t, expense.Amount.Equal(decimal.NewFromInt(200)))
	assert.Equal(t, model.CategoryGroceries, expense.Category)
	assert.Equal(t, "2025-04-15", expense.DateString())
}

func TestExtractModelRefusal(t *testing.T) {
	gw := newScriptedGateway(t, scriptedReply{text: `{"error": "not an expense"}`})
	e := newExtractor(gw)

	extraction, err := e.Extract(context.Background(), "what's the weather like", extractNow)
	require.NoError(t, err)
	assert.Equal(t, "not an expense", extraction.Err)
	// No normalization call happens on a refusal.
	assert.Len(t, gw.calls, 1)
}

func TestExtractGatewayFailure(t *testing.T) {
	gw := newScriptedGateway(t, scriptedReply{err: &llm.GatewayError{Code: llm.ErrUnavailable, Retryable: true}})
	e := newExtractor(gw)

	_, err := e.Extract(context.Background(), "spent 50 on coffee", extractNow)
	require.Error(t, err)

	var gwErr *llm.GatewayError
	assert.True(t, errors.As(err, &gwErr))
}

func TestExtractUnparseableReply(t *testing.T) {
	gw := newScriptedGateway(t, scriptedReply{text: "sure, logged it!"})
	e := newExtractor(gw)

	_, err := e.Extract(context.Background(), "spent 50 on coffee", extractNow)
	require.Error(t, err)

	var perr *llm.ParseError
	assert.True(t, errors.As(err, &perr))
}

func TestToExpenseValidation(t *testing.T) {
	amount := func(f float64) *float64 { return &f }

	tests := []struct {
		name       string
		extraction Extraction
		field      string
	}{
		{"missing amount", Extraction{Category: "Travel", Title: "Cab"}, "amount"},
		{"zero amount", Extraction{Amount: amount(0), Category: "Travel", Title: "Cab"}, "amount"},
		{"negative amount", Extraction{Amount: amount(-10), Category: "Travel", Title: "Cab"}, "amount"},
		{"missing title", Extraction{Amount: amount(10), Category: "Travel"}, "title"},
		{"bad category", Extraction{Amount: amount(10), Category: "travel", Title: "Cab"}, "category"},
		{"bad date", Extraction{Amount: amount(10), Category: "Travel", Title: "Cab", Date: "15/04/2025"}, "date"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.extraction.ToExpense("user-1", extractNow)
			require.Error(t, err)

			var verr *model.ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestToExpenseDefaultsDateToToday(t *testing.T) {
	amount := 75.0
	extraction := Extraction{Amount: &amount, Category: "Travel", Title: "Cab"}
	expense, err := extraction.ToExpense("user-1", extractNow)
	require.NoError(t, err)
	assert.Equal(t, "2025-04-15", expense.DateString())
}

func TestToExpenseRoundsToTwoDecimals(t *testing.T) {
	amount := 99.999
	extraction := Extraction{Amount: &amount, Category: "Travel", Title: "Cab"}
	expense, err := extraction.ToExpense("user-1", extractNow)
	require.NoError(t, err)
	assert.Equal(t, "100", expense.Amount.String())
}
