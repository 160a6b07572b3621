package assistant

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/spendlens/backend/internal/llm"
	"github.com/spendlens/backend/internal/model"
	"github.com/spendlens/backend/internal/store"
)

var queryNow = time.Date(2025, time.April, 15, 10, 0, 0, 0, time.UTC)

func seedExpense(t *testing.T, st store.Store, amount int64, category model.Category, date time.Time, title string) {
	t.Helper()
	e, err := model.NewExpense("user-1", decimal.NewFromInt(amount), category, date, title)
	require.NoError(t, err)
	require.NoError(t, st.CreateExpense(context.Background(), e))
}

func TestAnswerUnfilteredWithBreakdown(t *testing.T) {
	st := store.NewMemoryStore()
	seedExpense(t, st, 100, model.CategoryFoodAndDining, queryNow, "Lunch")
	seedExpense(t, st, 300, model.CategoryFoodAndDining, queryNow.AddDate(0, 0, -1), "Dinner")
	seedExpense(t, st, 50, model.CategoryTravel, queryNow.AddDate(0, 0, -2), "Cab")

	gw := newScriptedGateway(t, scriptedReply{text: `{"category": null, "time_period": "this month"}`})
	q := NewQueryInterpreter(gw, NewCategoryNormalizer(gw, testLogger()), st, testLogger())

	answer, err := q.Answer(context.Background(), "user-1", "what did I spend this month", queryNow)
	require.NoError(t, err)
	assert.Equal(t,
		"You spent ₹450 this month across 3 transactions. Top categories: Food & Dining (₹400), Travel (₹50).",
		answer)
}

func TestAnswerCategoryFilteredNoBreakdown(t *testing.T) {
	st := store.NewMemoryStore()
	seedExpense(t, st, 100, model.CategoryFoodAndDining, queryNow, "Lunch")
	seedExpense(t, st, 50, model.CategoryTravel, queryNow.AddDate(0, 0, -2), "Cab")

	gw := newScriptedGateway(t,
		scriptedReply{text: `{"category": "travel", "time_period": "this month"}`},
		scriptedReply{text: `{"category": "Travel"}`},
	)
	q := NewQueryInterpreter(gw, NewCategoryNormalizer(gw, testLogger()), st, testLogger())

	answer, err := q.Answer(context.Background(), "user-1", "how much on travel this month", queryNow)
	require.NoError(t, err)
	assert.Equal(t, "You spent ₹50 on Travel this month across 1 transaction.", answer)
}

func TestAnswerNoExpenses(t *testing.T) {
	st := store.NewMemoryStore()
	gw := newScriptedGateway(t, scriptedReply{text: `{"category": null, "time_period": "yesterday"}`})
	q := NewQueryInterpreter(gw, NewCategoryNormalizer(gw, testLogger()), st, testLogger())

	answer, err := q.Answer(context.Background(), "user-1", "what did I spend yesterday", queryNow)
	require.NoError(t, err)
	assert.Equal(t, "No expenses found yesterday.", answer)
}

func TestAnswerNoCategoryExpenses(t *testing.T) {
	st := store.NewMemoryStore()
	seedExpense(t, st, 100, model.CategoryFoodAndDining, queryNow, "Lunch")

	gw := newScriptedGateway(t,
		scriptedReply{text: `{"category": "travel", "time_period": "this month"}`},
		scriptedReply{text: `{"category": "Travel"}`},
	)
	q := NewQueryInterpreter(gw, NewCategoryNormalizer(gw, testLogger()), st, testLogger())

	answer, err := q.Answer(context.Background(), "user-1", "travel spend this month?", queryNow)
	require.NoError(t, err)
	assert.Equal(t, "No Travel expenses found this month.", answer)
}

func TestAnswerForMonth(t *testing.T) {
	st := store.NewMemoryStore()
	seedExpense(t, st, 1200, model.CategoryHomeRent, time.Date(2025, time.March, 3, 0, 0, 0, 0, time.UTC), "Rent")

	gw := newScriptedGateway(t) // fast path makes no completion calls
	q := NewQueryInterpreter(gw, NewCategoryNormalizer(gw, testLogger()), st, testLogger())

	answer, err := q.AnswerForMonth(context.Background(), "user-1", time.March, queryNow)
	require.NoError(t, err)
	assert.Equal(t, "You spent ₹1,200 in March across 1 transaction.", answer)
	assert.Empty(t, gw.calls)
}

func TestAnswerFallsBackToKeywordScan(t *testing.T) {
	st := store.NewMemoryStore()
	seedExpense(t, st, 50, model.CategoryTravel, time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC), "Cab")

	gw := newScriptedGateway(t, scriptedReply{err: &llm.GatewayError{Code: llm.ErrUnavailable, Retryable: true}})
	q := NewQueryInterpreter(gw, NewCategoryNormalizer(gw, testLogger()), st, testLogger())

	// "travel" and "last month" are both recoverable without the model.
	// The scanned category is already canonical, so no normalization call.
	answer, err := q.Answer(context.Background(), "user-1", "how much did I spend on travel last month?", queryNow)
	require.NoError(t, err)
	assert.Equal(t, "You spent ₹50 on Travel last month across 1 transaction.", answer)
}

func TestScanKeywords(t *testing.T) {
	tests := []struct {
		question string
		category string
		period   string
	}{
		{"how much on travel last month", "Travel", "last month"},
		{"groceries spend today", "Groceries", "today"},
		{"what did I spend this week", "", "this week"},
		{"spending in march", "", "march"},
		{"how much yesterday", "", "yesterday"},
		// Fuzzy rescue of a close typo.
		{"how much on trvel this month", "Travel", "this month"},
		{"overall spending", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.question, func(t *testing.T) {
			params := scanKeywords(tt.question)
			assert.Equal(t, tt.category, params.Category)
			assert.Equal(t, tt.period, params.TimePeriod)
		})
	}
}

func TestAnswerStoreErrorPropagates(t *testing.T) {
	ctrl := gomock.NewController(t)
	st := store.NewMockStore(ctrl)
	st.EXPECT().QueryExpenses(gomock.Any(), gomock.Any()).Return(nil, assert.AnError)

	gw := newScriptedGateway(t, scriptedReply{text: `{"category": null, "time_period": "today"}`})
	q := NewQueryInterpreter(gw, NewCategoryNormalizer(gw, testLogger()), st, testLogger())

	_, err := q.Answer(context.Background(), "user-1", "what did I spend today", queryNow)
	assert.Error(t, err)
}

func TestFormatINR(t *testing.T) {
	tests := []struct {
		amount string
		want   string
	}{
		{"450", "₹450"},
		{"450.50", "₹450.50"},
		{"1200", "₹1,200"},
		{"0", "₹0"},
		{"99999.99", "₹99,999.99"},
	}
	for _, tt := range tests {
		d, err := decimal.NewFromString(tt.amount)
		require.NoError(t, err)
		assert.Equal(t, tt.want, FormatINR(d), "amount %s", tt.amount)
	}
}

func TestPeriodPhrase(t *testing.T) {
	assert.Equal(t, "this week", periodPhrase("current week"))
	assert.Equal(t, "last month", periodPhrase("previous month"))
	assert.Equal(t, "in March", periodPhrase("march"))
	assert.Equal(t, "in the last 30 days", periodPhrase("whenever"))
	assert.Equal(t, "in the last 30 days", periodPhrase(""))
}
