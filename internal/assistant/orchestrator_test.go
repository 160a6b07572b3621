package assistant

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/spendlens/backend/internal/llm"
	"github.com/spendlens/backend/internal/model"
	"github.com/spendlens/backend/internal/store"
)

var turnNow = time.Date(2025, time.April, 15, 10, 0, 0, 0, time.UTC)

func newOrchestrator(gw llm.Gateway, st store.Store) *Orchestrator {
	logger := testLogger()
	normalizer := NewCategoryNormalizer(gw, logger)
	o := NewOrchestrator(
		NewIntentClassifier(gw, logger),
		NewExpenseExtractor(gw, normalizer, logger),
		NewQueryInterpreter(gw, normalizer, st, logger),
		gw,
		st,
		NewContextStore(),
		logger,
	)
	o.now = func() time.Time { return turnNow }
	return o
}

func TestHandleTurnAddExpense(t *testing.T) {
	st := store.NewMemoryStore()
	gw := newScriptedGateway(t,
		scriptedReply{text: `{"intent": "add_expense"}`},
		scriptedReply{text: `{"amount": 200, "category": "groceries", "date": "2025-04-15", "title": "groceries"}`},
		scriptedReply{text: `{"category": "Groceries"}`},
	)
	o := newOrchestrator(gw, st)

	reply, err := o.HandleTurn(context.Background(), "user-1", "I spent 200 on groceries today")
	require.NoError(t, err)
	assert.Equal(t, `Got it! Added ₹200 for "Groceries" under Groceries on 2025-04-15.`, reply)

	stored, err := st.QueryExpenses(context.Background(), store.Query{
		UserID: "user-1",
		From:   turnNow.AddDate(0, 0, -1),
		To:     turnNow,
	})
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, model.CategoryGroceries, stored[0].Category)
}

func TestHandleTurnAddExpenseValidation(t *testing.T) {
	gw := newScriptedGateway(t,
		scriptedReply{text: `{"intent": "add_expense"}`},
		scriptedReply{text: `{"error": "no amount mentioned"}`},
	)
	o := newOrchestrator(gw, store.NewMemoryStore())

	_, err := o.HandleTurn(context.Background(), "user-1", "bought some stuff")
	require.Error(t, err)

	var verr *model.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "no amount mentioned", verr.Message)
}

func TestHandleTurnQuery(t *testing.T) {
	st := store.NewMemoryStore()
	gw := newScriptedGateway(t,
		scriptedReply{text: `{"intent": "query"}`},
		scriptedReply{text: `{"category": null, "time_period": "this month"}`},
	)
	o := newOrchestrator(gw, st)

	reply, err := o.HandleTurn(context.Background(), "user-1", "what did I spend this month")
	require.NoError(t, err)
	assert.Equal(t, "No expenses found this month.", reply)

	conv := o.Contexts().Get("user-1")
	assert.Equal(t, model.IntentQuery, conv.LastIntent)
	assert.Equal(t, "what did I spend this month", conv.LastQuery)
}

func TestHandleTurnMonthFastPath(t *testing.T) {
	st := store.NewMemoryStore()
	seedExpense(t, st, 500, model.CategoryShopping, time.Date(2025, time.March, 5, 0, 0, 0, 0, time.UTC), "Shoes")

	// No completion calls at all: the month mention skips classification
	// and the month query needs no parameter extraction.
	gw := newScriptedGateway(t)
	o := newOrchestrator(gw, st)

	reply, err := o.HandleTurn(context.Background(), "user-1", "how much did I spend in March?")
	require.NoError(t, err)
	assert.Equal(t, "You spent ₹500 in March across 1 transaction.", reply)
	assert.Empty(t, gw.calls)
}

func TestHandleTurnBareMonthFollowUp(t *testing.T) {
	st := store.NewMemoryStore()
	seedExpense(t, st, 800, model.CategoryTravel, time.Date(2025, time.February, 10, 0, 0, 0, 0, time.UTC), "Train")

	gw := newScriptedGateway(t,
		// Turn 1: a normal query.
		scriptedReply{text: `{"intent": "query"}`},
		scriptedReply{text: `{"category": null, "time_period": "this month"}`},
		// Turn 2: "feb" classifies as chitchat, but the follow-up path
		// reroutes it to a February query.
		scriptedReply{text: `{"intent": "chitchat"}`},
	)
	o := newOrchestrator(gw, st)

	_, err := o.HandleTurn(context.Background(), "user-1", "what did I spend this month")
	require.NoError(t, err)

	reply, err := o.HandleTurn(context.Background(), "user-1", "feb")
	require.NoError(t, err)
	assert.Equal(t, "You spent ₹800 in February across 1 transaction.", reply)

	// The follow-up keeps the conversation in query mode.
	assert.Equal(t, model.IntentQuery, o.Contexts().Get("user-1").LastIntent)
}

func TestHandleTurnBareMonthWithoutPriorQuery(t *testing.T) {
	gw := newScriptedGateway(t,
		scriptedReply{text: `{"intent": "chitchat"}`},
		scriptedReply{text: "Hi! Want to log an expense?"},
	)
	o := newOrchestrator(gw, store.NewMemoryStore())

	// No prior query turn, so a bare abbreviation is ordinary chitchat.
	reply, err := o.HandleTurn(context.Background(), "user-1", "feb")
	require.NoError(t, err)
	assert.Equal(t, "Hi! Want to log an expense?", reply)
}

func TestHandleTurnChitchatFallback(t *testing.T) {
	gw := newScriptedGateway(t,
		scriptedReply{text: `{"intent": "chitchat"}`},
		scriptedReply{err: &llm.GatewayError{Code: llm.ErrUnavailable, Retryable: true}},
	)
	o := newOrchestrator(gw, store.NewMemoryStore())

	reply, err := o.HandleTurn(context.Background(), "user-1", "hello there")
	require.NoError(t, err)
	assert.Equal(t, chitchatFallback, reply)
}

func TestHandleTurnClassifierFailureStillReplies(t *testing.T) {
	gw := newScriptedGateway(t,
		scriptedReply{err: &llm.GatewayError{Code: llm.ErrRateLimited, Retryable: true}},
		scriptedReply{text: "Hello! How can I help?"},
	)
	o := newOrchestrator(gw, store.NewMemoryStore())

	reply, err := o.HandleTurn(context.Background(), "user-1", "hey")
	require.NoError(t, err)
	assert.Equal(t, "Hello! How can I help?", reply)
}

func TestHandleTurnStoreFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	st := store.NewMockStore(ctrl)
	st.EXPECT().CreateExpense(gomock.Any(), gomock.Any()).Return(assert.AnError)

	gw := newScriptedGateway(t,
		scriptedReply{text: `{"intent": "add_expense"}`},
		scriptedReply{text: `{"amount": 50, "category": "Travel", "date": "2025-04-15", "title": "Cab"}`},
	)
	o := newOrchestrator(gw, st)

	_, err := o.HandleTurn(context.Background(), "user-1", "spent 50 on a cab")
	require.Error(t, err)

	var ierr *InternalError
	require.True(t, errors.As(err, &ierr))
	assert.Equal(t, apologyMessage, ierr.Error())
}

func TestHandleTurnRecoversPanic(t *testing.T) {
	gw := gatewayFunc(func(ctx context.Context, messages []llm.Message, structured bool) (string, error) {
		panic("completion exploded")
	})
	o := newOrchestrator(gw, store.NewMemoryStore())

	_, err := o.HandleTurn(context.Background(), "user-1", "hello")
	require.Error(t, err)

	var ierr *InternalError
	require.True(t, errors.As(err, &ierr))
	assert.Equal(t, apologyMessage, ierr.Error())
}

func TestMonthMention(t *testing.T) {
	tests := []struct {
		message string
		month   time.Month
		ok      bool
	}{
		{"how much did I spend in March?", time.March, true},
		{"expenses for january", time.January, true},
		{"spent 200 on groceries", 0, false},
		// Abbreviations never trigger the fast path.
		{"expenses for mar", 0, false},
		// Month name inside a larger word does not count.
		{"my junebug collection", 0, false},
	}
	for _, tt := range tests {
		m, ok := monthMention(tt.message)
		assert.Equal(t, tt.ok, ok, tt.message)
		if tt.ok {
			assert.Equal(t, tt.month, m, tt.message)
		}
	}
}
