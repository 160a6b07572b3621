package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spendlens/backend/internal/daterange"
	"github.com/spendlens/backend/internal/llm"
	"github.com/spendlens/backend/internal/model"
	"github.com/spendlens/backend/internal/store"
)

const chitchatSystemPrompt = `You are SpendLens, a friendly personal expense-tracking assistant. Keep replies short, warm and helpful. When it fits naturally, remind the user they can log an expense ("spent 250 on groceries") or ask about their spending ("how much did I spend this month?").`

const (
	// chitchatFallback is returned whenever the chitchat completion fails;
	// gateway errors never reach the end user.
	chitchatFallback = `I'm here to help you track your spending! Try telling me something like "spent 250 on groceries" or ask "how much did I spend this month?"`

	// apologyMessage is the stable user-facing sentence for unexpected
	// failures at the orchestrator boundary.
	apologyMessage = "Sorry, I'm having trouble understanding right now. Please try again."
)

// InternalError wraps an unexpected failure so the transport layer can emit
// the stable apology sentence with a 500-class status.
type InternalError struct {
	Cause error
}

func (e *InternalError) Error() string { return apologyMessage }
func (e *InternalError) Unwrap() error { return e.Cause }

// Orchestrator runs one conversational turn: month fast paths, context
// refresh, intent classification and dispatch to the extractor, the
// interpreter or the chitchat generator.
type Orchestrator struct {
	classifier  *IntentClassifier
	extractor   *ExpenseExtractor
	interpreter *QueryInterpreter
	gateway     llm.Gateway
	store       store.Store
	contexts    *ContextStore
	logger      *slog.Logger
	now         func() time.Time
}

// NewOrchestrator wires the pipeline together.
func NewOrchestrator(
	classifier *IntentClassifier,
	extractor *ExpenseExtractor,
	interpreter *QueryInterpreter,
	gateway llm.Gateway,
	st store.Store,
	contexts *ContextStore,
	logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		classifier:  classifier,
		extractor:   extractor,
		interpreter: interpreter,
		gateway:     gateway,
		store:       st,
		contexts:    contexts,
		logger:      logger,
		now:         time.Now,
	}
}

// Contexts exposes the context store for the periodic sweeper.
func (o *Orchestrator) Contexts() *ContextStore { return o.contexts }

// HandleTurn processes one user message and produces the response text.
// Validation problems return *model.ValidationError; everything unexpected
// is wrapped in *InternalError so no turn ever surfaces a raw failure.
func (o *Orchestrator) HandleTurn(ctx context.Context, userID, message string) (reply string, err error) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("panic during turn", "user", userID, "panic", r)
			reply, err = "", &InternalError{Cause: fmt.Errorf("panic: %v", r)}
		}
	}()

	now := o.now()

	// Fast path: a message mentioning a month name is a query for that
	// month, no classification needed.
	if month, ok := monthMention(message); ok {
		answer, err := o.interpreter.AnswerForMonth(ctx, userID, month, now)
		if err != nil {
			return o.internal(userID, err)
		}
		return answer, nil
	}

	conv := o.contexts.Get(userID)
	prevIntent := conv.LastIntent
	intent := o.classifier.Classify(ctx, message)
	conv.LastIntent = intent
	conv.UpdatedAt = now

	switch intent {
	case model.IntentAddExpense:
		o.contexts.Put(userID, conv)
		return o.addExpense(ctx, userID, message, now)

	case model.IntentQuery:
		conv.LastQuery = message
		o.contexts.Put(userID, conv)
		answer, err := o.interpreter.Answer(ctx, userID, message, now)
		if err != nil {
			return o.internal(userID, err)
		}
		return answer, nil

	default:
		// Narrow follow-up path: a bare month name or abbreviation right
		// after a query turn re-runs the query for that month.
		if prevIntent == model.IntentQuery {
			if month, ok := daterange.MonthByNameOrAbbrev(strings.TrimSpace(message)); ok {
				conv.LastIntent = model.IntentQuery
				o.contexts.Put(userID, conv)
				answer, err := o.interpreter.AnswerForMonth(ctx, userID, month, now)
				if err != nil {
					return o.internal(userID, err)
				}
				return answer, nil
			}
		}
		o.contexts.Put(userID, conv)
		return o.chitchat(ctx, message), nil
	}
}

func (o *Orchestrator) addExpense(ctx context.Context, userID, message string, now time.Time) (string, error) {
	extraction, err := o.extractor.Extract(ctx, message, now)
	if err != nil {
		return o.internal(userID, err)
	}
	if extraction.Err != "" {
		return "", &model.ValidationError{Field: "message", Message: extraction.Err}
	}

	expense, err := extraction.ToExpense(userID, now)
	if err != nil {
		return "", err
	}
	if err := o.store.CreateExpense(ctx, expense); err != nil {
		return o.internal(userID, fmt.Errorf("persist expense: %w", err))
	}

	return fmt.Sprintf("Got it! Added %s for %q under %s on %s.",
		FormatINR(expense.Amount), expense.Title, expense.Category, expense.DateString()), nil
}

func (o *Orchestrator) chitchat(ctx context.Context, message string) string {
	reply, err := o.gateway.Complete(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: chitchatSystemPrompt},
		{Role: llm.RoleUser, Content: message},
	}, false)
	if err != nil || strings.TrimSpace(reply) == "" {
		if err != nil {
			o.logger.Warn("chitchat completion failed, using fallback", "error", err)
		}
		return chitchatFallback
	}
	return strings.TrimSpace(reply)
}

// internal logs the cause with full context and converts it into the
// stable apology error.
func (o *Orchestrator) internal(userID string, err error) (string, error) {
	o.logger.Error("turn failed", "user", userID, "error", err)
	return "", &InternalError{Cause: err}
}

// monthMention reports the first full English month name appearing as a
// word in the message.
func monthMention(message string) (time.Month, bool) {
	for _, word := range strings.FieldsFunc(strings.ToLower(message), func(r rune) bool {
		return !((r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'))
	}) {
		if m, ok := daterange.MonthByName(word); ok {
			return m, true
		}
	}
	return 0, false
}
