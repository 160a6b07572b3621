// Package assistant implements the conversational expense pipeline: intent
// classification, expense extraction, query interpretation, category
// normalization and the per-user orchestrator that ties them together.
package assistant

import (
	"context"
	"log/slog"
	"strings"

	"github.com/spendlens/backend/internal/llm"
	"github.com/spendlens/backend/internal/model"
)

const intentSystemPrompt = `You classify a message sent to a personal expense-tracking assistant into exactly one intent.

Intents:
- add_expense: the user reports money they spent, e.g. "bought coffee for 50" or "spent 200 on groceries today"
- query: the user asks about their spending, e.g. "how much did I spend on travel last month?"
- chitchat: anything else - greetings, questions about the assistant, small talk

Reply as JSON: {"intent": "add_expense" | "query" | "chitchat"}`

// IntentClassifier maps a raw user message onto the closed intent set.
type IntentClassifier struct {
	gateway llm.Gateway
	logger  *slog.Logger
}

// NewIntentClassifier creates an intent classifier.
func NewIntentClassifier(gateway llm.Gateway, logger *slog.Logger) *IntentClassifier {
	return &IntentClassifier{gateway: gateway, logger: logger}
}

// Classify returns one of the three intents. Classification never blocks a
// turn: any gateway failure, parse failure or out-of-set answer falls back
// to chitchat.
func (c *IntentClassifier) Classify(ctx context.Context, message string) model.Intent {
	reply, err := c.gateway.Complete(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: intentSystemPrompt},
		{Role: llm.RoleUser, Content: message},
	}, true)
	if err != nil {
		c.logger.Warn("intent classification failed, defaulting to chitchat", "error", err)
		return model.IntentChitchat
	}

	var out struct {
		Intent string `json:"intent"`
	}
	if err := llm.ExtractJSON(reply, &out); err != nil {
		c.logger.Warn("intent reply unparseable, defaulting to chitchat", "error", err)
		return model.IntentChitchat
	}

	intent, ok := model.ParseIntent(strings.ToLower(strings.TrimSpace(out.Intent)))
	if !ok {
		return model.IntentChitchat
	}
	return intent
}
