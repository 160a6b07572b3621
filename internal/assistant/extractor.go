package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/spendlens/backend/internal/llm"
	"github.com/spendlens/backend/internal/model"
)

// Extraction is the structured result of pulling an expense out of free
// text. Either the data fields are populated or Err carries the model's
// failure reason - never both.
type Extraction struct {
	Amount   *float64 `json:"amount"`
	Category string   `json:"category"`
	Date     string   `json:"date"`
	Title    string   `json:"title"`
	Err      string   `json:"error"`
}

// ExpenseExtractor pulls {amount, category, date, title} out of a free-text
// transaction description, then normalizes the category.
type ExpenseExtractor struct {
	gateway    llm.Gateway
	normalizer *CategoryNormalizer
	logger     *slog.Logger
	titleCaser cases.Caser
}

// NewExpenseExtractor creates an expense extractor.
func NewExpenseExtractor(gateway llm.Gateway, normalizer *CategoryNormalizer, logger *slog.Logger) *ExpenseExtractor {
	return &ExpenseExtractor{
		gateway:    gateway,
		normalizer: normalizer,
		logger:     logger,
		titleCaser: cases.Title(language.English),
	}
}

func extractionPrompt(now time.Time) string {
	return fmt.Sprintf(`You extract structured expense data from a short transaction description. Today's date is %s.

Return JSON with exactly these fields:
{
  "amount": <number, the amount spent, no currency symbol>,
  "category": "<category phrase as the user implied it, e.g. groceries, cab ride>",
  "date": "<YYYY-MM-DD; resolve relative phrases like today/yesterday; use today's date when no date is mentioned>",
  "title": "<concise title for the expense, a few words>"
}
If the text does not describe an expense, return {"error": "<short reason>"} instead.

Examples:
Input: I spent 200 on groceries today
Output: {"amount": 200, "category": "groceries", "date": "%s", "title": "Groceries"}

Input: paid 1500 for the electricity bill yesterday
Output: {"amount": 1500, "category": "electricity bill", "date": "%s", "title": "Electricity bill"}

Input: what's the weather like
Output: {"error": "not an expense"}`,
		now.Format(model.DateLayout),
		now.Format(model.DateLayout),
		now.AddDate(0, 0, -1).Format(model.DateLayout))
}

// Extract runs the structured extraction call and normalizes the category.
// Gateway and parse failures are returned as errors; a well-formed model
// refusal comes back as an Extraction with Err set.
func (e *ExpenseExtractor) Extract(ctx context.Context, text string, now time.Time) (*Extraction, error) {
	reply, err := e.gateway.Complete(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: extractionPrompt(now)},
		{Role: llm.RoleUser, Content: text},
	}, true)
	if err != nil {
		return nil, fmt.Errorf("extract expense: %w", err)
	}

	var out Extraction
	if err := llm.ExtractJSON(reply, &out); err != nil {
		return nil, fmt.Errorf("extract expense: %w", err)
	}
	if out.Err != "" {
		return &out, nil
	}

	out.Title = e.titleCaser.String(strings.TrimSpace(out.Title))
	out.Category = string(e.normalizer.Normalize(ctx, out.Category))
	return &out, nil
}

// ToExpense validates the extraction and builds a storable record. Missing
// or NaN amounts, unparseable dates and empty fields are validation
// failures, distinct from extraction failures.
func (x *Extraction) ToExpense(userID string, now time.Time) (*model.Expense, error) {
	if x.Amount == nil || math.IsNaN(*x.Amount) || *x.Amount <= 0 {
		return nil, &model.ValidationError{Field: "amount", Message: "a positive amount is required"}
	}
	if x.Title == "" {
		return nil, &model.ValidationError{Field: "title", Message: "could not determine a title"}
	}
	category, ok := model.ParseCategory(x.Category)
	if !ok {
		return nil, &model.ValidationError{Field: "category", Message: "could not determine a category"}
	}

	date := model.Midnight(now)
	if x.Date != "" {
		parsed, err := time.ParseInLocation(model.DateLayout, x.Date, now.Location())
		if err != nil {
			return nil, &model.ValidationError{Field: "date", Message: fmt.Sprintf("unrecognized date %q", x.Date)}
		}
		date = parsed
	}

	return model.NewExpense(userID, decimal.NewFromFloat(*x.Amount), category, date, x.Title)
}
