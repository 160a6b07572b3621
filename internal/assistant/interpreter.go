package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/shopspring/decimal"

	"github.com/spendlens/backend/internal/daterange"
	"github.com/spendlens/backend/internal/llm"
	"github.com/spendlens/backend/internal/model"
	"github.com/spendlens/backend/internal/store"
)

const topCategoryCount = 3

const querySystemPrompt = `You extract query parameters from a question about personal spending.

Return JSON with exactly these fields:
{
  "category": "<category phrase if the user asks about one, otherwise null>",
  "time_period": "<time phrase as the user said it: today, yesterday, this week, this month, last month, a month name, or the raw phrase>"
}

Examples:
Input: how much did I spend on travel last month?
Output: {"category": "travel", "time_period": "last month"}

Input: what did I spend this week
Output: {"category": null, "time_period": "this week"}`

// queryParams are the structured filters pulled out of a free-text question.
type queryParams struct {
	Category   string `json:"category"`
	TimePeriod string `json:"time_period"`
}

// QueryInterpreter answers free-text spending questions: it extracts
// {category, time_period}, resolves the period to a date range, aggregates
// matching expenses and formats a natural-language summary.
type QueryInterpreter struct {
	gateway    llm.Gateway
	normalizer *CategoryNormalizer
	store      store.Store
	logger     *slog.Logger
}

// NewQueryInterpreter creates a query interpreter.
func NewQueryInterpreter(gateway llm.Gateway, normalizer *CategoryNormalizer, st store.Store, logger *slog.Logger) *QueryInterpreter {
	return &QueryInterpreter{gateway: gateway, normalizer: normalizer, store: st, logger: logger}
}

// Answer interprets and executes a spending question for the user. Gateway
// and parse failures fall back to a deterministic keyword scan rather than
// failing the turn; only persistence errors surface to the caller.
func (q *QueryInterpreter) Answer(ctx context.Context, userID, question string, now time.Time) (string, error) {
	params := q.extractParams(ctx, question)

	rng := daterange.Resolve(params.TimePeriod, now)

	var category model.Category
	if params.Category != "" {
		category = q.normalizer.Normalize(ctx, params.Category)
	}

	return q.respond(ctx, userID, rng, category, periodPhrase(params.TimePeriod))
}

// AnswerForMonth answers a query scoped to a named month of the current
// year, used by the orchestrator's month fast paths.
func (q *QueryInterpreter) AnswerForMonth(ctx context.Context, userID string, month time.Month, now time.Time) (string, error) {
	rng := daterange.ResolveMonth(month, now)
	return q.respond(ctx, userID, rng, "", "in "+month.String())
}

func (q *QueryInterpreter) extractParams(ctx context.Context, question string) queryParams {
	reply, err := q.gateway.Complete(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: querySystemPrompt},
		{Role: llm.RoleUser, Content: question},
	}, true)
	if err != nil {
		q.logger.Warn("query extraction failed, using keyword scan", "error", err)
		return scanKeywords(question)
	}

	var params queryParams
	if err := llm.ExtractJSON(reply, &params); err != nil {
		q.logger.Warn("query reply unparseable, using keyword scan", "error", err)
		return scanKeywords(question)
	}
	if strings.EqualFold(strings.TrimSpace(params.Category), "null") {
		params.Category = ""
	}
	return params
}

// scanKeywords is the deterministic fallback: substring and fuzzy matching
// of the question against the fixed category list and the known period
// labels.
func scanKeywords(question string) queryParams {
	lower := strings.ToLower(question)
	var params queryParams

	for _, c := range model.Categories() {
		if c == model.CategoryOther {
			continue
		}
		if strings.Contains(lower, strings.ToLower(string(c))) {
			params.Category = string(c)
			break
		}
	}
	if params.Category == "" {
		// Tolerate minor typos ("trvel" -> Travel) on single category words.
		for _, word := range strings.Fields(lower) {
			if len(word) < 4 {
				continue
			}
			for _, c := range model.Categories() {
				if c == model.CategoryOther {
					continue
				}
				for _, catWord := range strings.Fields(strings.ToLower(string(c))) {
					if len(catWord) < 4 {
						continue
					}
					if rank := fuzzy.RankMatchNormalizedFold(word, catWord); rank >= 0 && rank <= 2 {
						params.Category = string(c)
						break
					}
				}
			}
			if params.Category != "" {
				break
			}
		}
	}

	switch {
	case strings.Contains(lower, "yesterday"):
		params.TimePeriod = "yesterday"
	case strings.Contains(lower, "today"):
		params.TimePeriod = "today"
	case strings.Contains(lower, "last month") || strings.Contains(lower, "previous month"):
		params.TimePeriod = "last month"
	case strings.Contains(lower, "week"):
		params.TimePeriod = "this week"
	case strings.Contains(lower, "month"):
		params.TimePeriod = "this month"
	default:
		for _, word := range strings.Fields(lower) {
			if _, ok := daterange.MonthByName(word); ok {
				params.TimePeriod = word
				break
			}
		}
	}
	return params
}

func (q *QueryInterpreter) respond(ctx context.Context, userID string, rng daterange.Range, category model.Category, scope string) (string, error) {
	records, err := q.store.QueryExpenses(ctx, store.Query{
		UserID:   userID,
		From:     rng.From,
		To:       rng.To,
		Category: category,
	})
	if err != nil {
		return "", fmt.Errorf("query expenses: %w", err)
	}

	if len(records) == 0 {
		if category != "" {
			return fmt.Sprintf("No %s expenses found %s.", category, scope), nil
		}
		return fmt.Sprintf("No expenses found %s.", scope), nil
	}

	total := decimal.Zero
	byCategory := make(map[model.Category]decimal.Decimal)
	for _, e := range records {
		total = total.Add(e.Amount)
		byCategory[e.Category] = byCategory[e.Category].Add(e.Amount)
	}

	var sb strings.Builder
	if category != "" {
		fmt.Fprintf(&sb, "You spent %s on %s %s", FormatINR(total), category, scope)
	} else {
		fmt.Fprintf(&sb, "You spent %s %s", FormatINR(total), scope)
	}
	if len(records) == 1 {
		sb.WriteString(" across 1 transaction.")
	} else {
		fmt.Fprintf(&sb, " across %d transactions.", len(records))
	}

	// Top-category breakdown only makes sense for unfiltered, multi-record
	// results.
	if category == "" && len(records) > 1 {
		sb.WriteString(" Top categories: ")
		sb.WriteString(topCategories(byCategory))
		sb.WriteString(".")
	}
	return sb.String(), nil
}

// topCategories renders the top 3 per-category subtotals by descending
// total, e.g. "Food & Dining (₹400), Travel (₹50)".
func topCategories(byCategory map[model.Category]decimal.Decimal) string {
	type catTotal struct {
		category model.Category
		total    decimal.Decimal
	}
	totals := make([]catTotal, 0, len(byCategory))
	for c, t := range byCategory {
		totals = append(totals, catTotal{category: c, total: t})
	}
	sort.Slice(totals, func(i, j int) bool {
		if totals[i].total.Equal(totals[j].total) {
			return totals[i].category < totals[j].category
		}
		return totals[i].total.GreaterThan(totals[j].total)
	})
	if len(totals) > topCategoryCount {
		totals = totals[:topCategoryCount]
	}

	parts := make([]string, len(totals))
	for i, ct := range totals {
		parts[i] = fmt.Sprintf("%s (%s)", ct.category, FormatINR(ct.total))
	}
	return strings.Join(parts, ", ")
}

// FormatINR renders an amount as a locale-grouped, symbol-prefixed rupee
// string, trimming ".00" from whole amounts.
func FormatINR(d decimal.Decimal) string {
	m := money.New(d.Round(2).Shift(2).IntPart(), money.INR)
	return strings.TrimSuffix(m.Display(), ".00")
}

// periodPhrase turns a time-period label into the phrase used in response
// sentences.
func periodPhrase(label string) string {
	label = strings.ToLower(strings.TrimSpace(label))
	switch label {
	case "today", "yesterday", "this week", "this month", "last month":
		return label
	case "current week":
		return "this week"
	case "current month":
		return "this month"
	case "previous month":
		return "last month"
	}
	if m, ok := daterange.MonthByName(label); ok {
		return "in " + m.String()
	}
	return "in the last 30 days"
}
