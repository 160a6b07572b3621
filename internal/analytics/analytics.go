// Package analytics computes spending summaries, per-period trends and
// category comparisons over stored expense records. It shares the
// date-range and previous-period resolution with the assistant pipeline.
package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/spendlens/backend/internal/daterange"
	"github.com/spendlens/backend/internal/model"
	"github.com/spendlens/backend/internal/store"
)

const defaultTrendPeriods = 6

// CategoryTotal is one category's share of a summary.
type CategoryTotal struct {
	Category model.Category  `json:"category"`
	Total    decimal.Decimal `json:"total"`
	Count    int             `json:"count"`
}

// Summary aggregates a user's spending over one resolved period.
type Summary struct {
	From          string          `json:"from"`
	To            string          `json:"to"`
	Total         decimal.Decimal `json:"total"`
	Count         int             `json:"count"`
	TopCategories []CategoryTotal `json:"topCategories"`
}

// TrendPoint is one period in a spending trend series.
type TrendPoint struct {
	Label string          `json:"label"`
	From  string          `json:"from"`
	To    string          `json:"to"`
	Total decimal.Decimal `json:"total"`
	Count int             `json:"count"`
}

// Trend is an oldest-first series of per-period totals with the change
// between the last two periods.
type Trend struct {
	Granularity daterange.Granularity `json:"granularity"`
	Points      []TrendPoint          `json:"points"`
	// ChangePct compares the latest period against the one before it;
	// nil when there is no baseline to compare against.
	ChangePct *float64 `json:"changePct,omitempty"`
}

// CategoryComparison contrasts one category's spend between the current
// period and the immediately preceding period of equal calendar length.
type CategoryComparison struct {
	Category      model.Category  `json:"category"`
	CurrentTotal  decimal.Decimal `json:"currentTotal"`
	PreviousTotal decimal.Decimal `json:"previousTotal"`
	Delta         decimal.Decimal `json:"delta"`
}

// Service computes analytics over the expense store.
type Service struct {
	store  store.Store
	logger *slog.Logger
}

// NewService creates an analytics service.
func NewService(st store.Store, logger *slog.Logger) *Service {
	return &Service{store: st, logger: logger}
}

// Summarize resolves the period label and aggregates the user's expenses
// inside it.
func (s *Service) Summarize(ctx context.Context, userID, periodLabel string, now time.Time) (*Summary, error) {
	rng := daterange.Resolve(periodLabel, now)
	records, err := s.store.QueryExpenses(ctx, store.Query{UserID: userID, From: rng.From, To: rng.To})
	if err != nil {
		return nil, fmt.Errorf("summarize: %w", err)
	}

	total, byCategory := aggregate(records)
	return &Summary{
		From:          rng.From.Format(model.DateLayout),
		To:            rng.To.Format(model.DateLayout),
		Total:         total,
		Count:         len(records),
		TopCategories: topN(byCategory, countByCategory(records), 5),
	}, nil
}

// Trends returns an oldest-first series of per-period totals. Month
// granularity walks previous full calendar months; day and week walk
// fixed-length windows.
func (s *Service) Trends(ctx context.Context, userID string, g daterange.Granularity, periods int, now time.Time) (*Trend, error) {
	if periods <= 0 {
		periods = defaultTrendPeriods
	}

	current := currentPeriod(g, now)
	ranges := make([]daterange.Range, periods)
	ranges[periods-1] = current
	for i := periods - 2; i >= 0; i-- {
		ranges[i] = daterange.PreviousPeriod(ranges[i+1], g)
	}

	trend := &Trend{Granularity: g, Points: make([]TrendPoint, 0, periods)}
	for _, rng := range ranges {
		records, err := s.store.QueryExpenses(ctx, store.Query{UserID: userID, From: rng.From, To: rng.To})
		if err != nil {
			return nil, fmt.Errorf("trends: %w", err)
		}
		total, _ := aggregate(records)
		trend.Points = append(trend.Points, TrendPoint{
			Label: periodLabel(rng, g),
			From:  rng.From.Format(model.DateLayout),
			To:    rng.To.Format(model.DateLayout),
			Total: total,
			Count: len(records),
		})
	}

	if n := len(trend.Points); n >= 2 {
		prev := trend.Points[n-2].Total
		if prev.IsPositive() {
			pct, _ := trend.Points[n-1].Total.Sub(prev).Div(prev).Mul(decimal.NewFromInt(100)).Float64()
			trend.ChangePct = &pct
		}
	}
	return trend, nil
}

// CompareCategories contrasts per-category spend between the resolved
// period and the preceding period of equal length, ordered by descending
// current spend.
func (s *Service) CompareCategories(ctx context.Context, userID, periodLabel string, g daterange.Granularity, now time.Time) ([]CategoryComparison, error) {
	current := daterange.Resolve(periodLabel, now)
	previous := daterange.PreviousPeriod(current, g)

	currentRecords, err := s.store.QueryExpenses(ctx, store.Query{UserID: userID, From: current.From, To: current.To})
	if err != nil {
		return nil, fmt.Errorf("compare categories: %w", err)
	}
	previousRecords, err := s.store.QueryExpenses(ctx, store.Query{UserID: userID, From: previous.From, To: previous.To})
	if err != nil {
		return nil, fmt.Errorf("compare categories: %w", err)
	}

	_, currentTotals := aggregate(currentRecords)
	_, previousTotals := aggregate(previousRecords)

	var out []CategoryComparison
	for _, c := range model.Categories() {
		cur, hasCur := currentTotals[c]
		prev, hasPrev := previousTotals[c]
		if !hasCur && !hasPrev {
			continue
		}
		out = append(out, CategoryComparison{
			Category:      c,
			CurrentTotal:  cur,
			PreviousTotal: prev,
			Delta:         cur.Sub(prev),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CurrentTotal.GreaterThan(out[j].CurrentTotal)
	})
	return out, nil
}

func aggregate(records []*model.Expense) (decimal.Decimal, map[model.Category]decimal.Decimal) {
	total := decimal.Zero
	byCategory := make(map[model.Category]decimal.Decimal)
	for _, e := range records {
		total = total.Add(e.Amount)
		byCategory[e.Category] = byCategory[e.Category].Add(e.Amount)
	}
	return total, byCategory
}

func countByCategory(records []*model.Expense) map[model.Category]int {
	counts := make(map[model.Category]int)
	for _, e := range records {
		counts[e.Category]++
	}
	return counts
}

func topN(byCategory map[model.Category]decimal.Decimal, counts map[model.Category]int, n int) []CategoryTotal {
	out := make([]CategoryTotal, 0, len(byCategory))
	for c, t := range byCategory {
		out = append(out, CategoryTotal{Category: c, Total: t, Count: counts[c]})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total.Equal(out[j].Total) {
			return out[i].Category < out[j].Category
		}
		return out[i].Total.GreaterThan(out[j].Total)
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// currentPeriod returns the calendar period containing now for the given
// granularity: today, the ISO week so far, the month so far, and so on.
func currentPeriod(g daterange.Granularity, now time.Time) daterange.Range {
	today := model.Midnight(now)
	switch g {
	case daterange.GranularityDay:
		return daterange.Range{From: today, To: today}
	case daterange.GranularityWeek:
		offset := (int(today.Weekday()) + 6) % 7
		return daterange.Range{From: today.AddDate(0, 0, -offset), To: today}
	case daterange.GranularityQuarter:
		qStartMonth := time.Month(((int(today.Month())-1)/3)*3 + 1)
		return daterange.Range{From: time.Date(today.Year(), qStartMonth, 1, 0, 0, 0, 0, today.Location()), To: today}
	case daterange.GranularityYear:
		return daterange.Range{From: time.Date(today.Year(), time.January, 1, 0, 0, 0, 0, today.Location()), To: today}
	default:
		return daterange.Range{From: time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location()), To: today}
	}
}

func periodLabel(rng daterange.Range, g daterange.Granularity) string {
	switch g {
	case daterange.GranularityDay:
		return rng.From.Format(model.DateLayout)
	case daterange.GranularityWeek:
		return rng.From.Format("Jan 02")
	case daterange.GranularityYear:
		return rng.From.Format("2006")
	case daterange.GranularityQuarter:
		return fmt.Sprintf("Q%d %d", (int(rng.From.Month())-1)/3+1, rng.From.Year())
	default:
		return rng.From.Format("Jan 2006")
	}
}
