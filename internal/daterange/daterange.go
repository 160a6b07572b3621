// Package daterange resolves free-text time-period labels into concrete
// calendar-date intervals, and computes the comparison periods used by
// trend analytics.
package daterange

import (
	"strings"
	"time"
)

// Range is an inclusive calendar-date interval with From <= To.
// Both endpoints are midnight local time.
type Range struct {
	From time.Time
	To   time.Time
}

// fullMonths maps lower-cased English month names to their month.
var fullMonths = map[string]time.Month{
	"january": time.January, "february": time.February, "march": time.March,
	"april": time.April, "may": time.May, "june": time.June,
	"july": time.July, "august": time.August, "september": time.September,
	"october": time.October, "november": time.November, "december": time.December,
}

// monthAbbrevs maps 3-letter abbreviations. "may" is covered by fullMonths.
var monthAbbrevs = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "jun": time.June, "jul": time.July,
	"aug": time.August, "sep": time.September, "oct": time.October,
	"nov": time.November, "dec": time.December,
}

// MonthByName returns the month for a full English month name,
// case-insensitive.
func MonthByName(s string) (time.Month, bool) {
	m, ok := fullMonths[strings.ToLower(strings.TrimSpace(s))]
	return m, ok
}

// MonthByNameOrAbbrev also accepts 3-letter abbreviations ("feb", "sep").
func MonthByNameOrAbbrev(s string) (time.Month, bool) {
	key := strings.ToLower(strings.TrimSpace(s))
	if m, ok := fullMonths[key]; ok {
		return m, true
	}
	m, ok := monthAbbrevs[key]
	return m, ok
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// monthRange returns the full calendar month containing the given year/month.
// AddDate normalization keeps February's end day leap-year-correct.
func monthRange(year int, month time.Month, loc *time.Location) Range {
	first := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	last := first.AddDate(0, 1, -1)
	return Range{From: first, To: last}
}

// Resolve maps a time-period label to a concrete date range, evaluated
// against now. First match wins; unrecognized labels fall back to the
// trailing 30 days.
func Resolve(label string, now time.Time) Range {
	today := midnight(now)
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "today":
		return Range{From: today, To: today}
	case "yesterday":
		y := today.AddDate(0, 0, -1)
		return Range{From: y, To: y}
	case "this week", "current week":
		// ISO week: Monday start.
		offset := (int(today.Weekday()) + 6) % 7
		return Range{From: today.AddDate(0, 0, -offset), To: today}
	case "this month", "current month":
		return Range{From: time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location()), To: today}
	case "last month", "previous month":
		firstOfThis := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location())
		prev := firstOfThis.AddDate(0, -1, 0)
		return monthRange(prev.Year(), prev.Month(), today.Location())
	}
	if m, ok := MonthByName(label); ok {
		return monthRange(today.Year(), m, today.Location())
	}
	return Range{From: today.AddDate(0, 0, -30), To: today}
}

// ResolveMonth returns the named month's range in the current year.
func ResolveMonth(m time.Month, now time.Time) Range {
	return monthRange(now.Year(), m, now.Location())
}

// Granularity selects the calendar unit for previous-period comparisons.
type Granularity string

const (
	GranularityDay     Granularity = "day"
	GranularityWeek    Granularity = "week"
	GranularityMonth   Granularity = "month"
	GranularityQuarter Granularity = "quarter"
	GranularityYear    Granularity = "year"
)

// ParseGranularity maps a raw string onto the granularity set, defaulting
// to month.
func ParseGranularity(s string) Granularity {
	switch Granularity(strings.ToLower(strings.TrimSpace(s))) {
	case GranularityDay, GranularityWeek, GranularityMonth, GranularityQuarter, GranularityYear:
		return Granularity(strings.ToLower(strings.TrimSpace(s)))
	}
	return GranularityMonth
}

// PreviousPeriod computes the comparison window immediately preceding r.
// Day and week granularities shift back by the window's own day-length;
// month, quarter and year use the previous full calendar unit so a partial
// current month compares against the whole previous month rather than a
// rolling 30-day window. Quarter and year wrap across year boundaries.
func PreviousPeriod(r Range, g Granularity) Range {
	loc := r.From.Location()
	switch g {
	case GranularityMonth:
		prev := time.Date(r.From.Year(), r.From.Month(), 1, 0, 0, 0, 0, loc).AddDate(0, -1, 0)
		return monthRange(prev.Year(), prev.Month(), loc)
	case GranularityQuarter:
		qStartMonth := time.Month(((int(r.From.Month())-1)/3)*3 + 1)
		qStart := time.Date(r.From.Year(), qStartMonth, 1, 0, 0, 0, 0, loc)
		prevStart := qStart.AddDate(0, -3, 0)
		return Range{From: prevStart, To: prevStart.AddDate(0, 3, -1)}
	case GranularityYear:
		prevStart := time.Date(r.From.Year()-1, time.January, 1, 0, 0, 0, 0, loc)
		return Range{From: prevStart, To: prevStart.AddDate(1, 0, -1)}
	default:
		days := int(r.To.Sub(r.From).Hours()/24) + 1
		to := r.From.AddDate(0, 0, -1)
		return Range{From: to.AddDate(0, 0, -(days - 1)), To: to}
	}
}

// Days returns the inclusive day-length of the range.
func (r Range) Days() int {
	return int(r.To.Sub(r.From).Hours()/24) + 1
}

// Contains reports whether the calendar date of t falls inside the range.
func (r Range) Contains(t time.Time) bool {
	d := midnight(t)
	return !d.Before(r.From) && !d.After(r.To)
}
