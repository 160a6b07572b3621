package receipt

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type parsedReceipt struct {
	amount   decimal.Decimal
	currency string
	date     time.Time
	merchant string
}

var (
	// Indian receipts group digits as 1,24,999, so comma groups of two or
	// three digits are both accepted.
	amountPattern = regexp.MustCompile(`\d{1,3}(?:,\d{2,3})+(?:\.\d{1,2})?|\d+(?:\.\d{1,2})?`)

	datePattern = regexp.MustCompile(
		`(?i)(?:\d{4}[/\-]\d{1,2}[/\-]\d{1,2})` + // YYYY-MM-DD
			`|(?:\d{1,2}[/\-\.]\d{1,2}[/\-\.]\d{2,4})` + // DD/MM/YYYY variants
			`|(?:\d{1,2}\s+(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*\.?\s+\d{2,4})`, // DD Mon YYYY
	)

	totalKeywords = []string{"grand total", "amount due", "total", "amount paid", "net payable", "balance due"}
)

var currencyMarkers = []struct {
	marker string
	code   string
}{
	{"₹", "INR"},
	{"rs.", "INR"},
	{"rs ", "INR"},
	{"inr", "INR"},
	{"$", "USD"},
	{"usd", "USD"},
	{"€", "EUR"},
	{"eur", "EUR"},
	{"£", "GBP"},
	{"gbp", "GBP"},
}

// parseText pulls amount, date, currency and merchant out of receipt text.
// The amount on a "total" line wins; otherwise the largest amount on the
// receipt is taken, which survives itemized receipts where line items
// precede the total. A missing date defaults to today.
func parseText(text string, now time.Time) parsedReceipt {
	out := parsedReceipt{
		currency: homeCurrency,
		date:     now,
	}

	lines := splitLines(text)
	if len(lines) > 0 {
		out.merchant = lines[0]
	}

	out.currency = detectCurrency(text)

	if amt, ok := totalLineAmount(lines); ok {
		out.amount = amt
	} else {
		out.amount = largestAmount(lines)
	}

	if d, ok := firstDate(lines); ok {
		out.date = d
	}

	return out
}

func splitLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return lines
}

func detectCurrency(text string) string {
	lower := strings.ToLower(text)
	for _, m := range currencyMarkers {
		if strings.Contains(lower, m.marker) {
			return m.code
		}
	}
	return homeCurrency
}

// totalLineAmount returns the last amount on the first line carrying a
// total keyword. Keywords are checked in order of specificity so "grand
// total" beats a plain "total" further up the receipt.
func totalLineAmount(lines []string) (decimal.Decimal, bool) {
	for _, keyword := range totalKeywords {
		for _, line := range lines {
			if !strings.Contains(strings.ToLower(line), keyword) {
				continue
			}
			matches := amountPattern.FindAllString(line, -1)
			if len(matches) == 0 {
				continue
			}
			if amt, ok := parseAmount(matches[len(matches)-1]); ok {
				return amt, true
			}
		}
	}
	return decimal.Zero, false
}

func largestAmount(lines []string) decimal.Decimal {
	max := decimal.Zero
	for _, line := range lines {
		// Skip amounts inside dates (12/05/2026 matches the amount pattern).
		stripped := datePattern.ReplaceAllString(line, "")
		for _, match := range amountPattern.FindAllString(stripped, -1) {
			if amt, ok := parseAmount(match); ok && amt.GreaterThan(max) {
				max = amt
			}
		}
	}
	return max
}

func parseAmount(s string) (decimal.Decimal, bool) {
	s = strings.ReplaceAll(s, ",", "")
	amt, err := decimal.NewFromString(s)
	if err != nil || !amt.IsPositive() {
		return decimal.Zero, false
	}
	return amt.Round(2), true
}

var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"02/01/2006",
	"02-01-2006",
	"02.01.2006",
	"02/01/06",
	"2 Jan 2006",
	"2 January 2006",
}

func firstDate(lines []string) (time.Time, bool) {
	for _, line := range lines {
		match := datePattern.FindString(line)
		if match == "" {
			continue
		}
		for _, layout := range dateLayouts {
			if d, err := time.Parse(layout, match); err == nil {
				return d, true
			}
		}
	}
	return time.Time{}, false
}
