package model

// Category is one of the fixed expense categories. Every stored expense
// carries exactly one of these values; free-text category phrases are
// normalized before they reach the store.
type Category string

const (
	CategoryFoodAndDining   Category = "Food & Dining"
	CategoryTransportation  Category = "Transportation"
	CategoryShopping        Category = "Shopping"
	CategoryBillsUtilities  Category = "Bills & Utilities"
	CategoryEntertainment   Category = "Entertainment"
	CategoryTravel          Category = "Travel"
	CategoryEducation       Category = "Education"
	CategoryHealthFitness   Category = "Health & Fitness"
	CategoryPersonalCare    Category = "Personal Care"
	CategoryHomeRent        Category = "Home & Rent"
	CategoryGroceries       Category = "Groceries"
	CategoryInvestments     Category = "Investments"
	CategoryInsurance       Category = "Insurance"
	CategoryGiftsDonations  Category = "Gifts & Donations"
	CategoryOther           Category = "Other"
)

// allCategories is ordered for prompt construction and keyword scans.
var allCategories = []Category{
	CategoryFoodAndDining,
	CategoryTransportation,
	CategoryShopping,
	CategoryBillsUtilities,
	CategoryEntertainment,
	CategoryTravel,
	CategoryEducation,
	CategoryHealthFitness,
	CategoryPersonalCare,
	CategoryHomeRent,
	CategoryGroceries,
	CategoryInvestments,
	CategoryInsurance,
	CategoryGiftsDonations,
	CategoryOther,
}

// Categories returns the fixed category set in a stable order.
func Categories() []Category {
	out := make([]Category, len(allCategories))
	copy(out, allCategories)
	return out
}

// CategoryNames returns the category set as plain strings.
func CategoryNames() []string {
	out := make([]string, len(allCategories))
	for i, c := range allCategories {
		out[i] = string(c)
	}
	return out
}

// ParseCategory returns the category matching s exactly (case-sensitive).
// The exact-match rule is what keeps the store grouping only by the fixed set:
// anything the normalizer cannot map lands on Other, never on a near-miss.
func ParseCategory(s string) (Category, bool) {
	for _, c := range allCategories {
		if string(c) == s {
			return c, true
		}
	}
	return "", false
}

func (c Category) String() string { return string(c) }
