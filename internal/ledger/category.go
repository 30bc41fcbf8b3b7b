package ledger

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Category is the closed set of expense categories.
type Category string

const (
	CategoryUtility       Category = "Utility"
	CategoryRent          Category = "Rent"
	CategoryGroceries     Category = "Groceries"
	CategoryEntertainment Category = "Entertainment"
	CategoryOther         Category = "Other"
)

// Categories lists the closed set in display order.
var Categories = []Category{
	CategoryUtility,
	CategoryRent,
	CategoryGroceries,
	CategoryEntertainment,
	CategoryOther,
}

// categoryAliases maps lower-cased spellings seen from users and models onto the closed set.
var categoryAliases = map[string]Category{
	"utility":       CategoryUtility,
	"utilities":     CategoryUtility,
	"rent":          CategoryRent,
	"groceries":     CategoryGroceries,
	"grocery":       CategoryGroceries,
	"entertainment": CategoryEntertainment,
	"other":         CategoryOther,
}

// ParseCategory maps s onto the closed set. Anything unrecognized becomes
// CategoryOther so that downstream aggregation never fails on a category.
func ParseCategory(s string) Category {
	key := strings.ToLower(strings.TrimSpace(s))
	if c, ok := categoryAliases[key]; ok {
		return c
	}
	return CategoryOther
}

// Known reports whether s names a category of the closed set without falling back.
func Known(s string) bool {
	_, ok := categoryAliases[strings.ToLower(strings.TrimSpace(s))]
	return ok
}

// CanonicalLabel title-cases a free-form income category so that "salary" and
// "SALARY" are stored the same way.
func CanonicalLabel(s string) string {
	caser := cases.Title(language.English)
	fields := strings.Fields(s)
	for i, f := range fields {
		fields[i] = caser.String(strings.ToLower(f))
	}
	return strings.Join(fields, " ")
}
