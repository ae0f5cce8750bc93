package engine

import "strings"

// MerchantRule maps a merchant-name substring to a category slug with a fixed
// confidence.
type MerchantRule struct {
	Pattern    string
	Slug       string
	Confidence float64
}

// DefaultRules returns the built-in merchant rule table. Order matters: rules
// are tried top to bottom and the first match wins, so more specific or more
// trusted patterns must be declared before broader ones.
func DefaultRules() []MerchantRule {
	return []MerchantRule{
		{"starbucks", "coffee", 0.95},
		{"tim hortons", "coffee", 0.95},
		{"dunkin", "coffee", 0.95},
		{"mcdonalds", "dining", 0.95},
		{"burger king", "dining", 0.95},
		{"subway", "dining", 0.95},
		{"burrito", "dining", 0.90},
		{"taco", "dining", 0.90},
		{"pizza", "dining", 0.90},
		{"safeway", "groceries", 0.95},
		{"walmart", "shopping", 0.80},
		{"costco", "groceries", 0.85},
		{"save-on", "groceries", 0.95},
		{"whole foods", "groceries", 0.95},
		{"uber", "transportation", 0.90},
		{"lyft", "transportation", 0.95},
		{"shell", "transportation", 0.90},
		{"chevron", "transportation", 0.90},
		{"amazon", "shopping", 0.75},
	}
}

// matchRule returns the first rule whose pattern appears in the merchant name,
// case-insensitively. An empty merchant name never matches.
func matchRule(rules []MerchantRule, merchantName string) (MerchantRule, bool) {
	if merchantName == "" {
		return MerchantRule{}, false
	}

	lower := strings.ToLower(merchantName)
	for _, rule := range rules {
		if strings.Contains(lower, rule.Pattern) {
			return rule, true
		}
	}
	return MerchantRule{}, false
}
