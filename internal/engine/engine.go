// Package engine assigns spending categories to extracted receipt data. Two
// classification stages run in a fixed order: the deterministic merchant rule
// table first, the probabilistic classifier as fallback. The order is part of
// the contract, not a tuning choice.
package engine

import (
	"context"
	"log/slog"

	"github.com/mfinch/pocketwatch/internal/model"
	"github.com/mfinch/pocketwatch/internal/service"
)

// maxClassifierItems caps how many line-item descriptions are fed to the
// fallback classifier.
const maxClassifierItems = 5

// Categorizer assigns a category slug and confidence to purchase data.
type Categorizer struct {
	classifier service.Classifier
	logger     *slog.Logger
	rules      []MerchantRule
}

// NewCategorizer creates a categorizer over the default rule table.
func NewCategorizer(classifier service.Classifier, logger *slog.Logger) *Categorizer {
	return NewCategorizerWithRules(classifier, DefaultRules(), logger)
}

// NewCategorizerWithRules creates a categorizer with a custom rule table.
// Rules are evaluated in the order given.
func NewCategorizerWithRules(classifier service.Classifier, rules []MerchantRule, logger *slog.Logger) *Categorizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Categorizer{
		classifier: classifier,
		rules:      rules,
		logger:     logger,
	}
}

// Categorize picks a slug from availableSlugs for the purchase, with a
// confidence in [0,1]. An empty returned slug means no category applies.
//
// The rule tier is consulted first (skipped entirely when the merchant name
// is absent). The classifier runs when no rule matched or the matched rule
// names a slug the household doesn't have. Whichever tier wins, a slug
// missing from availableSlugs resolves to the "other" category when one
// exists; the winning tier's confidence is kept either way.
func (c *Categorizer) Categorize(ctx context.Context, merchantName string, items []string, availableSlugs []string) (string, float64, error) {
	if rule, ok := matchRule(c.rules, merchantName); ok && contains(availableSlugs, rule.Slug) {
		c.logger.Debug("categorized by rule",
			"merchant", merchantName,
			"pattern", rule.Pattern,
			"slug", rule.Slug,
			"confidence", rule.Confidence)
		return resolveSlug(rule.Slug, availableSlugs), rule.Confidence, nil
	}

	if len(items) > maxClassifierItems {
		items = items[:maxClassifierItems]
	}

	slug, confidence, err := c.classifier.Classify(ctx, merchantName, items, availableSlugs)
	if err != nil {
		return "", 0, err
	}

	c.logger.Debug("categorized by classifier",
		"merchant", merchantName,
		"slug", slug,
		"confidence", confidence)
	return resolveSlug(slug, availableSlugs), confidence, nil
}

// resolveSlug substitutes the conventional fallback slug when the winning
// slug is not available, or resolves to no category at all.
func resolveSlug(slug string, availableSlugs []string) string {
	if contains(availableSlugs, slug) {
		return slug
	}
	if contains(availableSlugs, model.FallbackSlug) {
		return model.FallbackSlug
	}
	return ""
}

func contains(slugs []string, slug string) bool {
	for _, s := range slugs {
		if s == slug {
			return true
		}
	}
	return false
}
