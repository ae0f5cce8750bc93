package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var householdSlugs = []string{"groceries", "dining", "coffee", "transportation", "shopping", "other"}

func TestCategorizeRuleTier(t *testing.T) {
	tests := []struct {
		name           string
		merchant       string
		wantSlug       string
		wantConfidence float64
	}{
		{
			name:           "exact merchant substring",
			merchant:       "STARBUCKS #4821",
			wantSlug:       "coffee",
			wantConfidence: 0.95,
		},
		{
			name:           "case insensitive match",
			merchant:       "Whole Foods Market",
			wantSlug:       "groceries",
			wantConfidence: 0.95,
		},
		{
			name:           "low trust broad pattern",
			merchant:       "AMAZON.COM*ORDER",
			wantSlug:       "shopping",
			wantConfidence: 0.75,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			classifier := NewMockClassifier("dining", 0.5)
			cat := NewCategorizer(classifier, nil)

			slug, confidence, err := cat.Categorize(context.Background(), tt.merchant, nil, householdSlugs)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSlug, slug)
			assert.InDelta(t, tt.wantConfidence, confidence, 0.001)
			assert.Zero(t, classifier.CallCount(), "classifier must not run when a rule matches")
		})
	}
}

func TestCategorizeRuleOrder(t *testing.T) {
	// "uber" precedes broader patterns; "Uber Eats" still lands on
	// transportation because the first match wins.
	classifier := NewMockClassifier("dining", 0.5)
	cat := NewCategorizer(classifier, nil)

	slug, confidence, err := cat.Categorize(context.Background(), "Uber Eats", nil, householdSlugs)
	require.NoError(t, err)
	assert.Equal(t, "transportation", slug)
	assert.InDelta(t, 0.90, confidence, 0.001)
}

func TestCategorizeFallbackTier(t *testing.T) {
	t.Run("unknown merchant goes to classifier", func(t *testing.T) {
		classifier := NewMockClassifier("dining", 0.82)
		cat := NewCategorizer(classifier, nil)

		slug, confidence, err := cat.Categorize(context.Background(), "Chez Panisse", []string{"prix fixe"}, householdSlugs)
		require.NoError(t, err)
		assert.Equal(t, "dining", slug)
		assert.InDelta(t, 0.82, confidence, 0.001)
		assert.Equal(t, 1, classifier.CallCount())
	})

	t.Run("empty merchant skips rule tier", func(t *testing.T) {
		classifier := NewMockClassifier("groceries", 0.6)
		cat := NewCategorizer(classifier, nil)

		slug, _, err := cat.Categorize(context.Background(), "", []string{"milk", "bread"}, householdSlugs)
		require.NoError(t, err)
		assert.Equal(t, "groceries", slug)
		assert.Equal(t, 1, classifier.CallCount())
	})

	t.Run("rule slug unavailable falls through to classifier", func(t *testing.T) {
		// Household has no "coffee" category, so the starbucks rule
		// cannot apply even though it matches.
		classifier := NewMockClassifier("dining", 0.7)
		cat := NewCategorizer(classifier, nil)
		slugs := []string{"groceries", "dining", "other"}

		slug, confidence, err := cat.Categorize(context.Background(), "Starbucks", nil, slugs)
		require.NoError(t, err)
		assert.Equal(t, "dining", slug)
		assert.InDelta(t, 0.7, confidence, 0.001)
		assert.Equal(t, 1, classifier.CallCount())
	})

	t.Run("classifier sees at most five items", func(t *testing.T) {
		classifier := NewMockClassifier("groceries", 0.8)
		cat := NewCategorizer(classifier, nil)
		items := []string{"a", "b", "c", "d", "e", "f", "g"}

		_, _, err := cat.Categorize(context.Background(), "Corner Store", items, householdSlugs)
		require.NoError(t, err)

		calls := classifier.Calls()
		require.Len(t, calls, 1)
		assert.Equal(t, []string{"a", "b", "c", "d", "e"}, calls[0].Items)
	})

	t.Run("classifier error propagates", func(t *testing.T) {
		classifier := NewMockClassifier("", 0)
		classifier.Err = errors.New("model unavailable")
		cat := NewCategorizer(classifier, nil)

		_, _, err := cat.Categorize(context.Background(), "Mystery Mart", nil, householdSlugs)
		require.Error(t, err)
	})
}

func TestCategorizeResolution(t *testing.T) {
	t.Run("unavailable slug resolves to other", func(t *testing.T) {
		classifier := NewMockClassifier("entertainment", 0.66)
		cat := NewCategorizer(classifier, nil)
		slugs := []string{"groceries", "other"}

		slug, confidence, err := cat.Categorize(context.Background(), "Cinema 12", nil, slugs)
		require.NoError(t, err)
		assert.Equal(t, "other", slug)
		assert.InDelta(t, 0.66, confidence, 0.001, "resolution keeps the winning tier's confidence")
	})

	t.Run("no other category resolves to none", func(t *testing.T) {
		classifier := NewMockClassifier("entertainment", 0.66)
		cat := NewCategorizer(classifier, nil)
		slugs := []string{"groceries", "dining"}

		slug, confidence, err := cat.Categorize(context.Background(), "Cinema 12", nil, slugs)
		require.NoError(t, err)
		assert.Empty(t, slug)
		assert.InDelta(t, 0.66, confidence, 0.001)
	})
}

func TestMatchRule(t *testing.T) {
	rules := DefaultRules()

	_, ok := matchRule(rules, "")
	assert.False(t, ok, "empty merchant name must never match")

	rule, ok := matchRule(rules, "Tony's Pizza Napoletana")
	require.True(t, ok)
	assert.Equal(t, "dining", rule.Slug)
}
