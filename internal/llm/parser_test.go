package llm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanMarkdownWrapper(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "plain json untouched",
			input:    `{"grand_total": 10}`,
			expected: `{"grand_total": 10}`,
		},
		{
			name:     "fence with language tag",
			input:    "```json\n{\"grand_total\": 10}\n```",
			expected: `{"grand_total": 10}`,
		},
		{
			name:     "fence without language tag",
			input:    "```\n{\"grand_total\": 10}\n```",
			expected: `{"grand_total": 10}`,
		},
		{
			name:     "surrounding whitespace",
			input:    "  \n```json\n{\"a\": 1}\n```\n  ",
			expected: `{"a": 1}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, cleanMarkdownWrapper(tt.input))
		})
	}
}

func TestParseExtraction(t *testing.T) {
	t.Run("full payload", func(t *testing.T) {
		content := "```json\n" + `{
			"merchant_name": "Safeway",
			"transaction_date": "2024-03-05",
			"subtotal": 20.00,
			"tax": 1.80,
			"tip": null,
			"grand_total": 21.80,
			"payment_method": "VISA",
			"line_items": [
				{"description": "milk", "quantity": 1, "total_price": 4.99}
			]
		}` + "\n```"

		extraction, err := parseExtraction(content)
		require.NoError(t, err)
		assert.Equal(t, "Safeway", extraction.MerchantName)
		require.NotNil(t, extraction.TransactionDate)
		assert.Equal(t, time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC), *extraction.TransactionDate)
		assert.Equal(t, "21.8", extraction.GrandTotal.String())
		assert.Nil(t, extraction.Tip)
		require.Len(t, extraction.LineItems, 1)
		assert.Equal(t, "milk", extraction.LineItems[0].Description)
		assert.NotContains(t, extraction.RawJSON, "```", "audit payload is stored without fencing")
	})

	t.Run("missing grand total", func(t *testing.T) {
		_, err := parseExtraction(`{"merchant_name": "Safeway"}`)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "grand_total")
	})

	t.Run("unparseable response", func(t *testing.T) {
		_, err := parseExtraction("I could not read this receipt.")
		require.Error(t, err)
	})

	t.Run("malformed date is dropped not fatal", func(t *testing.T) {
		extraction, err := parseExtraction(`{"grand_total": 5, "transaction_date": "March 5th"}`)
		require.NoError(t, err)
		assert.Nil(t, extraction.TransactionDate)
	})
}

func TestParseClassification(t *testing.T) {
	slugs := []string{"groceries", "dining", "other"}

	t.Run("valid result", func(t *testing.T) {
		slug, confidence, err := parseClassification(`{"category": "dining", "confidence": 0.85}`, slugs)
		require.NoError(t, err)
		assert.Equal(t, "dining", slug)
		assert.InDelta(t, 0.85, confidence, 0.001)
	})

	t.Run("fenced result", func(t *testing.T) {
		slug, _, err := parseClassification("```json\n{\"category\": \"groceries\", \"confidence\": 0.9}\n```", slugs)
		require.NoError(t, err)
		assert.Equal(t, "groceries", slug)
	})

	t.Run("slug outside valid set", func(t *testing.T) {
		_, _, err := parseClassification(`{"category": "gambling", "confidence": 0.9}`, slugs)
		require.Error(t, err)
	})

	t.Run("missing confidence", func(t *testing.T) {
		_, _, err := parseClassification(`{"category": "dining"}`, slugs)
		require.Error(t, err)
	})

	t.Run("confidence clamped", func(t *testing.T) {
		_, confidence, err := parseClassification(`{"category": "dining", "confidence": 1.4}`, slugs)
		require.NoError(t, err)
		assert.InDelta(t, 1.0, confidence, 0.001)

		_, confidence, err = parseClassification(`{"category": "dining", "confidence": -0.2}`, slugs)
		require.NoError(t, err)
		assert.Zero(t, confidence)
	})
}
