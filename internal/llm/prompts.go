package llm

import (
	"fmt"
	"strings"
)

const extractionPrompt = `Extract data from this receipt image. Return ONLY valid JSON with this structure:
{
    "merchant_name": "string or null",
    "transaction_date": "YYYY-MM-DD or null",
    "subtotal": number or null,
    "tax": number or null,
    "tip": number or null,
    "grand_total": number,
    "payment_method": "string or null",
    "line_items": [
        {"description": "string", "quantity": number, "total_price": number}
    ]
}

If a field is unclear, use null. grand_total is required - estimate from visible totals if needed.`

// classificationPrompt builds the fallback categorization prompt from the
// merchant name, item descriptions, and the household's valid slugs.
func classificationPrompt(merchantName string, items []string, validSlugs []string) string {
	merchant := merchantName
	if merchant == "" {
		merchant = "Unknown"
	}
	itemsStr := strings.Join(items, ", ")
	if itemsStr == "" {
		itemsStr = "Unknown"
	}

	return fmt.Sprintf(`Based on this merchant name and items, assign a spending category.
Return ONLY valid JSON: {"category": "category_slug", "confidence": 0.0-1.0}

Valid category slugs: %s

Merchant: %s
Items: %s`, strings.Join(validSlugs, ", "), merchant, itemsStr)
}
