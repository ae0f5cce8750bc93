package llm

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mfinch/pocketwatch/internal/model"
)

// cleanMarkdownWrapper strips a fenced code block (with an optional language
// tag) from around the model's response. Models wrap JSON in fences often
// enough that every response goes through this before parsing.
func cleanMarkdownWrapper(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") {
		return content
	}

	content = strings.TrimPrefix(content, "```")
	// Drop a language tag on the opening fence, e.g. ```json
	if idx := strings.IndexByte(content, '\n'); idx >= 0 {
		firstLine := strings.TrimSpace(content[:idx])
		if firstLine != "" && !strings.ContainsAny(firstLine, "{}[]") {
			content = content[idx+1:]
		}
	}
	if idx := strings.LastIndex(content, "```"); idx >= 0 {
		content = content[:idx]
	}
	return strings.TrimSpace(content)
}

// extractionPayload mirrors the JSON structure the extraction prompt asks for.
type extractionPayload struct {
	MerchantName    *string          `json:"merchant_name"`
	TransactionDate *string          `json:"transaction_date"`
	Subtotal        *decimal.Decimal `json:"subtotal"`
	Tax             *decimal.Decimal `json:"tax"`
	Tip             *decimal.Decimal `json:"tip"`
	GrandTotal      *decimal.Decimal `json:"grand_total"`
	PaymentMethod   *string          `json:"payment_method"`
	LineItems       []struct {
		Description string          `json:"description"`
		Quantity    float64         `json:"quantity"`
		TotalPrice  decimal.Decimal `json:"total_price"`
	} `json:"line_items"`
}

// parseExtraction validates and converts the raw model output. The grand
// total is the only mandatory field; a malformed transaction date is dropped
// rather than failing the whole extraction.
func parseExtraction(content string) (*model.Extraction, error) {
	content = cleanMarkdownWrapper(content)

	var payload extractionPayload
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return nil, fmt.Errorf("failed to parse extraction response: %w", err)
	}
	if payload.GrandTotal == nil {
		return nil, fmt.Errorf("extraction response missing grand_total")
	}

	extraction := &model.Extraction{
		GrandTotal: *payload.GrandTotal,
		Subtotal:   payload.Subtotal,
		Tax:        payload.Tax,
		Tip:        payload.Tip,
		RawJSON:    content,
	}
	if payload.MerchantName != nil {
		extraction.MerchantName = *payload.MerchantName
	}
	if payload.PaymentMethod != nil {
		extraction.PaymentMethod = *payload.PaymentMethod
	}
	if payload.TransactionDate != nil {
		if t, err := parseTransactionDate(*payload.TransactionDate); err == nil {
			extraction.TransactionDate = &t
		}
	}
	for _, item := range payload.LineItems {
		extraction.LineItems = append(extraction.LineItems, model.LineItem{
			Description: item.Description,
			Quantity:    item.Quantity,
			TotalPrice:  item.TotalPrice,
		})
	}
	return extraction, nil
}

func parseTransactionDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("unrecognized date %q: %w", s, err)
	}
	return t.UTC(), nil
}

// classificationPayload mirrors the JSON structure the classification prompt
// asks for.
type classificationPayload struct {
	Category   string   `json:"category"`
	Confidence *float64 `json:"confidence"`
}

// parseClassification validates the raw model output against the slugs the
// classifier was offered. The returned confidence is clamped to [0,1].
func parseClassification(content string, validSlugs []string) (string, float64, error) {
	content = cleanMarkdownWrapper(content)

	var payload classificationPayload
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return "", 0, fmt.Errorf("failed to parse classification response: %w", err)
	}
	if payload.Category == "" {
		return "", 0, fmt.Errorf("classification response missing category")
	}
	if payload.Confidence == nil {
		return "", 0, fmt.Errorf("classification response missing confidence")
	}

	valid := false
	for _, slug := range validSlugs {
		if slug == payload.Category {
			valid = true
			break
		}
	}
	if !valid {
		return "", 0, fmt.Errorf("classification returned slug %q outside the valid set", payload.Category)
	}

	confidence := *payload.Confidence
	if confidence < 0 {
		confidence = 0
	} else if confidence > 1 {
		confidence = 1
	}
	return payload.Category, confidence, nil
}
