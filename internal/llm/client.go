// Package llm provides clients for the external vision and classification
// models that power receipt extraction and category fallback.
package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mfinch/pocketwatch/internal/model"
)

// Client defines the interface for model providers. A Client satisfies both
// service.Extractor and service.Classifier.
type Client interface {
	// Extract turns a receipt image into structured purchase data. A
	// successful result always carries a grand total; failure is reported as
	// a common.ExtractionError.
	Extract(ctx context.Context, image []byte, mediaType string) (*model.Extraction, error)

	// Classify assigns one of validSlugs to the purchase, with a confidence
	// in [0,1]. An unusable model response is reported as a
	// common.ClassificationError.
	Classify(ctx context.Context, merchantName string, items []string, validSlugs []string) (string, float64, error)
}

// Config holds configuration for model clients.
type Config struct {
	Provider    string
	APIKey      string
	Model       string
	BaseURL     string
	Timeout     time.Duration
	MaxTokens   int
	Temperature float64
}

// NewClient creates a model client for the configured provider.
func NewClient(cfg Config) (Client, error) {
	switch strings.ToLower(cfg.Provider) {
	case "anthropic":
		return newAnthropicClient(cfg)
	case "gemini":
		return newGeminiClient(cfg)
	default:
		return nil, fmt.Errorf("unsupported model provider: %s", cfg.Provider)
	}
}
