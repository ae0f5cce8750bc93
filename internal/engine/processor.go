package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/mfinch/pocketwatch/internal/model"
	"github.com/mfinch/pocketwatch/internal/service"
)

// Result is the outcome of processing one receipt image: the extracted
// purchase data plus the categorization verdict. CategoryID is nil when no
// category could be assigned.
type Result struct {
	Extraction *model.Extraction
	CategoryID *uuid.UUID
	Slug       string
	Confidence float64
}

// Processor runs the full pipeline for an uploaded receipt image: vision
// extraction followed by categorization against the household's active
// categories. It does not persist anything.
type Processor struct {
	extractor   service.Extractor
	categorizer *Categorizer
	logger      *slog.Logger
}

// NewProcessor creates a processor from the given extractor and categorizer.
func NewProcessor(extractor service.Extractor, categorizer *Categorizer, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		extractor:   extractor,
		categorizer: categorizer,
		logger:      logger,
	}
}

// Process extracts structured data from the image and categorizes it against
// categories. Extraction failures abort the pipeline; categorization runs
// only on a successful extraction.
func (p *Processor) Process(ctx context.Context, image []byte, mediaType string, categories []model.Category) (*Result, error) {
	extraction, err := p.extractor.Extract(ctx, image, mediaType)
	if err != nil {
		return nil, fmt.Errorf("extraction failed: %w", err)
	}

	p.logger.Info("receipt extracted",
		"merchant", extraction.MerchantName,
		"grand_total", extraction.GrandTotal,
		"line_items", len(extraction.LineItems))

	slugs := make([]string, 0, len(categories))
	bySlug := make(map[string]uuid.UUID, len(categories))
	for _, cat := range categories {
		slugs = append(slugs, cat.Slug)
		bySlug[cat.Slug] = cat.ID
	}

	items := make([]string, 0, len(extraction.LineItems))
	for _, item := range extraction.LineItems {
		items = append(items, item.Description)
	}

	slug, confidence, err := p.categorizer.Categorize(ctx, extraction.MerchantName, items, slugs)
	if err != nil {
		return nil, fmt.Errorf("categorization failed: %w", err)
	}

	result := &Result{
		Extraction: extraction,
		Slug:       slug,
		Confidence: confidence,
	}
	if id, ok := bySlug[slug]; ok {
		result.CategoryID = &id
	}
	return result, nil
}
