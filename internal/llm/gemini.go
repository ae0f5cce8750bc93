package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/mfinch/pocketwatch/internal/common"
	"github.com/mfinch/pocketwatch/internal/model"
)

// geminiClient implements the Client interface on the Gemini SDK.
type geminiClient struct {
	client    *genai.Client
	modelName string
}

// newGeminiClient creates a new Gemini API client.
func newGeminiClient(cfg Config) (Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	modelName := cfg.Model
	if modelName == "" {
		modelName = "gemini-1.5-flash"
	}

	client, err := genai.NewClient(context.Background(), option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &geminiClient{
		client:    client,
		modelName: modelName,
	}, nil
}

// Extract sends the receipt image to Gemini and parses the structured result.
func (c *geminiClient) Extract(ctx context.Context, image []byte, mediaType string) (*model.Extraction, error) {
	// genai wants the bare image format, not the full media type.
	format := strings.TrimPrefix(mediaType, "image/")

	gm := c.client.GenerativeModel(c.modelName)
	resp, err := gm.GenerateContent(ctx, genai.ImageData(format, image), genai.Text(extractionPrompt))
	if err != nil {
		return nil, fmt.Errorf("gemini request failed: %w", err)
	}

	content, err := geminiText(resp)
	if err != nil {
		return nil, common.NewExtractionError(err)
	}

	extraction, err := parseExtraction(content)
	if err != nil {
		return nil, common.NewExtractionError(err)
	}
	return extraction, nil
}

// Classify asks Gemini to pick one of validSlugs for the purchase.
func (c *geminiClient) Classify(ctx context.Context, merchantName string, items []string, validSlugs []string) (string, float64, error) {
	gm := c.client.GenerativeModel(c.modelName)
	resp, err := gm.GenerateContent(ctx, genai.Text(classificationPrompt(merchantName, items, validSlugs)))
	if err != nil {
		return "", 0, fmt.Errorf("gemini request failed: %w", err)
	}

	content, err := geminiText(resp)
	if err != nil {
		return "", 0, common.NewClassificationError(err)
	}

	slug, confidence, err := parseClassification(content, validSlugs)
	if err != nil {
		return "", 0, common.NewClassificationError(err)
	}
	return slug, confidence, nil
}

// geminiText collects the text parts of the first candidate.
func geminiText(resp *genai.GenerateContentResponse) (string, error) {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("no content in response")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("no text content in response")
	}
	return sb.String(), nil
}
