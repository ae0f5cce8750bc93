package engine

import (
	"context"
	"sync"

	"github.com/mfinch/pocketwatch/internal/model"
)

// MockClassifier is a test implementation of the Classifier interface. It
// returns a fixed slug and confidence, records every call, and can be
// programmed to fail.
type MockClassifier struct {
	Err        error
	Slug       string
	calls      []MockClassifyCall
	Confidence float64
	mu         sync.Mutex
}

// MockClassifyCall records details of one classification request.
type MockClassifyCall struct {
	MerchantName string
	Items        []string
	ValidSlugs   []string
}

// NewMockClassifier creates a mock classifier returning slug and confidence
// on every call.
func NewMockClassifier(slug string, confidence float64) *MockClassifier {
	return &MockClassifier{
		Slug:       slug,
		Confidence: confidence,
		calls:      make([]MockClassifyCall, 0),
	}
}

// Classify records the call and returns the programmed result.
func (m *MockClassifier) Classify(_ context.Context, merchantName string, items []string, validSlugs []string) (string, float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, MockClassifyCall{
		MerchantName: merchantName,
		Items:        items,
		ValidSlugs:   validSlugs,
	})

	if m.Err != nil {
		return "", 0, m.Err
	}
	return m.Slug, m.Confidence, nil
}

// Calls returns a copy of all recorded calls for verification in tests.
func (m *MockClassifier) Calls() []MockClassifyCall {
	m.mu.Lock()
	defer m.mu.Unlock()

	calls := make([]MockClassifyCall, len(m.calls))
	copy(calls, m.calls)
	return calls
}

// CallCount returns the number of times Classify was called.
func (m *MockClassifier) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// MockExtractor is a test implementation of the Extractor interface returning
// a fixed extraction or error.
type MockExtractor struct {
	Extraction *model.Extraction
	Err        error
	calls      int
	mu         sync.Mutex
}

// Extract returns the programmed extraction or error.
func (m *MockExtractor) Extract(_ context.Context, _ []byte, _ string) (*model.Extraction, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}
	return m.Extraction, nil
}

// CallCount returns the number of times Extract was called.
func (m *MockExtractor) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
