// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mfinch/pocketwatch/internal/model"
)

// ReceiptFilter defines filtering options for receipt queries. Start and End
// bound the receipt's effective date (transaction date falling back to
// creation time), both inclusive.
type ReceiptFilter struct {
	CategoryID *uuid.UUID
	Start      *time.Time
	End        *time.Time
	Limit      int
	Offset     int
}

// Storage defines the contract for our persistence layer.
type Storage interface {
	// Category operations
	GetCategories(ctx context.Context, householdID uuid.UUID, includeInactive bool) ([]model.Category, error)
	GetCategoryByID(ctx context.Context, householdID, id uuid.UUID) (*model.Category, error)
	GetCategoryBySlug(ctx context.Context, householdID uuid.UUID, slug string) (*model.Category, error)
	CreateCategory(ctx context.Context, category *model.Category) error
	UpdateCategory(ctx context.Context, category *model.Category) error

	// Receipt operations
	SaveReceipt(ctx context.Context, receipt *model.Receipt) error
	GetReceipt(ctx context.Context, userID, id uuid.UUID) (*model.Receipt, error)
	ListReceipts(ctx context.Context, userID uuid.UUID, filter ReceiptFilter) ([]model.Receipt, error)
	UpdateReceipt(ctx context.Context, receipt *model.Receipt) error
	DeleteReceipt(ctx context.Context, userID, id uuid.UUID) error
	SumReceiptsByCategory(ctx context.Context, userID uuid.UUID, start, end time.Time) (map[uuid.UUID]decimal.Decimal, error)

	// Budget operations
	GetBudgetsIntersecting(ctx context.Context, householdID uuid.UUID, start, end time.Time) ([]model.Budget, error)
	GetCategoryBudgetsIntersecting(ctx context.Context, householdID, categoryID uuid.UUID, start time.Time, end *time.Time) ([]model.Budget, error)
	SaveBudget(ctx context.Context, budget *model.Budget) error
	TruncateBudget(ctx context.Context, id uuid.UUID, effectiveTo time.Time) error
	DeleteBudget(ctx context.Context, id uuid.UUID) error

	// User operations
	GetUserByToken(ctx context.Context, token string) (*model.User, error)

	// Database management
	Migrate(ctx context.Context) error
	BeginTx(ctx context.Context) (Transaction, error)
	Close() error
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit() error
	Rollback() error
	// Include all Storage methods for use within transaction
	Storage
}

// Extractor turns a receipt image into structured purchase data via an
// external vision model. A successful result always carries a grand total.
type Extractor interface {
	Extract(ctx context.Context, image []byte, mediaType string) (*model.Extraction, error)
}

// Classifier assigns a category slug and confidence to purchase data. The
// returned slug is always drawn from validSlugs and confidence lies in [0,1].
type Classifier interface {
	Classify(ctx context.Context, merchantName string, items []string, validSlugs []string) (string, float64, error)
}

// BlobStore persists receipt images and resolves stored references to
// retrievable URLs.
type BlobStore interface {
	Save(ctx context.Context, data []byte, originalName string) (string, error)
	URLFor(ref string) string
}
