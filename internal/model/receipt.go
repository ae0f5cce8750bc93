package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ExpenseType tags a receipt as a personal or shared household expense.
type ExpenseType string

const (
	// ExpensePersonal marks spending attributed to the uploading user alone.
	ExpensePersonal ExpenseType = "personal"
	// ExpenseHousehold marks spending shared across the household.
	ExpenseHousehold ExpenseType = "household"
)

// Valid reports whether the expense type is one of the known values.
func (e ExpenseType) Valid() bool {
	return e == ExpensePersonal || e == ExpenseHousehold
}

// LineItem is a single purchased item extracted from a receipt image.
type LineItem struct {
	Description string          `json:"description"`
	Quantity    float64         `json:"quantity"`
	TotalPrice  decimal.Decimal `json:"total_price"`
}

// Extraction holds the structured fields pulled from a receipt image by the
// vision model. GrandTotal is the only field guaranteed to be present;
// everything else may be zero-valued. RawJSON keeps the unmodified model
// output for auditing.
type Extraction struct {
	TransactionDate *time.Time
	Subtotal        *decimal.Decimal
	Tax             *decimal.Decimal
	Tip             *decimal.Decimal
	MerchantName    string
	PaymentMethod   string
	RawJSON         string
	LineItems       []LineItem
	GrandTotal      decimal.Decimal
}

// Receipt is a persisted purchase record, created either from an uploaded
// image or by manual entry.
type Receipt struct {
	CreatedAt       time.Time
	TransactionDate *time.Time
	Subtotal        *decimal.Decimal
	Tax             *decimal.Decimal
	Tip             *decimal.Decimal
	CategoryID      *uuid.UUID
	MerchantName    string
	PaymentMethod   string
	ImagePath       string
	RawExtraction   string
	ExpenseType     ExpenseType
	ID              uuid.UUID
	UserID          uuid.UUID
	HouseholdID     uuid.UUID
	GrandTotal      decimal.Decimal
	Confidence      float64
	Overridden      bool
}

// EffectiveDate is the date a receipt counts against for reporting: the
// transaction date when the extractor found one, the upload time otherwise.
func (r *Receipt) EffectiveDate() time.Time {
	if r.TransactionDate != nil {
		return *r.TransactionDate
	}
	return r.CreatedAt
}
