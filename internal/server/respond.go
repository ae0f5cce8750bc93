package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mfinch/pocketwatch/internal/common"
	"github.com/mfinch/pocketwatch/internal/model"
)

// respondError maps the application error taxonomy onto HTTP statuses:
// validation problems are the caller's fault, missing targets are 404, and
// upstream model failures are server faults.
func (s *Server) respondError(c *gin.Context, err error) {
	var validationErr *common.ValidationError
	var extractionErr *common.ExtractionError
	var classificationErr *common.ClassificationError

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": validationErr.Msg})
	case errors.Is(err, common.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, common.ErrDuplicateEntry):
		// A slug collision is a correctable client mistake, same as any
		// other validation failure.
		c.JSON(http.StatusBadRequest, gin.H{"error": "duplicate entry"})
	case errors.As(err, &extractionErr), errors.As(err, &classificationErr):
		s.logger.Error("pipeline failure", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "receipt processing failed"})
	default:
		s.logger.Error("request failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

type categoryResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	Icon      string    `json:"icon"`
	IsActive  bool      `json:"is_active"`
	SortOrder int       `json:"sort_order"`
}

func newCategoryResponse(cat *model.Category) categoryResponse {
	return categoryResponse{
		ID:        cat.ID,
		Name:      cat.Name,
		Slug:      cat.Slug,
		Icon:      cat.Icon,
		IsActive:  cat.IsActive,
		SortOrder: cat.SortOrder,
	}
}

type receiptResponse struct {
	ID              uuid.UUID         `json:"id"`
	MerchantName    string            `json:"merchant_name"`
	TransactionDate *string           `json:"transaction_date"`
	Subtotal        *decimal.Decimal  `json:"subtotal"`
	Tax             *decimal.Decimal  `json:"tax"`
	Tip             *decimal.Decimal  `json:"tip"`
	GrandTotal      decimal.Decimal   `json:"grand_total"`
	PaymentMethod   string            `json:"payment_method"`
	Category        *categoryResponse `json:"category"`
	Confidence      float64           `json:"confidence"`
	NeedsReview     bool              `json:"needs_review"`
	Overridden      bool              `json:"overridden"`
	ExpenseType     model.ExpenseType `json:"expense_type"`
	ImageURL        string            `json:"image_url,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
}

func (s *Server) newReceiptResponse(receipt *model.Receipt, category *model.Category) receiptResponse {
	resp := receiptResponse{
		ID:            receipt.ID,
		MerchantName:  receipt.MerchantName,
		Subtotal:      receipt.Subtotal,
		Tax:           receipt.Tax,
		Tip:           receipt.Tip,
		GrandTotal:    receipt.GrandTotal,
		PaymentMethod: receipt.PaymentMethod,
		Confidence:    receipt.Confidence,
		NeedsReview:   receipt.Confidence < s.cfg.ConfidenceThreshold,
		Overridden:    receipt.Overridden,
		ExpenseType:   receipt.ExpenseType,
		CreatedAt:     receipt.CreatedAt,
	}
	if receipt.TransactionDate != nil {
		formatted := receipt.TransactionDate.Format("2006-01-02")
		resp.TransactionDate = &formatted
	}
	if receipt.ImagePath != "" {
		resp.ImageURL = s.blobs.URLFor(receipt.ImagePath)
	}
	if category != nil {
		cr := newCategoryResponse(category)
		resp.Category = &cr
	}
	return resp
}

// categoryFor resolves a receipt's category within the caller's household,
// tolerating a dangling reference.
func (s *Server) categoryFor(c *gin.Context, receipt *model.Receipt) *model.Category {
	if receipt.CategoryID == nil {
		return nil
	}
	category, err := s.storage.GetCategoryByID(c.Request.Context(), receipt.HouseholdID, *receipt.CategoryID)
	if err != nil {
		return nil
	}
	return category
}
