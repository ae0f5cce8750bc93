package server

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mfinch/pocketwatch/internal/common"
	"github.com/mfinch/pocketwatch/internal/model"
	"github.com/mfinch/pocketwatch/internal/service"
)

const (
	defaultListLimit = 50
	maxListLimit     = 100
)

var allowedUploadTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

type manualReceiptRequest struct {
	MerchantName    string           `json:"merchant_name"`
	GrandTotal      decimal.Decimal  `json:"grand_total"`
	TransactionDate *string          `json:"transaction_date"`
	Subtotal        *decimal.Decimal `json:"subtotal"`
	Tax             *decimal.Decimal `json:"tax"`
	Tip             *decimal.Decimal `json:"tip"`
	PaymentMethod   string           `json:"payment_method"`
	CategoryID      uuid.UUID        `json:"category_id"`
	ExpenseType     string           `json:"expense_type"`
}

// createManualReceipt records a receipt without an image. The category must
// exist in the caller's household; confidence is fixed at 1.0 and overridden
// at true because a human chose the category.
func (s *Server) createManualReceipt(c *gin.Context) {
	p := principal(c)

	var req manualReceiptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, common.NewValidationError("invalid request body: %v", err))
		return
	}
	if !req.GrandTotal.IsPositive() {
		s.respondError(c, common.NewValidationError("grand_total must be positive"))
		return
	}
	if req.CategoryID == uuid.Nil {
		s.respondError(c, common.NewValidationError("category_id is required"))
		return
	}

	category, err := s.storage.GetCategoryByID(c.Request.Context(), p.HouseholdID, req.CategoryID)
	if err != nil {
		s.respondError(c, common.NewValidationError("unknown category %s", req.CategoryID))
		return
	}

	receipt := &model.Receipt{
		UserID:        p.UserID,
		HouseholdID:   p.HouseholdID,
		MerchantName:  req.MerchantName,
		GrandTotal:    req.GrandTotal,
		Subtotal:      req.Subtotal,
		Tax:           req.Tax,
		Tip:           req.Tip,
		PaymentMethod: req.PaymentMethod,
		CategoryID:    &category.ID,
		Confidence:    1.0,
		Overridden:    true,
		ExpenseType:   model.ExpensePersonal,
	}
	if req.ExpenseType != "" {
		receipt.ExpenseType = model.ExpenseType(req.ExpenseType)
		if !receipt.ExpenseType.Valid() {
			s.respondError(c, common.NewValidationError("invalid expense_type %q", req.ExpenseType))
			return
		}
	}
	if req.TransactionDate != nil {
		date, err := time.Parse("2006-01-02", *req.TransactionDate)
		if err != nil {
			s.respondError(c, common.NewValidationError("invalid transaction_date %q", *req.TransactionDate))
			return
		}
		receipt.TransactionDate = &date
	}

	if err := s.storage.SaveReceipt(c.Request.Context(), receipt); err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, s.newReceiptResponse(receipt, category))
}

// uploadReceipt ingests a receipt image: validate type and size, store the
// blob, run extraction plus categorization, then persist. Nothing is written
// to the database unless the whole pipeline succeeds; a blob written before a
// pipeline failure is left behind.
func (s *Server) uploadReceipt(c *gin.Context) {
	p := principal(c)

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		s.respondError(c, common.NewValidationError("missing file upload"))
		return
	}
	defer func() { _ = file.Close() }()

	mediaType := header.Header.Get("Content-Type")
	if !allowedUploadTypes[mediaType] {
		s.respondError(c, common.NewValidationError("unsupported media type %q, want JPEG, PNG, or WebP", mediaType))
		return
	}
	if header.Size > s.cfg.MaxUploadBytes {
		s.respondError(c, common.NewValidationError("file exceeds the %d byte upload limit", s.cfg.MaxUploadBytes))
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		s.respondError(c, fmt.Errorf("failed to read upload: %w", err))
		return
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		s.respondError(c, common.NewValidationError("file exceeds the %d byte upload limit", s.cfg.MaxUploadBytes))
		return
	}

	expenseType := model.ExpensePersonal
	if v := c.PostForm("expense_type"); v != "" {
		expenseType = model.ExpenseType(v)
		if !expenseType.Valid() {
			s.respondError(c, common.NewValidationError("invalid expense_type %q", v))
			return
		}
	}

	ref, err := s.blobs.Save(c.Request.Context(), data, header.Filename)
	if err != nil {
		s.respondError(c, fmt.Errorf("failed to store image: %w", err))
		return
	}

	categories, err := s.storage.GetCategories(c.Request.Context(), p.HouseholdID, false)
	if err != nil {
		s.respondError(c, err)
		return
	}

	result, err := s.processor.Process(c.Request.Context(), data, mediaType, categories)
	if err != nil {
		s.respondError(c, err)
		return
	}

	extraction := result.Extraction
	receipt := &model.Receipt{
		UserID:          p.UserID,
		HouseholdID:     p.HouseholdID,
		ImagePath:       ref,
		MerchantName:    extraction.MerchantName,
		TransactionDate: extraction.TransactionDate,
		Subtotal:        extraction.Subtotal,
		Tax:             extraction.Tax,
		Tip:             extraction.Tip,
		GrandTotal:      extraction.GrandTotal,
		PaymentMethod:   extraction.PaymentMethod,
		CategoryID:      result.CategoryID,
		Confidence:      result.Confidence,
		ExpenseType:     expenseType,
		RawExtraction:   extraction.RawJSON,
	}

	if err := s.storage.SaveReceipt(c.Request.Context(), receipt); err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, s.newReceiptResponse(receipt, s.categoryFor(c, receipt)))
}

// listReceipts returns the caller's receipts, optionally filtered by category
// and reporting month, ordered by effective date descending.
func (s *Server) listReceipts(c *gin.Context) {
	p := principal(c)

	filter := service.ReceiptFilter{Limit: defaultListLimit}
	if v := c.Query("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 {
			s.respondError(c, common.NewValidationError("invalid limit %q", v))
			return
		}
		if limit > maxListLimit {
			limit = maxListLimit
		}
		filter.Limit = limit
	}
	if v := c.Query("offset"); v != "" {
		offset, err := strconv.Atoi(v)
		if err != nil || offset < 0 {
			s.respondError(c, common.NewValidationError("invalid offset %q", v))
			return
		}
		filter.Offset = offset
	}
	if v := c.Query("category_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			s.respondError(c, common.NewValidationError("invalid category_id %q", v))
			return
		}
		filter.CategoryID = &id
	}

	period, err := periodFromQuery(c)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if period != nil {
		start, end := period.Window()
		filter.Start = &start
		filter.End = &end
	}

	receipts, err := s.storage.ListReceipts(c.Request.Context(), p.UserID, filter)
	if err != nil {
		s.respondError(c, err)
		return
	}

	responses := make([]receiptResponse, 0, len(receipts))
	for i := range receipts {
		responses = append(responses, s.newReceiptResponse(&receipts[i], s.categoryFor(c, &receipts[i])))
	}
	c.JSON(http.StatusOK, gin.H{"receipts": responses})
}

func (s *Server) getReceipt(c *gin.Context) {
	p := principal(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		s.respondError(c, common.NewValidationError("invalid receipt id"))
		return
	}

	receipt, err := s.storage.GetReceipt(c.Request.Context(), p.UserID, id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.newReceiptResponse(receipt, s.categoryFor(c, receipt)))
}

type updateReceiptRequest struct {
	MerchantName    *string          `json:"merchant_name"`
	GrandTotal      *decimal.Decimal `json:"grand_total"`
	TransactionDate *string          `json:"transaction_date"`
	PaymentMethod   *string          `json:"payment_method"`
	CategoryID      *uuid.UUID       `json:"category_id"`
	ExpenseType     *string          `json:"expense_type"`
}

// updateReceipt applies a partial edit. Changing the category is a human
// correction, so it flips overridden to true.
func (s *Server) updateReceipt(c *gin.Context) {
	p := principal(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		s.respondError(c, common.NewValidationError("invalid receipt id"))
		return
	}

	var req updateReceiptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, common.NewValidationError("invalid request body: %v", err))
		return
	}

	receipt, err := s.storage.GetReceipt(c.Request.Context(), p.UserID, id)
	if err != nil {
		s.respondError(c, err)
		return
	}

	if req.MerchantName != nil {
		receipt.MerchantName = *req.MerchantName
	}
	if req.GrandTotal != nil {
		if !req.GrandTotal.IsPositive() {
			s.respondError(c, common.NewValidationError("grand_total must be positive"))
			return
		}
		receipt.GrandTotal = *req.GrandTotal
	}
	if req.TransactionDate != nil {
		date, err := time.Parse("2006-01-02", *req.TransactionDate)
		if err != nil {
			s.respondError(c, common.NewValidationError("invalid transaction_date %q", *req.TransactionDate))
			return
		}
		receipt.TransactionDate = &date
	}
	if req.PaymentMethod != nil {
		receipt.PaymentMethod = *req.PaymentMethod
	}
	if req.ExpenseType != nil {
		expenseType := model.ExpenseType(*req.ExpenseType)
		if !expenseType.Valid() {
			s.respondError(c, common.NewValidationError("invalid expense_type %q", *req.ExpenseType))
			return
		}
		receipt.ExpenseType = expenseType
	}
	if req.CategoryID != nil {
		category, err := s.storage.GetCategoryByID(c.Request.Context(), p.HouseholdID, *req.CategoryID)
		if err != nil {
			s.respondError(c, common.NewValidationError("unknown category %s", *req.CategoryID))
			return
		}
		receipt.CategoryID = &category.ID
		receipt.Overridden = true
	}

	if err := s.storage.UpdateReceipt(c.Request.Context(), receipt); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.newReceiptResponse(receipt, s.categoryFor(c, receipt)))
}

func (s *Server) deleteReceipt(c *gin.Context) {
	p := principal(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		s.respondError(c, common.NewValidationError("invalid receipt id"))
		return
	}

	if err := s.storage.DeleteReceipt(c.Request.Context(), p.UserID, id); err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// periodFromQuery reads the optional year/month query pair. Both must be
// present together.
func periodFromQuery(c *gin.Context) (*model.Period, error) {
	yearStr, monthStr := c.Query("year"), c.Query("month")
	if yearStr == "" && monthStr == "" {
		return nil, nil
	}
	if yearStr == "" || monthStr == "" {
		return nil, common.NewValidationError("year and month must be provided together")
	}

	year, err := strconv.Atoi(yearStr)
	if err != nil || year < 1 {
		return nil, common.NewValidationError("invalid year %q", yearStr)
	}
	month, err := strconv.Atoi(monthStr)
	if err != nil || month < 1 || month > 12 {
		return nil, common.NewValidationError("invalid month %q", monthStr)
	}
	return &model.Period{Year: year, Month: time.Month(month)}, nil
}
