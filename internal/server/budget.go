package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mfinch/pocketwatch/internal/common"
	"github.com/mfinch/pocketwatch/internal/model"
)

type categorySpendResponse struct {
	Category     categoryResponse `json:"category"`
	MonthlyLimit decimal.Decimal  `json:"monthly_limit"`
	Spent        decimal.Decimal  `json:"spent"`
	Remaining    decimal.Decimal  `json:"remaining"`
	PercentUsed  float64          `json:"percent_used"`
}

type dashboardResponse struct {
	Month          string                  `json:"month"`
	TotalBudget    decimal.Decimal         `json:"total_budget"`
	TotalSpent     decimal.Decimal         `json:"total_spent"`
	TotalRemaining decimal.Decimal         `json:"total_remaining"`
	ByCategory     []categorySpendResponse `json:"by_category"`
	RecentReceipts []receiptResponse       `json:"recent_receipts"`
}

// getDashboard returns the budget overview for the requested month, default
// the current one.
func (s *Server) getDashboard(c *gin.Context) {
	p := principal(c)

	period, err := periodFromQuery(c)
	if err != nil {
		s.respondError(c, err)
		return
	}

	dashboard, err := s.aggregator.BuildDashboard(c.Request.Context(), p, period)
	if err != nil {
		s.respondError(c, err)
		return
	}

	resp := dashboardResponse{
		Month:          dashboard.Month,
		TotalBudget:    dashboard.TotalBudget,
		TotalSpent:     dashboard.TotalSpent,
		TotalRemaining: dashboard.TotalRemaining,
		ByCategory:     make([]categorySpendResponse, 0, len(dashboard.ByCategory)),
		RecentReceipts: make([]receiptResponse, 0, len(dashboard.RecentReceipts)),
	}
	for _, line := range dashboard.ByCategory {
		resp.ByCategory = append(resp.ByCategory, categorySpendResponse{
			Category:     newCategoryResponse(&line.Category),
			MonthlyLimit: line.MonthlyLimit,
			Spent:        line.Spent,
			Remaining:    line.Remaining,
			PercentUsed:  line.PercentUsed,
		})
	}
	for i := range dashboard.RecentReceipts {
		summary := dashboard.RecentReceipts[i]
		resp.RecentReceipts = append(resp.RecentReceipts, s.newReceiptResponse(&summary.Receipt, summary.Category))
	}

	c.JSON(http.StatusOK, resp)
}

type setBudgetRequest struct {
	MonthlyLimit decimal.Decimal `json:"monthly_limit"`
	Year         *int            `json:"year"`
	Month        *int            `json:"month"`
}

type setBudgetResponse struct {
	CategoryID    uuid.UUID       `json:"category_id"`
	MonthlyLimit  decimal.Decimal `json:"monthly_limit"`
	EffectiveFrom time.Time       `json:"effective_from"`
	EffectiveTo   *time.Time      `json:"effective_to"`
}

// setBudget records a new limit for the category, scoped to the given month
// or open-ended from now.
func (s *Server) setBudget(c *gin.Context) {
	p := principal(c)

	categoryID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		s.respondError(c, common.NewValidationError("invalid category id"))
		return
	}

	var req setBudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, common.NewValidationError("invalid request body: %v", err))
		return
	}
	if req.MonthlyLimit.IsNegative() {
		s.respondError(c, common.NewValidationError("monthly_limit cannot be negative"))
		return
	}
	if (req.Year == nil) != (req.Month == nil) {
		s.respondError(c, common.NewValidationError("year and month must be provided together"))
		return
	}

	var period *model.Period
	if req.Year != nil {
		if *req.Month < 1 || *req.Month > 12 {
			s.respondError(c, common.NewValidationError("invalid month %d", *req.Month))
			return
		}
		period = &model.Period{Year: *req.Year, Month: time.Month(*req.Month)}
	}

	budget, err := s.ledger.SetBudget(c.Request.Context(), p, categoryID, req.MonthlyLimit, period)
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, setBudgetResponse{
		CategoryID:    budget.CategoryID,
		MonthlyLimit:  budget.MonthlyLimit,
		EffectiveFrom: budget.EffectiveFrom,
		EffectiveTo:   budget.EffectiveTo,
	})
}
