package budget

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mfinch/pocketwatch/internal/model"
	"github.com/mfinch/pocketwatch/internal/service"
)

// recentReceiptCount is how many receipts the dashboard shows.
const recentReceiptCount = 10

var oneHundred = decimal.NewFromInt(100)

// Aggregator builds the monthly spending dashboard by reconciling the ledger's
// active limits against actual per-category spend.
type Aggregator struct {
	storage   service.Storage
	ledger    *Ledger
	logger    *slog.Logger
	threshold float64
}

// NewAggregator creates an aggregator. threshold is the categorization
// confidence below which a receipt is flagged for review.
func NewAggregator(storage service.Storage, ledger *Ledger, threshold float64, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		storage:   storage,
		ledger:    ledger,
		threshold: threshold,
		logger:    logger,
	}
}

// BuildDashboard assembles the dashboard for the given reporting month, or
// the current calendar month (UTC) when period is nil.
//
// Only active categories participate: their limits and spend feed the totals,
// but a category gets a breakdown line only when it carries a positive limit.
// Spend in a limit-less category still counts toward total_spent even though
// its line is omitted. Every dashboard build recomputes from the full receipt
// set for the period.
func (a *Aggregator) BuildDashboard(ctx context.Context, principal model.Principal, period *model.Period) (*model.Dashboard, error) {
	p := model.CurrentPeriod(time.Now())
	if period != nil {
		p = *period
	}
	start, end := p.Window()

	spent, err := a.storage.SumReceiptsByCategory(ctx, principal.UserID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to sum receipts: %w", err)
	}

	limits, err := a.ledger.ActiveBudgets(ctx, principal.HouseholdID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch active budgets: %w", err)
	}

	categories, err := a.storage.GetCategories(ctx, principal.HouseholdID, false)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch categories: %w", err)
	}

	dashboard := &model.Dashboard{
		Month:      p.String(),
		ByCategory: make([]model.CategorySpend, 0, len(categories)),
	}

	for _, category := range categories {
		limit := limits[category.ID]
		categorySpent := spent[category.ID]

		dashboard.TotalBudget = dashboard.TotalBudget.Add(limit)
		dashboard.TotalSpent = dashboard.TotalSpent.Add(categorySpent)

		if !limit.IsPositive() {
			continue
		}

		line := model.CategorySpend{
			Category:     category,
			MonthlyLimit: limit,
			Spent:        categorySpent,
			Remaining:    limit.Sub(categorySpent),
		}
		line.PercentUsed, _ = categorySpent.Mul(oneHundred).Div(limit).Round(1).Float64()
		dashboard.ByCategory = append(dashboard.ByCategory, line)
	}
	dashboard.TotalRemaining = dashboard.TotalBudget.Sub(dashboard.TotalSpent)

	recent, err := a.recentReceipts(ctx, principal, categories, start, end)
	if err != nil {
		return nil, err
	}
	dashboard.RecentReceipts = recent

	a.logger.Debug("dashboard built",
		"month", dashboard.Month,
		"categories", len(dashboard.ByCategory),
		"total_spent", dashboard.TotalSpent)
	return dashboard, nil
}

// recentReceipts returns the period's most recent receipts by effective date,
// each tagged with its category and review flag. Receipts referencing a
// deactivated category carry no category.
func (a *Aggregator) recentReceipts(ctx context.Context, principal model.Principal, categories []model.Category, start, end time.Time) ([]model.ReceiptSummary, error) {
	receipts, err := a.storage.ListReceipts(ctx, principal.UserID, service.ReceiptFilter{
		Start: &start,
		End:   &end,
		Limit: recentReceiptCount,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list recent receipts: %w", err)
	}

	byID := make(map[string]*model.Category, len(categories))
	for i := range categories {
		byID[categories[i].ID.String()] = &categories[i]
	}

	summaries := make([]model.ReceiptSummary, 0, len(receipts))
	for _, receipt := range receipts {
		summary := model.ReceiptSummary{
			Receipt:     receipt,
			NeedsReview: receipt.Confidence < a.threshold,
		}
		if receipt.CategoryID != nil {
			summary.Category = byID[receipt.CategoryID.String()]
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}
