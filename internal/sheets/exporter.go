package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/mfinch/pocketwatch/internal/model"
)

// Exporter writes a month's dashboard to a Google Sheets tab named after the
// reporting month.
type Exporter struct {
	service *sheets.Service
	logger  *slog.Logger
	config  Config
}

// NewExporter creates an exporter using the saved OAuth token.
func NewExporter(ctx context.Context, cfg Config, logger *slog.Logger) (*Exporter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid sheets config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	source, err := tokenSource(ctx, cfg)
	if err != nil {
		return nil, err
	}

	service, err := sheets.NewService(ctx, option.WithTokenSource(source))
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return &Exporter{
		service: service,
		config:  cfg,
		logger:  logger,
	}, nil
}

// Export writes the dashboard to the tab named after its month, replacing any
// previous contents.
func (e *Exporter) Export(ctx context.Context, dashboard *model.Dashboard) error {
	e.logger.Info("exporting dashboard",
		"month", dashboard.Month,
		"categories", len(dashboard.ByCategory))

	if err := e.ensureSheet(ctx, dashboard.Month); err != nil {
		return err
	}

	clearRange := fmt.Sprintf("'%s'!A:E", dashboard.Month)
	if _, err := e.service.Spreadsheets.Values.Clear(e.config.SpreadsheetID, clearRange, &sheets.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to clear sheet: %w", err)
	}

	values := dashboardRows(dashboard)
	writeRange := fmt.Sprintf("'%s'!A1", dashboard.Month)
	_, err := e.service.Spreadsheets.Values.Update(e.config.SpreadsheetID, writeRange, &sheets.ValueRange{
		Values: values,
	}).ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to write dashboard: %w", err)
	}

	e.logger.Info("dashboard exported", "month", dashboard.Month, "rows", len(values))
	return nil
}

// ensureSheet adds a tab for the month, tolerating one that already exists.
func (e *Exporter) ensureSheet(ctx context.Context, title string) error {
	_, err := e.service.Spreadsheets.BatchUpdate(e.config.SpreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{
			{
				AddSheet: &sheets.AddSheetRequest{
					Properties: &sheets.SheetProperties{Title: title},
				},
			},
		},
	}).Context(ctx).Do()
	if err == nil {
		return nil
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == 400 && strings.Contains(apiErr.Message, "already exists") {
		return nil
	}
	return fmt.Errorf("failed to add sheet %q: %w", title, err)
}

// dashboardRows flattens the dashboard into spreadsheet rows: a totals block,
// the category breakdown, then the recent receipts.
func dashboardRows(dashboard *model.Dashboard) [][]any {
	rows := [][]any{
		{"Budget Report", dashboard.Month},
		{"Total Budget", dashboard.TotalBudget.String()},
		{"Total Spent", dashboard.TotalSpent.String()},
		{"Total Remaining", dashboard.TotalRemaining.String()},
		{},
		{"Category", "Limit", "Spent", "Remaining", "Used %"},
	}

	for _, line := range dashboard.ByCategory {
		rows = append(rows, []any{
			line.Category.Name,
			line.MonthlyLimit.String(),
			line.Spent.String(),
			line.Remaining.String(),
			line.PercentUsed,
		})
	}

	rows = append(rows, []any{}, []any{"Date", "Merchant", "Category", "Amount", "Needs Review"})
	for _, summary := range dashboard.RecentReceipts {
		categoryName := ""
		if summary.Category != nil {
			categoryName = summary.Category.Name
		}
		rows = append(rows, []any{
			summary.Receipt.EffectiveDate().Format("2006-01-02"),
			summary.Receipt.MerchantName,
			categoryName,
			summary.Receipt.GrandTotal.String(),
			summary.NeedsReview,
		})
	}
	return rows
}
