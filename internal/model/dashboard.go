package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Period is a reporting month.
type Period struct {
	Year  int
	Month time.Month
}

// String formats the period as "2006-01".
func (p Period) String() string {
	return time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, time.UTC).Format("2006-01")
}

// Window returns the inclusive bounds of the period's calendar month in UTC:
// the first instant of the month and 23:59:59 on its last day.
func (p Period) Window() (start, end time.Time) {
	start = time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, time.UTC)
	end = start.AddDate(0, 1, 0).Add(-time.Second)
	return start, end
}

// CurrentPeriod returns the calendar month containing now, in UTC.
func CurrentPeriod(now time.Time) Period {
	now = now.UTC()
	return Period{Year: now.Year(), Month: now.Month()}
}

// CategorySpend is a per-category line on the dashboard. Remaining may be
// negative when the category is over budget.
type CategorySpend struct {
	Category     Category
	MonthlyLimit decimal.Decimal
	Spent        decimal.Decimal
	Remaining    decimal.Decimal
	PercentUsed  float64
}

// ReceiptSummary is the compact receipt representation shown in lists and on
// the dashboard.
type ReceiptSummary struct {
	Receipt     Receipt
	Category    *Category
	NeedsReview bool
}

// Dashboard is the budget overview for one reporting month. TotalSpent
// includes spending in categories that carry no limit even though those
// categories get no ByCategory line.
type Dashboard struct {
	Month          string
	TotalBudget    decimal.Decimal
	TotalSpent     decimal.Decimal
	TotalRemaining decimal.Decimal
	ByCategory     []CategorySpend
	RecentReceipts []ReceiptSummary
}
