package budget

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mfinch/pocketwatch/internal/model"
)

func saveReceiptOn(t *testing.T, env *testEnv, categoryID *uuid.UUID, amount string, date time.Time, confidence float64) *model.Receipt {
	t.Helper()
	receipt := &model.Receipt{
		UserID:      env.principal.UserID,
		HouseholdID: env.principal.HouseholdID,
		CategoryID:  categoryID,
		GrandTotal:  mustDecimal(t, amount),
		Confidence:  confidence,
		ExpenseType: model.ExpensePersonal,
	}
	receipt.TransactionDate = &date
	require.NoError(t, env.storage.SaveReceipt(context.Background(), receipt))
	return receipt
}

func TestBuildDashboardTotals(t *testing.T) {
	// Groceries has a limit and spend; Dining has spend but no limit. The
	// dining spend still counts toward the totals even though its line is
	// omitted from the breakdown.
	env := newTestEnv(t)
	ctx := context.Background()
	ledger := NewLedger(env.storage, nil)
	aggregator := NewAggregator(env.storage, ledger, 0.7, nil)

	groceries := env.categories["groceries"]
	dining := env.categories["dining"]
	march := &model.Period{Year: 2024, Month: time.March}

	_, err := ledger.SetBudget(ctx, env.principal, groceries.ID, mustDecimal(t, "300"), march)
	require.NoError(t, err)

	saveReceiptOn(t, env, &groceries.ID, "120", time.Date(2024, time.March, 5, 12, 0, 0, 0, time.UTC), 0.9)
	saveReceiptOn(t, env, &dining.ID, "50", time.Date(2024, time.March, 8, 19, 30, 0, 0, time.UTC), 0.9)

	dashboard, err := aggregator.BuildDashboard(ctx, env.principal, march)
	require.NoError(t, err)

	assert.Equal(t, "2024-03", dashboard.Month)
	assert.True(t, mustDecimal(t, "300").Equal(dashboard.TotalBudget))
	assert.True(t, mustDecimal(t, "170").Equal(dashboard.TotalSpent))
	assert.True(t, mustDecimal(t, "130").Equal(dashboard.TotalRemaining))

	require.Len(t, dashboard.ByCategory, 1)
	line := dashboard.ByCategory[0]
	assert.Equal(t, "groceries", line.Category.Slug)
	assert.True(t, mustDecimal(t, "120").Equal(line.Spent))
	assert.True(t, mustDecimal(t, "180").Equal(line.Remaining))
	assert.InDelta(t, 40.0, line.PercentUsed, 0.001)

	assert.Len(t, dashboard.RecentReceipts, 2)
}

func TestBuildDashboardOverspend(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ledger := NewLedger(env.storage, nil)
	aggregator := NewAggregator(env.storage, ledger, 0.7, nil)

	coffee := env.categories["coffee"]
	march := &model.Period{Year: 2024, Month: time.March}

	_, err := ledger.SetBudget(ctx, env.principal, coffee.ID, mustDecimal(t, "40"), march)
	require.NoError(t, err)
	saveReceiptOn(t, env, &coffee.ID, "55.50", time.Date(2024, time.March, 12, 8, 0, 0, 0, time.UTC), 0.95)

	dashboard, err := aggregator.BuildDashboard(ctx, env.principal, march)
	require.NoError(t, err)

	require.Len(t, dashboard.ByCategory, 1)
	line := dashboard.ByCategory[0]
	assert.True(t, mustDecimal(t, "-15.50").Equal(line.Remaining), "remaining may go negative")
	assert.InDelta(t, 138.8, line.PercentUsed, 0.001)
	assert.True(t, mustDecimal(t, "-15.50").Equal(dashboard.TotalRemaining))
}

func TestBuildDashboardLimitlessSpendHasNoLine(t *testing.T) {
	// A category with spend but no limit earns no breakdown line; its spend
	// still counts toward the spent total.
	env := newTestEnv(t)
	ctx := context.Background()
	aggregator := NewAggregator(env.storage, NewLedger(env.storage, nil), 0.7, nil)

	dining := env.categories["dining"]
	march := &model.Period{Year: 2024, Month: time.March}

	saveReceiptOn(t, env, &dining.ID, "50", time.Date(2024, time.March, 8, 19, 0, 0, 0, time.UTC), 0.9)

	dashboard, err := aggregator.BuildDashboard(ctx, env.principal, march)
	require.NoError(t, err)

	assert.Empty(t, dashboard.ByCategory)
	assert.True(t, mustDecimal(t, "50").Equal(dashboard.TotalSpent))
	assert.True(t, mustDecimal(t, "-50").Equal(dashboard.TotalRemaining))
}

func TestBuildDashboardIgnoresInactiveCategories(t *testing.T) {
	// A soft-deleted category contributes nothing: its limit and spend stay
	// out of the totals, and its receipts show no category in the recent
	// list.
	env := newTestEnv(t)
	ctx := context.Background()
	ledger := NewLedger(env.storage, nil)
	aggregator := NewAggregator(env.storage, ledger, 0.7, nil)

	groceries := env.categories["groceries"]
	pets := env.categories["pets"]
	march := &model.Period{Year: 2024, Month: time.March}

	_, err := ledger.SetBudget(ctx, env.principal, groceries.ID, mustDecimal(t, "300"), march)
	require.NoError(t, err)
	_, err = ledger.SetBudget(ctx, env.principal, pets.ID, mustDecimal(t, "80"), march)
	require.NoError(t, err)

	saveReceiptOn(t, env, &groceries.ID, "120", time.Date(2024, time.March, 5, 12, 0, 0, 0, time.UTC), 0.9)
	petsReceipt := saveReceiptOn(t, env, &pets.ID, "25", time.Date(2024, time.March, 6, 12, 0, 0, 0, time.UTC), 0.9)

	deactivated := pets
	deactivated.IsActive = false
	require.NoError(t, env.storage.UpdateCategory(ctx, &deactivated))

	dashboard, err := aggregator.BuildDashboard(ctx, env.principal, march)
	require.NoError(t, err)

	assert.True(t, mustDecimal(t, "300").Equal(dashboard.TotalBudget))
	assert.True(t, mustDecimal(t, "120").Equal(dashboard.TotalSpent))
	require.Len(t, dashboard.ByCategory, 1)
	assert.Equal(t, "groceries", dashboard.ByCategory[0].Category.Slug)

	for _, summary := range dashboard.RecentReceipts {
		if summary.Receipt.ID == petsReceipt.ID {
			assert.Nil(t, summary.Category)
		}
	}
}

func TestBuildDashboardNeedsReviewBoundary(t *testing.T) {
	// needs_review is a strict less-than comparison against the threshold.
	env := newTestEnv(t)
	ctx := context.Background()
	aggregator := NewAggregator(env.storage, NewLedger(env.storage, nil), 0.7, nil)

	groceries := env.categories["groceries"]
	march := &model.Period{Year: 2024, Month: time.March}

	below := saveReceiptOn(t, env, &groceries.ID, "10", time.Date(2024, time.March, 3, 0, 0, 0, 0, time.UTC), 0.69)
	atThreshold := saveReceiptOn(t, env, &groceries.ID, "10", time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC), 0.70)

	dashboard, err := aggregator.BuildDashboard(ctx, env.principal, march)
	require.NoError(t, err)

	reviewByID := make(map[uuid.UUID]bool)
	for _, summary := range dashboard.RecentReceipts {
		reviewByID[summary.Receipt.ID] = summary.NeedsReview
	}
	assert.True(t, reviewByID[below.ID])
	assert.False(t, reviewByID[atThreshold.ID])
}

func TestBuildDashboardMonthWindow(t *testing.T) {
	// Receipts outside the reporting month are excluded; effective date is
	// the transaction date when present, the creation time otherwise.
	env := newTestEnv(t)
	ctx := context.Background()
	aggregator := NewAggregator(env.storage, NewLedger(env.storage, nil), 0.7, nil)

	groceries := env.categories["groceries"]
	march := &model.Period{Year: 2024, Month: time.March}

	saveReceiptOn(t, env, &groceries.ID, "20", time.Date(2024, time.March, 31, 23, 59, 59, 0, time.UTC), 0.9)
	saveReceiptOn(t, env, &groceries.ID, "30", time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC), 0.9)

	// No transaction date: counted by creation time, which is "now" and
	// outside March 2024.
	undated := &model.Receipt{
		UserID:      env.principal.UserID,
		HouseholdID: env.principal.HouseholdID,
		CategoryID:  &groceries.ID,
		GrandTotal:  mustDecimal(t, "99"),
		Confidence:  1.0,
		ExpenseType: model.ExpensePersonal,
	}
	require.NoError(t, env.storage.SaveReceipt(ctx, undated))

	dashboard, err := aggregator.BuildDashboard(ctx, env.principal, march)
	require.NoError(t, err)

	assert.True(t, mustDecimal(t, "20").Equal(dashboard.TotalSpent))
	require.Len(t, dashboard.RecentReceipts, 1)
	assert.Equal(t, "groceries", dashboard.RecentReceipts[0].Category.Slug)
}

func TestBuildDashboardRecentOrderAndCap(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	aggregator := NewAggregator(env.storage, NewLedger(env.storage, nil), 0.7, nil)

	groceries := env.categories["groceries"]
	march := &model.Period{Year: 2024, Month: time.March}

	for day := 1; day <= 12; day++ {
		saveReceiptOn(t, env, &groceries.ID, "5", time.Date(2024, time.March, day, 12, 0, 0, 0, time.UTC), 0.9)
	}

	dashboard, err := aggregator.BuildDashboard(ctx, env.principal, march)
	require.NoError(t, err)

	require.Len(t, dashboard.RecentReceipts, 10)
	for i := 1; i < len(dashboard.RecentReceipts); i++ {
		prev := dashboard.RecentReceipts[i-1].Receipt.EffectiveDate()
		cur := dashboard.RecentReceipts[i].Receipt.EffectiveDate()
		assert.False(t, prev.Before(cur), "recent receipts are ordered by effective date descending")
	}
	assert.Equal(t, 12, dashboard.RecentReceipts[0].Receipt.EffectiveDate().Day())
	assert.Equal(t, 3, dashboard.RecentReceipts[9].Receipt.EffectiveDate().Day(),
		"the two oldest receipts fall off the ten item cap")
}
