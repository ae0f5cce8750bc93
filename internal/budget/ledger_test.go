package budget

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mfinch/pocketwatch/internal/common"
	"github.com/mfinch/pocketwatch/internal/model"
	"github.com/mfinch/pocketwatch/internal/storage"
)

// testEnv is the shared fixture for ledger and aggregator tests: a migrated
// sqlite store plus the seeded principal and category set.
type testEnv struct {
	storage    *storage.SQLiteStorage
	principal  model.Principal
	categories map[string]model.Category
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.Migrate(ctx))

	user, err := store.GetUserByToken(ctx, storage.SeedUserToken)
	require.NoError(t, err)
	principal := user.Principal()

	categories, err := store.GetCategories(ctx, principal.HouseholdID, true)
	require.NoError(t, err)
	bySlug := make(map[string]model.Category, len(categories))
	for _, cat := range categories {
		bySlug[cat.Slug] = cat
	}

	return &testEnv{
		storage:    store,
		principal:  principal,
		categories: bySlug,
	}
}

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func TestSetBudgetOverlapRepair(t *testing.T) {
	// Existing open-ended record from January, then a March-only limit.
	// The January record must survive truncated to end just before March,
	// and the March record must be bounded to that month.
	env := newTestEnv(t)
	ctx := context.Background()
	ledger := NewLedger(env.storage, nil)
	groceries := env.categories["groceries"]

	existing := &model.Budget{
		ID:            uuid.New(),
		HouseholdID:   env.principal.HouseholdID,
		CategoryID:    groceries.ID,
		MonthlyLimit:  mustDecimal(t, "100"),
		EffectiveFrom: time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, env.storage.SaveBudget(ctx, existing))

	march := &model.Period{Year: 2024, Month: time.March}
	created, err := ledger.SetBudget(ctx, env.principal, groceries.ID, mustDecimal(t, "200"), march)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC), created.EffectiveFrom)
	require.NotNil(t, created.EffectiveTo)
	assert.Equal(t, time.Date(2024, time.March, 31, 23, 59, 59, 0, time.UTC), *created.EffectiveTo)

	februaryLimits, err := ledger.ActiveBudgets(ctx, env.principal.HouseholdID,
		time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, time.February, 29, 23, 59, 59, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, mustDecimal(t, "100").Equal(februaryLimits[groceries.ID]),
		"the truncated record still covers February")

	marchLimits, err := ledger.ActiveBudgets(ctx, env.principal.HouseholdID,
		time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, time.March, 31, 23, 59, 59, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, mustDecimal(t, "200").Equal(marchLimits[groceries.ID]))

	aprilLimits, err := ledger.ActiveBudgets(ctx, env.principal.HouseholdID,
		time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, time.April, 30, 23, 59, 59, 0, time.UTC))
	require.NoError(t, err)
	assert.Empty(t, aprilLimits, "the March record is bounded and has no successor")

	// The predecessor's new end must respect the closed-interval convention:
	// one second before the March window starts.
	records, err := env.storage.GetCategoryBudgetsIntersecting(ctx, env.principal.HouseholdID, groceries.ID,
		time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC), nil)
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.NotNil(t, records[0].EffectiveTo)
	assert.Equal(t, time.Date(2024, time.February, 29, 23, 59, 59, 0, time.UTC), *records[0].EffectiveTo)
}

func TestSetBudgetIdempotent(t *testing.T) {
	// Setting the same period and limit twice leaves exactly one record:
	// the second call deletes the first (it starts at the window start) and
	// inserts its replacement.
	env := newTestEnv(t)
	ctx := context.Background()
	ledger := NewLedger(env.storage, nil)
	dining := env.categories["dining"]

	march := &model.Period{Year: 2024, Month: time.March}
	_, err := ledger.SetBudget(ctx, env.principal, dining.ID, mustDecimal(t, "150"), march)
	require.NoError(t, err)
	_, err = ledger.SetBudget(ctx, env.principal, dining.ID, mustDecimal(t, "150"), march)
	require.NoError(t, err)

	start, end := march.Window()
	records, err := env.storage.GetCategoryBudgetsIntersecting(ctx, env.principal.HouseholdID, dining.ID, start, &end)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, mustDecimal(t, "150").Equal(records[0].MonthlyLimit))
}

func TestSetBudgetDeletesSupersededRecords(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ledger := NewLedger(env.storage, nil)
	coffee := env.categories["coffee"]

	// A record living entirely inside March is fully superseded.
	inner := &model.Budget{
		ID:            uuid.New(),
		HouseholdID:   env.principal.HouseholdID,
		CategoryID:    coffee.ID,
		MonthlyLimit:  mustDecimal(t, "40"),
		EffectiveFrom: time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC),
	}
	innerEnd := time.Date(2024, time.March, 20, 23, 59, 59, 0, time.UTC)
	inner.EffectiveTo = &innerEnd
	require.NoError(t, env.storage.SaveBudget(ctx, inner))

	march := &model.Period{Year: 2024, Month: time.March}
	created, err := ledger.SetBudget(ctx, env.principal, coffee.ID, mustDecimal(t, "60"), march)
	require.NoError(t, err)

	start, end := march.Window()
	records, err := env.storage.GetCategoryBudgetsIntersecting(ctx, env.principal.HouseholdID, coffee.ID, start, &end)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, created.ID, records[0].ID)
}

func TestSetBudgetOpenWindow(t *testing.T) {
	// Without a target period the new record runs from now into the open
	// future, truncating any open predecessor.
	env := newTestEnv(t)
	ctx := context.Background()
	ledger := NewLedger(env.storage, nil)
	travel := env.categories["travel"]

	previous := &model.Budget{
		ID:            uuid.New(),
		HouseholdID:   env.principal.HouseholdID,
		CategoryID:    travel.ID,
		MonthlyLimit:  mustDecimal(t, "500"),
		EffectiveFrom: time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, env.storage.SaveBudget(ctx, previous))

	created, err := ledger.SetBudget(ctx, env.principal, travel.ID, mustDecimal(t, "650"), nil)
	require.NoError(t, err)
	assert.Nil(t, created.EffectiveTo)

	records, err := env.storage.GetCategoryBudgetsIntersecting(ctx, env.principal.HouseholdID, travel.ID,
		time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC), nil)
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.NotNil(t, records[0].EffectiveTo, "the predecessor is no longer open-ended")
	assert.True(t, records[0].EffectiveTo.Before(created.EffectiveFrom))
	assert.Nil(t, records[1].EffectiveTo)
}

func TestSetBudgetDeletesSubSecondPredecessor(t *testing.T) {
	// A record starting inside the final second before the new window cannot
	// be truncated: its effective_to would precede its effective_from. It is
	// deleted instead so the repaired history stays free of inverted
	// intervals.
	env := newTestEnv(t)
	ctx := context.Background()
	ledger := NewLedger(env.storage, nil)
	gifts := env.categories["gifts"]

	existing := &model.Budget{
		ID:            uuid.New(),
		HouseholdID:   env.principal.HouseholdID,
		CategoryID:    gifts.ID,
		MonthlyLimit:  mustDecimal(t, "100"),
		EffectiveFrom: time.Date(2024, time.February, 29, 23, 59, 59, 500000000, time.UTC),
	}
	require.NoError(t, env.storage.SaveBudget(ctx, existing))

	march := &model.Period{Year: 2024, Month: time.March}
	created, err := ledger.SetBudget(ctx, env.principal, gifts.ID, mustDecimal(t, "200"), march)
	require.NoError(t, err)

	records, err := env.storage.GetCategoryBudgetsIntersecting(ctx, env.principal.HouseholdID, gifts.ID,
		time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC), nil)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, created.ID, records[0].ID)

	marchLimits, err := ledger.ActiveBudgets(ctx, env.principal.HouseholdID,
		time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, time.March, 31, 23, 59, 59, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, mustDecimal(t, "200").Equal(marchLimits[gifts.ID]))
}

func TestSetBudgetDoubleSubmit(t *testing.T) {
	// Two back-to-back open-window calls (a double-submitted form) must never
	// leave a record whose effective_to precedes its effective_from; whichever
	// records survive, the latest one carries the new limit and stays open.
	env := newTestEnv(t)
	ctx := context.Background()
	ledger := NewLedger(env.storage, nil)
	home := env.categories["home"]

	_, err := ledger.SetBudget(ctx, env.principal, home.ID, mustDecimal(t, "500"), nil)
	require.NoError(t, err)
	created, err := ledger.SetBudget(ctx, env.principal, home.ID, mustDecimal(t, "650"), nil)
	require.NoError(t, err)

	records, err := env.storage.GetCategoryBudgetsIntersecting(ctx, env.principal.HouseholdID, home.ID,
		time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC), nil)
	require.NoError(t, err)
	require.NotEmpty(t, records)
	for _, record := range records {
		if record.EffectiveTo != nil {
			assert.False(t, record.EffectiveTo.Before(record.EffectiveFrom),
				"no record may end before it starts")
		}
	}

	last := records[len(records)-1]
	assert.Equal(t, created.ID, last.ID)
	assert.Nil(t, last.EffectiveTo)
	assert.True(t, mustDecimal(t, "650").Equal(last.MonthlyLimit))
}

func TestSetBudgetUnknownCategory(t *testing.T) {
	env := newTestEnv(t)
	ledger := NewLedger(env.storage, nil)

	_, err := ledger.SetBudget(context.Background(), env.principal, uuid.New(), mustDecimal(t, "100"), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestActiveBudgetsOverlapFailsLoudly(t *testing.T) {
	// Two records covering the same instant for one category is an
	// invariant violation; the ledger reports it instead of picking one.
	env := newTestEnv(t)
	ctx := context.Background()
	ledger := NewLedger(env.storage, nil)
	pets := env.categories["pets"]

	for _, limit := range []string{"30", "45"} {
		record := &model.Budget{
			ID:            uuid.New(),
			HouseholdID:   env.principal.HouseholdID,
			CategoryID:    pets.ID,
			MonthlyLimit:  mustDecimal(t, limit),
			EffectiveFrom: time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC),
		}
		require.NoError(t, env.storage.SaveBudget(ctx, record))
	}

	_, err := ledger.ActiveBudgets(ctx, env.principal.HouseholdID,
		time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, time.March, 31, 23, 59, 59, 0, time.UTC))
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrBudgetOverlap)
}
