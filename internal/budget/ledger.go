// Package budget implements the temporal budget ledger and the spending
// aggregator built on top of it. Budget limits are versioned per category as
// date-ranged records; the ledger repairs overlaps on write so that at most
// one record per (household, category) covers any instant.
package budget

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mfinch/pocketwatch/internal/common"
	"github.com/mfinch/pocketwatch/internal/model"
	"github.com/mfinch/pocketwatch/internal/service"
)

// Ledger answers "what limit applies to this category during interval X" and
// performs overlap repair when a new limit is set.
type Ledger struct {
	storage service.Storage
	logger  *slog.Logger
	locks   map[string]*sync.Mutex
	mu      sync.Mutex
}

// NewLedger creates a ledger over the given storage.
func NewLedger(storage service.Storage, logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{
		storage: storage,
		logger:  logger,
		locks:   make(map[string]*sync.Mutex),
	}
}

// lockFor returns the mutex guarding one (household, category) pair. The
// repair sequence is read-modify-write, so concurrent SetBudget calls on the
// same pair must serialize or they can produce duplicate intervals.
func (l *Ledger) lockFor(householdID, categoryID uuid.UUID) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := householdID.String() + "|" + categoryID.String()
	lock, ok := l.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[key] = lock
	}
	return lock
}

// SetBudget records a new monthly limit for the category. With a period the
// new record covers exactly that calendar month; without one it covers
// [now, open). Existing records of the same category intersecting the new
// window are repaired: records starting at least one second before the window
// survive truncated to end one second before the window start, the rest are
// deleted outright (truncating a record that starts closer than that would
// invert its interval). Records elsewhere in the category's history are left
// untouched.
func (l *Ledger) SetBudget(ctx context.Context, principal model.Principal, categoryID uuid.UUID, monthlyLimit decimal.Decimal, period *model.Period) (*model.Budget, error) {
	category, err := l.storage.GetCategoryByID(ctx, principal.HouseholdID, categoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve category: %w", err)
	}

	var (
		windowStart time.Time
		windowEnd   *time.Time
	)
	if period != nil {
		start, end := period.Window()
		windowStart = start
		windowEnd = &end
	} else {
		windowStart = time.Now().UTC()
	}

	lock := l.lockFor(principal.HouseholdID, category.ID)
	lock.Lock()
	defer lock.Unlock()

	tx, err := l.storage.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	existing, err := tx.GetCategoryBudgetsIntersecting(ctx, principal.HouseholdID, category.ID, windowStart, windowEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to query overlapping budgets: %w", err)
	}

	// Closed intervals on both ends: a surviving predecessor ends one second
	// before the new window starts. A record starting inside that final
	// second cannot be truncated without inverting its interval, so it is
	// deleted along with the records starting inside the window.
	cutoff := windowStart.Add(-time.Second)
	for i := range existing {
		record := &existing[i]
		if !record.EffectiveFrom.After(cutoff) {
			if err := tx.TruncateBudget(ctx, record.ID, cutoff); err != nil {
				return nil, fmt.Errorf("failed to truncate budget %s: %w", record.ID, err)
			}
			l.logger.Debug("truncated overlapping budget",
				"budget_id", record.ID,
				"category_id", category.ID,
				"effective_to", cutoff)
		} else {
			if err := tx.DeleteBudget(ctx, record.ID); err != nil {
				return nil, fmt.Errorf("failed to delete superseded budget %s: %w", record.ID, err)
			}
			l.logger.Debug("deleted superseded budget",
				"budget_id", record.ID,
				"category_id", category.ID)
		}
	}

	budget := &model.Budget{
		ID:            uuid.New(),
		HouseholdID:   principal.HouseholdID,
		CategoryID:    category.ID,
		MonthlyLimit:  monthlyLimit,
		EffectiveFrom: windowStart,
		EffectiveTo:   windowEnd,
	}
	if err := tx.SaveBudget(ctx, budget); err != nil {
		return nil, fmt.Errorf("failed to save budget: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit budget repair: %w", err)
	}

	l.logger.Info("budget set",
		"category", category.Slug,
		"monthly_limit", monthlyLimit,
		"effective_from", windowStart,
		"open_ended", windowEnd == nil)
	return budget, nil
}

// ActiveBudgets returns the limit in force per category during [start, end].
// Two records for the same category intersecting the interval is an invariant
// violation and reported as an error rather than silently picking one.
func (l *Ledger) ActiveBudgets(ctx context.Context, householdID uuid.UUID, start, end time.Time) (map[uuid.UUID]decimal.Decimal, error) {
	records, err := l.storage.GetBudgetsIntersecting(ctx, householdID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query budgets: %w", err)
	}

	limits := make(map[uuid.UUID]decimal.Decimal, len(records))
	for _, record := range records {
		if _, ok := limits[record.CategoryID]; ok {
			return nil, fmt.Errorf("category %s has multiple budget records covering [%s, %s]: %w",
				record.CategoryID, start.Format(time.RFC3339), end.Format(time.RFC3339), common.ErrBudgetOverlap)
		}
		limits[record.CategoryID] = record.MonthlyLimit
	}
	return limits, nil
}
