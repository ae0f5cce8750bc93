package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"database/sql"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mfinch/pocketwatch/internal/common"
	"github.com/mfinch/pocketwatch/internal/model"
)

const budgetColumns = `id, household_id, category_id, monthly_limit, effective_from, effective_to`

func scanBudget(row interface{ Scan(...any) error }) (*model.Budget, error) {
	var b model.Budget
	var id, householdID, categoryID, limit string
	var effectiveTo sql.NullTime

	if err := row.Scan(&id, &householdID, &categoryID, &limit, &b.EffectiveFrom, &effectiveTo); err != nil {
		return nil, err
	}

	var err error
	if b.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("failed to parse budget id: %w", err)
	}
	if b.HouseholdID, err = uuid.Parse(householdID); err != nil {
		return nil, fmt.Errorf("failed to parse budget household id: %w", err)
	}
	if b.CategoryID, err = uuid.Parse(categoryID); err != nil {
		return nil, fmt.Errorf("failed to parse budget category id: %w", err)
	}
	if b.MonthlyLimit, err = decimal.NewFromString(limit); err != nil {
		return nil, fmt.Errorf("failed to parse monthly limit %q: %w", limit, err)
	}
	b.EffectiveFrom = b.EffectiveFrom.UTC()
	if effectiveTo.Valid {
		t := effectiveTo.Time.UTC()
		b.EffectiveTo = &t
	}
	return &b, nil
}

func (c *queries) queryBudgets(ctx context.Context, query string, args ...any) ([]model.Budget, error) {
	rows, err := c.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query budgets: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var budgets []model.Budget
	for rows.Next() {
		budget, err := scanBudget(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan budget: %w", err)
		}
		budgets = append(budgets, *budget)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating budgets: %w", err)
	}
	return budgets, nil
}

// GetBudgetsIntersecting returns every budget record for the household whose
// effective interval intersects [start, end], both bounds inclusive.
func (c *queries) GetBudgetsIntersecting(ctx context.Context, householdID uuid.UUID, start, end time.Time) ([]model.Budget, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateID(householdID, "household"); err != nil {
		return nil, err
	}

	return c.queryBudgets(ctx,
		`SELECT `+budgetColumns+` FROM budgets
		 WHERE household_id = ?
		   AND effective_from <= ?
		   AND (effective_to IS NULL OR effective_to >= ?)
		 ORDER BY effective_from`,
		householdID.String(), end.UTC(), start.UTC(),
	)
}

// GetCategoryBudgetsIntersecting returns the category's budget records whose
// intervals intersect the window [start, end]; a nil end means the window is
// open-ended.
func (c *queries) GetCategoryBudgetsIntersecting(ctx context.Context, householdID, categoryID uuid.UUID, start time.Time, end *time.Time) ([]model.Budget, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateID(categoryID, "category"); err != nil {
		return nil, err
	}

	if end == nil {
		// Open window: everything not already ended before the window start.
		return c.queryBudgets(ctx,
			`SELECT `+budgetColumns+` FROM budgets
			 WHERE household_id = ? AND category_id = ?
			   AND (effective_to IS NULL OR effective_to >= ?)
			 ORDER BY effective_from`,
			householdID.String(), categoryID.String(), start.UTC(),
		)
	}

	return c.queryBudgets(ctx,
		`SELECT `+budgetColumns+` FROM budgets
		 WHERE household_id = ? AND category_id = ?
		   AND effective_from <= ?
		   AND (effective_to IS NULL OR effective_to >= ?)
		 ORDER BY effective_from`,
		householdID.String(), categoryID.String(), end.UTC(), start.UTC(),
	)
}

// SaveBudget inserts a new budget record, assigning its ID.
func (c *queries) SaveBudget(ctx context.Context, budget *model.Budget) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateBudget(budget); err != nil {
		return err
	}

	if budget.ID == uuid.Nil {
		budget.ID = uuid.New()
	}

	var effectiveTo any
	if budget.EffectiveTo != nil {
		effectiveTo = budget.EffectiveTo.UTC()
	}

	_, err := c.q.ExecContext(ctx,
		`INSERT INTO budgets (id, household_id, category_id, monthly_limit, effective_from, effective_to)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		budget.ID.String(), budget.HouseholdID.String(), budget.CategoryID.String(),
		budget.MonthlyLimit.String(), budget.EffectiveFrom.UTC(), effectiveTo,
	)
	if err != nil {
		return fmt.Errorf("failed to save budget: %w", err)
	}

	slog.Debug("saved budget",
		"id", budget.ID,
		"category", budget.CategoryID,
		"limit", budget.MonthlyLimit)
	return nil
}

// TruncateBudget bounds a previously open or longer record so it ends at
// effectiveTo.
func (c *queries) TruncateBudget(ctx context.Context, id uuid.UUID, effectiveTo time.Time) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateID(id, "budget id"); err != nil {
		return err
	}

	result, err := c.q.ExecContext(ctx,
		`UPDATE budgets SET effective_to = ? WHERE id = ?`,
		effectiveTo.UTC(), id.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to truncate budget: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("budget %s: %w", id, common.ErrNotFound)
	}
	return nil
}

// DeleteBudget removes a budget record.
func (c *queries) DeleteBudget(ctx context.Context, id uuid.UUID) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateID(id, "budget id"); err != nil {
		return err
	}

	result, err := c.q.ExecContext(ctx, `DELETE FROM budgets WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("failed to delete budget: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("budget %s: %w", id, common.ErrNotFound)
	}
	return nil
}
