package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mfinch/pocketwatch/internal/common"
	"github.com/mfinch/pocketwatch/internal/model"
)

const categoryColumns = `id, household_id, name, slug, icon, is_active, sort_order, created_at`

func scanCategory(row interface{ Scan(...any) error }) (*model.Category, error) {
	var cat model.Category
	var id, householdID string
	if err := row.Scan(&id, &householdID, &cat.Name, &cat.Slug, &cat.Icon, &cat.IsActive, &cat.SortOrder, &cat.CreatedAt); err != nil {
		return nil, err
	}
	var err error
	if cat.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("failed to parse category id: %w", err)
	}
	if cat.HouseholdID, err = uuid.Parse(householdID); err != nil {
		return nil, fmt.Errorf("failed to parse category household id: %w", err)
	}
	return &cat, nil
}

// GetCategories returns a household's categories ordered by sort order.
// Inactive categories are included only when includeInactive is set.
func (c *queries) GetCategories(ctx context.Context, householdID uuid.UUID, includeInactive bool) ([]model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateID(householdID, "household"); err != nil {
		return nil, err
	}

	query := `SELECT ` + categoryColumns + ` FROM categories WHERE household_id = ?`
	if !includeInactive {
		query += ` AND is_active = TRUE`
	}
	query += ` ORDER BY sort_order, name`

	rows, err := c.q.QueryContext(ctx, query, householdID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var categories []model.Category
	for rows.Next() {
		cat, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, *cat)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}

	slog.Debug("retrieved categories", "household", householdID, "count", len(categories))
	return categories, nil
}

// GetCategoryByID returns a category scoped to the household, or
// common.ErrNotFound when absent.
func (c *queries) GetCategoryByID(ctx context.Context, householdID, id uuid.UUID) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateID(id, "category id"); err != nil {
		return nil, err
	}

	query := `SELECT ` + categoryColumns + ` FROM categories WHERE id = ? AND household_id = ?`
	cat, err := scanCategory(c.q.QueryRowContext(ctx, query, id.String(), householdID.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("category %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query category: %w", err)
	}
	return cat, nil
}

// GetCategoryBySlug returns the household's category with the given slug,
// active or not, or common.ErrNotFound.
func (c *queries) GetCategoryBySlug(ctx context.Context, householdID uuid.UUID, slug string) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(slug, "slug"); err != nil {
		return nil, err
	}

	query := `SELECT ` + categoryColumns + ` FROM categories WHERE household_id = ? AND slug = ?`
	cat, err := scanCategory(c.q.QueryRowContext(ctx, query, householdID.String(), slug))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("category slug %q: %w", slug, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query category: %w", err)
	}
	return cat, nil
}

// CreateCategory inserts a new category, assigning its ID and creation time.
// Slugs are unique per household across active and inactive categories;
// a collision returns common.ErrDuplicateEntry.
func (c *queries) CreateCategory(ctx context.Context, category *model.Category) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateCategory(category); err != nil {
		return err
	}

	if category.ID == uuid.Nil {
		category.ID = uuid.New()
	}
	category.CreatedAt = time.Now().UTC()

	_, err := c.q.ExecContext(ctx,
		`INSERT INTO categories (id, household_id, name, slug, icon, is_active, sort_order, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		category.ID.String(), category.HouseholdID.String(), category.Name, category.Slug,
		category.Icon, category.IsActive, category.SortOrder, category.CreatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("category slug %q: %w", category.Slug, common.ErrDuplicateEntry)
		}
		return fmt.Errorf("failed to create category: %w", err)
	}

	slog.Debug("created category", "id", category.ID, "slug", category.Slug)
	return nil
}

// UpdateCategory persists changes to name, slug, icon, active flag, and sort
// order. The category must already exist in its household.
func (c *queries) UpdateCategory(ctx context.Context, category *model.Category) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateCategory(category); err != nil {
		return err
	}

	result, err := c.q.ExecContext(ctx,
		`UPDATE categories SET name = ?, slug = ?, icon = ?, is_active = ?, sort_order = ?
		 WHERE id = ? AND household_id = ?`,
		category.Name, category.Slug, category.Icon, category.IsActive, category.SortOrder,
		category.ID.String(), category.HouseholdID.String(),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("category slug %q: %w", category.Slug, common.ErrDuplicateEntry)
		}
		return fmt.Errorf("failed to update category: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("category %s: %w", category.ID, common.ErrNotFound)
	}
	return nil
}
