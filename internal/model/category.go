// Package model defines the core domain models used throughout the application.
package model

import (
	"time"

	"github.com/google/uuid"
)

// FallbackSlug is the conventional catch-all category slug. When a
// classification result names a slug the household does not have, the
// categorizer substitutes this one if it exists.
const FallbackSlug = "other"

// Category represents a spending category scoped to a household.
// Slugs are unique within a household across both active and inactive
// categories; deactivation is a soft delete.
type Category struct {
	CreatedAt   time.Time
	Name        string
	Slug        string
	Icon        string
	ID          uuid.UUID
	HouseholdID uuid.UUID
	SortOrder   int
	IsActive    bool
}
