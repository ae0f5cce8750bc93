package model

import (
	"time"

	"github.com/google/uuid"
)

// Principal identifies the caller of an operation: which user is acting and
// which household scopes their data. Every core operation takes one
// explicitly; there are no process-wide default identities.
type Principal struct {
	UserID      uuid.UUID
	HouseholdID uuid.UUID
}

// User is an account holder belonging to a household.
type User struct {
	CreatedAt   time.Time
	Email       string
	Name        string
	APIToken    string
	ID          uuid.UUID
	HouseholdID uuid.UUID
}

// Principal returns the principal value for operations performed as this user.
func (u *User) Principal() Principal {
	return Principal{UserID: u.ID, HouseholdID: u.HouseholdID}
}

// Household is the tenant scope sharing categories, budgets, and receipts.
type Household struct {
	CreatedAt time.Time
	Name      string
	ID        uuid.UUID
}
