package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Budget is one versioned entry in a category's budget history. The record is
// authoritative for its category during [EffectiveFrom, EffectiveTo], with
// both bounds inclusive. A nil EffectiveTo means the record is open-ended.
//
// At most one record per (household, category) should cover any instant; the
// ledger repairs overlaps on write and refuses to answer queries that hit a
// violated history.
type Budget struct {
	EffectiveFrom time.Time
	EffectiveTo   *time.Time
	ID            uuid.UUID
	HouseholdID   uuid.UUID
	CategoryID    uuid.UUID
	MonthlyLimit  decimal.Decimal
}

// Covers reports whether the record's effective interval intersects
// [start, end].
func (b *Budget) Covers(start, end time.Time) bool {
	if b.EffectiveFrom.After(end) {
		return false
	}
	return b.EffectiveTo == nil || !b.EffectiveTo.Before(start)
}
