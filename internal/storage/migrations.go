package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 3

// Seed identities created by migration 2 so the service is usable before a
// real signup flow exists. The token is only honored until replaced.
const (
	SeedHouseholdName = "Default Household"
	SeedUserEmail     = "dev@localhost"
	SeedUserToken     = "local-dev-token"
)

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var defaultCategories = []struct {
	Name      string
	Slug      string
	Icon      string
	SortOrder int
}{
	{"Groceries", "groceries", "🛒", 1},
	{"Dining", "dining", "🍽️", 2},
	{"Coffee", "coffee", "☕", 3},
	{"Transportation", "transportation", "🚗", 4},
	{"Entertainment", "entertainment", "🎬", 5},
	{"Shopping", "shopping", "🛍️", 6},
	{"Utilities", "utilities", "💡", 7},
	{"Healthcare", "healthcare", "🏥", 8},
	{"Home", "home", "🏠", 9},
	{"Mortgage/Rent", "mortgage-rent", "🏦", 10},
	{"Insurance", "insurance", "🛡️", 11},
	{"Subscriptions", "subscriptions", "📱", 12},
	{"Personal Care", "personal-care", "💇", 13},
	{"Daycare", "daycare", "👶", 14},
	{"Kids/Family", "kids-family", "👪", 15},
	{"Pets", "pets", "🐕", 16},
	{"Travel", "travel", "✈️", 17},
	{"Gifts", "gifts", "🎁", 18},
	{"Other", "other", "📦", 99},
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS households (
					id TEXT PRIMARY KEY,
					name TEXT NOT NULL,
					created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
				)`,

				`CREATE TABLE IF NOT EXISTS users (
					id TEXT PRIMARY KEY,
					household_id TEXT NOT NULL REFERENCES households(id),
					email TEXT UNIQUE NOT NULL,
					name TEXT NOT NULL,
					api_token TEXT UNIQUE NOT NULL,
					created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_users_token ON users(api_token)`,

				`CREATE TABLE IF NOT EXISTS categories (
					id TEXT PRIMARY KEY,
					household_id TEXT NOT NULL REFERENCES households(id),
					name TEXT NOT NULL,
					slug TEXT NOT NULL,
					icon TEXT NOT NULL DEFAULT '',
					is_active BOOLEAN NOT NULL DEFAULT TRUE,
					sort_order INTEGER NOT NULL DEFAULT 0,
					created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
					UNIQUE(household_id, slug)
				)`,
				`CREATE INDEX idx_categories_household ON categories(household_id)`,

				`CREATE TABLE IF NOT EXISTS receipts (
					id TEXT PRIMARY KEY,
					user_id TEXT NOT NULL REFERENCES users(id),
					household_id TEXT NOT NULL REFERENCES households(id),
					image_path TEXT NOT NULL DEFAULT '',
					merchant_name TEXT NOT NULL DEFAULT '',
					transaction_date DATETIME,
					subtotal TEXT,
					tax TEXT,
					tip TEXT,
					grand_total TEXT NOT NULL,
					payment_method TEXT NOT NULL DEFAULT '',
					category_id TEXT REFERENCES categories(id),
					confidence REAL NOT NULL DEFAULT 0,
					overridden BOOLEAN NOT NULL DEFAULT FALSE,
					expense_type TEXT NOT NULL DEFAULT 'personal',
					raw_extraction TEXT NOT NULL DEFAULT '',
					created_at DATETIME NOT NULL
				)`,
				`CREATE INDEX idx_receipts_user ON receipts(user_id)`,
				`CREATE INDEX idx_receipts_category ON receipts(category_id)`,
				`CREATE INDEX idx_receipts_effective_date ON receipts(COALESCE(transaction_date, created_at))`,

				`CREATE TABLE IF NOT EXISTS budgets (
					id TEXT PRIMARY KEY,
					household_id TEXT NOT NULL REFERENCES households(id),
					category_id TEXT NOT NULL REFERENCES categories(id),
					monthly_limit TEXT NOT NULL,
					effective_from DATETIME NOT NULL,
					effective_to DATETIME
				)`,
				`CREATE INDEX idx_budgets_household_category ON budgets(household_id, category_id)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Seed default household and user",
		Up: func(tx *sql.Tx) error {
			householdID := uuid.NewString()
			if _, err := tx.Exec(
				`INSERT INTO households (id, name) VALUES (?, ?)`,
				householdID, SeedHouseholdName,
			); err != nil {
				return fmt.Errorf("failed to seed household: %w", err)
			}

			if _, err := tx.Exec(
				`INSERT INTO users (id, household_id, email, name, api_token) VALUES (?, ?, ?, ?, ?)`,
				uuid.NewString(), householdID, SeedUserEmail, "Developer", SeedUserToken,
			); err != nil {
				return fmt.Errorf("failed to seed user: %w", err)
			}

			slog.Info("Seeded default household", "household_id", householdID)
			return nil
		},
	},
	{
		Version:     3,
		Description: "Seed default categories for every household",
		Up: func(tx *sql.Tx) error {
			rows, err := tx.Query(`SELECT id FROM households`)
			if err != nil {
				return fmt.Errorf("failed to list households: %w", err)
			}
			defer func() { _ = rows.Close() }()

			var householdIDs []string
			for rows.Next() {
				var id string
				if err := rows.Scan(&id); err != nil {
					return fmt.Errorf("failed to scan household: %w", err)
				}
				householdIDs = append(householdIDs, id)
			}
			if err := rows.Err(); err != nil {
				return fmt.Errorf("error iterating households: %w", err)
			}

			for _, householdID := range householdIDs {
				for _, cat := range defaultCategories {
					if _, err := tx.Exec(
						`INSERT INTO categories (id, household_id, name, slug, icon, sort_order)
						 VALUES (?, ?, ?, ?, ?, ?)
						 ON CONFLICT(household_id, slug) DO NOTHING`,
						uuid.NewString(), householdID, cat.Name, cat.Slug, cat.Icon, cat.SortOrder,
					); err != nil {
						return fmt.Errorf("failed to seed category %q: %w", cat.Slug, err)
					}
				}
			}

			slog.Info("Seeded default categories", "households", len(householdIDs))
			return nil
		},
	},
}

// Migrate applies all pending database migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	// Get current version
	var currentVersion int
	err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	// Apply migrations
	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		// Update version
		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	// Verify we're at the expected schema version
	var finalVersion int
	err = s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&finalVersion)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}
