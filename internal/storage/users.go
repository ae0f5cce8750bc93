package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/mfinch/pocketwatch/internal/common"
	"github.com/mfinch/pocketwatch/internal/model"
)

// GetUserByToken resolves an API token to the user it belongs to, or
// common.ErrNotFound.
func (c *queries) GetUserByToken(ctx context.Context, token string) (*model.User, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(token, "token"); err != nil {
		return nil, err
	}

	var user model.User
	var id, householdID string
	err := c.q.QueryRowContext(ctx,
		`SELECT id, household_id, email, name, api_token, created_at FROM users WHERE api_token = ?`,
		token,
	).Scan(&id, &householdID, &user.Email, &user.Name, &user.APIToken, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("token: %w", common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	if user.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("failed to parse user id: %w", err)
	}
	if user.HouseholdID, err = uuid.Parse(householdID); err != nil {
		return nil, fmt.Errorf("failed to parse user household id: %w", err)
	}
	user.CreatedAt = user.CreatedAt.UTC()
	return &user, nil
}
