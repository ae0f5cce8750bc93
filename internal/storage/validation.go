package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/mfinch/pocketwatch/internal/model"
)

func validateContext(ctx context.Context) error {
	if ctx == nil {
		return fmt.Errorf("context cannot be nil")
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}
	return nil
}

func validateString(value, name string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s cannot be empty", name)
	}
	return nil
}

func validateID(id uuid.UUID, name string) error {
	if id == uuid.Nil {
		return fmt.Errorf("%s cannot be empty", name)
	}
	return nil
}

func validateCategory(category *model.Category) error {
	if category == nil {
		return fmt.Errorf("category cannot be nil")
	}
	if err := validateID(category.HouseholdID, "category household"); err != nil {
		return err
	}
	if err := validateString(category.Name, "category name"); err != nil {
		return err
	}
	return validateString(category.Slug, "category slug")
}

func validateReceipt(receipt *model.Receipt) error {
	if receipt == nil {
		return fmt.Errorf("receipt cannot be nil")
	}
	if err := validateID(receipt.UserID, "receipt user"); err != nil {
		return err
	}
	if err := validateID(receipt.HouseholdID, "receipt household"); err != nil {
		return err
	}
	if receipt.Confidence < 0 || receipt.Confidence > 1 {
		return fmt.Errorf("receipt confidence must be in [0,1], got %v", receipt.Confidence)
	}
	if !receipt.ExpenseType.Valid() {
		return fmt.Errorf("invalid expense type: %q", receipt.ExpenseType)
	}
	return nil
}

func validateBudget(budget *model.Budget) error {
	if budget == nil {
		return fmt.Errorf("budget cannot be nil")
	}
	if err := validateID(budget.HouseholdID, "budget household"); err != nil {
		return err
	}
	if err := validateID(budget.CategoryID, "budget category"); err != nil {
		return err
	}
	if budget.EffectiveFrom.IsZero() {
		return fmt.Errorf("budget effective_from cannot be zero")
	}
	if budget.EffectiveTo != nil && budget.EffectiveTo.Before(budget.EffectiveFrom) {
		return fmt.Errorf("budget effective_to precedes effective_from")
	}
	return nil
}
