// Package common provides shared utilities and types used across the application.
package common

import (
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Database errors.
	ErrNotFound       = errors.New("not found")
	ErrDuplicateEntry = errors.New("duplicate entry")

	// Budget ledger errors.
	ErrBudgetOverlap = errors.New("overlapping budget records")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// ValidationError reports caller-correctable input problems: an unknown
// category reference, a disallowed upload type, an oversize file.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

// NewValidationError creates a validation error with a user-facing message.
func NewValidationError(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// ExtractionError means the vision model's output could not be turned into a
// structured receipt: unparseable response or a missing grand total.
type ExtractionError struct {
	Err error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("receipt extraction failed: %v", e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// NewExtractionError wraps err as an extraction failure.
func NewExtractionError(err error) error {
	return &ExtractionError{Err: err}
}

// ClassificationError means the fallback classifier returned an unusable
// result: a slug outside the valid set or a missing/unparseable confidence.
type ClassificationError struct {
	Err error
}

func (e *ClassificationError) Error() string {
	return fmt.Sprintf("categorization failed: %v", e.Err)
}

func (e *ClassificationError) Unwrap() error {
	return e.Err
}

// NewClassificationError wraps err as a classification failure.
func NewClassificationError(err error) error {
	return &ClassificationError{Err: err}
}

// IsValidation reports whether err is caller-correctable.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
