package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is returned when a required field is missing or invalid
	ErrValidation = errors.New("validation failed")

	// ErrPriceNotFound is returned when no price observation matches a query
	ErrPriceNotFound = errors.New("no price data found")

	// ErrEmptyList is returned when store optimization is requested for a list without items
	ErrEmptyList = errors.New("shopping list has no items")

	// ErrListNotFound is returned when a shopping list id is unknown to the list store
	ErrListNotFound = errors.New("shopping list not found")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrCacheUnavailable is returned when cache service is unavailable
	ErrCacheUnavailable = errors.New("cache service unavailable")

	// ErrStorageFailure is returned when the ledger or list store fails
	ErrStorageFailure = errors.New("storage operation failed")

	// ErrPlanInconsistent is returned when the union coverage of a plan disagrees
	// with its per-store assignment
	ErrPlanInconsistent = errors.New("store plan coverage mismatch")
)

// ValidationError describes which request field was rejected and why.
type ValidationError struct {
	Field  string
	Reason string
}

// NewValidationError creates a ValidationError for the given field.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrValidation.Error(), e.Field, e.Reason)
}

// Unwrap lets errors.Is(err, ErrValidation) match.
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}
