package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a product, customer, invoice or item index does not exist
	ErrNotFound = errors.New("resource not found")

	// ErrAlreadyExists is returned when a resource with the same identifier already exists
	ErrAlreadyExists = errors.New("resource already exists")

	// ErrValidation is returned when input is malformed (negative price, non-positive quantity, bad rule)
	ErrValidation = errors.New("validation failed")

	// ErrInvalidInput is kept for the delivery layer, it is the same error as ErrValidation
	ErrInvalidInput = ErrValidation

	// ErrInvalidState is returned when an operation is not permitted in the current invoice status
	ErrInvalidState = errors.New("invalid invoice state")

	// ErrInsufficientStock is returned when a requested or committed quantity exceeds available stock
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrConflict is returned when there's a conflict (e.g., optimistic locking)
	ErrConflict = errors.New("conflict occurred")

	// ErrInternal is returned when an internal error occurs
	ErrInternal = errors.New("internal error")
)

// InsufficientStockError carries the figures behind an ErrInsufficientStock failure
type InsufficientStockError struct {
	ProductID string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

// Is reports whether target is ErrInsufficientStock
func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// NewValidationError wraps ErrValidation with a formatted reason
func NewValidationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// NewInvalidStateError wraps ErrInvalidState with a formatted reason
func NewInvalidStateError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidState, fmt.Sprintf(format, args...))
}
