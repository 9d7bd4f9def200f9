package domain

import (
	"errors"
	"fmt"
)

// Sentinels for errors.Is checks. The typed errors below wrap them.
var (
	ErrValidation          = errors.New("validation failed")
	ErrNegativeQuantity    = errors.New("negative quantity")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrConcurrencyConflict = errors.New("version conflict")
	ErrRecordNotFound      = errors.New("inventory record not found")
	ErrRecordExists        = errors.New("inventory record already exists for item")
	ErrRecordInactive      = errors.New("inventory record is inactive")
)

// ValidationError reports malformed input. It is never corrected silently.
type ValidationError struct {
	Field  string
	Reason string
}

func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid input: %s", e.Reason)
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NegativeQuantityError is returned when a mutation would take on-hand
// quantity below zero. The record is left unmodified.
type NegativeQuantityError struct {
	RecordID string
	Current  Quantity
	Delta    Quantity
}

func (e *NegativeQuantityError) Error() string {
	return fmt.Sprintf("negative quantity: record %s has %s, change of %s would leave %s",
		e.RecordID, e.Current, e.Delta, e.Current.Add(e.Delta))
}

func (e *NegativeQuantityError) Unwrap() error { return ErrNegativeQuantity }

// InsufficientStockError is returned when a request exceeds the
// available-to-promise quantity. The record is left unmodified.
type InsufficientStockError struct {
	RecordID  string
	Requested Quantity
	Available Quantity
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock: record %s requested %s, available %s",
		e.RecordID, e.Requested, e.Available)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// ConcurrencyConflictError is returned by a repository when the stored
// version no longer matches the one the caller loaded. Reload and retry.
type ConcurrencyConflictError struct {
	RecordID        string
	ExpectedVersion int64
}

func (e *ConcurrencyConflictError) Error() string {
	return fmt.Sprintf("version conflict: record %s was modified since version %d",
		e.RecordID, e.ExpectedVersion)
}

func (e *ConcurrencyConflictError) Unwrap() error { return ErrConcurrencyConflict }
