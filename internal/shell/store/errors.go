// Package store persists deployment state records.
package store

import (
	"errors"
	"fmt"
)

// =============================================================================
// Error Types
// =============================================================================

var (
	// ErrNotFound is returned when no record exists for an identifier.
	// Destroying an unknown deployment is a reportable error, never a
	// silent no-op, so identifier typos surface immediately.
	ErrNotFound = errors.New("deployment record not found")

	// ErrDuplicateID is returned when creating a record whose identifier
	// already exists.
	ErrDuplicateID = errors.New("deployment record already exists")

	// ErrConnectionFailed is returned when the database cannot be opened.
	ErrConnectionFailed = errors.New("state database connection failed")

	// ErrMigrationFailed is returned when schema migration fails.
	ErrMigrationFailed = errors.New("state database migration failed")

	// ErrInvalidData is returned when record serialization fails.
	ErrInvalidData = errors.New("invalid record data")
)

// StoreError wraps errors with operation context.
type StoreError struct {
	Op      string
	ID      string
	Message string
	Err     error
}

func (e *StoreError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s %s: %s", e.Op, e.ID, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a new StoreError.
func NewStoreError(op, id, message string, err error) *StoreError {
	return &StoreError{Op: op, ID: id, Message: message, Err: err}
}
