package store

import (
	"context"

	"github.com/slipway-sh/slipway/internal/core/domain"
)

// =============================================================================
// Store Interface
// =============================================================================

// Store is the keyed durable mapping from deployment identifier to state
// record. It is read and written only by the orchestrator.
type Store interface {
	// CreateRecord persists a new record; the identifier must be unused.
	CreateRecord(ctx context.Context, record *domain.StateRecord) error

	// GetRecord loads the record for an identifier, ErrNotFound when absent.
	GetRecord(ctx context.Context, id string) (*domain.StateRecord, error)

	// UpdateRecord overwrites an existing record atomically.
	UpdateRecord(ctx context.Context, record *domain.StateRecord) error

	// ListRecords returns all records, newest first.
	ListRecords(ctx context.Context) ([]domain.StateRecord, error)

	Close() error
}
