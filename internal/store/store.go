// Package store defines the persistence contract for order aggregates.
package store

import (
	"context"

	"github.com/nsridhar76/go-orderflow/internal/domain"
)

// Store is the narrow persistence interface the engine depends on. An
// aggregate is always handled together with its version; the version loaded
// must be passed back on save, and a mismatch fails with
// domain.ErrConcurrencyConflict instead of overwriting.
type Store interface {
	// Create persists a new aggregate at version 1.
	Create(ctx context.Context, order domain.Order) error

	// Load returns the aggregate and its current version, or
	// domain.ErrNotFound.
	Load(ctx context.Context, orderID string) (domain.Order, int64, error)

	// Save writes the aggregate iff the stored version still equals
	// expectedVersion and appends the transition record in the same unit of
	// work. Both are applied or neither is. Returns the new version, or
	// domain.ErrConcurrencyConflict when the stored version has advanced.
	Save(ctx context.Context, order domain.Order, expectedVersion int64, record domain.TransitionRecord) (int64, error)

	// History returns the order's transition records in append order.
	History(ctx context.Context, orderID string) ([]domain.TransitionRecord, error)
}
