// Package memory provides an in-memory Store for tests and local runs.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/nsridhar76/go-orderflow/internal/domain"
)

type entry struct {
	order   domain.Order
	version int64
}

// Store keeps aggregates and history in process memory. The mutex only
// protects the maps; version conflicts surface exactly as they would from
// the Postgres store, so concurrency tests behave the same against either.
type Store struct {
	mu      sync.Mutex
	orders  map[string]entry
	history map[string][]domain.TransitionRecord
}

func New() *Store {
	return &Store{
		orders:  make(map[string]entry),
		history: make(map[string][]domain.TransitionRecord),
	}
}

func (s *Store) Create(_ context.Context, order domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[order.OrderID]; ok {
		return fmt.Errorf("order %s already exists", order.OrderID)
	}
	s.orders[order.OrderID] = entry{order: cloneOrder(order), version: 1}
	return nil
}

func (s *Store) Load(_ context.Context, orderID string) (domain.Order, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.orders[orderID]
	if !ok {
		return domain.Order{}, 0, fmt.Errorf("order %s: %w", orderID, domain.ErrNotFound)
	}
	return cloneOrder(e.order), e.version, nil
}

func (s *Store) Save(_ context.Context, order domain.Order, expectedVersion int64, record domain.TransitionRecord) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.orders[order.OrderID]
	if !ok {
		return 0, fmt.Errorf("order %s: %w", order.OrderID, domain.ErrNotFound)
	}
	if e.version != expectedVersion {
		return 0, fmt.Errorf("order %s at version %d, expected %d: %w",
			order.OrderID, e.version, expectedVersion, domain.ErrConcurrencyConflict)
	}
	next := entry{order: cloneOrder(order), version: expectedVersion + 1}
	s.orders[order.OrderID] = next
	s.history[order.OrderID] = append(s.history[order.OrderID], record)
	return next.version, nil
}

func (s *Store) History(_ context.Context, orderID string) ([]domain.TransitionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.history[orderID]), nil
}

// cloneOrder copies the aggregate including its slice fields so callers
// never alias stored state.
func cloneOrder(o domain.Order) domain.Order {
	c := o
	c.Tags = slices.Clone(o.Tags)
	c.ApprovalNotes = slices.Clone(o.ApprovalNotes)
	c.ShipmentPackageIDs = slices.Clone(o.ShipmentPackageIDs)
	if o.ShippingAddress != nil {
		addr := *o.ShippingAddress
		c.ShippingAddress = &addr
	}
	return c
}
