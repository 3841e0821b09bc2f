// Package store implements the order lifecycle store (C8, §3, §4.8): a
// dual-indexed, in-memory map of tracked orders with the "track before
// submit" pre-registration discipline.
//
// Grounded on the mutex-serialized single-writer shape of
// _examples/0xtitan6-polymarket-mm/internal/store/store.go — that file
// persists positions to disk under one lock; this one holds orders in
// memory under one lock, since nothing here needs to survive a process
// restart (§4.8 describes reconciliation from the exchange, not replay
// from a local journal).
package store

import (
	"fmt"
	"sync"
	"time"

	"hlconnector/internal/hlerrors"
	"hlconnector/pkg/types"
)

// Store holds every order this connector instance has submitted,
// indexed by client_order_id (primary) and exchange_order_id
// (secondary, populated once the exchange assigns one).
type Store struct {
	mu           sync.Mutex
	byClientID   map[string]*types.Order
	byExchangeID map[uint64]string // exchange_order_id -> client_order_id
}

// New returns an empty store.
func New() *Store {
	return &Store{
		byClientID:   make(map[string]*types.Order),
		byExchangeID: make(map[uint64]string),
	}
}

// Insert adds a newly-created order to the store. Insert is the
// "pre-registration" step (§4.8): the order must be inserted with status
// pending before it is ever transmitted.
func (s *Store) Insert(o types.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := o.Clone()
	s.byClientID[o.ClientOrderID] = &clone
}

// Get returns a detached copy of the order with the given client id.
func (s *Store) Get(clientOrderID string) (types.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.byClientID[clientOrderID]
	if !ok {
		return types.Order{}, hlerrors.ErrOrderNotFound
	}
	return o.Clone(), nil
}

// GetByExchangeID returns a detached copy of the order with the given
// exchange order id.
func (s *Store) GetByExchangeID(exchangeOrderID uint64) (types.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	clientID, ok := s.byExchangeID[exchangeOrderID]
	if !ok {
		return types.Order{}, hlerrors.ErrOrderNotFound
	}
	o, ok := s.byClientID[clientID]
	if !ok {
		return types.Order{}, hlerrors.ErrOrderNotFound
	}
	return o.Clone(), nil
}

// OpenOrders returns detached copies of every order currently in an open
// state (submitted, resting, or partially_filled).
func (s *Store) OpenOrders() []types.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.Order, 0, len(s.byClientID))
	for _, o := range s.byClientID {
		if o.IsOpen() {
			out = append(out, o.Clone())
		}
	}
	return out
}

// Mutate applies fn to the stored order with the given client id under
// the store's lock, then re-derives the secondary index if fn assigned
// an exchange_order_id. fn must not retain the pointer it receives.
func (s *Store) Mutate(clientOrderID string, fn func(*types.Order) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.byClientID[clientOrderID]
	if !ok {
		return hlerrors.ErrOrderNotFound
	}
	if o.Status.Terminal() {
		return fmt.Errorf("store: order %s is terminal (%s), refusing mutation", clientOrderID, o.Status)
	}

	if err := fn(o); err != nil {
		return err
	}
	o.UpdatedAt = time.Now()

	if o.ExchangeOrderID != nil {
		s.byExchangeID[*o.ExchangeOrderID] = clientOrderID
	}
	return nil
}

// MutateByExchangeID is Mutate keyed by exchange_order_id, for WebSocket
// fill/update events that only carry that id (§4.8 step 5).
func (s *Store) MutateByExchangeID(exchangeOrderID uint64, fn func(*types.Order) error) error {
	s.mu.Lock()
	clientID, ok := s.byExchangeID[exchangeOrderID]
	s.mu.Unlock()
	if !ok {
		return hlerrors.ErrOrderNotFound
	}
	return s.Mutate(clientID, fn)
}
