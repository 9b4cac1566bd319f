// Package memory provides a process-local slot store. Carts kept here do not
// survive a restart.
package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/xenking/notions-storefront/internal/domain/cart"
)

var _ cart.SlotStore = (*SlotStore)(nil)

// SlotStore implements cart.SlotStore with a mutex-guarded map.
type SlotStore struct {
	mu    sync.RWMutex
	slots map[string][]byte
}

// NewSlotStore returns an empty SlotStore.
func NewSlotStore() *SlotStore {
	return &SlotStore{slots: make(map[string][]byte)}
}

// Get returns a copy of the value stored under key.
func (s *SlotStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.slots[key]
	if !ok {
		return nil, cart.ErrSlotNotFound
	}
	return slices.Clone(v), nil
}

// Set replaces the value stored under key.
func (s *SlotStore) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.slots[key] = slices.Clone(value)
	return nil
}

// Ping always succeeds.
func (s *SlotStore) Ping(context.Context) error {
	return nil
}

// Len returns the number of stored slots.
func (s *SlotStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.slots)
}
