// Package memory implements an in-process overlay backend. Nothing survives
// a restart; it backs tests and the default development profile.
package memory

import (
	"context"
	"sort"
	"sync"

	"elevadorpro/internal/overlay"
)

var _ overlay.Backend = (*Store)(nil)

// Store keeps overlay payloads in a map guarded by a RWMutex.
type Store struct {
	mu     sync.RWMutex
	data   map[string][]byte
	closed bool
}

// NewStore returns an empty memory backend.
func NewStore() *Store {
	return &Store{data: make(map[string][]byte)}
}

func (s *Store) Driver() overlay.Driver { return overlay.DriverMemory }

func (s *Store) Load(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, false, overlay.ErrClosed
	}
	payload, ok := s.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), payload...), true, nil
}

func (s *Store) Save(_ context.Context, key string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return overlay.ErrClosed
	}
	s.data[key] = append([]byte(nil), payload...)
	return nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return overlay.ErrClosed
	}
	delete(s.data, key)
	return nil
}

func (s *Store) Keys(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, overlay.ErrClosed
	}
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// Close marks the store unusable.
func (s *Store) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}
