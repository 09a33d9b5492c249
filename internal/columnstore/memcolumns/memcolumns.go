// Package memcolumns provides an in-process columnstore.Store, used by
// tests and as the default backend when no Redis address is configured.
package memcolumns

import (
	"context"
	"sync"
	"time"

	"github.com/gimelauth/tokensvc/internal/columnstore"
)

type cell struct {
	value    []byte
	expireAt time.Time
}

// Store is a mutex-guarded map of row -> column -> cell, with columns
// swept lazily on read.
type Store struct {
	mu   sync.RWMutex
	rows map[[16]byte]map[string]cell
}

// New creates an empty Store.
func New() *Store {
	return &Store{rows: make(map[[16]byte]map[string]cell)}
}

// SetColumns implements columnstore.Store.
func (s *Store) SetColumns(_ context.Context, rowKey [16]byte, columns map[string][]byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.rows[rowKey]
	if !ok {
		row = make(map[string]cell, len(columns))
		s.rows[rowKey] = row
	}
	expireAt := time.Now().Add(ttl)
	for name, value := range columns {
		row[name] = cell{value: value, expireAt: expireAt}
	}
	return nil
}

// GetColumns implements columnstore.Store.
func (s *Store) GetColumns(_ context.Context, rowKey [16]byte, names []string) (map[string][]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.rows[rowKey]
	if !ok {
		return nil, columnstore.ErrNotFound
	}

	now := time.Now()
	for name, c := range row {
		if now.After(c.expireAt) {
			delete(row, name)
		}
	}
	if len(row) == 0 {
		delete(s.rows, rowKey)
		return nil, columnstore.ErrNotFound
	}

	result := make(map[string][]byte)
	for _, name := range names {
		if c, ok := row[name]; ok {
			result[name] = c.value
		}
	}
	return result, nil
}

// Sweep removes every expired column across every row; it exists for
// tests that want to assert TTL behavior without waiting on GetColumns
// to do the sweeping lazily.
func (s *Store) Sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for rowKey, row := range s.rows {
		for name, c := range row {
			if now.After(c.expireAt) {
				delete(row, name)
			}
		}
		if len(row) == 0 {
			delete(s.rows, rowKey)
		}
	}
}
