package persist

import (
	"bytes"
	"context"
	"sync"
	"time"
)

// MemoryStore is a map-backed store for tests and local development.
// It honors expiry but loses data on restart.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*Entry
	now     func() time.Time
}

// NewMemoryStore creates an empty memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*Entry),
		now:     time.Now,
	}
}

func (s *MemoryStore) Get(_ context.Context, key string) (*Entry, error) {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		return nil, nil
	}
	if e.Expired(s.now()) {
		s.mu.Lock()
		delete(s.entries, key)
		s.mu.Unlock()
		return nil, nil
	}
	return copyEntry(e), nil
}

func (s *MemoryStore) Set(_ context.Context, entry *Entry) error {
	if entry == nil || entry.Key == "" {
		return ErrInvalidKey
	}
	c := copyEntry(entry)
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.now()
	}

	s.mu.Lock()
	s.entries[entry.Key] = c
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func copyEntry(e *Entry) *Entry {
	c := *e
	c.Value = bytes.Clone(e.Value)
	return &c
}

var _ Store = (*MemoryStore)(nil)
