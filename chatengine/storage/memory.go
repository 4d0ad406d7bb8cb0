package storage

import (
	"context"
	"sync"

	"github.com/skullsystem/messenger/chatengine/persist"
)

var _ persist.Storage = (*MemoryStore)(nil)

// MemoryStore is an in-process persist.Storage. Used by tests and by
// runs that do not need durable state. Error fields, when set, are
// returned by the corresponding operation so callers can exercise
// failure paths.
type MemoryStore struct {
	mu    sync.RWMutex
	slots map[string]string

	GetErr    error
	SetErr    error
	RemoveErr error
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{slots: make(map[string]string)}
}

// Get returns the value stored under key.
func (s *MemoryStore) Get(ctx context.Context, key string) (string, bool, error) {
	if s.GetErr != nil {
		return "", false, s.GetErr
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.slots[key]
	return v, ok, nil
}

// Set stores value under key.
func (s *MemoryStore) Set(ctx context.Context, key, value string) error {
	if s.SetErr != nil {
		return s.SetErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots[key] = value
	return nil
}

// Remove deletes the slot under key.
func (s *MemoryStore) Remove(ctx context.Context, key string) error {
	if s.RemoveErr != nil {
		return s.RemoveErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.slots, key)
	return nil
}

// Len reports the number of stored slots.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.slots)
}
