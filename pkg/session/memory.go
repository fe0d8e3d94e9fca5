package session

import (
	"context"
	"sync"
)

// MemoryStore keeps pending confirmations in process memory. Contents are
// lost on restart, which matches the short TTL of confirmations.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]Pending
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: map[string]Pending{}}
}

// Set stores or replaces the pending confirmation for key
func (s *MemoryStore) Set(_ context.Context, key string, p Pending) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[key] = p
	return nil
}

// Get returns the pending confirmation for key
func (s *MemoryStore) Get(_ context.Context, key string) (Pending, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.sessions[key]
	return p, ok, nil
}

// Delete removes the pending confirmation for key, no-op if absent
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, key)
	return nil
}

// Keys returns all stored keys
func (s *MemoryStore) Keys(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.sessions))
	for k := range s.sessions {
		keys = append(keys, k)
	}
	return keys, nil
}
