package store

import (
	"context"
	"sync"
)

// MemoryStore keeps documents in process memory. Used for local runs and tests.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]string
	// failWith makes every call fail, failWrites only writes; both simulate outages in tests
	failWith   error
	failWrites error
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]string)}
}

// Get returns the value for key and whether it exists
func (s *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.failWith != nil {
		return "", false, unavailable("get "+key, s.failWith)
	}
	v, ok := s.data[key]
	return v, ok, nil
}

// Set stores a single value
func (s *MemoryStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writeErr(); err != nil {
		return unavailable("set "+key, err)
	}
	s.data[key] = value
	return nil
}

// SetMany stores every entry under one lock
func (s *MemoryStore) SetMany(_ context.Context, entries map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writeErr(); err != nil {
		return unavailable("write documents", err)
	}
	for k, v := range entries {
		s.data[k] = v
	}
	return nil
}

// Close is a no-op
func (s *MemoryStore) Close() error {
	return nil
}

// FailWith makes every subsequent call fail with err. Passing nil restores service.
func (s *MemoryStore) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWith = err
}

// FailWritesWith makes subsequent writes fail with err while reads keep working
func (s *MemoryStore) FailWritesWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWrites = err
}

func (s *MemoryStore) writeErr() error {
	if s.failWith != nil {
		return s.failWith
	}
	return s.failWrites
}

// Keys returns the number of stored keys
func (s *MemoryStore) Keys() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
