// Package memory implements the session store as an in-process map with
// per-key deadlines. It satisfies the same atomic-replace contract as the
// Redis driver but is not fleet-wide; use it for tests and single-instance
// development only.
package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/portalhq/sessiond/internal/session/store"
)

type entry struct {
	value    string
	deadline time.Time
}

// Store is an in-memory TTL key-value store. Expiry is lazy: entries past
// their deadline are dropped on the next read of that key.
type Store struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

// NewStore returns an empty in-memory store.
func NewStore() *Store {
	return &Store{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// NewStoreWithClock is NewStore with an injectable clock, for TTL tests.
func NewStoreWithClock(now func() time.Time) *Store {
	s := NewStore()
	s.now = now
	return s
}

func (s *Store) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return store.ErrUnavailable
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = entry{value: value, deadline: s.now().Add(ttl)}
	return nil
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", store.ErrUnavailable
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return "", store.ErrNotFound
	}
	if s.now().After(e.deadline) {
		delete(s.entries, key)
		return "", store.ErrNotFound
	}
	return e.value, nil
}

func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.Get(ctx, key)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, store.ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return store.ErrUnavailable
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, key)
	return nil
}

func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

func (s *Store) Close() error { return nil }
