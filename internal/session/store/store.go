package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound reports an absent or expired key. A token whose store key
	// is absent is treated as revoked regardless of signature validity.
	ErrNotFound = errors.New("store: not found")

	// ErrUnavailable reports that the backing store could not be reached.
	// Validation paths fail closed on it; login surfaces it as retryable.
	ErrUnavailable = errors.New("store: unavailable")
)

// Store is the fleet-wide TTL key-value store holding the currently valid
// token per principal. Implementations must make Put atomic: a concurrent
// reader never observes a deleted-but-not-yet-rewritten key.
type Store interface {
	// Put atomically replaces any existing value under key and arms the TTL.
	Put(ctx context.Context, key, value string, ttl time.Duration) error

	// Get returns the current value or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)

	// Exists reports whether key currently holds an unexpired value.
	Exists(ctx context.Context, key string) (bool, error)

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Ping verifies the store is reachable.
	Ping(ctx context.Context) error

	Close() error
}

// Key namespace. Kept compatible with the deployed store layout so rolling
// restarts of mixed versions resolve the same records.
const (
	sessionKeyPrefix = "session:"
	refreshKeyPrefix = "refresh:"
)

// SessionKey is the store key holding principal's current valid access token.
func SessionKey(principal string) string {
	return sessionKeyPrefix + principal
}

// RefreshKey is the store key holding principal's current valid refresh token.
func RefreshKey(principal string) string {
	return refreshKeyPrefix + principal
}
