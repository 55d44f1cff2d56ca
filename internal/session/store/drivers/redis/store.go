// Package redis implements the session store against a shared Redis
// instance, which makes session state fleet-wide rather than per-process.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/portalhq/sessiond/internal/session/store"
)

// Config holds the Redis connection settings.
type Config struct {
	Addr     string
	Password string
	DB       int

	// OpTimeout bounds every store operation. Validation treats a timeout
	// the same as a miss (fail closed).
	OpTimeout time.Duration
}

// Store is the Redis-backed session store.
type Store struct {
	client    redis.UniversalClient
	opTimeout time.Duration
}

const defaultOpTimeout = 2 * time.Second

// NewStore connects a Store using the given configuration.
func NewStore(cfg Config) *Store {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return NewStoreWithClient(client, cfg.OpTimeout)
}

// NewStoreWithClient wraps an existing client, e.g. a cluster client or a
// test container connection.
func NewStoreWithClient(client redis.UniversalClient, opTimeout time.Duration) *Store {
	if opTimeout <= 0 {
		opTimeout = defaultOpTimeout
	}
	return &Store{client: client, opTimeout: opTimeout}
}

// Put replaces any existing value under key in a single MULTI/EXEC
// transaction (DEL then SET with TTL), so a concurrent reader sees either
// the old value or the new one, never a half-written state.
func (s *Store) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.Set(ctx, key, value, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: put %q: %w", store.ErrUnavailable, key, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	val, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", store.ErrNotFound
		}
		return "", fmt.Errorf("%w: get %q: %w", store.ErrUnavailable, key, err)
	}
	return val, nil
}

func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	n, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("%w: exists %q: %w", store.ErrUnavailable, key, err)
	}
	return n > 0, nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("%w: delete %q: %w", store.ErrUnavailable, key, err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: ping: %w", store.ErrUnavailable, err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.opTimeout)
}
