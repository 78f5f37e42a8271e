// Package cache holds read-through caches in front of the ledger. Only
// projections that can no longer change are stored, so entries never need
// invalidation; the TTL only bounds memory.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "payments:status:"

// StatusCache stores encoded status projections by lookup key.
type StatusCache interface {
	// Get returns the cached body for id. ok is false on a miss.
	Get(ctx context.Context, id string) (body []byte, ok bool, err error)

	// Set stores body under every key in ids.
	Set(ctx context.Context, ids []string, body []byte) error
}

// ─── REDIS ────────────────────────────────────────────────────────────────────

// Redis is a StatusCache backed by a Redis (or Dragonfly) server.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis wraps an existing client. A ttl of zero defaults to one hour.
func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Redis{client: client, ttl: ttl}
}

// Open parses a redis:// URL, connects and pings the server.
func Open(ctx context.Context, url string, ttl time.Duration) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("cache: parse url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("cache: ping: %w", err)
	}
	return NewRedis(client, ttl), nil
}

func (r *Redis) Get(ctx context.Context, id string) ([]byte, bool, error) {
	body, err := r.client.Get(ctx, keyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache: get %s: %w", id, err)
	}
	return body, true, nil
}

func (r *Redis) Set(ctx context.Context, ids []string, body []byte) error {
	pipe := r.client.Pipeline()
	for _, id := range ids {
		if id == "" {
			continue
		}
		pipe.Set(ctx, keyPrefix+id, body, r.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache: set: %w", err)
	}
	return nil
}

// Ping checks the connection.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close releases the underlying client.
func (r *Redis) Close() error {
	return r.client.Close()
}

// ─── NOP ──────────────────────────────────────────────────────────────────────

// Nop is used when no cache is configured. Every Get misses.
type Nop struct{}

func (Nop) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }
func (Nop) Set(context.Context, []string, []byte) error       { return nil }
