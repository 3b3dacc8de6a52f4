package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/quantfold/tradedesk/internal/marketdata"
)

// BarCache stores rendered bar responses in Redis. A miss comes back as
// (nil, nil) so callers treat the cache as best-effort.
type BarCache struct {
	rdb *redis.Client
}

// NewBarCache creates a BarCache over the shared client.
func NewBarCache(client *Client) *BarCache {
	return &BarCache{rdb: client.Underlying()}
}

// Get returns the cached response for key, or nil on a miss.
func (c *BarCache) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis: get %s: %w", key, err)
	}
	return data, nil
}

// Set stores the response under key for the given TTL. A non-positive TTL
// stores nothing, keeping stale windows out of the cache entirely.
func (c *BarCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := c.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis: set %s: %w", key, err)
	}
	return nil
}

// Compile-time interface check.
var _ marketdata.Cache = (*BarCache)(nil)
