package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/mikey/mail-threat-filter/internal/core"
	"go.uber.org/zap"
)

const redisKeyPrefix = "mtf:cache:"

// RedisCache is a Redis implementation of the ReputationStore interface.
// Redis expires keys itself, so Sweep has nothing to do.
type RedisCache struct {
	rdb    *redis.Client
	logger *zap.Logger
	now    func() time.Time
}

// NewRedisCache creates a new Redis cache and verifies the connection
func NewRedisCache(ctx context.Context, opts *redis.Options, logger *zap.Logger) (*RedisCache, error) {
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", opts.Addr, err)
	}
	return &RedisCache{rdb: rdb, logger: logger, now: time.Now}, nil
}

// Get retrieves a live entry
func (c *RedisCache) Get(ctx context.Context, key string) (*core.CacheEntry, error) {
	val, err := c.rdb.Get(ctx, redisKeyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, core.ErrNotFound
		}
		return nil, fmt.Errorf("failed to query cache: %w", err)
	}

	var entry core.CacheEntry
	if err := json.Unmarshal(val, &entry); err != nil {
		return nil, fmt.Errorf("failed to decode cache entry: %w", err)
	}
	if !entry.ExpiresAt.After(c.now()) {
		return nil, core.ErrNotFound
	}
	return &entry, nil
}

// Set stores an entry with a key TTL matching its expiry
func (c *RedisCache) Set(ctx context.Context, entry *core.CacheEntry) error {
	ttl := entry.ExpiresAt.Sub(c.now())
	if ttl <= 0 {
		return c.Delete(ctx, entry.Key)
	}

	val, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}
	if err := c.rdb.Set(ctx, redisKeyPrefix+entry.Key, val, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store cache entry: %w", err)
	}
	return nil
}

// Delete removes a cache entry
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	if err := c.rdb.Del(ctx, redisKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

// Sweep is a no-op
func (c *RedisCache) Sweep(ctx context.Context, now time.Time) (int, error) {
	return 0, nil
}

// Stop closes the Redis client
func (c *RedisCache) Stop() {
	if err := c.rdb.Close(); err != nil {
		c.logger.Error("Failed to close Redis client", zap.Error(err))
	}
}
