package cache

import (
	"context"
	"time"

	"github.com/mikey/mail-threat-filter/internal/core"
)

// NoopCache never stores anything; every read is a miss
type NoopCache struct{}

// NewNoopCache creates a cache used when caching is disabled
func NewNoopCache() *NoopCache {
	return &NoopCache{}
}

func (NoopCache) Get(ctx context.Context, key string) (*core.CacheEntry, error) {
	return nil, core.ErrNotFound
}

func (NoopCache) Set(ctx context.Context, entry *core.CacheEntry) error { return nil }

func (NoopCache) Delete(ctx context.Context, key string) error { return nil }

func (NoopCache) Sweep(ctx context.Context, now time.Time) (int, error) { return 0, nil }

func (NoopCache) Stop() {}
