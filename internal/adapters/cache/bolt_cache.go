package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/mikey/mail-threat-filter/internal/core"
	bolt "go.etcd.io/bbolt"
	"go.uber.org/zap"
)

var boltBucket = []byte("reputation_cache")

// BoltCache is a bbolt implementation of the ReputationStore interface
type BoltCache struct {
	db       *bolt.DB
	logger   *zap.Logger
	now      func() time.Time
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewBoltCache opens or creates the database file at path
func NewBoltCache(path string, logger *zap.Logger, cleanupFreq time.Duration) (*BoltCache, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(boltBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}

	c := &BoltCache{
		db:     db,
		logger: logger,
		now:    time.Now,
		stopCh: make(chan struct{}),
	}
	if cleanupFreq > 0 {
		go runCleanup(c, cleanupFreq, c.stopCh, time.Now, logger)
	}
	return c, nil
}

// Get retrieves a live entry
func (c *BoltCache) Get(ctx context.Context, key string) (*core.CacheEntry, error) {
	var entry core.CacheEntry
	found := false

	err := c.db.View(func(tx *bolt.Tx) error {
		val := tx.Bucket(boltBucket).Get([]byte(key))
		if val == nil {
			return nil
		}
		found = true
		return json.Unmarshal(val, &entry)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read cache entry: %w", err)
	}
	if !found || !entry.ExpiresAt.After(c.now()) {
		return nil, core.ErrNotFound
	}
	return &entry, nil
}

// Set upserts a cache entry
func (c *BoltCache) Set(ctx context.Context, entry *core.CacheEntry) error {
	val, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}
	err = c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(boltBucket).Put([]byte(entry.Key), val)
	})
	if err != nil {
		return fmt.Errorf("failed to store cache entry: %w", err)
	}
	return nil
}

// Delete removes a cache entry
func (c *BoltCache) Delete(ctx context.Context, key string) error {
	err := c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(boltBucket).Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

// Sweep removes entries that expired before now
func (c *BoltCache) Sweep(ctx context.Context, now time.Time) (int, error) {
	removed := 0
	err := c.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(boltBucket)
		var expired [][]byte
		err := b.ForEach(func(k, v []byte) error {
			var entry core.CacheEntry
			if err := json.Unmarshal(v, &entry); err != nil {
				c.logger.Warn("Dropping undecodable cache entry", zap.ByteString("key", k), zap.Error(err))
				expired = append(expired, append([]byte(nil), k...))
				return nil
			}
			if entry.ExpiresAt.Before(now) {
				expired = append(expired, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range expired {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		removed = len(expired)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to clean up expired entries: %w", err)
	}

	c.logger.Debug("Cleaned up expired cache entries", zap.Int("expired_count", removed))
	return removed, nil
}

// Stop stops the background cleanup task and closes the database
func (c *BoltCache) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopCh)
		if err := c.db.Close(); err != nil {
			c.logger.Error("Failed to close bolt database", zap.Error(err))
		}
	})
}
