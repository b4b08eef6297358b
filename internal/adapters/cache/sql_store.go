package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mikey/mail-threat-filter/internal/core"
	"go.uber.org/zap"
)

// sqlDialect holds the statements that differ between SQL backends
type sqlDialect struct {
	name   string
	schema []string
	upsert string
}

// sqlStore persists cache rows keyed uniquely by key. Timestamps are unix
// milliseconds so expiry comparisons do not depend on the server clock.
type sqlStore struct {
	db       *sql.DB
	dialect  sqlDialect
	logger   *zap.Logger
	now      func() time.Time
	stopCh   chan struct{}
	stopOnce sync.Once
}

func newSQLStore(db *sql.DB, dialect sqlDialect, logger *zap.Logger, cleanupFreq time.Duration) (*sqlStore, error) {
	for _, stmt := range dialect.schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create %s schema: %w", dialect.name, err)
		}
	}

	s := &sqlStore{
		db:      db,
		dialect: dialect,
		logger:  logger,
		now:     time.Now,
		stopCh:  make(chan struct{}),
	}

	if cleanupFreq > 0 {
		go runCleanup(s, cleanupFreq, s.stopCh, time.Now, logger)
	}
	return s, nil
}

// Get retrieves a live entry
func (s *sqlStore) Get(ctx context.Context, key string) (*core.CacheEntry, error) {
	var (
		entry     core.CacheEntry
		isSafe    bool
		isBlocked bool
		checkedAt int64
		expiresAt int64
	)

	err := s.db.QueryRowContext(ctx, `
		SELECT cache_key, is_safe, is_blocked, provider, score, checked_at, expires_at
		FROM reputation_cache
		WHERE cache_key = ? AND expires_at > ?
	`, key, s.now().UnixMilli()).Scan(&entry.Key, &isSafe, &isBlocked, &entry.Source, &entry.Score, &checkedAt, &expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrNotFound
		}
		return nil, fmt.Errorf("failed to query cache: %w", err)
	}

	entry.Verdict = core.VerdictBlocked
	if isSafe && !isBlocked {
		entry.Verdict = core.VerdictSafe
	}
	entry.CheckedAt = time.UnixMilli(checkedAt)
	entry.ExpiresAt = time.UnixMilli(expiresAt)
	return &entry, nil
}

// Set upserts a cache entry
func (s *sqlStore) Set(ctx context.Context, entry *core.CacheEntry) error {
	safe := entry.IsSafe()
	_, err := s.db.ExecContext(ctx, s.dialect.upsert,
		entry.Key, safe, !safe, entry.Source, entry.Score,
		entry.CheckedAt.UnixMilli(), entry.ExpiresAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to store cache entry: %w", err)
	}
	return nil
}

// Delete removes a cache entry
func (s *sqlStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM reputation_cache WHERE cache_key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

// Sweep removes entries that expired before now
func (s *sqlStore) Sweep(ctx context.Context, now time.Time) (int, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM reputation_cache WHERE expires_at < ?`, now.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to clean up expired entries: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		s.logger.Warn("Failed to get rows affected during cleanup", zap.Error(err))
		return 0, nil
	}
	s.logger.Debug("Cleaned up expired cache entries", zap.Int64("expired_count", rows))
	return int(rows), nil
}

// Stop stops the background cleanup task and closes the database connection
func (s *sqlStore) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
		if err := s.db.Close(); err != nil {
			s.logger.Error("Failed to close database", zap.String("driver", s.dialect.name), zap.Error(err))
		}
	})
}
