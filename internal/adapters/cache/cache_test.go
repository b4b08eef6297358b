package cache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mikey/mail-threat-filter/internal/core"
)

type store interface {
	core.ReputationStore
	Stop()
}

func entry(key string, verdict core.Verdict, checkedAt time.Time, ttl time.Duration) *core.CacheEntry {
	return &core.CacheEntry{
		Key:       key,
		Verdict:   verdict,
		Source:    "quad9",
		CheckedAt: checkedAt.Truncate(time.Millisecond),
		ExpiresAt: checkedAt.Add(ttl).Truncate(time.Millisecond),
	}
}

// exerciseStore runs the behaviour every ReputationStore shares
func exerciseStore(t *testing.T, s store) {
	ctx := context.Background()
	now := time.Now()

	t.Run("miss", func(t *testing.T) {
		_, err := s.Get(ctx, "absent.com")
		assert.ErrorIs(t, err, core.ErrNotFound)
	})

	t.Run("round trip", func(t *testing.T) {
		require.NoError(t, s.Set(ctx, entry("safe.com", core.VerdictSafe, now, time.Hour)))
		got, err := s.Get(ctx, "safe.com")
		require.NoError(t, err)
		assert.Equal(t, core.VerdictSafe, got.Verdict)
		assert.Equal(t, "quad9", got.Source)
		assert.True(t, got.IsSafe())
	})

	t.Run("last write wins", func(t *testing.T) {
		require.NoError(t, s.Set(ctx, entry("flip.com", core.VerdictSafe, now, time.Hour)))
		require.NoError(t, s.Set(ctx, entry("flip.com", core.VerdictBlocked, now, time.Hour)))
		got, err := s.Get(ctx, "flip.com")
		require.NoError(t, err)
		assert.Equal(t, core.VerdictBlocked, got.Verdict)
	})

	t.Run("expired entry is absent", func(t *testing.T) {
		require.NoError(t, s.Set(ctx, entry("old.com", core.VerdictBlocked, now.Add(-2*time.Hour), time.Hour)))
		_, err := s.Get(ctx, "old.com")
		assert.ErrorIs(t, err, core.ErrNotFound)
	})

	t.Run("sweep removes only expired", func(t *testing.T) {
		removed, err := s.Sweep(ctx, now)
		require.NoError(t, err)
		assert.Equal(t, 1, removed)

		_, err = s.Get(ctx, "safe.com")
		assert.NoError(t, err)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, s.Delete(ctx, "safe.com"))
		_, err := s.Get(ctx, "safe.com")
		assert.ErrorIs(t, err, core.ErrNotFound)
	})
}

func TestMemoryCache(t *testing.T) {
	c := NewMemoryCache(zap.NewNop(), 0)
	defer c.Stop()
	exerciseStore(t, c)
}

func TestMemoryCacheLazyExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	c := NewMemoryCache(zap.NewNop(), 0, WithClock(func() time.Time { return now }))
	defer c.Stop()

	require.NoError(t, c.Set(ctx, entry("a.com", core.VerdictSafe, now, 24*time.Hour)))

	now = now.Add(24*time.Hour - time.Second)
	_, err := c.Get(ctx, "a.com")
	require.NoError(t, err)

	// expiresAt <= now is a miss even though the entry is still stored
	now = now.Add(time.Second)
	_, err = c.Get(ctx, "a.com")
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.Equal(t, 1, c.Len())

	// sweep only removes expiresAt < now
	removed, err := c.Sweep(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 0, removed)

	removed, err = c.Sweep(ctx, now.Add(time.Millisecond))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.Equal(t, 0, c.Len())
}

func TestBoltCache(t *testing.T) {
	c, err := NewBoltCache(filepath.Join(t.TempDir(), "cache.db"), zap.NewNop(), 0)
	require.NoError(t, err)
	defer c.Stop()
	exerciseStore(t, c)
}

func TestSQLiteCache(t *testing.T) {
	c, err := NewSQLiteCache(filepath.Join(t.TempDir(), "cache.db"), zap.NewNop(), 0)
	require.NoError(t, err)
	defer c.Stop()
	exerciseStore(t, c)
}

func TestNoopCache(t *testing.T) {
	ctx := context.Background()
	c := NewNoopCache()
	require.NoError(t, c.Set(ctx, entry("a.com", core.VerdictSafe, time.Now(), time.Hour)))
	_, err := c.Get(ctx, "a.com")
	assert.ErrorIs(t, err, core.ErrNotFound)
}
