package reputation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/mail-threat-filter/internal/core"
	"github.com/mikey/mail-threat-filter/internal/metrics"
)

// CacheKey is the store key of an address. Only a hash of the address is stored.
func CacheKey(address string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(address))))
	return "rep:" + hex.EncodeToString(sum[:])
}

// CachedProvider serves lookups from the shared store before asking next
type CachedProvider struct {
	next   core.ReputationProvider
	store  core.ReputationStore
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time
}

// NewCachedProvider wraps next with the store
func NewCachedProvider(next core.ReputationProvider, store core.ReputationStore, ttl time.Duration, logger *zap.Logger) *CachedProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedProvider{next: next, store: store, ttl: ttl, logger: logger, now: time.Now}
}

// Lookup implements core.ReputationProvider
func (p *CachedProvider) Lookup(ctx context.Context, req *core.ReputationRequest) (*core.ReputationRecord, error) {
	key := CacheKey(req.Address)

	entry, err := p.store.Get(ctx, key)
	switch {
	case err == nil:
		metrics.CacheResult("hit")
		return &core.ReputationRecord{
			Address:   req.Address,
			IsSpam:    entry.Verdict == core.VerdictBlocked,
			Score:     entry.Score,
			Source:    entry.Source,
			CheckedAt: entry.CheckedAt,
			FromCache: true,
		}, nil
	case errors.Is(err, core.ErrNotFound):
		metrics.CacheResult("miss")
	default:
		metrics.CacheResult("error")
		p.logger.Warn("Reputation cache read failed", zap.Error(err))
	}

	rec, err := p.next.Lookup(ctx, req)
	if err != nil || rec == nil {
		return rec, err
	}

	verdict := core.VerdictSafe
	if rec.IsSpam {
		verdict = core.VerdictBlocked
	}
	checkedAt := p.now()
	err = p.store.Set(ctx, &core.CacheEntry{
		Key:       key,
		Verdict:   verdict,
		Source:    rec.Source,
		Score:     rec.Score,
		CheckedAt: checkedAt,
		ExpiresAt: checkedAt.Add(p.ttl),
	})
	if err != nil {
		p.logger.Warn("Reputation cache write failed", zap.Error(err))
	}
	return rec, nil
}

// Close releases the wrapped provider when it holds a client connection
func (p *CachedProvider) Close() error {
	if closer, ok := p.next.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}

// Disabled is used when no reputation provider is configured. It has no opinion.
type Disabled struct{}

func (Disabled) Lookup(ctx context.Context, req *core.ReputationRequest) (*core.ReputationRecord, error) {
	return nil, nil
}
