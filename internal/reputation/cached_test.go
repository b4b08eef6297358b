package reputation

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mikey/mail-threat-filter/internal/adapters/cache"
	"github.com/mikey/mail-threat-filter/internal/core"
	"github.com/mikey/mail-threat-filter/internal/utils"
)

type countingProvider struct {
	calls int
	rec   *core.ReputationRecord
	err   error
}

func (p *countingProvider) Lookup(ctx context.Context, req *core.ReputationRequest) (*core.ReputationRecord, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	rec := *p.rec
	rec.Address = req.Address
	return &rec, nil
}

func TestCacheKey(t *testing.T) {
	k := CacheKey(" Alice@Example.com ")
	assert.Equal(t, CacheKey("alice@example.com"), k)
	assert.True(t, strings.HasPrefix(k, "rep:"))
	assert.NotContains(t, k, "example")
	assert.Len(t, k, len("rep:")+64)
}

func TestCachedProvider(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemoryCache(zap.NewNop(), 0)
	defer store.Stop()

	next := &countingProvider{rec: &core.ReputationRecord{IsSpam: true, Score: 0.92, Source: "openai"}}
	p := NewCachedProvider(next, store, time.Hour, zap.NewNop())
	req := &core.ReputationRequest{Address: "spammer@bulk.example"}

	first, err := p.Lookup(ctx, req)
	require.NoError(t, err)
	assert.False(t, first.FromCache)
	assert.True(t, first.IsSpam)

	second, err := p.Lookup(ctx, req)
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.True(t, second.IsSpam)
	assert.InDelta(t, 0.92, second.Score, 1e-9)
	assert.Equal(t, "openai", second.Source)
	assert.Equal(t, 1, next.calls)

	_, err = store.Get(ctx, CacheKey("spammer@bulk.example"))
	assert.NoError(t, err)
}

func TestCachedProviderErrorsAreNotCached(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemoryCache(zap.NewNop(), 0)
	defer store.Stop()

	next := &countingProvider{err: errors.New("rate limited")}
	p := NewCachedProvider(next, store, time.Hour, nil)
	req := &core.ReputationRequest{Address: "a@b.example"}

	_, err := p.Lookup(ctx, req)
	assert.Error(t, err)
	_, err = p.Lookup(ctx, req)
	assert.Error(t, err)
	assert.Equal(t, 2, next.calls)
}

func TestDecodeResponse(t *testing.T) {
	tp := utils.NewTextProcessor(zap.NewNop())
	req := &core.ReputationRequest{Address: "x@y.example"}

	rec, err := DecodeResponse(tp, "Result:\n{\"is_spam\": true, \"score\": 1.7, \"confidence\": -0.2, \"explanation\": \"bulk sender\"}", req, "gemini")
	require.NoError(t, err)
	assert.Equal(t, "x@y.example", rec.Address)
	assert.True(t, rec.IsSpam)
	assert.Equal(t, 1.0, rec.Score)
	assert.Equal(t, 0.0, rec.Confidence)
	assert.Equal(t, "gemini", rec.Source)

	_, err = DecodeResponse(tp, "no json here", req, "gemini")
	assert.Error(t, err)
}

func TestBuildPrompt(t *testing.T) {
	tp := utils.NewTextProcessor(zap.NewNop())
	prompt := BuildPrompt(tp, &core.ReputationRequest{
		Address: "billing@acme.example", DisplayName: "Acme", Subject: "Invoice", Body: strings.Repeat("x", 100),
	}, 10)
	assert.Contains(t, prompt, "Sender address: billing@acme.example")
	assert.Contains(t, prompt, "truncated")
	assert.NotContains(t, prompt, strings.Repeat("x", 11))
}

func TestDisabled(t *testing.T) {
	rec, err := Disabled{}.Lookup(context.Background(), &core.ReputationRequest{Address: "a@b.example"})
	assert.NoError(t, err)
	assert.Nil(t, rec)
}

type closingProvider struct {
	countingProvider
	closed bool
}

func (p *closingProvider) Close() error {
	p.closed = true
	return nil
}

func TestCachedProviderClose(t *testing.T) {
	store := cache.NewMemoryCache(zap.NewNop(), 0)
	defer store.Stop()

	next := &closingProvider{}
	require.NoError(t, NewCachedProvider(next, store, time.Hour, nil).Close())
	assert.True(t, next.closed)

	assert.NoError(t, NewCachedProvider(&countingProvider{}, store, time.Hour, nil).Close())
}
