// Package firewall checks domains against a DNS-over-HTTPS threat-intelligence
// resolver. Blocked domains are answered with NXDOMAIN or an empty answer.
//
// The validator fails open: a network error, timeout or unparseable response
// resolves the domain as safe and is never cached.
package firewall

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/mikey/mail-threat-filter/internal/core"
	"github.com/mikey/mail-threat-filter/internal/domainlist"
	"github.com/mikey/mail-threat-filter/internal/extract"
	"github.com/mikey/mail-threat-filter/internal/metrics"
)

// ErrInvalidDomain is reported for input that does not normalize to a domain
var ErrInvalidDomain = errors.New("invalid domain")

// Hardcoded provider used when no configured provider is available
const (
	DefaultProviderID = "quad9"
	DefaultEndpoint   = "https://dns.quad9.net:5053/dns-query"
)

const (
	DefaultBatchSize = 10
	DefaultTimeout   = 5 * time.Second
	DefaultCacheTTL  = 24 * time.Hour
)

// Providers reported for results decided by the custom domain lists
const (
	ProviderBlocklist = "custom-blocklist"
	ProviderAllowlist = "allowlist"
)

// DefaultProvider returns the hardcoded fallback provider
func DefaultProvider() *core.ProviderConfig {
	return &core.ProviderConfig{
		ID:        DefaultProviderID,
		Endpoint:  DefaultEndpoint,
		Enabled:   true,
		Default:   true,
		TimeoutMs: int(DefaultTimeout / time.Millisecond),
	}
}

// Validator resolves domains through a DoH provider with caching
type Validator struct {
	httpClient *http.Client
	providers  core.ProviderSource
	store      core.ReputationStore
	lists      *domainlist.Lists
	logger     *zap.Logger
	batchSize  int
	timeout    time.Duration
	cacheTTL   time.Duration
	now        func() time.Time

	inflight singleflight.Group
}

type Option func(*Validator)

func WithHTTPClient(h *http.Client) Option {
	return func(v *Validator) { v.httpClient = h }
}

func WithProviderSource(p core.ProviderSource) Option {
	return func(v *Validator) { v.providers = p }
}

func WithStore(s core.ReputationStore) Option {
	return func(v *Validator) { v.store = s }
}

func WithLists(l *domainlist.Lists) Option {
	return func(v *Validator) { v.lists = l }
}

func WithLogger(l *zap.Logger) Option {
	return func(v *Validator) { v.logger = l }
}

func WithBatchSize(n int) Option {
	return func(v *Validator) {
		if n > 0 {
			v.batchSize = n
		}
	}
}

// WithTimeout sets the per-query timeout used when the provider has none
func WithTimeout(t time.Duration) Option {
	return func(v *Validator) {
		if t > 0 {
			v.timeout = t
		}
	}
}

func WithCacheTTL(t time.Duration) Option {
	return func(v *Validator) {
		if t > 0 {
			v.cacheTTL = t
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(v *Validator) { v.now = now }
}

// NewValidator creates a validator. Without a store nothing is cached.
func NewValidator(opts ...Option) *Validator {
	v := &Validator{
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        20,
				IdleConnTimeout:     30 * time.Second,
				MaxIdleConnsPerHost: 10,
			},
		},
		logger:    zap.NewNop(),
		batchSize: DefaultBatchSize,
		timeout:   DefaultTimeout,
		cacheTTL:  DefaultCacheTTL,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// provider resolves the configured default provider, falling back to the
// hardcoded one on any error
func (v *Validator) provider(ctx context.Context) *core.ProviderConfig {
	if v.providers == nil {
		return DefaultProvider()
	}
	p, err := v.providers.DefaultProvider(ctx)
	if err != nil {
		v.logger.Debug("Provider lookup failed, using fallback", zap.Error(err))
		return DefaultProvider()
	}
	if p == nil || !p.Enabled || p.Endpoint == "" {
		return DefaultProvider()
	}
	return p
}

// CheckDomain determines whether one domain is safe. Concurrent checks of
// the same domain share one provider query; a caller whose context ends
// first fails open on its own without cancelling the query for the others.
func (v *Validator) CheckDomain(ctx context.Context, domain string) *core.DomainValidationResult {
	start := v.now()
	d, ok := extract.NormalizeDomain(domain)
	if !ok {
		v.logger.Debug("Skipping invalid domain", zap.String("domain", domain))
		return &core.DomainValidationResult{
			Domain:    strings.TrimSpace(domain),
			IsSafe:    true,
			CheckedAt: start,
			Error:     ErrInvalidDomain.Error(),
		}
	}
	domain = d

	if v.lists.IsBlocked(domain) {
		return v.listed(domain, false, ProviderBlocklist, start)
	}
	if v.lists.IsAllowed(domain) {
		return v.listed(domain, true, ProviderAllowlist, start)
	}

	if r := v.fromCache(ctx, domain, start); r != nil {
		return r
	}
	if err := ctx.Err(); err != nil {
		return v.abandoned(domain, err, start)
	}

	ch := v.inflight.DoChan(domain, func() (interface{}, error) {
		return v.lookup(context.WithoutCancel(ctx), domain), nil
	})
	select {
	case res := <-ch:
		// each caller gets its own copy, timed from its own start
		r := *res.Val.(*core.DomainValidationResult)
		r.ResponseTimeMs = v.now().Sub(start).Milliseconds()
		return &r
	case <-ctx.Done():
		return v.abandoned(domain, ctx.Err(), start)
	}
}

// abandoned is the fail-open result for a caller that stopped waiting
func (v *Validator) abandoned(domain string, err error, start time.Time) *core.DomainValidationResult {
	v.logger.Debug("Domain check abandoned, treating as safe",
		zap.String("domain", domain), zap.Error(err))
	now := v.now()
	return &core.DomainValidationResult{
		Domain:         domain,
		IsSafe:         true,
		FailedOpen:     true,
		Error:          err.Error(),
		CheckedAt:      now,
		ResponseTimeMs: now.Sub(start).Milliseconds(),
	}
}

func (v *Validator) listed(domain string, safe bool, provider string, start time.Time) *core.DomainValidationResult {
	return &core.DomainValidationResult{
		Domain:         domain,
		IsSafe:         safe,
		IsBlocked:      !safe,
		Provider:       provider,
		CheckedAt:      start,
		ResponseTimeMs: v.now().Sub(start).Milliseconds(),
	}
}

func (v *Validator) fromCache(ctx context.Context, domain string, start time.Time) *core.DomainValidationResult {
	if v.store == nil {
		return nil
	}

	entry, err := v.store.Get(ctx, domain)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			metrics.CacheResult("miss")
		} else {
			metrics.CacheResult("error")
			v.logger.Warn("Cache read failed", zap.String("domain", domain), zap.Error(err))
		}
		return nil
	}
	// an entry at or past its expiry is absent
	if !entry.ExpiresAt.After(v.now()) {
		metrics.CacheResult("miss")
		return nil
	}

	metrics.CacheResult("hit")
	safe := entry.IsSafe()
	return &core.DomainValidationResult{
		Domain:         domain,
		IsSafe:         safe,
		IsBlocked:      !safe,
		Provider:       entry.Source,
		CheckedAt:      entry.CheckedAt,
		ResponseTimeMs: v.now().Sub(start).Milliseconds(),
		FromCache:      true,
	}
}

// lookup queries the provider and caches definitive answers
func (v *Validator) lookup(ctx context.Context, domain string) *core.DomainValidationResult {
	start := v.now()
	provider := v.provider(ctx)

	timeout := v.timeout
	if provider.TimeoutMs > 0 {
		timeout = time.Duration(provider.TimeoutMs) * time.Millisecond
	}
	qctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	queryStart := time.Now()
	verdict, err := v.query(qctx, provider, domain)
	checkedAt := v.now()
	result := &core.DomainValidationResult{
		Domain:         domain,
		Provider:       provider.ID,
		CheckedAt:      checkedAt,
		ResponseTimeMs: checkedAt.Sub(start).Milliseconds(),
	}

	if err != nil {
		metrics.ObserveLookup("error", queryStart)
		v.logger.Warn("Domain check failed, treating as safe",
			zap.String("domain", domain),
			zap.String("provider", provider.ID),
			zap.Error(err))
		result.IsSafe = true
		result.FailedOpen = true
		result.Error = err.Error()
		return result
	}

	result.IsSafe = verdict.safe
	result.IsBlocked = !verdict.safe
	if verdict.safe {
		metrics.ObserveLookup("safe", queryStart)
	} else {
		metrics.ObserveLookup("blocked", queryStart)
	}

	v.logger.Debug("Domain checked",
		zap.String("domain", domain),
		zap.String("provider", provider.ID),
		zap.String("rcode", verdict.rcode()),
		zap.Bool("safe", verdict.safe))

	v.remember(ctx, result)
	return result
}

func (v *Validator) remember(ctx context.Context, r *core.DomainValidationResult) {
	if v.store == nil {
		return
	}
	verdict := core.VerdictBlocked
	if r.IsSafe {
		verdict = core.VerdictSafe
	}
	entry := &core.CacheEntry{
		Key:       r.Domain,
		Verdict:   verdict,
		Source:    r.Provider,
		CheckedAt: r.CheckedAt,
		ExpiresAt: r.CheckedAt.Add(v.cacheTTL),
	}
	if err := v.store.Set(ctx, entry); err != nil {
		v.logger.Warn("Cache write failed", zap.String("domain", r.Domain), zap.Error(err))
	}
}

// CheckDomains checks each distinct domain once. Domains are checked in
// fixed-size batches; a batch runs in parallel and completes before the next
// one starts.
func (v *Validator) CheckDomains(ctx context.Context, domains []string) map[string]*core.DomainValidationResult {
	unique := uniqueDomains(domains)
	results := make(map[string]*core.DomainValidationResult, len(unique))

	for lo := 0; lo < len(unique); lo += v.batchSize {
		hi := min(lo+v.batchSize, len(unique))
		batch := unique[lo:hi]
		out := make([]*core.DomainValidationResult, len(batch))

		var g errgroup.Group
		for i, d := range batch {
			i, d := i, d
			g.Go(func() error {
				out[i] = v.CheckDomain(ctx, d)
				return nil
			})
		}
		_ = g.Wait()

		for i, d := range batch {
			results[d] = out[i]
		}
	}
	return results
}

// ValidateMessageDomains folds the domain checks of one message into a scan result
func (v *Validator) ValidateMessageDomains(ctx context.Context, messageID string, domains []string) *core.MessageScanResult {
	start := time.Now()
	unique := uniqueDomains(domains)

	scan := &core.MessageScanResult{
		MessageID:      messageID,
		IsSafe:         true,
		Domains:        unique,
		BlockedDomains: []string{},
		TotalDomains:   len(unique),
	}
	if len(unique) == 0 {
		scan.Domains = []string{}
		scan.ScanTimeMs = time.Since(start).Milliseconds()
		return scan
	}

	checked := v.CheckDomains(ctx, unique)
	for _, d := range unique {
		r := checked[d]
		scan.Results = append(scan.Results, r)
		if r.IsBlocked {
			scan.BlockedDomains = append(scan.BlockedDomains, d)
		}
	}
	scan.IsSafe = len(scan.BlockedDomains) == 0
	scan.ScanTimeMs = time.Since(start).Milliseconds()
	return scan
}

// uniqueDomains normalizes and deduplicates, keeping first-occurrence order.
// Invalid domains are dropped.
func uniqueDomains(domains []string) []string {
	seen := make(map[string]struct{}, len(domains))
	out := make([]string, 0, len(domains))
	for _, raw := range domains {
		d, ok := extract.NormalizeDomain(raw)
		if !ok {
			continue
		}
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	return out
}
