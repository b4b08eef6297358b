package config

import (
	"context"
	"errors"
	"fmt"

	"github.com/mikey/mail-threat-filter/internal/core"
)

// ErrNoDefaultProvider is returned when no enabled provider is marked default
var ErrNoDefaultProvider = errors.New("no enabled default DNS firewall provider")

// ProviderRegistry serves DNS firewall providers from the configuration
type ProviderRegistry struct {
	cfg *Config
}

// NewProviderRegistry creates a new ProviderRegistry
func NewProviderRegistry(cfg *Config) *ProviderRegistry {
	return &ProviderRegistry{cfg: cfg}
}

// Providers returns the configured rows. Without a dnsfirewall.providers
// list a single default row is built from the flat dnsfirewall keys.
func (r *ProviderRegistry) Providers() ([]core.ProviderConfig, error) {
	var rows []core.ProviderConfig
	if err := r.cfg.v.UnmarshalKey("dnsfirewall.providers", &rows); err != nil {
		return nil, fmt.Errorf("invalid dnsfirewall.providers: %w", err)
	}
	if len(rows) > 0 {
		return rows, nil
	}

	timeout, err := r.cfg.GetDuration("dnsfirewall.timeout")
	if err != nil {
		return nil, err
	}
	return []core.ProviderConfig{{
		ID:        r.cfg.GetString("dnsfirewall.provider_id"),
		Endpoint:  r.cfg.GetString("dnsfirewall.endpoint"),
		APIKey:    r.cfg.GetString("dnsfirewall.api_key"),
		Enabled:   true,
		Default:   true,
		TimeoutMs: int(timeout.Milliseconds()),
	}}, nil
}

// DefaultProvider implements core.ProviderSource
func (r *ProviderRegistry) DefaultProvider(ctx context.Context) (*core.ProviderConfig, error) {
	rows, err := r.Providers()
	if err != nil {
		return nil, err
	}
	for i := range rows {
		if rows[i].Enabled && rows[i].Default {
			p := rows[i]
			return &p, nil
		}
	}
	return nil, ErrNoDefaultProvider
}
