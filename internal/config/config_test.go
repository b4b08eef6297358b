package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := NewFromViper(NewEmptyViper())

	fw, err := cfg.GetDNSFirewall()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, fw.Timeout)
	assert.Equal(t, 10, fw.BatchSize)
	assert.Equal(t, 24*time.Hour, fw.CacheTTL)

	rep, err := cfg.GetReputation()
	require.NoError(t, err)
	assert.Equal(t, "none", rep.Provider)
	assert.False(t, rep.Enforce)

	cc, err := cfg.GetCache()
	require.NoError(t, err)
	assert.Equal(t, "memory", cc.Type)
	assert.Equal(t, time.Hour, cc.CleanupFrequency)

	assert.Empty(t, cfg.GetScoring().FreeMailProviders)
}

func TestInvalidDuration(t *testing.T) {
	cfg := NewFromViper(NewEmptyViper())
	cfg.Set("dnsfirewall.timeout", "soon")
	_, err := cfg.GetDNSFirewall()
	assert.Error(t, err)
}

func TestProviderRegistryFlatKeys(t *testing.T) {
	cfg := NewFromViper(NewEmptyViper())
	cfg.Set("dnsfirewall.api_key", "secret")

	p, err := NewProviderRegistry(cfg).DefaultProvider(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "quad9", p.ID)
	assert.Equal(t, "https://dns.quad9.net:5053/dns-query", p.Endpoint)
	assert.Equal(t, "secret", p.APIKey)
	assert.Equal(t, 5000, p.TimeoutMs)
}

func TestProviderRegistryFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
dnsfirewall:
  providers:
    - provider_id: cloudflare-security
      endpoint: https://security.cloudflare-dns.com/dns-query
      is_enabled: false
      is_default: true
    - provider_id: corp
      endpoint: https://doh.corp.example/dns-query
      api_key: token
      is_enabled: true
      is_default: true
      timeout_ms: 2000
domains:
  blocked: [evil.example]
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	p, err := NewProviderRegistry(cfg).DefaultProvider(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "corp", p.ID)
	assert.Equal(t, "token", p.APIKey)
	assert.Equal(t, 2000, p.TimeoutMs)

	assert.Equal(t, []string{"evil.example"}, cfg.GetDomainLists().Blocked)
}

func TestProviderRegistryNoDefault(t *testing.T) {
	v := NewEmptyViper()
	v.Set("dnsfirewall.providers", []map[string]interface{}{
		{"provider_id": "a", "endpoint": "https://a.example/dns-query", "is_enabled": true, "is_default": false},
	})

	_, err := NewProviderRegistry(NewFromViper(v)).DefaultProvider(context.Background())
	assert.ErrorIs(t, err, ErrNoDefaultProvider)
}
