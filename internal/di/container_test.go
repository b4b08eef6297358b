package di

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikey/mail-threat-filter/internal/adapters/filter"
	"github.com/mikey/mail-threat-filter/internal/config"
	"github.com/mikey/mail-threat-filter/internal/core"
	"github.com/mikey/mail-threat-filter/internal/factory"
	"github.com/mikey/mail-threat-filter/internal/ports"
	"github.com/mikey/mail-threat-filter/internal/reputation"
)

func TestBuildCLIContainer(t *testing.T) {
	container, err := BuildCLIContainer(&CLIFlags{
		JSON:     true,
		NoCache:  true,
		Endpoint: "https://doh.example/dns-query",
		Timeout:  "2s",
	})
	require.NoError(t, err)

	err = container.Invoke(func(
		cfg *config.Config,
		service *core.ThreatService,
		emailFilter ports.EmailFilter,
		rep core.ReputationProvider,
		store factory.Store,
	) {
		defer store.Stop()

		assert.Equal(t, "cli", cfg.GetString("server.filter_type"))
		assert.True(t, cfg.GetBool("cli.json"))
		assert.False(t, cfg.GetBool("cache.enabled"))
		assert.Equal(t, "https://doh.example/dns-query", cfg.GetString("dnsfirewall.endpoint"))
		assert.NotNil(t, service)
		assert.IsType(t, &filter.CliFilter{}, emailFilter)
		assert.IsType(t, reputation.Disabled{}, rep)
	})
	require.NoError(t, err)
}

func TestApplyFlagsLeavesUnsetValues(t *testing.T) {
	cfg := config.NewFromViper(config.NewEmptyViper())
	applyFlags(cfg, &CLIFlags{})

	assert.Equal(t, "cli", cfg.GetString("server.filter_type"))
	assert.True(t, cfg.GetBool("cache.enabled"))
	assert.Equal(t, "none", cfg.GetString("reputation.provider"))
	assert.Equal(t, "5s", cfg.GetString("dnsfirewall.timeout"))
}
