package factory

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/mikey/mail-threat-filter/internal/config"
	"github.com/mikey/mail-threat-filter/internal/core"
	"github.com/mikey/mail-threat-filter/internal/domainlist"
	"github.com/mikey/mail-threat-filter/internal/extract"
	"github.com/mikey/mail-threat-filter/internal/firewall"
	"github.com/mikey/mail-threat-filter/internal/scoring"
)

// PipelineFactory creates the threat assessment components
type PipelineFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewPipelineFactory creates a new pipeline factory
func NewPipelineFactory(cfg *config.Config, logger *zap.Logger) *PipelineFactory {
	return &PipelineFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateValidator creates the DoH domain validator backed by store
func (f *PipelineFactory) CreateValidator(store Store) (*firewall.Validator, error) {
	fw, err := f.cfg.GetDNSFirewall()
	if err != nil {
		return nil, fmt.Errorf("invalid dnsfirewall configuration: %w", err)
	}
	lists := f.cfg.GetDomainLists()

	return firewall.NewValidator(
		firewall.WithProviderSource(config.NewProviderRegistry(f.cfg)),
		firewall.WithStore(store),
		firewall.WithLists(domainlist.New(lists.Allowed, lists.Blocked, f.logger)),
		firewall.WithLogger(f.logger),
		firewall.WithBatchSize(fw.BatchSize),
		firewall.WithTimeout(fw.Timeout),
		firewall.WithCacheTTL(fw.CacheTTL),
	), nil
}

// CreateScorer creates the header confidence scorer
func (f *PipelineFactory) CreateScorer() *scoring.Scorer {
	return scoring.NewScorer(f.cfg.GetScoring(), f.logger)
}

// CreateThreatService assembles the aggregate service
func (f *PipelineFactory) CreateThreatService(
	validator *firewall.Validator,
	scorer *scoring.Scorer,
	reputation core.ReputationProvider,
	mailbox core.Mailbox,
) (*core.ThreatService, error) {
	rc, err := f.cfg.GetReputation()
	if err != nil {
		return nil, fmt.Errorf("invalid reputation configuration: %w", err)
	}

	return core.NewThreatService(
		extract.NewExtractor(),
		validator,
		scorer,
		reputation,
		mailbox,
		f.logger,
		core.ThreatOptions{
			EnforceReputation:   rc.Enforce,
			ReputationThreshold: rc.Threshold,
		},
	), nil
}
