package factory

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/mikey/mail-threat-filter/internal/config"
	"github.com/mikey/mail-threat-filter/internal/core"
	"github.com/mikey/mail-threat-filter/internal/reputation"
	"github.com/mikey/mail-threat-filter/internal/utils"
)

// ReputationFactory creates the configured sender reputation provider
type ReputationFactory struct {
	cfg           *config.Config
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
	store         core.ReputationStore
}

// NewReputationFactory creates a new reputation factory
func NewReputationFactory(cfg *config.Config, logger *zap.Logger, textProcessor *utils.TextProcessor, store Store) *ReputationFactory {
	return &ReputationFactory{
		cfg:           cfg,
		logger:        logger,
		textProcessor: textProcessor,
		store:         store,
	}
}

// CreateReputationProvider creates a provider based on reputation.provider.
// Remote providers are wrapped with the shared reputation store.
func (f *ReputationFactory) CreateReputationProvider() (core.ReputationProvider, error) {
	rc, err := f.cfg.GetReputation()
	if err != nil {
		return nil, fmt.Errorf("invalid reputation configuration: %w", err)
	}

	var provider core.ReputationProvider
	switch rc.Provider {
	case "", "none":
		return reputation.Disabled{}, nil
	case "openai":
		provider, err = NewOpenAIFactory(f.cfg, f.logger, f.textProcessor).CreateProvider()
	case "gemini":
		provider, err = NewGeminiFactory(f.cfg, f.logger, f.textProcessor).CreateProvider()
	case "bedrock":
		provider, err = NewBedrockFactory(f.cfg, f.logger, f.textProcessor).CreateProvider()
	default:
		return nil, fmt.Errorf("unsupported reputation provider: %s", rc.Provider)
	}
	if err != nil {
		return nil, err
	}

	f.logger.Info("Sender reputation enabled",
		zap.String("provider", rc.Provider),
		zap.Bool("enforce", rc.Enforce))
	return reputation.NewCachedProvider(provider, f.store, rc.CacheTTL, f.logger), nil
}
