package di

import (
	"go.uber.org/dig"

	"github.com/mikey/mail-threat-filter/internal/config"
	"github.com/mikey/mail-threat-filter/internal/core"
	"github.com/mikey/mail-threat-filter/internal/factory"
	"github.com/mikey/mail-threat-filter/internal/firewall"
	"github.com/mikey/mail-threat-filter/internal/logging"
	"github.com/mikey/mail-threat-filter/internal/ports"
	"github.com/mikey/mail-threat-filter/internal/scoring"
	"github.com/mikey/mail-threat-filter/internal/utils"
)

// BuildContainer creates and configures a dependency injection container
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(config.New); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	if err := providePipeline(container); err != nil {
		return nil, err
	}

	// Register email filter
	if err := container.Provide(factory.NewFilterFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *factory.FilterFactory) (ports.EmailFilter, error) {
		return f.CreateEmailFilter()
	}); err != nil {
		return nil, err
	}

	return container, nil
}

// providePipeline registers everything between configuration and the threat service
func providePipeline(container *dig.Container) error {
	constructors := []interface{}{
		utils.NewTextProcessor,
		factory.NewCacheFactory,
		factory.NewReputationFactory,
		factory.NewMailboxFactory,
		factory.NewPipelineFactory,
		func(f *factory.CacheFactory) (factory.Store, error) {
			return f.CreateStore()
		},
		func(f *factory.ReputationFactory) (core.ReputationProvider, error) {
			return f.CreateReputationProvider()
		},
		func(f *factory.MailboxFactory) (core.Mailbox, error) {
			return f.CreateMailbox()
		},
		func(f *factory.PipelineFactory, store factory.Store) (*firewall.Validator, error) {
			return f.CreateValidator(store)
		},
		func(f *factory.PipelineFactory) *scoring.Scorer {
			return f.CreateScorer()
		},
		func(f *factory.PipelineFactory, v *firewall.Validator, s *scoring.Scorer, rep core.ReputationProvider, mb core.Mailbox) (*core.ThreatService, error) {
			return f.CreateThreatService(v, s, rep, mb)
		},
	}
	for _, c := range constructors {
		if err := container.Provide(c); err != nil {
			return err
		}
	}
	return nil
}
