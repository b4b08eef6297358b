package factory

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/mikey/mail-threat-filter/internal/adapters/filter"
	"github.com/mikey/mail-threat-filter/internal/config"
	"github.com/mikey/mail-threat-filter/internal/core"
	"github.com/mikey/mail-threat-filter/internal/ports"
)

// FilterFactory creates email filters based on configuration
type FilterFactory struct {
	cfg     *config.Config
	logger  *zap.Logger
	service *core.ThreatService
}

// NewFilterFactory creates a new filter factory
func NewFilterFactory(cfg *config.Config, logger *zap.Logger, service *core.ThreatService) *FilterFactory {
	return &FilterFactory{
		cfg:     cfg,
		logger:  logger,
		service: service,
	}
}

// CreateEmailFilter creates an email filter based on the configuration
func (f *FilterFactory) CreateEmailFilter() (ports.EmailFilter, error) {
	filterType := f.cfg.GetString("server.filter_type")

	switch filterType {
	case "postfix":
		return filter.NewPostfixFilter(
			f.service,
			f.logger,
			f.cfg.GetString("server.listen_address"),
			f.cfg.GetBool("server.block_threats"),
			filter.HeaderNames{
				Action:         f.cfg.GetString("server.headers.action"),
				Score:          f.cfg.GetString("server.headers.score"),
				Band:           f.cfg.GetString("server.headers.band"),
				Flags:          f.cfg.GetString("server.headers.flags"),
				BlockedDomains: f.cfg.GetString("server.headers.blocked_domains"),
			},
			f.cfg.GetString("server.postfix.address"),
			f.cfg.GetInt("server.postfix.port"),
			f.cfg.GetBool("server.postfix.enabled"),
			f.cfg.GetString("server.subject_prefix"),
			f.cfg.GetBool("server.modify_subject"),
		), nil
	case "cli":
		return filter.NewCliFilter(
			f.service,
			f.logger,
			os.Stdout,
			f.cfg.GetBool("cli.json"),
			f.cfg.GetBool("cli.detailed"),
			f.cfg.GetBool("cli.mark_spam"),
		)
	default:
		return nil, fmt.Errorf("unsupported filter type: %s", filterType)
	}
}
