package di

import (
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/mail-threat-filter/internal/config"
	"github.com/mikey/mail-threat-filter/internal/factory"
	"github.com/mikey/mail-threat-filter/internal/logging"
	"github.com/mikey/mail-threat-filter/internal/ports"
)

// CLIFlags contains the command line flags shared by every CLI command
type CLIFlags struct {
	ConfigFile string
	Verbose    bool
	JSONLog    bool

	// Output flags
	JSON     bool
	Detailed bool

	// MarkSpam marks quarantined messages in the mailbox
	MarkSpam bool

	// DNS firewall overrides
	Endpoint string
	Timeout  string

	// NoCache disables the reputation cache
	NoCache bool

	// Reputation overrides reputation.provider (none, bedrock, gemini, openai)
	Reputation string
}

// BuildCLIContainer creates and configures a dependency injection container for the CLI application
func BuildCLIContainer(flags *CLIFlags) (*dig.Container, error) {
	container := dig.New()

	// Register flags
	if err := container.Provide(func() *CLIFlags { return flags }); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(func(flags *CLIFlags) (*zap.Logger, error) {
		return logging.InitConsoleLogger(flags.Verbose, flags.JSONLog)
	}); err != nil {
		return nil, err
	}

	// Register configuration
	if err := container.Provide(func(flags *CLIFlags, logger *zap.Logger) (*config.Config, error) {
		cfg, err := config.Load(flags.ConfigFile)
		if err != nil {
			return nil, err
		}
		if used := cfg.GetViper().ConfigFileUsed(); used != "" {
			logger.Debug("Loaded configuration from file", zap.String("file", used))
		}
		applyFlags(cfg, flags)
		return cfg, nil
	}); err != nil {
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

// applyFlags overlays command line flags on the loaded configuration
func applyFlags(cfg *config.Config, flags *CLIFlags) {
	cfg.Set("server.filter_type", "cli")
	cfg.Set("cli.json", flags.JSON)
	cfg.Set("cli.detailed", flags.Detailed)
	cfg.Set("cli.mark_spam", flags.MarkSpam)

	if flags.Endpoint != "" {
		cfg.Set("dnsfirewall.endpoint", flags.Endpoint)
	}
	if flags.Timeout != "" {
		cfg.Set("dnsfirewall.timeout", flags.Timeout)
	}
	if flags.NoCache {
		cfg.Set("cache.enabled", false)
	}
	if flags.Reputation != "" {
		cfg.Set("reputation.provider", flags.Reputation)
	}
}
