// Package cmd implements the threat-scan command line interface.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mikey/mail-threat-filter/internal/core"
	"github.com/mikey/mail-threat-filter/internal/di"
	"github.com/mikey/mail-threat-filter/internal/factory"
	"github.com/mikey/mail-threat-filter/internal/output"
	"github.com/mikey/mail-threat-filter/internal/ports"
)

var flags di.CLIFlags

var rootCmd = &cobra.Command{
	Use:   "threat-scan",
	Short: "Email threat assessment from the command line",
	Long: `threat-scan checks the domains referenced by email messages against a
DNS firewall, scores message headers for spoofing indicators and combines
both into a recommended action.

Messages can be read from files, stdin, mbox archives or an IMAP mailbox.

Example:
  threat-scan domain paypa1.com
  threat-scan scan message.eml --detailed
  threat-scan scan --mbox archive.mbox --json
  threat-scan folder INBOX --limit 50 --mark-spam`,
	SilenceUsage: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.ConfigFile, "config", "c", "", "Path to config file")
	pf.BoolVarP(&flags.Verbose, "verbose", "v", false, "Enable verbose logging")
	pf.BoolVar(&flags.JSONLog, "json-log", false, "Output logs in JSON format")
	pf.BoolVar(&flags.JSON, "json", false, "Output results as JSON")
	pf.BoolVarP(&flags.Detailed, "detailed", "d", false, "Show detailed output with fired rules")
	pf.StringVar(&flags.Endpoint, "endpoint", "", "DNS-over-HTTPS endpoint of the firewall provider")
	pf.StringVar(&flags.Timeout, "timeout", "", "Per-lookup timeout, e.g. 5s")
	pf.BoolVar(&flags.NoCache, "no-cache", false, "Disable the reputation cache")
	pf.StringVar(&flags.Reputation, "reputation", "", "Sender reputation provider (none, bedrock, gemini, openai)")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// pipeline is what a command needs from the container
type pipeline struct {
	service *core.ThreatService
	filter  ports.EmailFilter
	logger  *zap.Logger
}

// withPipeline builds the container for one command and releases its
// resources once fn returns. fn is cancelled on interrupt.
func withPipeline(fn func(ctx context.Context, p *pipeline) error) error {
	container, err := di.BuildCLIContainer(&flags)
	if err != nil {
		return fmt.Errorf("failed to build dependency container: %w", err)
	}

	return container.Invoke(func(
		logger *zap.Logger,
		service *core.ThreatService,
		filter ports.EmailFilter,
		reputation core.ReputationProvider,
		store factory.Store,
	) error {
		defer logger.Sync()
		defer store.Stop()
		defer func() {
			if closer, ok := reputation.(interface{ Close() error }); ok {
				if err := closer.Close(); err != nil {
					logger.Warn("Failed to close reputation provider", zap.Error(err))
				}
			}
		}()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		return fn(ctx, &pipeline{service: service, filter: filter, logger: logger})
	})
}

// render prints v as JSON with --json and the table otherwise
func render(v interface{}, table string) error {
	if flags.JSON {
		s, err := output.ToJSON(v)
		if err != nil {
			return err
		}
		fmt.Println(s)
		return nil
	}
	fmt.Print(table)
	return nil
}
