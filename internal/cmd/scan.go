package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mikey/mail-threat-filter/internal/core"
	"github.com/mikey/mail-threat-filter/internal/output"
)

var (
	mboxPaths []string
	scoreOnly bool
)

// batchFilter is implemented by filters that can report on several messages at once
type batchFilter interface {
	ProcessBatch(ctx context.Context, msgs []*core.Message) (*core.BulkAssessment, error)
}

var scanCmd = &cobra.Command{
	Use:   "scan [files...]",
	Short: "Assess messages read from files, stdin or mbox archives",
	Long: `Assess one or more RFC 5322 messages. Each file holds one message, "-"
reads stdin, and --mbox adds every message of an mbox archive.

Examples:
  threat-scan scan message.eml
  cat message.eml | threat-scan scan
  threat-scan scan --mbox archive.mbox --detailed`,
	RunE: runScan,
}

var scoreCmd = &cobra.Command{
	Use:   "score [files...]",
	Short: "Score message headers without domain lookups",
	Long: `Score the headers of one or more messages for spoofing indicators. No
network lookups are made.

Examples:
  threat-scan score message.eml --detailed
  threat-scan score --mbox archive.mbox --json`,
	RunE: runScore,
}

func init() {
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(scoreCmd)

	scanCmd.Flags().StringSliceVar(&mboxPaths, "mbox", nil, "Read messages from an mbox archive")
	scanCmd.Flags().BoolVar(&scoreOnly, "score-only", false, "Only score headers, like the score command")
	scoreCmd.Flags().StringSliceVar(&mboxPaths, "mbox", nil, "Read messages from an mbox archive")
}

func runScan(cmd *cobra.Command, args []string) error {
	if scoreOnly {
		return runScore(cmd, args)
	}

	msgs, err := loadMessages(args, mboxPaths, os.Stdin)
	if err != nil {
		return err
	}

	return withPipeline(func(ctx context.Context, p *pipeline) error {
		if len(msgs) == 1 {
			_, err := p.filter.ProcessMessage(ctx, msgs[0])
			return err
		}

		bf, ok := p.filter.(batchFilter)
		if !ok {
			return fmt.Errorf("filter does not support batches")
		}
		_, err := bf.ProcessBatch(ctx, msgs)
		return err
	})
}

func runScore(_ *cobra.Command, args []string) error {
	msgs, err := loadMessages(args, mboxPaths, os.Stdin)
	if err != nil {
		return err
	}

	return withPipeline(func(ctx context.Context, p *pipeline) error {
		scores := p.service.ScoreMany(msgs)
		return render(scores, output.ScoresTable(scores, flags.Detailed))
	})
}
