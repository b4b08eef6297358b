package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/mikey/mail-threat-filter/internal/core"
	"github.com/mikey/mail-threat-filter/internal/output"
)

var folderLimit int

var messageCmd = &cobra.Command{
	Use:   "message <id>",
	Short: "Assess one message from the configured IMAP mailbox",
	Long: `Assess one message from the IMAP mailbox. The id is a UID in the
configured folder or folder:uid.

Examples:
  threat-scan message 4211
  threat-scan message Archive:98 --mark-spam`,
	Args: cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		return withPipeline(func(ctx context.Context, p *pipeline) error {
			a, err := p.service.AssessByID(ctx, args[0], flags.MarkSpam)
			if err != nil {
				return err
			}
			return render(a, output.AssessmentsTable([]*core.Assessment{a}, flags.Detailed))
		})
	},
}

var folderCmd = &cobra.Command{
	Use:   "folder [name]",
	Short: "Assess the most recent messages of a mailbox folder",
	Long: `Assess the most recent messages of an IMAP folder, imap.folder by default.
With --mark-spam, quarantined messages are flagged as junk.

Examples:
  threat-scan folder
  threat-scan folder Archive --limit 200 --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		return withPipeline(func(ctx context.Context, p *pipeline) error {
			bulk, err := p.service.AssessFolder(ctx, folderArg(args), folderLimit, flags.MarkSpam)
			if err != nil {
				return err
			}
			return render(bulk, output.AssessmentsTable(bulk.Results, flags.Detailed)+"\n"+output.BulkSummary(bulk))
		})
	},
}

var confidenceCmd = &cobra.Command{
	Use:   "confidence [name]",
	Short: "Show the header confidence distribution of a mailbox folder",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		return withPipeline(func(ctx context.Context, p *pipeline) error {
			fc, err := p.service.FolderConfidence(ctx, folderArg(args), folderLimit)
			if err != nil {
				return err
			}
			return render(fc, output.FolderConfidenceTable(fc, flags.Detailed))
		})
	},
}

func init() {
	rootCmd.AddCommand(messageCmd)
	rootCmd.AddCommand(folderCmd)
	rootCmd.AddCommand(confidenceCmd)

	messageCmd.Flags().BoolVar(&flags.MarkSpam, "mark-spam", false, "Mark the message as spam when it is quarantined")
	folderCmd.Flags().BoolVar(&flags.MarkSpam, "mark-spam", false, "Mark quarantined messages as spam")
	folderCmd.Flags().IntVarP(&folderLimit, "limit", "n", 50, "Number of most recent messages to assess")
	confidenceCmd.Flags().IntVarP(&folderLimit, "limit", "n", 100, "Number of most recent messages to score")
}

// folderArg returns the folder argument, or "" for the configured folder
func folderArg(args []string) string {
	if len(args) == 1 {
		return args[0]
	}
	return ""
}
