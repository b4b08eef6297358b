package filter

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/mikey/mail-threat-filter/internal/core"
	"github.com/mikey/mail-threat-filter/internal/output"
)

// CliFilter assesses messages from the command line and prints the results
type CliFilter struct {
	service    *core.ThreatService
	logger     *zap.Logger
	out        io.Writer
	jsonOutput bool
	detailed   bool
	autoAction bool
}

// NewCliFilter creates a new CLI filter
func NewCliFilter(service *core.ThreatService, logger *zap.Logger, out io.Writer, jsonOutput, detailed, autoAction bool) (*CliFilter, error) {
	return &CliFilter{
		service:    service,
		logger:     logger,
		out:        out,
		jsonOutput: jsonOutput,
		detailed:   detailed,
		autoAction: autoAction,
	}, nil
}

// ProcessMessage assesses one message and prints the result
func (f *CliFilter) ProcessMessage(ctx context.Context, msg *core.Message) (*core.Assessment, error) {
	f.logger.Debug("Processing message", zap.String("from", msg.From), zap.String("id", msg.ID))

	a := f.service.Assess(ctx, msg, f.autoAction)
	if err := f.print(a, output.AssessmentsTable([]*core.Assessment{a}, f.detailed)); err != nil {
		return nil, err
	}
	return a, nil
}

// ProcessBatch assesses messages independently and prints the results with a summary
func (f *CliFilter) ProcessBatch(ctx context.Context, msgs []*core.Message) (*core.BulkAssessment, error) {
	bulk := f.service.AssessBulk(ctx, msgs, f.autoAction)
	table := output.AssessmentsTable(bulk.Results, f.detailed) + "\n" + output.BulkSummary(bulk)
	if err := f.print(bulk, table); err != nil {
		return nil, err
	}
	return bulk, nil
}

func (f *CliFilter) print(v interface{}, table string) error {
	if !f.jsonOutput {
		_, err := fmt.Fprint(f.out, table)
		return err
	}
	s, err := output.ToJSON(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(f.out, s)
	return err
}

// Start is a no-op for the CLI filter
func (f *CliFilter) Start() error {
	return nil
}

// Stop is a no-op for the CLI filter
func (f *CliFilter) Stop() error {
	return nil
}
