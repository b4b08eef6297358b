package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mikey/mail-threat-filter/internal/metrics"
)

// ErrNoMailbox is returned by mailbox-backed operations when no mailbox is configured
var ErrNoMailbox = errors.New("no mailbox configured")

// ThreatOptions tunes how the aggregate verdict is reached
type ThreatOptions struct {
	// EnforceReputation lets a third-party spam verdict quarantine a message
	EnforceReputation   bool
	ReputationThreshold float64
}

// ThreatService combines domain safety, header confidence and sender
// reputation into one verdict per message
type ThreatService struct {
	extractor  DomainExtractor
	validator  DomainValidator
	scorer     HeaderScorer
	reputation ReputationProvider
	mailbox    Mailbox
	logger     *zap.Logger
	opts       ThreatOptions
	now        func() time.Time
}

// NewThreatService creates a new threat service. reputation and mailbox may be nil.
func NewThreatService(
	extractor DomainExtractor,
	validator DomainValidator,
	scorer HeaderScorer,
	reputation ReputationProvider,
	mailbox Mailbox,
	logger *zap.Logger,
	opts ThreatOptions,
) *ThreatService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ThreatService{
		extractor:  extractor,
		validator:  validator,
		scorer:     scorer,
		reputation: reputation,
		mailbox:    mailbox,
		logger:     logger,
		opts:       opts,
		now:        time.Now,
	}
}

// Assess evaluates one message. When autoAction is set, a quarantined
// message is marked as spam in the mailbox.
func (s *ThreatService) Assess(ctx context.Context, msg *Message, autoAction bool) *Assessment {
	if msg == nil {
		msg = &Message{}
	}

	domains := s.extractor.ExtractAllDomains(msg)
	safety := s.validator.ValidateMessageDomains(ctx, msg.ID, domains)
	confidence := s.scorer.Score(msg)

	a := &Assessment{
		ID:                uuid.NewString(),
		MessageID:         msg.ID,
		DomainSafety:      safety,
		Confidence:        confidence,
		Reputation:        s.lookupReputation(ctx, msg),
		RecommendedAction: ActionAllow,
		AssessedAt:        s.now(),
	}

	if !safety.IsSafe {
		a.Reasons = append(a.Reasons, "blocked domains: "+strings.Join(safety.BlockedDomains, ", "))
	}
	if confidence.ConfidenceBand == BandLow || confidence.ConfidenceBand == BandVeryLow {
		a.Reasons = append(a.Reasons, fmt.Sprintf("header confidence %s (%d)", confidence.ConfidenceBand, confidence.TotalScore))
	}
	if rep := a.Reputation; rep != nil && s.opts.EnforceReputation && rep.IsSpam && rep.Score >= s.opts.ReputationThreshold {
		a.Reasons = append(a.Reasons, fmt.Sprintf("sender reputation %.2f from %s", rep.Score, rep.Source))
	}
	if len(a.Reasons) > 0 {
		a.RecommendedAction = ActionQuarantine
	}
	metrics.Assessment(string(a.RecommendedAction))

	if autoAction && a.RecommendedAction == ActionQuarantine {
		s.markSpam(ctx, a)
	}

	s.logger.Info("Message assessed",
		zap.String("message_id", msg.ID),
		zap.String("action", string(a.RecommendedAction)),
		zap.Int("score", confidence.TotalScore),
		zap.String("band", string(confidence.ConfidenceBand)),
		zap.Strings("blocked_domains", safety.BlockedDomains),
		zap.Bool("auto_actioned", a.AutoActioned))

	return a
}

func (s *ThreatService) markSpam(ctx context.Context, a *Assessment) {
	if s.mailbox == nil {
		a.ActionError = ErrNoMailbox.Error()
		return
	}
	if err := s.mailbox.MarkSpam(ctx, a.MessageID); err != nil {
		s.logger.Error("Failed to mark message as spam",
			zap.String("message_id", a.MessageID),
			zap.Error(err))
		a.ActionError = err.Error()
		return
	}
	a.AutoActioned = true
}

// lookupReputation returns nil when there is no provider, no parseable
// sender or the provider fails
func (s *ThreatService) lookupReputation(ctx context.Context, msg *Message) *ReputationRecord {
	if s.reputation == nil {
		return nil
	}
	from, ok := s.extractor.ParseAddress(msg.From)
	if !ok {
		return nil
	}

	rec, err := s.reputation.Lookup(ctx, &ReputationRequest{
		Address:     from.Address,
		DisplayName: from.DisplayName,
		Subject:     msg.Subject,
		Body:        msg.Text,
	})
	if err != nil {
		s.logger.Warn("Sender reputation lookup failed",
			zap.String("sender", from.Address),
			zap.Error(err))
		return nil
	}
	return rec
}

// AssessBulk evaluates each message independently
func (s *ThreatService) AssessBulk(ctx context.Context, msgs []*Message, autoAction bool) *BulkAssessment {
	bulk := &BulkAssessment{
		ActionedIDs: []string{},
		Results:     make([]*Assessment, 0, len(msgs)),
	}
	for _, msg := range msgs {
		a := s.Assess(ctx, msg, autoAction)
		bulk.Scanned++
		if a.RecommendedAction == ActionQuarantine {
			bulk.Blocked++
		} else {
			bulk.Safe++
		}
		if a.AutoActioned {
			bulk.ActionedIDs = append(bulk.ActionedIDs, a.MessageID)
		}
		bulk.Results = append(bulk.Results, a)
	}
	return bulk
}

// AssessByID fetches a message from the mailbox and assesses it
func (s *ThreatService) AssessByID(ctx context.Context, id string, autoAction bool) (*Assessment, error) {
	if s.mailbox == nil {
		return nil, ErrNoMailbox
	}
	msg, err := s.mailbox.FetchMessage(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch message %s: %w", id, err)
	}
	msg.ID = id
	return s.Assess(ctx, msg, autoAction), nil
}

// AssessFolder assesses the most recent limit messages of a folder
func (s *ThreatService) AssessFolder(ctx context.Context, folder string, limit int, autoAction bool) (*BulkAssessment, error) {
	if s.mailbox == nil {
		return nil, ErrNoMailbox
	}
	msgs, err := s.mailbox.ListMessages(ctx, folder, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", folder, err)
	}
	return s.AssessBulk(ctx, msgs, autoAction), nil
}

// Score returns the header confidence of one message
func (s *ThreatService) Score(msg *Message) *ScoreBreakdown {
	return s.scorer.Score(msg)
}

// ScoreMany scores each message independently, in order
func (s *ThreatService) ScoreMany(msgs []*Message) []*ScoreBreakdown {
	out := make([]*ScoreBreakdown, 0, len(msgs))
	for _, msg := range msgs {
		out = append(out, s.scorer.Score(msg))
	}
	return out
}

// FolderConfidence scores the most recent limit messages of a folder
func (s *ThreatService) FolderConfidence(ctx context.Context, folder string, limit int) (*FolderConfidence, error) {
	if s.mailbox == nil {
		return nil, ErrNoMailbox
	}
	msgs, err := s.mailbox.ListMessages(ctx, folder, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", folder, err)
	}

	fc := &FolderConfidence{
		Folder: folder,
		ByBand: map[ConfidenceBand]int{
			BandHigh:    0,
			BandMedium:  0,
			BandLow:     0,
			BandVeryLow: 0,
		},
		Results: s.ScoreMany(msgs),
	}
	for _, r := range fc.Results {
		fc.Total++
		fc.ByBand[r.ConfidenceBand]++
	}
	return fc, nil
}

// CheckDomain validates one domain
func (s *ThreatService) CheckDomain(ctx context.Context, domain string) *DomainValidationResult {
	return s.validator.CheckDomain(ctx, domain)
}

// CheckDomains validates several domains
func (s *ThreatService) CheckDomains(ctx context.Context, domains []string) map[string]*DomainValidationResult {
	return s.validator.CheckDomains(ctx, domains)
}
