// Package scoring computes an explainable legitimacy score from message headers.
package scoring

import (
	"regexp"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"github.com/mikey/mail-threat-filter/internal/core"
	"github.com/mikey/mail-threat-filter/internal/extract"
	"github.com/mikey/mail-threat-filter/internal/metrics"
	"github.com/mikey/mail-threat-filter/internal/typosquat"
)

const (
	MinScore = -100
	MaxScore = 100

	RuleInvalidFrom = "INVALID_FROM"
)

// Recommendations per confidence band
const (
	RecommendTrust   = "appears legitimate"
	RecommendCaution = "exercise caution"
	RecommendVerify  = "likely spoofed, verify out-of-band"
	RecommendDelete  = "delete"
)

// Scorer evaluates the rule table over message headers
type Scorer struct {
	freeMail  map[string]struct{}
	tlds      []string
	financial []*regexp.Regexp
	urgency   []*regexp.Regexp
	role      []*regexp.Regexp
	detector  *typosquat.Detector
	rules     []Rule
	logger    *zap.Logger
}

// NewScorer creates a scorer. Empty lists in cfg fall back to the defaults.
func NewScorer(cfg Config, logger *zap.Logger) *Scorer {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Scorer{
		freeMail:  make(map[string]struct{}, len(cfg.FreeMailProviders)),
		financial: keywordPatterns(cfg.FinancialKeywords),
		urgency:   keywordPatterns(cfg.UrgencyKeywords),
		role:      keywordPatterns(cfg.RoleKeywords),
		detector:  typosquat.NewDetector(cfg.LegitimateDomains),
		rules:     Rules,
		logger:    logger,
	}
	for _, d := range cfg.FreeMailProviders {
		s.freeMail[strings.ToLower(strings.TrimSpace(d))] = struct{}{}
	}
	for _, tld := range cfg.SuspiciousTLDs {
		tld = strings.ToLower(strings.TrimSpace(tld))
		if !strings.HasPrefix(tld, ".") {
			tld = "." + tld
		}
		s.tlds = append(s.tlds, tld)
	}
	return s
}

func keywordPatterns(keywords []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		out = append(out, regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(kw)+`\b`))
	}
	return out
}

func containsAny(patterns []*regexp.Regexp, s string) bool {
	if s == "" {
		return false
	}
	for _, p := range patterns {
		if p.MatchString(s) {
			return true
		}
	}
	return false
}

// Detector returns the typosquatting detector used for the sender domain
func (s *Scorer) Detector() *typosquat.Detector {
	return s.detector
}

// IsFreeMail reports whether domain is a known free-mail provider
func (s *Scorer) IsFreeMail(domain string) bool {
	_, ok := s.freeMail[strings.ToLower(domain)]
	return ok
}

// HasSuspiciousTLD reports whether domain ends with a commonly abused TLD
func (s *Scorer) HasSuspiciousTLD(domain string) bool {
	domain = strings.ToLower(domain)
	for _, tld := range s.tlds {
		if strings.HasSuffix(domain, tld) {
			return true
		}
	}
	return false
}

// Score evaluates every rule against the headers of msg
func (s *Scorer) Score(msg *core.Message) *core.ScoreBreakdown {
	if msg == nil {
		msg = &core.Message{}
	}
	from, ok := extract.ParseAddress(msg.From)
	if !ok {
		metrics.RuleFired(RuleInvalidFrom)
		return &core.ScoreBreakdown{
			MessageID:      msg.ID,
			TotalScore:     MinScore,
			ConfidenceBand: core.BandVeryLow,
			Rules: []core.ScoreRule{{
				RuleID: RuleInvalidFrom,
				Points: MinScore,
				Reason: "From header is not a valid address",
			}},
			Flags:          []string{RuleInvalidFrom},
			Recommendation: RecommendDelete,
		}
	}

	e := s.evaluate(msg, from)

	breakdown := &core.ScoreBreakdown{
		MessageID: msg.ID,
		Rules:     []core.ScoreRule{},
		Flags:     []string{},
	}
	total := 0
	for _, r := range s.rules {
		if !r.When(e) {
			continue
		}
		breakdown.Rules = append(breakdown.Rules, core.ScoreRule{
			RuleID: r.ID,
			Points: r.Points,
			Reason: r.Reason(e),
		})
		if r.Points < 0 {
			breakdown.Flags = append(breakdown.Flags, r.ID)
		}
		total += r.Points
		metrics.RuleFired(r.ID)
	}

	breakdown.TotalScore = clamp(total)
	breakdown.ConfidenceBand = Band(breakdown.TotalScore)
	breakdown.Recommendation = Recommendation(breakdown.ConfidenceBand)

	s.logger.Debug("Scored message headers",
		zap.String("message_id", msg.ID),
		zap.String("from_domain", from.Domain),
		zap.Int("raw_score", total),
		zap.Int("score", breakdown.TotalScore),
		zap.String("band", string(breakdown.ConfidenceBand)),
		zap.Strings("flags", breakdown.Flags))

	return breakdown
}

func (s *Scorer) evaluate(msg *core.Message, from *core.ParsedAddress) *evaluation {
	e := &evaluation{
		from:      from,
		messageID: strings.TrimSpace(msg.MessageID),
		spf:       authResult(msg.SPF),
		dkim:      authResult(msg.DKIM),
		dmarc:     authResult(msg.DMARC),
	}
	if msg.ReplyTo != "" {
		if r, ok := extract.ParseAddress(msg.ReplyTo); ok {
			e.replyTo = r
		}
	}
	if rp := strings.TrimSpace(msg.ReturnPath); rp != "" && rp != "<>" {
		if r, ok := extract.ParseAddress(rp); ok {
			e.returnPath = r
		}
	}
	e.messageIDDomain = messageIDDomain(e.messageID)

	subject := norm.NFKC.String(msg.Subject)
	e.freeMail = s.IsFreeMail(from.Domain)
	e.suspiciousTLD = s.HasSuspiciousTLD(from.Domain)
	e.financial = containsAny(s.financial, subject)
	e.urgent = containsAny(s.urgency, subject)
	e.roleDisplayName = containsAny(s.role, norm.NFKC.String(from.DisplayName))
	e.knownLegitimate = s.detector.IsLegitimate(from.Domain)
	e.typosquat = s.detector.Detect(from.Domain)
	return e
}

// ScoreMany scores each message independently
func (s *Scorer) ScoreMany(msgs []*core.Message) []*core.ScoreBreakdown {
	out := make([]*core.ScoreBreakdown, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, s.Score(m))
	}
	return out
}

func clamp(score int) int {
	return max(MinScore, min(MaxScore, score))
}

// Band maps a clamped score to its confidence band
func Band(score int) core.ConfidenceBand {
	switch {
	case score >= 50:
		return core.BandHigh
	case score >= 0:
		return core.BandMedium
	case score >= -50:
		return core.BandLow
	default:
		return core.BandVeryLow
	}
}

// Recommendation returns the handling advice for a band
func Recommendation(band core.ConfidenceBand) string {
	switch band {
	case core.BandHigh:
		return RecommendTrust
	case core.BandMedium:
		return RecommendCaution
	case core.BandLow:
		return RecommendVerify
	default:
		return RecommendDelete
	}
}
