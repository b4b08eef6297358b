package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mikey/mail-threat-filter/internal/core"
)

func ruleIDs(b *core.ScoreBreakdown) []string {
	ids := make([]string, 0, len(b.Rules))
	for _, r := range b.Rules {
		ids = append(ids, r.RuleID)
	}
	return ids
}

func TestScoreInvalidFrom(t *testing.T) {
	s := NewScorer(Config{}, zap.NewNop())

	b := s.Score(&core.Message{ID: "1", From: "not an email", Subject: "Urgent wire transfer"})
	assert.Equal(t, -100, b.TotalScore)
	assert.Equal(t, core.BandVeryLow, b.ConfidenceBand)
	assert.Equal(t, []string{RuleInvalidFrom}, ruleIDs(b))
	assert.Equal(t, []string{RuleInvalidFrom}, b.Flags)
	assert.Equal(t, RecommendDelete, b.Recommendation)
}

func TestScoreCEOFraud(t *testing.T) {
	s := NewScorer(Config{}, zap.NewNop())

	b := s.Score(&core.Message{
		From:    "ceo@gmail.com",
		Subject: "Urgent wire transfer",
		ReplyTo: "attacker@other.com",
	})

	ids := ruleIDs(b)
	assert.Contains(t, ids, "FREE_EMAIL_FINANCIAL")
	assert.Contains(t, ids, "REPLY_TO_MISMATCH")
	assert.Contains(t, ids, "URGENT_FINANCIAL")
	assert.NotContains(t, ids, "DISPLAY_NAME_SPOOFING")
	assert.LessOrEqual(t, b.TotalScore, -80)
	assert.Equal(t, core.BandVeryLow, b.ConfidenceBand)
	assert.Equal(t, -90, b.TotalScore)
	assert.Equal(t, ids, b.Flags)

	t.Run("with role display name", func(t *testing.T) {
		b := s.Score(&core.Message{
			From:    `"CEO Office" <ceo@gmail.com>`,
			Subject: "Urgent wire transfer",
			ReplyTo: "attacker@other.com",
		})
		assert.Contains(t, ruleIDs(b), "DISPLAY_NAME_SPOOFING")
		assert.Equal(t, -100, b.TotalScore, "sum of -115 is clamped")
	})
}

func TestScoreAllPositiveRulesClamp(t *testing.T) {
	s := NewScorer(Config{}, zap.NewNop())

	b := s.Score(&core.Message{
		From:       `"PayPal" <service@paypal.com>`,
		Subject:    "Your receipt",
		MessageID:  "<abc123@paypal.com>",
		ReturnPath: "<bounce@paypal.com>",
		SPF:        "pass",
		DKIM:       "pass (signature verified)",
		DMARC:      "PASS",
	})

	assert.Equal(t, []string{
		"SPF_PASS", "DKIM_PASS", "DMARC_PASS", "FULL_AUTH_SUITE", "CORPORATE_DOMAIN", "KNOWN_LEGITIMATE_DOMAIN",
	}, ruleIDs(b))
	assert.Empty(t, b.Flags)
	assert.Equal(t, 100, b.TotalScore)
	assert.Equal(t, core.BandHigh, b.ConfidenceBand)
	assert.Equal(t, RecommendTrust, b.Recommendation)
}

func TestScoreRules(t *testing.T) {
	s := NewScorer(Config{}, zap.NewNop())

	tests := []struct {
		name     string
		msg      core.Message
		fires    []string
		notFires []string
	}{
		{
			name:  "suspicious tld",
			msg:   core.Message{From: "promo@deals.xyz", MessageID: "<1@deals.xyz>"},
			fires: []string{"SUSPICIOUS_TLD"}, notFires: []string{"CORPORATE_DOMAIN"},
		},
		{
			name:  "typosquatting sender",
			msg:   core.Message{From: "security@paypa1.com", MessageID: "<1@paypa1.com>"},
			fires: []string{"TYPOSQUATTING", "CORPORATE_DOMAIN"}, notFires: []string{"KNOWN_LEGITIMATE_DOMAIN"},
		},
		{
			name:  "known legitimate sender",
			msg:   core.Message{From: "service@paypal.com", MessageID: "<1@paypal.com>"},
			fires: []string{"KNOWN_LEGITIMATE_DOMAIN"}, notFires: []string{"TYPOSQUATTING"},
		},
		{
			name:     "www subdomain is not the legitimate domain",
			msg:      core.Message{From: "service@www.paypal.com", MessageID: "<1@www.paypal.com>"},
			notFires: []string{"KNOWN_LEGITIMATE_DOMAIN", "TYPOSQUATTING"},
		},
		{
			name:  "missing message id",
			msg:   core.Message{From: "a@corp.example"},
			fires: []string{"MISSING_MESSAGE_ID"}, notFires: []string{"INVALID_MESSAGE_ID"},
		},
		{
			name:  "foreign message id",
			msg:   core.Message{From: "a@corp.example", MessageID: "<x@mailer.other.net>"},
			fires: []string{"INVALID_MESSAGE_ID"}, notFires: []string{"MISSING_MESSAGE_ID"},
		},
		{
			name:  "message id without domain",
			msg:   core.Message{From: "a@corp.example", MessageID: "<garbage>"},
			fires: []string{"INVALID_MESSAGE_ID"},
		},
		{
			name:  "return path mismatch",
			msg:   core.Message{From: "a@corp.example", MessageID: "<1@corp.example>", ReturnPath: "<b@bulk.net>"},
			fires: []string{"RETURN_PATH_MISMATCH"},
		},
		{
			name:     "null return path is ignored",
			msg:      core.Message{From: "a@corp.example", MessageID: "<1@corp.example>", ReturnPath: "<>"},
			notFires: []string{"RETURN_PATH_MISMATCH"},
		},
		{
			name:     "auth failures",
			msg:      core.Message{From: "a@corp.example", MessageID: "<1@corp.example>", SPF: "softfail", DKIM: "none", DMARC: "fail"},
			fires:    []string{"SPF_FAIL", "DKIM_FAIL", "DMARC_FAIL"},
			notFires: []string{"SPF_PASS", "FULL_AUTH_SUITE"},
		},
		{
			name:     "absent auth results fire nothing",
			msg:      core.Message{From: "a@corp.example", MessageID: "<1@corp.example>"},
			notFires: []string{"SPF_PASS", "SPF_FAIL", "DKIM_PASS", "DKIM_FAIL", "DMARC_PASS", "DMARC_FAIL"},
		},
		{
			name:     "keyword needs a word boundary",
			msg:      core.Message{From: "a@gmail.com", MessageID: "<1@gmail.com>", Subject: "Wireless taxonomy"},
			notFires: []string{"FREE_EMAIL_FINANCIAL"},
		},
		{
			name:  "fullwidth display name is folded",
			msg:   core.Message{From: "\"ＣＥＯ\" <boss@yahoo.com>", MessageID: "<1@yahoo.com>"},
			fires: []string{"DISPLAY_NAME_SPOOFING"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.msg
			b := s.Score(&msg)
			ids := ruleIDs(b)
			for _, id := range tt.fires {
				assert.Contains(t, ids, id)
			}
			for _, id := range tt.notFires {
				assert.NotContains(t, ids, id)
			}
			assert.GreaterOrEqual(t, b.TotalScore, MinScore)
			assert.LessOrEqual(t, b.TotalScore, MaxScore)
		})
	}
}

func TestFlagsFollowRuleOrder(t *testing.T) {
	s := NewScorer(Config{}, zap.NewNop())
	b := s.Score(&core.Message{
		From:    "billing@paypa1.com",
		ReplyTo: "x@gmail.com",
		Subject: "Invoice overdue",
		SPF:     "fail",
	})

	var negatives []string
	for _, r := range b.Rules {
		if r.Points < 0 {
			negatives = append(negatives, r.RuleID)
		}
	}
	require.NotEmpty(t, negatives)
	assert.Equal(t, negatives, b.Flags)
	assert.Equal(t, []string{"REPLY_TO_MISMATCH", "TYPOSQUATTING", "MISSING_MESSAGE_ID", "SPF_FAIL"}, b.Flags)
}

func TestBand(t *testing.T) {
	tests := []struct {
		score int
		band  core.ConfidenceBand
	}{
		{100, core.BandHigh},
		{50, core.BandHigh},
		{49, core.BandMedium},
		{0, core.BandMedium},
		{-1, core.BandLow},
		{-50, core.BandLow},
		{-51, core.BandVeryLow},
		{-100, core.BandVeryLow},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.band, Band(tt.score), "score %d", tt.score)
	}
}

func TestCustomConfig(t *testing.T) {
	s := NewScorer(Config{FreeMailProviders: []string{"freebox.example"}, SuspiciousTLDs: []string{"zz"}}, zap.NewNop())
	assert.True(t, s.IsFreeMail("FreeBox.example"))
	assert.False(t, s.IsFreeMail("gmail.com"))
	assert.True(t, s.HasSuspiciousTLD("x.zz"))

	// unset lists keep their defaults
	assert.Contains(t, s.Detector().LegitimateDomains(), "paypal.com")
}

func TestScoreMany(t *testing.T) {
	s := NewScorer(Config{}, zap.NewNop())
	out := s.ScoreMany([]*core.Message{{ID: "a", From: "x@corp.example"}, {ID: "b", From: "bad"}})
	require.Len(t, out, 2)
	assert.Equal(t, "a", out[0].MessageID)
	assert.Equal(t, core.BandVeryLow, out[1].ConfidenceBand)
}
