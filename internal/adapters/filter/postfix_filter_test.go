package filter

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-smtp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mikey/mail-threat-filter/internal/core"
)

type stubExtractor struct{ domains []string }

func (s stubExtractor) ExtractAllDomains(msg *core.Message) []string { return s.domains }

func (s stubExtractor) ParseAddress(raw string) (*core.ParsedAddress, bool) { return nil, false }

type stubValidator struct{ blocked string }

func (s stubValidator) CheckDomain(ctx context.Context, domain string) *core.DomainValidationResult {
	return &core.DomainValidationResult{Domain: domain, IsSafe: domain != s.blocked, IsBlocked: domain == s.blocked}
}

func (s stubValidator) CheckDomains(ctx context.Context, domains []string) map[string]*core.DomainValidationResult {
	out := make(map[string]*core.DomainValidationResult, len(domains))
	for _, d := range domains {
		out[d] = s.CheckDomain(ctx, d)
	}
	return out
}

func (s stubValidator) ValidateMessageDomains(ctx context.Context, messageID string, domains []string) *core.MessageScanResult {
	r := &core.MessageScanResult{MessageID: messageID, IsSafe: true, Domains: domains, BlockedDomains: []string{}, TotalDomains: len(domains)}
	for _, d := range domains {
		if d == s.blocked {
			r.IsSafe = false
			r.BlockedDomains = append(r.BlockedDomains, d)
		}
	}
	return r
}

type stubScorer struct {
	score int
	band  core.ConfidenceBand
	flags []string
}

func (s stubScorer) Score(msg *core.Message) *core.ScoreBreakdown {
	return &core.ScoreBreakdown{MessageID: msg.ID, TotalScore: s.score, ConfidenceBand: s.band, Flags: s.flags}
}

var testHeaders = HeaderNames{
	Action:         "X-Threat-Action",
	Score:          "X-Threat-Score",
	Band:           "X-Threat-Band",
	Flags:          "X-Threat-Flags",
	BlockedDomains: "X-Threat-Blocked-Domains",
}

const rawMessage = "From: Billing <billing@example.com>\r\n" +
	"To: user@example.org\r\n" +
	"Subject: Invoice\r\n" +
	"\r\n" +
	"Please pay at http://evil.example/pay\r\n"

func newTestPostfixFilter(blocked string, scorer stubScorer, blockThreats bool) *PostfixFilter {
	service := core.NewThreatService(
		stubExtractor{domains: []string{"example.com", "evil.example"}},
		stubValidator{blocked: blocked},
		scorer,
		nil,
		nil,
		zap.NewNop(),
		core.ThreatOptions{},
	)
	return NewPostfixFilter(service, zap.NewNop(), "127.0.0.1:0", blockThreats, testHeaders,
		"127.0.0.1", 10026, false, "[SUSPICIOUS] ", true)
}

func TestFilterMessage(t *testing.T) {
	tests := []struct {
		name         string
		blocked      string
		scorer       stubScorer
		wantAction   string
		wantSubject  string
		wantBlocked  bool
		wantFlagsHdr bool
	}{
		{
			name:        "clean message",
			scorer:      stubScorer{score: 70, band: core.BandHigh},
			wantAction:  "X-Threat-Action: allow\r\n",
			wantSubject: "Subject: Invoice\r\n",
		},
		{
			name:         "blocked domain",
			blocked:      "evil.example",
			scorer:       stubScorer{score: 70, band: core.BandHigh, flags: []string{"dmarc_fail"}},
			wantAction:   "X-Threat-Action: quarantine\r\n",
			wantSubject:  "Subject: [SUSPICIOUS] Invoice\r\n",
			wantBlocked:  true,
			wantFlagsHdr: true,
		},
		{
			name:        "low confidence",
			scorer:      stubScorer{score: -60, band: core.BandVeryLow},
			wantAction:  "X-Threat-Action: quarantine\r\n",
			wantSubject: "Subject: [SUSPICIOUS] Invoice\r\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTestPostfixFilter(tt.blocked, tt.scorer, false)

			out, err := f.filterMessage(context.Background(), "billing@example.com", []byte(rawMessage))
			require.NoError(t, err)

			s := string(out)
			assert.True(t, strings.HasPrefix(s, tt.wantAction), s)
			assert.Contains(t, s, "X-Threat-Band: "+string(tt.scorer.band)+"\r\n")
			assert.Contains(t, s, tt.wantSubject)
			assert.Equal(t, tt.wantBlocked, strings.Contains(s, "X-Threat-Blocked-Domains: evil.example\r\n"))
			assert.Equal(t, tt.wantFlagsHdr, strings.Contains(s, "X-Threat-Flags: dmarc_fail\r\n"))
			assert.True(t, strings.HasSuffix(s, "\r\n\r\nPlease pay at http://evil.example/pay\r\n"))
		})
	}
}

func TestFilterMessageBlockThreats(t *testing.T) {
	f := newTestPostfixFilter("evil.example", stubScorer{score: 70, band: core.BandHigh}, true)

	out, err := f.filterMessage(context.Background(), "billing@example.com", []byte(rawMessage))
	assert.Nil(t, out)

	var smtpErr *smtp.SMTPError
	require.True(t, errors.As(err, &smtpErr))
	assert.Equal(t, 550, smtpErr.Code)
	assert.Equal(t, smtp.EnhancedCode{5, 7, 1}, smtpErr.EnhancedCode)
}

func TestFilterMessageKeepsExistingPrefix(t *testing.T) {
	f := newTestPostfixFilter("evil.example", stubScorer{score: 70, band: core.BandHigh}, false)
	raw := strings.Replace(rawMessage, "Subject: Invoice", "Subject: [SUSPICIOUS] Invoice", 1)

	out, err := f.filterMessage(context.Background(), "billing@example.com", []byte(raw))
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(out), "[SUSPICIOUS]"))
}

func TestAssessmentHeadersSkipsUnnamed(t *testing.T) {
	f := newTestPostfixFilter("", stubScorer{}, false)
	f.headers = HeaderNames{Action: "X-Threat-Action"}

	hs := f.assessmentHeaders(&core.Assessment{
		RecommendedAction: core.ActionAllow,
		Confidence:        &core.ScoreBreakdown{TotalScore: 5, ConfidenceBand: core.BandMedium, Flags: []string{"spf_fail"}},
		DomainSafety:      &core.MessageScanResult{BlockedDomains: []string{"bad.example"}},
	})
	require.Len(t, hs, 1)
	assert.Equal(t, header{"X-Threat-Action", "allow"}, hs[0])
}

type captureBackend struct {
	received chan []byte
}

func (b *captureBackend) NewSession(c *smtp.Conn) (smtp.Session, error) {
	return &captureSession{b: b}, nil
}

type captureSession struct {
	b *captureBackend
}

func (s *captureSession) Reset()        {}
func (s *captureSession) Logout() error { return nil }

func (s *captureSession) Mail(from string, _ *smtp.MailOptions) error { return nil }

func (s *captureSession) Rcpt(to string, _ *smtp.RcptOptions) error { return nil }

func (s *captureSession) Data(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.b.received <- data
	return nil
}

func TestReinject(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	backend := &captureBackend{received: make(chan []byte, 1)}
	srv := smtp.NewServer(backend)
	srv.Domain = "localhost"
	srv.AllowInsecureAuth = true
	go srv.Serve(ln)
	defer srv.Close()

	addr := ln.Addr().(*net.TCPAddr)
	f := newTestPostfixFilter("", stubScorer{score: 70, band: core.BandHigh}, false)
	f.postfixAddr = "127.0.0.1"
	f.postfixPort = addr.Port

	require.NoError(t, f.reinject("billing@example.com", []string{"user@example.org"}, []byte(rawMessage)))

	select {
	case data := <-backend.received:
		assert.Contains(t, string(data), "Subject: Invoice")
	case <-time.After(5 * time.Second):
		t.Fatal("message was not re-injected")
	}
}

func TestPostfixProcessMessage(t *testing.T) {
	f := newTestPostfixFilter("evil.example", stubScorer{score: 70, band: core.BandHigh}, true)

	a, err := f.ProcessMessage(context.Background(), &core.Message{ID: "m1", From: "billing@example.com"})
	require.NoError(t, err)
	assert.Equal(t, core.ActionQuarantine, a.RecommendedAction)
	assert.Equal(t, "m1", a.MessageID)
}
