package filter

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-smtp"
	"go.uber.org/zap"

	"github.com/mikey/mail-threat-filter/internal/core"
	"github.com/mikey/mail-threat-filter/internal/mailparse"
)

// HeaderNames are the header fields added to filtered mail
type HeaderNames struct {
	Action         string
	Score          string
	Band           string
	Flags          string
	BlockedDomains string
}

// PostfixFilter implements a Postfix content filter
type PostfixFilter struct {
	service        *core.ThreatService
	logger         *zap.Logger
	listenAddr     string
	server         *smtp.Server
	blockThreats   bool
	headers        HeaderNames
	postfixAddr    string
	postfixPort    int
	postfixEnabled bool
	subjectPrefix  string
	modifySubject  bool
	assessTimeout  time.Duration
}

// NewPostfixFilter creates a new Postfix content filter
func NewPostfixFilter(
	service *core.ThreatService,
	logger *zap.Logger,
	listenAddr string,
	blockThreats bool,
	headers HeaderNames,
	postfixAddr string,
	postfixPort int,
	postfixEnabled bool,
	subjectPrefix string,
	modifySubject bool,
) *PostfixFilter {
	if subjectPrefix == "" && modifySubject {
		subjectPrefix = "[SUSPICIOUS] "
	}

	return &PostfixFilter{
		service:        service,
		logger:         logger,
		listenAddr:     listenAddr,
		blockThreats:   blockThreats,
		headers:        headers,
		postfixAddr:    postfixAddr,
		postfixPort:    postfixPort,
		postfixEnabled: postfixEnabled,
		subjectPrefix:  subjectPrefix,
		modifySubject:  modifySubject,
		assessTimeout:  30 * time.Second,
	}
}

// Start starts the Postfix filter service
func (f *PostfixFilter) Start() error {
	f.server = smtp.NewServer(&smtpBackend{filter: f})

	f.server.Addr = f.listenAddr
	f.server.Domain = "localhost"
	f.server.ReadTimeout = 30 * time.Second
	f.server.WriteTimeout = 30 * time.Second
	f.server.MaxMessageBytes = 30 * 1024 * 1024 // 30MB
	f.server.MaxRecipients = 50
	f.server.AllowInsecureAuth = true

	f.logger.Info("Postfix filter starting", zap.String("address", f.listenAddr))

	go func() {
		if err := f.server.ListenAndServe(); err != nil {
			if err != smtp.ErrServerClosed {
				f.logger.Error("SMTP server error", zap.Error(err))
			}
		}
	}()

	return nil
}

// Stop stops the Postfix filter service
func (f *PostfixFilter) Stop() error {
	if f.server != nil {
		return f.server.Close()
	}
	return nil
}

// ProcessMessage assesses a message without delivering it
func (f *PostfixFilter) ProcessMessage(ctx context.Context, msg *core.Message) (*core.Assessment, error) {
	return f.service.Assess(ctx, msg, false), nil
}

// filterMessage assesses raw and returns the message to re-inject. A nil
// message with a nil error never happens; rejection is reported as an error.
func (f *PostfixFilter) filterMessage(ctx context.Context, sender string, raw []byte) ([]byte, error) {
	msg, err := mailparse.ParseBytes(raw)
	if err != nil {
		f.logger.Warn("Failed to parse message, passing through unfiltered",
			zap.String("sender", sender),
			zap.Error(err))
		return raw, nil
	}
	if msg.From == "" {
		msg.From = sender
	}

	a := f.service.Assess(ctx, msg, false)
	quarantine := a.RecommendedAction == core.ActionQuarantine

	if quarantine && f.blockThreats {
		f.logger.Info("Rejecting suspicious message",
			zap.String("from", msg.From),
			zap.Int("score", a.Confidence.TotalScore),
			zap.Strings("reasons", a.Reasons))
		return nil, &smtp.SMTPError{
			Code:         550,
			EnhancedCode: smtp.EnhancedCode{5, 7, 1},
			Message:      fmt.Sprintf("Rejected as suspicious (score: %d)", a.Confidence.TotalScore),
		}
	}

	prefix := ""
	if quarantine && f.modifySubject && !strings.HasPrefix(msg.Subject, f.subjectPrefix) {
		prefix = f.subjectPrefix
	}

	f.logger.Info("Processed message",
		zap.String("from", msg.From),
		zap.String("action", string(a.RecommendedAction)),
		zap.Int("score", a.Confidence.TotalScore),
		zap.String("band", string(a.Confidence.ConfidenceBand)))

	return rewriteMessage(raw, f.assessmentHeaders(a), prefix), nil
}

func (f *PostfixFilter) assessmentHeaders(a *core.Assessment) []header {
	hs := []header{
		{f.headers.Action, string(a.RecommendedAction)},
		{f.headers.Score, strconv.Itoa(a.Confidence.TotalScore)},
		{f.headers.Band, string(a.Confidence.ConfidenceBand)},
	}
	if len(a.Confidence.Flags) > 0 {
		hs = append(hs, header{f.headers.Flags, strings.Join(a.Confidence.Flags, ", ")})
	}
	if len(a.DomainSafety.BlockedDomains) > 0 {
		hs = append(hs, header{f.headers.BlockedDomains, strings.Join(a.DomainSafety.BlockedDomains, ", ")})
	}

	out := hs[:0]
	for _, h := range hs {
		if h.name != "" {
			out = append(out, h)
		}
	}
	return out
}

// reinject hands the filtered message back to Postfix on the re-injection port
func (f *PostfixFilter) reinject(sender string, recipients []string, data []byte) error {
	addr := net.JoinHostPort(f.postfixAddr, strconv.Itoa(f.postfixPort))

	conn, err := net.DialTimeout("tcp", addr, 10*time.Second)
	if err != nil {
		return fmt.Errorf("failed to connect to Postfix at %s: %w", addr, err)
	}
	if err := conn.SetDeadline(time.Now().Add(30 * time.Second)); err != nil {
		conn.Close()
		return fmt.Errorf("failed to set connection deadline: %w", err)
	}

	c := smtp.NewClient(conn)
	defer c.Close()

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "localhost"
	}
	if err := c.Hello(hostname); err != nil {
		return fmt.Errorf("EHLO failed: %w", err)
	}
	if err := c.SendMail(sender, recipients, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to re-inject message: %w", err)
	}

	// the message is already queued at this point
	if err := c.Quit(); err != nil {
		f.logger.Warn("QUIT command failed", zap.Error(err))
	}
	return nil
}

// smtpBackend implements the go-smtp Backend interface
type smtpBackend struct {
	filter *PostfixFilter
}

// NewSession creates a new SMTP session
func (b *smtpBackend) NewSession(c *smtp.Conn) (smtp.Session, error) {
	return &smtpSession{filter: b.filter}, nil
}

// smtpSession implements the go-smtp Session interface
type smtpSession struct {
	filter     *PostfixFilter
	sender     string
	recipients []string
}

// Reset resets the session state
func (s *smtpSession) Reset() {
	s.sender = ""
	s.recipients = nil
}

// Mail sets the sender address
func (s *smtpSession) Mail(from string, _ *smtp.MailOptions) error {
	s.sender = from
	return nil
}

// Rcpt adds a recipient
func (s *smtpSession) Rcpt(to string, _ *smtp.RcptOptions) error {
	s.recipients = append(s.recipients, to)
	return nil
}

// Data assesses the message and re-injects it into Postfix
func (s *smtpSession) Data(r io.Reader) error {
	raw, err := io.ReadAll(r)
	if err != nil {
		s.filter.logger.Error("Failed to read message data", zap.Error(err))
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.filter.assessTimeout)
	defer cancel()

	out, err := s.filter.filterMessage(ctx, s.sender, raw)
	if err != nil {
		return err
	}

	if !s.filter.postfixEnabled {
		s.filter.logger.Warn("Postfix forwarding disabled, this is likely a misconfiguration")
		return nil
	}
	if err := s.filter.reinject(s.sender, s.recipients, out); err != nil {
		s.filter.logger.Error("Failed to send email back to Postfix",
			zap.Error(err),
			zap.String("sender", s.sender))
		return err
	}
	return nil
}

// Logout handles SMTP logout
func (s *smtpSession) Logout() error {
	return nil
}
