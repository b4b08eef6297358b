// Package imap implements core.Mailbox on top of an IMAP4rev1 server.
package imap

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"go.uber.org/zap"

	"github.com/mikey/mail-threat-filter/internal/core"
	"github.com/mikey/mail-threat-filter/internal/mailparse"
)

// DefaultJunkFlag is the keyword set on messages marked as spam
const DefaultJunkFlag = "$Junk"

// Config holds the mailbox connection settings
type Config struct {
	Address            string
	Username           string
	Password           string
	Folder             string
	SpamFolder         string
	JunkFlag           string
	Timeout            time.Duration
	InsecureSkipVerify bool
}

// Mailbox opens one IMAP session per operation
type Mailbox struct {
	cfg    Config
	logger *zap.Logger
	dial   func(ctx context.Context) (*client.Client, error)
}

// NewMailbox creates a new IMAP mailbox
func NewMailbox(cfg Config, logger *zap.Logger) (*Mailbox, error) {
	if cfg.Address == "" {
		return nil, errors.New("imap address is required")
	}
	if cfg.Folder == "" {
		cfg.Folder = "INBOX"
	}
	if cfg.JunkFlag == "" {
		cfg.JunkFlag = DefaultJunkFlag
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	m := &Mailbox{cfg: cfg, logger: logger}
	m.dial = m.dialTLS
	return m, nil
}

func (m *Mailbox) dialTLS(ctx context.Context) (*client.Client, error) {
	dialer := &net.Dialer{Timeout: m.cfg.Timeout}
	host, _, _ := net.SplitHostPort(m.cfg.Address)
	c, err := client.DialWithDialerTLS(dialer, m.cfg.Address, &tls.Config{
		ServerName:         host,
		InsecureSkipVerify: m.cfg.InsecureSkipVerify,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", m.cfg.Address, err)
	}

	c.Timeout = m.cfg.Timeout
	if dl, ok := ctx.Deadline(); ok {
		if d := time.Until(dl); d < c.Timeout {
			c.Timeout = d
		}
	}

	if err := c.Login(m.cfg.Username, m.cfg.Password); err != nil {
		c.Logout()
		return nil, fmt.Errorf("imap login failed: %w", err)
	}
	return c, nil
}

// session runs fn against a logged-in client with folder selected
func (m *Mailbox) session(ctx context.Context, folder string, readOnly bool, fn func(*client.Client, *imap.MailboxStatus) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c, err := m.dial(ctx)
	if err != nil {
		return err
	}
	defer c.Logout()

	status, err := c.Select(folder, readOnly)
	if err != nil {
		return fmt.Errorf("failed to select %s: %w", folder, err)
	}
	return fn(c, status)
}

// FetchMessage implements core.Mailbox. The id is a UID in the configured
// folder or a folder-qualified "folder:uid" as returned by ListMessages.
func (m *Mailbox) FetchMessage(ctx context.Context, id string) (*core.Message, error) {
	folder, uid, err := m.parseID(id)
	if err != nil {
		return nil, err
	}

	var msgs []*core.Message
	err = m.session(ctx, folder, true, func(c *client.Client, _ *imap.MailboxStatus) error {
		seq := new(imap.SeqSet)
		seq.AddNum(uid)
		msgs, err = m.fetch(c, seq, true, folder)
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		return nil, fmt.Errorf("message %s not found", id)
	}
	return msgs[0], nil
}

// ListMessages implements core.Mailbox
func (m *Mailbox) ListMessages(ctx context.Context, folder string, limit int) ([]*core.Message, error) {
	if folder == "" {
		folder = m.cfg.Folder
	}

	var msgs []*core.Message
	err := m.session(ctx, folder, true, func(c *client.Client, status *imap.MailboxStatus) error {
		if status.Messages == 0 {
			return nil
		}
		from, to := seqRange(status.Messages, limit)
		seq := new(imap.SeqSet)
		seq.AddRange(from, to)

		var err error
		msgs, err = m.fetch(c, seq, false, folder)
		return err
	})
	if err != nil {
		return nil, err
	}

	m.logger.Debug("Listed mailbox messages",
		zap.String("folder", folder),
		zap.Int("count", len(msgs)))
	return msgs, nil
}

// MarkSpam implements core.Mailbox
func (m *Mailbox) MarkSpam(ctx context.Context, id string) error {
	folder, uid, err := m.parseID(id)
	if err != nil {
		return err
	}

	return m.session(ctx, folder, false, func(c *client.Client, _ *imap.MailboxStatus) error {
		seq := new(imap.SeqSet)
		seq.AddNum(uid)

		item := imap.FormatFlagsOp(imap.AddFlags, true)
		if err := c.UidStore(seq, item, []interface{}{m.cfg.JunkFlag}, nil); err != nil {
			return fmt.Errorf("failed to flag message %s: %w", id, err)
		}

		if m.cfg.SpamFolder != "" && m.cfg.SpamFolder != folder {
			if err := c.UidMove(seq, m.cfg.SpamFolder); err != nil {
				return fmt.Errorf("failed to move message %s to %s: %w", id, m.cfg.SpamFolder, err)
			}
		}

		m.logger.Info("Message marked as spam",
			zap.String("id", id),
			zap.String("flag", m.cfg.JunkFlag),
			zap.String("moved_to", m.cfg.SpamFolder))
		return nil
	})
}

func (m *Mailbox) fetch(c *client.Client, seq *imap.SeqSet, byUID bool, folder string) ([]*core.Message, error) {
	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{section.FetchItem(), imap.FetchUid}

	ch := make(chan *imap.Message, 10)
	done := make(chan error, 1)
	go func() {
		if byUID {
			done <- c.UidFetch(seq, items, ch)
		} else {
			done <- c.Fetch(seq, items, ch)
		}
	}()

	var msgs []*core.Message
	for im := range ch {
		body := im.GetBody(section)
		if body == nil {
			continue
		}
		msg, err := mailparse.Parse(body)
		if err != nil {
			m.logger.Warn("Skipping unparseable message",
				zap.String("folder", folder),
				zap.Uint32("uid", im.Uid),
				zap.Error(err))
			continue
		}
		msg.ID = FormatID(folder, im.Uid)
		msgs = append(msgs, msg)
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("imap fetch failed: %w", err)
	}
	return msgs, nil
}

// FormatID builds the mailbox identifier of a message
func FormatID(folder string, uid uint32) string {
	return folder + ":" + strconv.FormatUint(uint64(uid), 10)
}

func (m *Mailbox) parseID(id string) (string, uint32, error) {
	folder := m.cfg.Folder
	raw := strings.TrimSpace(id)
	if i := strings.LastIndexByte(raw, ':'); i >= 0 {
		folder, raw = raw[:i], raw[i+1:]
	}
	uid, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || uid == 0 || folder == "" {
		return "", 0, fmt.Errorf("invalid message id %q", id)
	}
	return folder, uint32(uid), nil
}

// seqRange returns the sequence numbers of the last limit messages
func seqRange(total uint32, limit int) (uint32, uint32) {
	from := uint32(1)
	if limit > 0 && uint32(limit) < total {
		from = total - uint32(limit) + 1
	}
	return from, total
}
