package factory

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/mikey/mail-threat-filter/internal/adapters/imap"
	"github.com/mikey/mail-threat-filter/internal/config"
	"github.com/mikey/mail-threat-filter/internal/core"
)

// MailboxFactory creates the mailbox used for fetching and marking messages
type MailboxFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewMailboxFactory creates a new mailbox factory
func NewMailboxFactory(cfg *config.Config, logger *zap.Logger) *MailboxFactory {
	return &MailboxFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateMailbox returns nil when no mailbox is configured
func (f *MailboxFactory) CreateMailbox() (core.Mailbox, error) {
	ic, err := f.cfg.GetIMAP()
	if err != nil {
		return nil, fmt.Errorf("invalid imap configuration: %w", err)
	}
	if !ic.Enabled {
		return nil, nil
	}

	return imap.NewMailbox(imap.Config{
		Address:            ic.Address,
		Username:           ic.Username,
		Password:           ic.Password,
		Folder:             ic.Folder,
		SpamFolder:         ic.SpamFolder,
		JunkFlag:           ic.JunkFlag,
		Timeout:            ic.Timeout,
		InsecureSkipVerify: ic.InsecureSkipVerify,
	}, f.logger)
}
