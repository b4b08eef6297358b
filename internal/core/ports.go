package core

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by a ReputationStore when an entry is absent or expired
var ErrNotFound = errors.New("cache entry not found")

// ReputationStore defines the interface for caching reputation verdicts
type ReputationStore interface {
	// Get retrieves a live entry; expired entries are reported as ErrNotFound
	Get(ctx context.Context, key string) (*CacheEntry, error)

	// Set upserts an entry, replacing any existing entry for the key
	Set(ctx context.Context, entry *CacheEntry) error

	// Delete removes an entry
	Delete(ctx context.Context, key string) error

	// Sweep removes entries that expired before now and returns how many were removed
	Sweep(ctx context.Context, now time.Time) (int, error)
}

// ProviderSource resolves the DNS firewall provider to use
type ProviderSource interface {
	DefaultProvider(ctx context.Context) (*ProviderConfig, error)
}

// DomainExtractor pulls normalized domains and addresses out of a message
type DomainExtractor interface {
	ExtractAllDomains(msg *Message) []string
	ParseAddress(raw string) (*ParsedAddress, bool)
}

// DomainValidator checks domains against a threat-intelligence service
type DomainValidator interface {
	CheckDomain(ctx context.Context, domain string) *DomainValidationResult
	CheckDomains(ctx context.Context, domains []string) map[string]*DomainValidationResult
	ValidateMessageDomains(ctx context.Context, messageID string, domains []string) *MessageScanResult
}

// HeaderScorer scores message headers for spoofing indicators
type HeaderScorer interface {
	Score(msg *Message) *ScoreBreakdown
}

// ReputationProvider looks up a sender in a third-party reputation service
type ReputationProvider interface {
	Lookup(ctx context.Context, req *ReputationRequest) (*ReputationRecord, error)
}

// Mailbox is the message transport used for fetching and marking messages
type Mailbox interface {
	// FetchMessage retrieves a message by its mailbox identifier
	FetchMessage(ctx context.Context, id string) (*Message, error)

	// ListMessages returns up to limit of the most recent messages in a folder
	ListMessages(ctx context.Context, folder string, limit int) ([]*Message, error)

	// MarkSpam marks a message as spam
	MarkSpam(ctx context.Context, id string) error
}
