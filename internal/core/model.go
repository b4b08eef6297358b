package core

import (
	"time"
)

// Message represents an email message as seen by the threat pipeline
type Message struct {
	ID         string
	From       string
	To         []string
	ReplyTo    string
	ReturnPath string
	Subject    string
	MessageID  string
	SPF        string
	DKIM       string
	DMARC      string
	Text       string
	HTML       string
	Headers    map[string][]string
}

// ParsedAddress is the result of parsing an address-bearing header value
type ParsedAddress struct {
	Address     string
	Domain      string
	DisplayName string
}

// Verdict is the reputation outcome stored for a key
type Verdict string

const (
	VerdictSafe    Verdict = "safe"
	VerdictBlocked Verdict = "blocked"
)

// CacheEntry is a cached reputation verdict for a domain or hashed address
type CacheEntry struct {
	Key       string
	Verdict   Verdict
	Source    string
	Score     float64
	CheckedAt time.Time
	ExpiresAt time.Time
}

// IsSafe reports whether the cached verdict is safe
func (e *CacheEntry) IsSafe() bool {
	return e.Verdict == VerdictSafe
}

// ProviderConfig describes a DNS-over-HTTPS threat-intelligence provider
type ProviderConfig struct {
	ID        string `mapstructure:"provider_id"`
	Endpoint  string `mapstructure:"endpoint"`
	APIKey    string `mapstructure:"api_key"`
	Enabled   bool   `mapstructure:"is_enabled"`
	Default   bool   `mapstructure:"is_default"`
	TimeoutMs int    `mapstructure:"timeout_ms"`
}

// DomainValidationResult is the outcome of checking one domain
type DomainValidationResult struct {
	Domain         string    `json:"domain"`
	IsSafe         bool      `json:"is_safe"`
	IsBlocked      bool      `json:"is_blocked"`
	Provider       string    `json:"provider"`
	CheckedAt      time.Time `json:"checked_at"`
	ResponseTimeMs int64     `json:"response_time_ms"`
	FromCache      bool      `json:"from_cache"`
	// FailedOpen is set when no definitive answer was obtained and the domain
	// was treated as safe.
	FailedOpen bool   `json:"failed_open,omitempty"`
	Error      string `json:"error,omitempty"`
}

// MessageScanResult is the domain safety of one message
type MessageScanResult struct {
	MessageID      string                    `json:"message_id"`
	IsSafe         bool                      `json:"is_safe"`
	Domains        []string                  `json:"domains"`
	BlockedDomains []string                  `json:"blocked_domains"`
	TotalDomains   int                       `json:"total_domains"`
	ScanTimeMs     int64                     `json:"scan_time_ms"`
	Results        []*DomainValidationResult `json:"results,omitempty"`
}

// ConfidenceBand is a coarse bucket derived from a legitimacy score
type ConfidenceBand string

const (
	BandHigh    ConfidenceBand = "HIGH"
	BandMedium  ConfidenceBand = "MEDIUM"
	BandLow     ConfidenceBand = "LOW"
	BandVeryLow ConfidenceBand = "VERY_LOW"
)

// ScoreRule records one fired scoring rule
type ScoreRule struct {
	RuleID string `json:"rule_id"`
	Points int    `json:"points"`
	Reason string `json:"reason"`
}

// ScoreBreakdown is the explainable header confidence score of a message
type ScoreBreakdown struct {
	MessageID      string         `json:"message_id,omitempty"`
	TotalScore     int            `json:"total_score"`
	ConfidenceBand ConfidenceBand `json:"confidence_band"`
	Rules          []ScoreRule    `json:"rules"`
	Flags          []string       `json:"flags"`
	Recommendation string         `json:"recommendation"`
}

// TyposquatResult is the outcome of comparing a domain against the legitimate list
type TyposquatResult struct {
	Domain          string `json:"domain"`
	IsTyposquatting bool   `json:"is_typosquatting"`
	MatchedDomain   string `json:"matched_domain,omitempty"`
	Technique       string `json:"technique,omitempty"`
}

// ReputationRequest is what a third-party reputation provider is asked about
type ReputationRequest struct {
	Address     string
	DisplayName string
	Subject     string
	Body        string
}

// ReputationRecord is a normalized sender reputation from a third-party provider
type ReputationRecord struct {
	Address     string    `json:"address"`
	IsSpam      bool      `json:"is_spam"`
	Score       float64   `json:"score"`
	Confidence  float64   `json:"confidence"`
	Explanation string    `json:"explanation,omitempty"`
	Source      string    `json:"source"`
	CheckedAt   time.Time `json:"checked_at"`
	FromCache   bool      `json:"from_cache"`
}

// Action is the recommended handling of a message
type Action string

const (
	ActionAllow      Action = "allow"
	ActionQuarantine Action = "quarantine"
)

// Assessment is the combined verdict for one message
type Assessment struct {
	ID                string             `json:"id"`
	MessageID         string             `json:"message_id"`
	DomainSafety      *MessageScanResult `json:"domain_safety"`
	Confidence        *ScoreBreakdown    `json:"confidence"`
	Reputation        *ReputationRecord  `json:"reputation,omitempty"`
	RecommendedAction Action             `json:"recommended_action"`
	Reasons           []string           `json:"reasons,omitempty"`
	AutoActioned      bool               `json:"auto_actioned"`
	ActionError       string             `json:"action_error,omitempty"`
	AssessedAt        time.Time          `json:"assessed_at"`
}

// BulkAssessment summarizes the assessment of several messages
type BulkAssessment struct {
	Scanned     int           `json:"scanned"`
	Safe        int           `json:"safe"`
	Blocked     int           `json:"blocked"`
	ActionedIDs []string      `json:"actioned_ids"`
	Results     []*Assessment `json:"results"`
}

// FolderConfidence summarizes header confidence across a mailbox folder
type FolderConfidence struct {
	Folder  string                 `json:"folder"`
	Total   int                    `json:"total"`
	ByBand  map[ConfidenceBand]int `json:"by_band"`
	Results []*ScoreBreakdown      `json:"results"`
}
