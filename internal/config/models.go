package config

import (
	"time"

	"github.com/mikey/mail-threat-filter/internal/scoring"
)

// DNSFirewallConfig represents the DoH validator settings
type DNSFirewallConfig struct {
	Timeout   time.Duration
	BatchSize int
	CacheTTL  time.Duration
}

// DomainListConfig represents the custom allow and block lists
type DomainListConfig struct {
	Allowed []string
	Blocked []string
}

// ReputationConfig represents the third-party sender reputation settings
type ReputationConfig struct {
	Provider  string
	Enforce   bool
	Threshold float64
	CacheTTL  time.Duration
}

// CacheConfig represents the reputation store settings
type CacheConfig struct {
	Type             string
	Enabled          bool
	CleanupFrequency time.Duration
	SQLitePath       string
	MySQLDSN         string
	RedisAddr        string
	RedisPassword    string
	RedisDB          int
	BoltPath         string
}

// IMAPConfig represents the mailbox connection settings
type IMAPConfig struct {
	Enabled            bool
	Address            string
	Username           string
	Password           string
	Folder             string
	SpamFolder         string
	JunkFlag           string
	Timeout            time.Duration
	InsecureSkipVerify bool
}

// BedrockConfig represents the configuration for Amazon Bedrock
type BedrockConfig struct {
	Region      string
	ModelID     string
	MaxTokens   int
	Temperature float32
	TopP        float32
	MaxBodySize int
}

// GeminiConfig represents the configuration for Google Gemini
type GeminiConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
	MaxBodySize int
}

// OpenAIConfig represents the configuration for OpenAI
type OpenAIConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
	MaxBodySize int
}

// GetDNSFirewall returns the DoH validator configuration
func (c *Config) GetDNSFirewall() (DNSFirewallConfig, error) {
	timeout, err := c.GetDuration("dnsfirewall.timeout")
	if err != nil {
		return DNSFirewallConfig{}, err
	}
	ttl, err := c.GetDuration("dnsfirewall.cache_ttl")
	if err != nil {
		return DNSFirewallConfig{}, err
	}
	return DNSFirewallConfig{
		Timeout:   timeout,
		BatchSize: c.GetInt("dnsfirewall.batch_size"),
		CacheTTL:  ttl,
	}, nil
}

// GetDomainLists returns the custom allow and block lists
func (c *Config) GetDomainLists() DomainListConfig {
	return DomainListConfig{
		Allowed: c.GetStringSlice("domains.allowed"),
		Blocked: c.GetStringSlice("domains.blocked"),
	}
}

// GetScoring returns the scoring lists; empty lists fall back to the built-in ones
func (c *Config) GetScoring() scoring.Config {
	return scoring.Config{
		FreeMailProviders: c.GetStringSlice("scoring.free_mail_providers"),
		SuspiciousTLDs:    c.GetStringSlice("scoring.suspicious_tlds"),
		FinancialKeywords: c.GetStringSlice("scoring.financial_keywords"),
		UrgencyKeywords:   c.GetStringSlice("scoring.urgency_keywords"),
		RoleKeywords:      c.GetStringSlice("scoring.role_keywords"),
		LegitimateDomains: c.GetStringSlice("scoring.legitimate_domains"),
	}
}

// GetReputation returns the sender reputation configuration
func (c *Config) GetReputation() (ReputationConfig, error) {
	ttl, err := c.GetDuration("reputation.cache_ttl")
	if err != nil {
		return ReputationConfig{}, err
	}
	return ReputationConfig{
		Provider:  c.GetString("reputation.provider"),
		Enforce:   c.GetBool("reputation.enforce"),
		Threshold: c.GetFloat64("reputation.threshold"),
		CacheTTL:  ttl,
	}, nil
}

// GetCache returns the reputation store configuration
func (c *Config) GetCache() (CacheConfig, error) {
	freq, err := c.GetDuration("cache.cleanup_frequency")
	if err != nil {
		return CacheConfig{}, err
	}
	return CacheConfig{
		Type:             c.GetString("cache.type"),
		Enabled:          c.GetBool("cache.enabled"),
		CleanupFrequency: freq,
		SQLitePath:       c.GetString("cache.sqlite_path"),
		MySQLDSN:         c.GetString("cache.mysql_dsn"),
		RedisAddr:        c.GetString("cache.redis_addr"),
		RedisPassword:    c.GetString("cache.redis_password"),
		RedisDB:          c.GetInt("cache.redis_db"),
		BoltPath:         c.GetString("cache.bolt_path"),
	}, nil
}

// GetIMAP returns the mailbox configuration
func (c *Config) GetIMAP() (IMAPConfig, error) {
	timeout, err := c.GetDuration("imap.timeout")
	if err != nil {
		return IMAPConfig{}, err
	}
	return IMAPConfig{
		Enabled:            c.GetBool("imap.enabled"),
		Address:            c.GetString("imap.address"),
		Username:           c.GetString("imap.username"),
		Password:           c.GetString("imap.password"),
		Folder:             c.GetString("imap.folder"),
		SpamFolder:         c.GetString("imap.spam_folder"),
		JunkFlag:           c.GetString("imap.junk_flag"),
		Timeout:            timeout,
		InsecureSkipVerify: c.GetBool("imap.insecure_skip_verify"),
	}, nil
}

// GetBedrock returns the Bedrock configuration
func (c *Config) GetBedrock() BedrockConfig {
	return BedrockConfig{
		Region:      c.GetString("bedrock.region"),
		ModelID:     c.GetString("bedrock.model_id"),
		MaxTokens:   c.GetInt("bedrock.max_tokens"),
		Temperature: float32(c.GetFloat64("bedrock.temperature")),
		TopP:        float32(c.GetFloat64("bedrock.top_p")),
		MaxBodySize: c.GetInt("bedrock.max_body_size"),
	}
}

// GetGemini returns the Gemini configuration
func (c *Config) GetGemini() GeminiConfig {
	return GeminiConfig{
		APIKey:      c.GetString("gemini.api_key"),
		ModelName:   c.GetString("gemini.model_name"),
		MaxTokens:   c.GetInt("gemini.max_tokens"),
		Temperature: float32(c.GetFloat64("gemini.temperature")),
		TopP:        float32(c.GetFloat64("gemini.top_p")),
		MaxBodySize: c.GetInt("gemini.max_body_size"),
	}
}

// GetOpenAI returns the OpenAI configuration
func (c *Config) GetOpenAI() OpenAIConfig {
	return OpenAIConfig{
		APIKey:      c.GetString("openai.api_key"),
		ModelName:   c.GetString("openai.model_name"),
		MaxTokens:   c.GetInt("openai.max_tokens"),
		Temperature: float32(c.GetFloat64("openai.temperature")),
		TopP:        float32(c.GetFloat64("openai.top_p")),
		MaxBodySize: c.GetInt("openai.max_body_size"),
	}
}
