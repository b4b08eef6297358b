package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	v *viper.Viper
}

// New creates a new configuration instance
func New() (*Config, error) {
	return Load("")
}

// Load reads the configuration, from path when it is set and from the
// default search paths otherwise
func Load(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/mail-threat-filter/")
		v.AddConfigPath("$HOME/.mail-threat-filter")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvPrefix("THREAT_FILTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return &Config{v: v}, nil
}

// NewFromViper creates a new configuration instance from an existing Viper instance
func NewFromViper(v *viper.Viper) *Config {
	return &Config{v: v}
}

// NewEmptyViper creates a new Viper instance with defaults
func NewEmptyViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// DNS firewall
	v.SetDefault("dnsfirewall.provider_id", "quad9")
	v.SetDefault("dnsfirewall.endpoint", "https://dns.quad9.net:5053/dns-query")
	v.SetDefault("dnsfirewall.api_key", "")
	v.SetDefault("dnsfirewall.timeout", "5s")
	v.SetDefault("dnsfirewall.batch_size", 10)
	v.SetDefault("dnsfirewall.cache_ttl", "24h")
	v.SetDefault("dnsfirewall.providers", []map[string]interface{}{})

	// Custom domain lists
	v.SetDefault("domains.allowed", []string{})
	v.SetDefault("domains.blocked", []string{})

	// Scoring lists, empty means built-in
	v.SetDefault("scoring.free_mail_providers", []string{})
	v.SetDefault("scoring.suspicious_tlds", []string{})
	v.SetDefault("scoring.financial_keywords", []string{})
	v.SetDefault("scoring.urgency_keywords", []string{})
	v.SetDefault("scoring.role_keywords", []string{})
	v.SetDefault("scoring.legitimate_domains", []string{})

	// Third-party sender reputation
	v.SetDefault("reputation.provider", "none")
	v.SetDefault("reputation.enforce", false)
	v.SetDefault("reputation.threshold", 0.8)
	v.SetDefault("reputation.cache_ttl", "24h")

	// Bedrock defaults
	v.SetDefault("bedrock.region", "us-east-1")
	v.SetDefault("bedrock.model_id", "anthropic.claude-3-haiku-20240307-v1:0")
	v.SetDefault("bedrock.max_tokens", 1000)
	v.SetDefault("bedrock.temperature", 0.1)
	v.SetDefault("bedrock.top_p", 0.9)
	v.SetDefault("bedrock.max_body_size", 4096)

	// Gemini defaults
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model_name", "gemini-1.5-flash")
	v.SetDefault("gemini.max_tokens", 1000)
	v.SetDefault("gemini.temperature", 0.1)
	v.SetDefault("gemini.top_p", 0.9)
	v.SetDefault("gemini.max_body_size", 4096)

	// OpenAI defaults
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.model_name", "gpt-4o-mini")
	v.SetDefault("openai.max_tokens", 1000)
	v.SetDefault("openai.temperature", 0.1)
	v.SetDefault("openai.top_p", 0.9)
	v.SetDefault("openai.max_body_size", 4096)

	// Cache defaults
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.cleanup_frequency", "1h")
	v.SetDefault("cache.sqlite_path", "/data/threat_cache.db")
	v.SetDefault("cache.mysql_dsn", "user:password@tcp(localhost:3306)/threat_filter")
	v.SetDefault("cache.redis_addr", "localhost:6379")
	v.SetDefault("cache.redis_password", "")
	v.SetDefault("cache.redis_db", 0)
	v.SetDefault("cache.bolt_path", "/data/threat_cache.bolt")

	// Content filter
	v.SetDefault("server.filter_type", "postfix")
	v.SetDefault("server.listen_address", "0.0.0.0:10025")
	v.SetDefault("server.block_threats", false)
	v.SetDefault("server.modify_subject", true)
	v.SetDefault("server.subject_prefix", "[SUSPICIOUS] ")
	v.SetDefault("server.headers.action", "X-Threat-Action")
	v.SetDefault("server.headers.score", "X-Threat-Score")
	v.SetDefault("server.headers.band", "X-Threat-Band")
	v.SetDefault("server.headers.flags", "X-Threat-Flags")
	v.SetDefault("server.headers.blocked_domains", "X-Threat-Blocked-Domains")
	v.SetDefault("server.postfix.enabled", true)
	v.SetDefault("server.postfix.address", "localhost")
	v.SetDefault("server.postfix.port", 10026)

	// Mailbox
	v.SetDefault("imap.enabled", false)
	v.SetDefault("imap.address", "")
	v.SetDefault("imap.username", "")
	v.SetDefault("imap.password", "")
	v.SetDefault("imap.folder", "INBOX")
	v.SetDefault("imap.spam_folder", "")
	v.SetDefault("imap.junk_flag", "$Junk")
	v.SetDefault("imap.timeout", "30s")
	v.SetDefault("imap.insecure_skip_verify", false)

	// Metrics
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.listen_address", "127.0.0.1:9101")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// GetString gets a string value from the configuration
func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

// GetInt gets an integer value from the configuration
func (c *Config) GetInt(key string) int {
	return c.v.GetInt(key)
}

// GetFloat64 gets a float64 value from the configuration
func (c *Config) GetFloat64(key string) float64 {
	return c.v.GetFloat64(key)
}

// GetBool gets a boolean value from the configuration
func (c *Config) GetBool(key string) bool {
	return c.v.GetBool(key)
}

// GetStringSlice gets a string slice value from the configuration
func (c *Config) GetStringSlice(key string) []string {
	return c.v.GetStringSlice(key)
}

// GetDuration gets a duration value from the configuration
func (c *Config) GetDuration(key string) (time.Duration, error) {
	d, err := time.ParseDuration(c.GetString(key))
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %w", key, err)
	}
	return d, nil
}

// Set overrides a value, used for command line flags
func (c *Config) Set(key string, value interface{}) {
	c.v.Set(key, value)
}

// GetViper returns the underlying Viper instance
func (c *Config) GetViper() *viper.Viper {
	return c.v
}
