package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration.
type Config struct {
	Sentinel SentinelConfig `yaml:"sentinel"`
}

// SentinelConfig is the project configuration.
type SentinelConfig struct {
	Server   ServerConfig   `yaml:"server"`
	Sessions SessionsConfig `yaml:"sessions"`
	Scoring  ScoringConfig  `yaml:"scoring"`
	Adapters AdaptersConfig `yaml:"adapters"`
	Rules    RulesConfig    `yaml:"rules"`
	Report   ReportConfig   `yaml:"report"`
	Webhook  WebhookConfig  `yaml:"webhook"`
	Archive  ArchiveConfig  `yaml:"archive"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	StreamBuffer    int           `yaml:"stream_buffer"`
}

// SessionsConfig controls the in-memory investigation store.
type SessionsConfig struct {
	Retention     time.Duration `yaml:"retention"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// ScoringConfig controls the score aggregator thresholds.
type ScoringConfig struct {
	TrustedThreshold int     `yaml:"trusted_threshold"`
	CautionThreshold int     `yaml:"caution_threshold"`
	CardSafety       float64 `yaml:"card_safety"`
}

// AdaptersConfig holds per-source adapter settings.
type AdaptersConfig struct {
	Timeout      time.Duration      `yaml:"timeout"`
	Whois        WhoisConfig        `yaml:"whois"`
	SSL          SSLConfig          `yaml:"ssl"`
	SafeBrowsing SafeBrowsingConfig `yaml:"safe_browsing"`
	Reddit       RedditConfig       `yaml:"reddit"`
	ScamAdviser  ScamAdviserConfig  `yaml:"scamadviser"`
	RedFlags     RedFlagsConfig     `yaml:"red_flags"`
	PriceSearch  PriceSearchConfig  `yaml:"price_search"`
}

// WhoisConfig controls the WHOIS adapter.
type WhoisConfig struct {
	Enabled bool   `yaml:"enabled"`
	Server  string `yaml:"server"`
}

// SSLConfig controls the TLS certificate adapter.
type SSLConfig struct {
	Enabled bool `yaml:"enabled"`
}

// SafeBrowsingConfig controls the Google Safe Browsing adapter.
type SafeBrowsingConfig struct {
	Enabled bool   `yaml:"enabled"`
	APIKey  string `yaml:"api_key"`
	URL     string `yaml:"url"`
}

// RedditConfig controls the Reddit community-sentiment adapter.
type RedditConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
}

// ScamAdviserConfig controls the ScamAdviser adapter.
type ScamAdviserConfig struct {
	Enabled bool   `yaml:"enabled"`
	APIKey  string `yaml:"api_key"`
	URL     string `yaml:"url"`
}

// RedFlagsConfig controls the page red-flag scraper adapter.
type RedFlagsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// PriceSearchConfig controls the shopping/price search adapter.
type PriceSearchConfig struct {
	Enabled bool   `yaml:"enabled"`
	APIKey  string `yaml:"api_key"`
	URL     string `yaml:"url"`
}

// RulesConfig controls the Sigma heuristic rule adapter.
type RulesConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// ReportConfig controls the JSONL investigation report sink.
type ReportConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// WebhookConfig controls the danger-verdict webhook sink.
type WebhookConfig struct {
	Enabled bool              `yaml:"enabled"`
	URL     string            `yaml:"url"`
	Timeout time.Duration     `yaml:"timeout"`
	Headers map[string]string `yaml:"headers"`
}

// ArchiveConfig controls the Redis session snapshot store.
type ArchiveConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Addr      string        `yaml:"addr"`
	Password  string        `yaml:"password"`
	DB        int           `yaml:"db"`
	KeyPrefix string        `yaml:"key_prefix"`
	TTL       time.Duration `yaml:"ttl"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// LoggingConfig controls logging output.
type LoggingConfig struct {
	Enabled bool   `yaml:"enabled"`
	Level   string `yaml:"level"`
	File    string `yaml:"file"`
	Console bool   `yaml:"console"`
}

// LoadConfig reads and parses a YAML config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
