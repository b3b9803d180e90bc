// Package config handles configuration management with validation
package config

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Config is the complete configuration. It is loaded once at startup and
// read-only thereafter.
type Config struct {
	Okx     OkxConfig     `yaml:"okx"`
	Engine  EngineConfig  `yaml:"engine"`
	System  SystemConfig  `yaml:"system"`
	Notice  NoticeConfig  `yaml:"notice"`
	Trading TradingConfig `yaml:"trading"`
}

// OkxConfig contains venue credentials and endpoints
type OkxConfig struct {
	APIKey     string `yaml:"api_key"`
	SecretKey  string `yaml:"secret_key"`
	Passphrase string `yaml:"passphrase"`
	Sim        bool   `yaml:"sim"`

	// Optional overrides, used by tests and local fakes
	BaseURL      string `yaml:"base_url"`
	WsPublicURL  string `yaml:"ws_public_url"`
	WsPrivateURL string `yaml:"ws_private_url"`

	RequestsPerSec float64 `yaml:"requests_per_sec"`

	// QueueSize bounds the streaming inbound/outbound channels.
	QueueSize int `yaml:"queue_size"`
}

// EngineConfig contains event-bus settings
type EngineConfig struct {
	QueueSize int `yaml:"queue_size"`
}

// SystemConfig contains process-level settings
type SystemConfig struct {
	LogLevel    string `yaml:"log_level"`
	MetricsPort int    `yaml:"metrics_port"`
}

// NoticeConfig contains the notifier settings
type NoticeConfig struct {
	Enabled    bool   `yaml:"enabled"`
	WebhookURL string `yaml:"webhook_url"`
}

// TradingConfig contains the demo strategy settings
type TradingConfig struct {
	Symbol     string `yaml:"symbol"`
	ProbeOrder bool   `yaml:"probe_order"`
}

// ValidationError describes one invalid field
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s' (value: %v): %s", e.Field, e.Value, e.Message)
}

var (
	globalMu  sync.Mutex
	global    *Config
	loadedTag string
)

// Load reads, expands, validates, and installs the process-wide config.
// Calling Load a second time is a programmer error.
func Load(filename string) (*Config, error) {
	cfg, err := parseFile(filename)
	if err != nil {
		return nil, err
	}

	globalMu.Lock()
	defer globalMu.Unlock()
	if global != nil {
		return nil, fmt.Errorf("config already loaded from %s", loadedTag)
	}
	global = cfg
	loadedTag = filename
	return cfg, nil
}

// Get returns the installed configuration; it panics before Load.
func Get() *Config {
	globalMu.Lock()
	defer globalMu.Unlock()
	if global == nil {
		panic("config: Get called before Load")
	}
	return global
}

func parseFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Engine.QueueSize == 0 {
		c.Engine.QueueSize = 64
	}
	if c.System.LogLevel == "" {
		c.System.LogLevel = "INFO"
	}
	if c.System.MetricsPort == 0 {
		c.System.MetricsPort = 9090
	}
	if c.Okx.RequestsPerSec == 0 {
		c.Okx.RequestsPerSec = 10
	}
	if c.Okx.QueueSize == 0 {
		c.Okx.QueueSize = 64
	}
}

// Validate checks the configuration for completeness
func (c *Config) Validate() error {
	var errs []string

	if c.Okx.APIKey == "" {
		errs = append(errs, ValidationError{Field: "okx.api_key", Message: "API key is required"}.Error())
	}
	if c.Okx.SecretKey == "" {
		errs = append(errs, ValidationError{Field: "okx.secret_key", Message: "secret key is required"}.Error())
	}
	if c.Okx.Passphrase == "" {
		errs = append(errs, ValidationError{Field: "okx.passphrase", Message: "passphrase is required"}.Error())
	}

	validLevels := []string{"DEBUG", "INFO", "WARN", "ERROR", "FATAL"}
	if !contains(validLevels, strings.ToUpper(c.System.LogLevel)) {
		errs = append(errs, ValidationError{
			Field:   "system.log_level",
			Value:   c.System.LogLevel,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(validLevels, ", ")),
		}.Error())
	}

	if c.Engine.QueueSize < 1 || c.Engine.QueueSize > 65536 {
		errs = append(errs, ValidationError{
			Field:   "engine.queue_size",
			Value:   c.Engine.QueueSize,
			Message: "must be between 1 and 65536",
		}.Error())
	}

	if c.Notice.Enabled && c.Notice.WebhookURL == "" {
		errs = append(errs, ValidationError{
			Field:   "notice.webhook_url",
			Message: "webhook URL is required when notice is enabled",
		}.Error())
	}

	if c.Trading.ProbeOrder && c.Trading.Symbol == "" {
		errs = append(errs, ValidationError{
			Field:   "trading.symbol",
			Message: "symbol is required when probe_order is enabled",
		}.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n%s", strings.Join(errs, "\n"))
	}
	return nil
}

// String renders the configuration with credentials masked
func (c *Config) String() string {
	cp := *c
	cp.Okx.APIKey = maskString(cp.Okx.APIKey)
	cp.Okx.SecretKey = maskString(cp.Okx.SecretKey)
	cp.Okx.Passphrase = maskString(cp.Okx.Passphrase)

	data, _ := yaml.Marshal(cp)
	return string(data)
}

func expandEnvVars(s string) string {
	return os.Expand(s, os.Getenv)
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

func maskString(s string) string {
	if len(s) <= 8 {
		return strings.Repeat("*", len(s))
	}
	return s[:4] + strings.Repeat("*", len(s)-8) + s[len(s)-4:]
}
