package config

import "time"

// Config represents the complete paykit configuration.
type Config struct {
	Service ServiceConfig  `yaml:"service"`
	API     APIConfig      `yaml:"api"`
	Webhook *WebhookConfig `yaml:"webhook,omitempty"`

	// Path is the absolute path Load read the config from.
	Path string `yaml:"-"`
}

// ServiceConfig defines process-wide settings.
type ServiceConfig struct {
	Name      string `yaml:"name"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// APIConfig defines the outbound API client.
type APIConfig struct {
	BaseURL  string         `yaml:"base_url"`
	APIKey   string         `yaml:"api_key"`
	Timeouts TimeoutsConfig `yaml:"timeouts"`
}

// TimeoutsConfig holds per-phase limits for one outbound call.
type TimeoutsConfig struct {
	Connect time.Duration `yaml:"connect"`
	Read    time.Duration `yaml:"read"`
	Write   time.Duration `yaml:"write"`
}

// WebhookConfig defines the inbound notification receiver.
type WebhookConfig struct {
	Listen          string        `yaml:"listen"`
	Path            string        `yaml:"path"`
	Secret          string        `yaml:"secret"`
	SignatureHeader string        `yaml:"signature_header"`
	MaxBodySize     string        `yaml:"max_body_size,omitempty"` // e.g. "1MB"
	Tolerance       time.Duration `yaml:"tolerance,omitempty"`
}

// ChecksumManifest is the on-disk .checksums format.
type ChecksumManifest struct {
	Version     int               `yaml:"version"`
	GeneratedAt string            `yaml:"generated_at"`
	Hashes      map[string]string `yaml:"hashes"`
}

// Defaults returns a configuration with default values.
func Defaults() *Config {
	return &Config{
		Service: ServiceConfig{
			Name:      "paykit",
			LogLevel:  "info",
			LogFormat: "json",
		},
		API: APIConfig{
			Timeouts: TimeoutsConfig{
				Connect: 30 * time.Second,
				Read:    30 * time.Second,
				Write:   30 * time.Second,
			},
		},
	}
}

// DefaultWebhookConfig returns receiver defaults applied when a webhook
// section is present.
func DefaultWebhookConfig() WebhookConfig {
	return WebhookConfig{
		Listen:          "127.0.0.1:8081",
		Path:            "/webhook",
		SignatureHeader: "Webhook-Signature",
		MaxBodySize:     "1MB",
	}
}
