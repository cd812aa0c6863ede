// Package config handles YAML configuration loading, environment variable
// expansion (with .env support) and structural validation for dashbot.
package config

import (
	"github.com/flemzord/dashbot/internal/bot"
	"github.com/flemzord/dashbot/internal/dashboard"
	"github.com/flemzord/dashbot/internal/security"
	"github.com/flemzord/dashbot/internal/telemetry"
	"gopkg.in/yaml.v3"
)

// ServiceName is the AppContext service name of the loaded *Config.
const ServiceName = "config"

// Config is the top-level configuration structure.
type Config struct {
	// Version is the config format version. Currently only "1" is supported.
	Version string `yaml:"version"`

	// DataDir holds the history files. Defaults to the XDG data directory.
	DataDir string `yaml:"data_dir,omitempty"`

	// Modules maps module IDs to their raw YAML configuration.
	// Keys must match registered module IDs (e.g. "channel.telegram").
	Modules map[string]yaml.Node `yaml:"modules"`

	Dashboard dashboard.Config `yaml:"dashboard"`
	Bot       bot.Config       `yaml:"bot"`
	Telemetry telemetry.Config `yaml:"telemetry"`
	Security  SecurityConfig   `yaml:"security"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	RateLimits security.RateLimitConfig `yaml:"rate_limits"`

	// AuditLog is a JSONL file receiving audit events. Empty disables it.
	AuditLog string `yaml:"audit_log,omitempty"`

	// Redact lists extra literal values scrubbed from logs.
	Redact []string `yaml:"redact,omitempty"`
}

// applyDefaults fills the sections the file left out.
func (c *Config) applyDefaults() {
	c.Dashboard.Defaults()
}

// newConfig returns a Config pre-filled with the defaults that must be
// overlaid by the file rather than filled in afterwards.
func newConfig() *Config {
	return &Config{Bot: bot.Defaults()}
}
