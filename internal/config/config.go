// Package config defines and loads the Kova configuration.
package config

import (
	"encoding/json"
	"fmt"
	"time"
)

// Config represents the main Kova configuration
type Config struct {
	// Agent invocation
	Agent AgentConfig `json:"agent" mapstructure:"agent"`

	// History storage
	History HistoryConfig `json:"history" mapstructure:"history"`

	// Token usage ledger
	Usage UsageConfig `json:"usage" mapstructure:"usage"`

	// Logging
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`

	// Metrics endpoint
	Metrics MetricsConfig `json:"metrics" mapstructure:"metrics"`

	// Data directory
	DataDir string `json:"data_dir" mapstructure:"data_dir"`
}

// AgentConfig holds external agent invocation settings
type AgentConfig struct {
	// Binary is the agent CLI executable name or path
	Binary string `json:"binary" mapstructure:"binary"`

	// TimeoutSeconds bounds one invocation
	TimeoutSeconds int `json:"timeout_seconds" mapstructure:"timeout_seconds"`

	// EnableEditing selects the mutating mode by default
	EnableEditing bool `json:"enable_editing" mapstructure:"enable_editing"`

	// AllowedTools restricts editing capabilities when editing is enabled
	AllowedTools []string `json:"allowed_tools" mapstructure:"allowed_tools"`

	// HandlePath is the continuity-handle record location
	HandlePath string `json:"handle_path" mapstructure:"handle_path"`
}

// Timeout returns the invocation bound as a duration.
func (a AgentConfig) Timeout() time.Duration {
	return time.Duration(a.TimeoutSeconds) * time.Second
}

// HistoryConfig holds session storage settings
type HistoryConfig struct {
	Dir string `json:"dir" mapstructure:"dir"`

	// MaintenanceSchedule is a cron expression for periodic housekeeping
	MaintenanceSchedule string `json:"maintenance_schedule" mapstructure:"maintenance_schedule"`

	// Watch reloads sessions rewritten by another process instance
	Watch bool `json:"watch" mapstructure:"watch"`
}

// UsageConfig holds token-usage ledger settings
type UsageConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	DBPath  string `json:"db_path" mapstructure:"db_path"`

	// RetentionDays bounds how long per-run rows are kept
	RetentionDays int `json:"retention_days" mapstructure:"retention_days"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `json:"level" mapstructure:"level"`
	File  string `json:"file" mapstructure:"file"`
}

// MetricsConfig holds the metrics endpoint configuration
type MetricsConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Addr    string `json:"addr" mapstructure:"addr"`
}

// DefaultConfig returns a config with default values
func DefaultConfig() *Config {
	return &Config{
		Agent: AgentConfig{
			Binary:         "claude",
			TimeoutSeconds: 300,
			EnableEditing:  true,
			AllowedTools:   []string{"Edit", "Write", "MultiEdit", "Read"},
		},
		History: HistoryConfig{
			MaintenanceSchedule: "0 3 * * *",
			Watch:               true,
		},
		Usage: UsageConfig{
			Enabled:       true,
			RetentionDays: 90,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    "127.0.0.1:9464",
		},
	}
}

// String returns a JSON representation of the config
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Agent.Binary == "" {
		return fmt.Errorf("agent binary is required")
	}
	if c.Agent.TimeoutSeconds <= 0 {
		return fmt.Errorf("agent timeout must be positive, got %d", c.Agent.TimeoutSeconds)
	}
	if c.Usage.Enabled && c.Usage.RetentionDays < 0 {
		return fmt.Errorf("usage retention days cannot be negative")
	}
	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		return fmt.Errorf("metrics address is required when metrics are enabled")
	}
	return nil
}
