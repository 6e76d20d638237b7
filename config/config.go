// Package config provides configuration for the zap CLI.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. YAML config file (explicit path, ZAP_CONFIG env, ~/.config/zap/config.yaml)
//  3. Command-line flags, applied by the caller on top of the loaded values
package config

import (
	"time"

	"github.com/napta/zap/endpoint"
)

// Config holds all configuration for the zap CLI.
type Config struct {
	Transfer TransferConfig `yaml:"transfer"`
	SSH      SSHConfig      `yaml:"ssh"`
	Journal  JournalConfig  `yaml:"journal"`
	UI       UIConfig       `yaml:"ui"`
	Log      LogConfig      `yaml:"log"`
}

// TransferConfig holds chunking and retry settings.
type TransferConfig struct {
	Streams    int           `yaml:"streams"`     // default: 20
	MaxRetries int           `yaml:"max_retries"` // default: 3
	RetryDelay time.Duration `yaml:"retry_delay"` // default: 1s
	BufferSize int           `yaml:"buffer_size"` // copy buffer per stream, default: 1 MiB
}

// SSHConfig holds settings for the remote side's connections.
type SSHConfig struct {
	Port           int           `yaml:"port"`            // default: 22
	User           string        `yaml:"user"`            // default: current user
	IdentityFile   string        `yaml:"identity_file"`   // optional; empty means agent auth
	ConnectTimeout time.Duration `yaml:"connect_timeout"` // default: 10s
}

// JournalConfig holds diagnostics journal settings.
type JournalConfig struct {
	Path string `yaml:"path"` // empty disables journaling
}

// UIConfig holds progress display settings.
type UIConfig struct {
	NoProgress bool `yaml:"no_progress"` // default: false
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"` // "debug", "info", "warn" or "error", default: "info"
}

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	return Config{
		Transfer: TransferConfig{
			Streams:    20,
			MaxRetries: 3,
			RetryDelay: time.Second,
			BufferSize: 1 << 20,
		},
		SSH: SSHConfig{
			Port:           22,
			ConnectTimeout: 10 * time.Second,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Validate checks the effective configuration. Callers run it after the
// final layer (flags) has been applied.
func (c *Config) Validate() error {
	if err := endpoint.CheckStreams(c.Transfer.Streams); err != nil {
		return err
	}
	if c.Transfer.MaxRetries < 0 {
		return endpoint.NewValidationError("retries", "", "must be at least 0")
	}
	if c.Transfer.RetryDelay < 0 {
		return endpoint.NewValidationError("retry delay", c.Transfer.RetryDelay.String(), "must not be negative")
	}
	if c.Transfer.BufferSize < 0 {
		return endpoint.NewValidationError("buffer size", "", "must not be negative")
	}
	if err := endpoint.CheckPort(c.SSH.Port); err != nil {
		return err
	}
	if c.SSH.ConnectTimeout < 0 {
		return endpoint.NewValidationError("connect timeout", c.SSH.ConnectTimeout.String(), "must not be negative")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return endpoint.NewValidationError("log level", c.Log.Level, "must be one of debug, info, warn, error")
	}
	return nil
}
