package config

import (
	"os"

	"github.com/BurntSushi/toml"

	"codenerd/internal/logging"
)

// LoggingConfig is the on-disk TOML `[logging]` schema the driver's
// external interface contract specifies. It is loaded separately from the
// YAML app Config (config.go) because the on-disk format for this one
// file is specified externally, while everything else in this harness
// uses YAML.
type LoggingConfig struct {
	Level   string        `toml:"level"`
	Format  string        `toml:"format"` // pretty, json, compact
	File    FileLogging   `toml:"file"`
	Privacy PrivacyConfig `toml:"privacy"`
}

// FileLogging controls the categorized file logger (internal/logging).
type FileLogging struct {
	Enabled   bool   `toml:"enabled"`
	Level     string `toml:"level"`
	MaxSizeMB int    `toml:"max_size_mb"`
	MaxFiles  int    `toml:"max_files"`
}

// PrivacyConfig controls how much of a tool call's arguments and output
// get written to logs.
type PrivacyConfig struct {
	LogToolArgs    bool   `toml:"log_tool_args"`
	LogToolOutput  string `toml:"log_tool_output"` // none, truncate, full
	TruncateLength int    `toml:"truncate_length"`
}

// DefaultLoggingConfig returns conservative defaults: console-only pretty
// logging, no file logging, tool output truncated rather than dropped or
// logged in full.
func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		Level:  "info",
		Format: "pretty",
		File: FileLogging{
			Enabled:   false,
			Level:     "info",
			MaxSizeMB: 50,
			MaxFiles:  5,
		},
		Privacy: PrivacyConfig{
			LogToolArgs:    true,
			LogToolOutput:  "truncate",
			TruncateLength: 2000,
		},
	}
}

// LoadLoggingConfig reads the TOML logging config at path, falling back to
// DefaultLoggingConfig if the file does not exist, then applies
// CODENERD_LOG / CODENERD_LOG_FORMAT / CODENERD_LOG_FILE environment
// overrides.
func LoadLoggingConfig(path string) (LoggingConfig, error) {
	cfg := DefaultLoggingConfig()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			if !os.IsNotExist(err) {
				return LoggingConfig{}, err
			}
		}
	}

	if level := os.Getenv("CODENERD_LOG"); level != "" {
		cfg.Level = level
	}
	if format := os.Getenv("CODENERD_LOG_FORMAT"); format != "" {
		cfg.Format = format
	}
	if file := os.Getenv("CODENERD_LOG_FILE"); file != "" {
		cfg.File.Enabled = true
	}

	return cfg, nil
}

// ToLoggerConfig converts the on-disk schema into the shape
// internal/logging.Initialize expects.
func (c LoggingConfig) ToLoggerConfig() logging.Config {
	return logging.Config{
		DebugMode:  c.File.Enabled,
		Level:      c.File.Level,
		JSONFormat: c.Format == "json",
	}
}
