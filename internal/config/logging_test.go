package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadLoggingConfigMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadLoggingConfig(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, "pretty", cfg.Format)
	assert.False(t, cfg.File.Enabled)
}

func TestLoadLoggingConfigParsesTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logging.toml")
	contents := `
level = "debug"
format = "json"

[file]
enabled = true
level = "warn"
max_size_mb = 10
max_files = 3

[privacy]
log_tool_args = false
log_tool_output = "full"
truncate_length = 500
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))

	cfg, err := LoadLoggingConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Level)
	assert.Equal(t, "json", cfg.Format)
	assert.True(t, cfg.File.Enabled)
	assert.Equal(t, "warn", cfg.File.Level)
	assert.Equal(t, 10, cfg.File.MaxSizeMB)
	assert.Equal(t, 3, cfg.File.MaxFiles)
	assert.False(t, cfg.Privacy.LogToolArgs)
	assert.Equal(t, "full", cfg.Privacy.LogToolOutput)
	assert.Equal(t, 500, cfg.Privacy.TruncateLength)
}

func TestLoadLoggingConfigEnvOverrides(t *testing.T) {
	t.Setenv("CODENERD_LOG", "warn")
	t.Setenv("CODENERD_LOG_FORMAT", "compact")
	t.Setenv("CODENERD_LOG_FILE", "/tmp/whatever.log")

	cfg, err := LoadLoggingConfig("")
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Level)
	assert.Equal(t, "compact", cfg.Format)
	assert.True(t, cfg.File.Enabled)
}

func TestToLoggerConfig(t *testing.T) {
	cfg := DefaultLoggingConfig()
	cfg.File.Enabled = true
	cfg.File.Level = "debug"
	cfg.Format = "json"

	lc := cfg.ToLoggerConfig()
	assert.True(t, lc.DebugMode)
	assert.Equal(t, "debug", lc.Level)
	assert.True(t, lc.JSONFormat)
}
