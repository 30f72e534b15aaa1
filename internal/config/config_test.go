package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"codeberg.org/aulin/anesctl/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tempDir := t.TempDir()

	configContent := []byte(`
log_level = "debug"
listen = "127.0.0.1:8420"
history = true
history_db = "/path/to/history.db"
hypoxic_guard = false
`)
	configPath := filepath.Join(tempDir, "anesctl.toml")
	err := os.WriteFile(configPath, configContent, 0o600)
	require.NoError(t, err)

	t.Setenv("ANESCTL_CONFIG", configPath)

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel, "Expected LogLevel debug")
	assert.Equal(t, "127.0.0.1:8420", cfg.Listen, "Expected Listen 127.0.0.1:8420")
	assert.True(t, cfg.History, "Expected History true")
	assert.Equal(t, "/path/to/history.db", cfg.HistoryDB, "Expected HistoryDB /path/to/history.db")
	assert.False(t, cfg.HypoxicGuard, "Expected HypoxicGuard false")
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ANESCTL_CONFIG", "")

	cfg, err := config.Load()
	require.NoError(t, err, "Failed to load config")

	assert.Equal(t, config.DefaultLogLevel, cfg.LogLevel, "Expected default LogLevel info")
	assert.Empty(t, cfg.Listen, "Expected HTTP view disabled by default")
	assert.False(t, cfg.History, "Expected History false")
	assert.True(t, cfg.HypoxicGuard, "Expected HypoxicGuard enabled by default")
}

func TestLoadConfigFileInvalidFormat(t *testing.T) {
	tempDir := t.TempDir()

	configContent := []byte(`
This is not a valid TOML file
`)
	configPath := filepath.Join(tempDir, "anesctl.toml")
	err := os.WriteFile(configPath, configContent, 0o600)
	require.NoError(t, err)

	t.Setenv("ANESCTL_CONFIG", configPath)

	_, err = config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Failed to read config file")
}

func TestInvalidLogLevel(t *testing.T) {
	tempDir := t.TempDir()

	configContent := []byte(`
log_level = "invalid"
`)
	configPath := filepath.Join(tempDir, "anesctl.toml")
	err := os.WriteFile(configPath, configContent, 0o600)
	require.NoError(t, err)

	t.Setenv("ANESCTL_CONFIG", configPath)

	_, err = config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid_log_level")
}

func TestLogLevelFlag(t *testing.T) {
	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()

	t.Setenv("ANESCTL_CONFIG", "")
	os.Args = []string{"cmd", "--log-level", "debug"}

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel, "Expected LogLevel to be set by flag")
}
