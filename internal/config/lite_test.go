package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLiteConfig(t *testing.T) {
	cfg := DefaultLiteConfig()

	assert.NotEmpty(t, cfg.DataDir)
	assert.Zero(t, cfg.Seed)
	assert.Empty(t, cfg.CatalogPath)
	assert.Equal(t, 16, cfg.MaxSessions)
	assert.Equal(t, 12*time.Hour, cfg.SessionTTL)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoadLiteConfig_Defaults(t *testing.T) {
	clearEnvVars(t)

	cfg := LoadLiteConfig()

	assert.NotEmpty(t, cfg.DataDir)
	assert.Equal(t, 16, cfg.MaxSessions)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadLiteConfig_EnvironmentOverrides(t *testing.T) {
	clearEnvVars(t)

	t.Setenv("VETSIM_DATA_DIR", "/tmp/test-vetsim")
	t.Setenv("VETSIM_SEED", "42")
	t.Setenv("VETSIM_CATALOG", "/etc/vetsim/catalog.yaml")
	t.Setenv("VETSIM_MAX_SESSIONS", "4")
	t.Setenv("VETSIM_SESSION_TTL", "30m")
	t.Setenv("VETSIM_LOG_LEVEL", "debug")
	t.Setenv("VETSIM_LOG_FORMAT", "text")

	cfg := LoadLiteConfig()

	assert.Equal(t, "/tmp/test-vetsim", cfg.DataDir)
	assert.Equal(t, uint64(42), cfg.Seed)
	assert.Equal(t, "/etc/vetsim/catalog.yaml", cfg.CatalogPath)
	assert.Equal(t, 4, cfg.MaxSessions)
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
}

func TestLoadLiteConfig_IgnoresInvalidNumbers(t *testing.T) {
	clearEnvVars(t)

	t.Setenv("VETSIM_SEED", "not-a-number")
	t.Setenv("VETSIM_MAX_SESSIONS", "-3")
	t.Setenv("VETSIM_SESSION_TTL", "soon")

	cfg := LoadLiteConfig()

	assert.Zero(t, cfg.Seed)
	assert.Equal(t, 16, cfg.MaxSessions)
	assert.Equal(t, 12*time.Hour, cfg.SessionTTL)
}

func TestLiteConfig_LedgerDBPath(t *testing.T) {
	cfg := &LiteConfig{DataDir: "/home/user/.vetsim"}

	path := cfg.LedgerDBPath()

	assert.Equal(t, "/home/user/.vetsim/ledger.db", path)
}

func TestLiteConfig_ExportDir(t *testing.T) {
	cfg := &LiteConfig{DataDir: "/home/user/.vetsim"}

	path := cfg.ExportDir()

	assert.Equal(t, "/home/user/.vetsim/exports", path)
}

func TestLiteConfig_EnsureDataDir(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "config-test-*")
	require.NoError(t, err)
	defer os.RemoveAll(tmpDir)

	cfg := &LiteConfig{DataDir: filepath.Join(tmpDir, "vetsim")}

	err = cfg.EnsureDataDir()
	require.NoError(t, err)

	// Verify directories exist
	_, err = os.Stat(cfg.DataDir)
	assert.NoError(t, err)

	_, err = os.Stat(cfg.ExportDir())
	assert.NoError(t, err)
}

func clearEnvVars(t *testing.T) {
	t.Helper()
	vars := []string{
		"VETSIM_DATA_DIR",
		"VETSIM_SEED",
		"VETSIM_CATALOG",
		"VETSIM_MAX_SESSIONS",
		"VETSIM_SESSION_TTL",
		"VETSIM_LOG_LEVEL",
		"VETSIM_LOG_FORMAT",
	}
	for _, v := range vars {
		t.Setenv(v, "")
		os.Unsetenv(v)
	}
}
