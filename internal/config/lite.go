// Package config provides configuration management for vetsim.
// This file contains the lightweight configuration for the stdio MCP mode.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// LiteConfig is a simplified configuration for standalone operation.
// It requires no external services and uses sensible defaults.
type LiteConfig struct {
	// Data storage
	DataDir string // Base directory for the ledger and exports

	// Clinic
	Seed        uint64 // 0 seeds from the clock
	CatalogPath string // Optional YAML catalog

	// Session cache
	MaxSessions int
	SessionTTL  time.Duration

	// Logging
	LogLevel  string // Log level: debug, info, warn, error
	LogFormat string // Log format: json, text
}

// DefaultLiteConfig returns a configuration with sensible defaults.
func DefaultLiteConfig() *LiteConfig {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".vetsim")

	return &LiteConfig{
		DataDir:     dataDir,
		MaxSessions: 16,
		SessionTTL:  12 * time.Hour,
		LogLevel:    "info",
		LogFormat:   "json",
	}
}

// LoadLiteConfig loads configuration from environment variables.
// Falls back to defaults if not set.
func LoadLiteConfig() *LiteConfig {
	cfg := DefaultLiteConfig()

	if v := os.Getenv("VETSIM_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}

	if v := os.Getenv("VETSIM_SEED"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.Seed = n
		}
	}
	if v := os.Getenv("VETSIM_CATALOG"); v != "" {
		cfg.CatalogPath = v
	}

	if v := os.Getenv("VETSIM_MAX_SESSIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxSessions = n
		}
	}
	if v := os.Getenv("VETSIM_SESSION_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.SessionTTL = d
		}
	}

	// Logging
	if v := os.Getenv("VETSIM_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("VETSIM_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}

	return cfg
}

// LedgerDBPath returns the path to the ledger SQLite database.
func (c *LiteConfig) LedgerDBPath() string {
	return filepath.Join(c.DataDir, "ledger.db")
}

// ExportDir returns the directory for JSON exports.
func (c *LiteConfig) ExportDir() string {
	return filepath.Join(c.DataDir, "exports")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func (c *LiteConfig) EnsureDataDir() error {
	if err := os.MkdirAll(c.DataDir, 0755); err != nil {
		return err
	}
	return os.MkdirAll(c.ExportDir(), 0755)
}
