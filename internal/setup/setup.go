// Package setup registers the vetsim MCP server with desktop MCP clients.
package setup

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/EcliqseX/vetsim/internal/config"
)

// ServerKey is the name vetsim is registered under in mcpServers.
const ServerKey = "vetsim"

// DesktopConfig is the Claude Desktop configuration file. Keys other than
// mcpServers are carried through untouched.
type DesktopConfig struct {
	MCPServers map[string]ServerEntry `json:"mcpServers"`
	extra      map[string]json.RawMessage
}

// ServerEntry is a single MCP server configuration.
type ServerEntry struct {
	Command string            `json:"command"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
}

func (c *DesktopConfig) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	c.MCPServers = make(map[string]ServerEntry)
	if servers, ok := raw["mcpServers"]; ok {
		if err := json.Unmarshal(servers, &c.MCPServers); err != nil {
			return fmt.Errorf("invalid mcpServers: %w", err)
		}
		delete(raw, "mcpServers")
	}
	c.extra = raw
	return nil
}

func (c DesktopConfig) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(c.extra)+1)
	for k, v := range c.extra {
		out[k] = v
	}
	servers := c.MCPServers
	if servers == nil {
		servers = map[string]ServerEntry{}
	}
	out["mcpServers"] = servers
	return json.Marshal(out)
}

// Options controls what Configure writes.
type Options struct {
	ConfigPath  string // Desktop config file; empty uses DesktopConfigPath
	BinaryPath  string // vetsim binary; empty searches the usual places
	DataDir     string // VETSIM_DATA_DIR for the server
	CatalogPath string
	Seed        uint64
}

// DesktopConfigPath returns the path to Claude Desktop's config file.
func DesktopConfigPath() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support", "Claude")
	case "linux":
		// XDG first
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			configDir = filepath.Join(xdg, "Claude")
			break
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, ".config", "Claude")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return "", errors.New("APPDATA environment variable not set")
		}
		configDir = filepath.Join(appData, "Claude")
	default:
		return "", fmt.Errorf("unsupported operating system: %s", runtime.GOOS)
	}

	return filepath.Join(configDir, "claude_desktop_config.json"), nil
}

// LoadDesktopConfig reads the config at path. A missing file yields an
// empty config.
func LoadDesktopConfig(path string) (*DesktopConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &DesktopConfig{MCPServers: make(map[string]ServerEntry)}, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg DesktopConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return &cfg, nil
}

// SaveDesktopConfig writes cfg to path, creating the directory if needed.
func SaveDesktopConfig(path string, cfg *DesktopConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Entry builds the mcpServers entry that launches `vetsim mcp`.
func Entry(opts Options) ServerEntry {
	entry := ServerEntry{
		Command: opts.BinaryPath,
		Args:    []string{"mcp"},
		Env:     make(map[string]string),
	}
	if opts.DataDir != "" {
		entry.Env["VETSIM_DATA_DIR"] = opts.DataDir
	}
	if opts.CatalogPath != "" {
		entry.Env["VETSIM_CATALOG"] = opts.CatalogPath
	}
	if opts.Seed != 0 {
		entry.Env["VETSIM_SEED"] = strconv.FormatUint(opts.Seed, 10)
	}
	return entry
}

// Configure adds or updates vetsim in the desktop config and returns the
// file it wrote.
func Configure(opts Options) (string, error) {
	path, err := resolveConfigPath(opts.ConfigPath)
	if err != nil {
		return "", err
	}

	cfg, err := LoadDesktopConfig(path)
	if err != nil {
		return "", err
	}

	if opts.BinaryPath == "" {
		opts.BinaryPath, err = FindBinary()
		if err != nil {
			return "", fmt.Errorf("could not find server binary: %w", err)
		}
	}

	cfg.MCPServers[ServerKey] = Entry(opts)
	if err := SaveDesktopConfig(path, cfg); err != nil {
		return "", err
	}
	return path, nil
}

// FindBinary looks for the vetsim binary on PATH and in common locations.
func FindBinary() (string, error) {
	const binaryName = "vetsim"

	if path, err := exec.LookPath(binaryName); err == nil {
		return path, nil
	}

	home, _ := os.UserHomeDir()
	locations := []string{
		"./" + binaryName,
		"./bin/" + binaryName,
		filepath.Join(home, ".local", "bin", binaryName),
		filepath.Join(home, "go", "bin", binaryName),
		"/usr/local/bin/" + binaryName,
	}
	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			if abs, err := filepath.Abs(loc); err == nil {
				return abs, nil
			}
			return loc, nil
		}
	}

	return "", fmt.Errorf("binary '%s' not found in common locations", binaryName)
}

// Status is the current registration as seen from the desktop config.
type Status struct {
	ConfigPath    string
	Configured    bool
	ServerPath    string
	DataDir       string
	LedgerPresent bool
	Issues        []string
}

// GetStatus inspects the desktop config at configPath, or the default
// location when empty.
func GetStatus(configPath string) *Status {
	status := &Status{Issues: []string{}}

	path, err := resolveConfigPath(configPath)
	if err != nil {
		status.Issues = append(status.Issues, fmt.Sprintf("Could not determine Claude Desktop config path: %v", err))
	} else {
		status.ConfigPath = path
		cfg, err := LoadDesktopConfig(path)
		if err != nil {
			status.Issues = append(status.Issues, fmt.Sprintf("Could not load Claude Desktop config: %v", err))
		} else if entry, ok := cfg.MCPServers[ServerKey]; ok {
			status.Configured = true
			status.ServerPath = entry.Command
			status.DataDir = entry.Env["VETSIM_DATA_DIR"]
			if _, err := os.Stat(entry.Command); os.IsNotExist(err) {
				status.Issues = append(status.Issues, fmt.Sprintf("Server binary not found at: %s", entry.Command))
			}
		}
	}

	if status.DataDir == "" {
		status.DataDir = DefaultDataDir()
	}
	lite := &config.LiteConfig{DataDir: status.DataDir}
	if _, err := os.Stat(lite.LedgerDBPath()); err == nil {
		status.LedgerPresent = true
	}
	return status
}

// Validate checks that vetsim is registered and launchable. Issues that only
// resolve themselves on first run do not make the setup invalid.
func Validate(configPath string) (bool, []string) {
	path, err := resolveConfigPath(configPath)
	if err != nil {
		return false, []string{fmt.Sprintf("Cannot find Claude Desktop config: %v", err)}
	}

	cfg, err := LoadDesktopConfig(path)
	if err != nil {
		return false, []string{fmt.Sprintf("Cannot load Claude Desktop config: %v", err)}
	}

	entry, ok := cfg.MCPServers[ServerKey]
	if !ok {
		return false, []string{"vetsim is not configured in Claude Desktop"}
	}

	var issues []string
	if info, err := os.Stat(entry.Command); err != nil {
		issues = append(issues, fmt.Sprintf("Server binary not found: %s", entry.Command))
	} else if info.Mode()&0111 == 0 {
		issues = append(issues, fmt.Sprintf("Server binary is not executable: %s", entry.Command))
	}

	dataDir := entry.Env["VETSIM_DATA_DIR"]
	if dataDir == "" {
		dataDir = DefaultDataDir()
	}
	if _, err := os.Stat(dataDir); os.IsNotExist(err) {
		issues = append(issues, fmt.Sprintf("Data directory will be created on first run: %s", dataDir))
	}

	return len(issues) == 0 || allWarnings(issues), issues
}

// allWarnings returns true if all issues are just warnings (not errors).
func allWarnings(issues []string) bool {
	for _, issue := range issues {
		if !strings.Contains(issue, "will be created") {
			return false
		}
	}
	return true
}

// DefaultDataDir returns the data directory the MCP server uses when
// VETSIM_DATA_DIR is unset.
func DefaultDataDir() string {
	return config.DefaultLiteConfig().DataDir
}

func resolveConfigPath(path string) (string, error) {
	if path != "" {
		return path, nil
	}
	return DesktopConfigPath()
}
