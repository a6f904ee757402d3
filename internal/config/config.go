// ABOUTME: SDK configuration: remote endpoint, API key, store location and
// ABOUTME: reconciliation tuning, with environment-variable overrides.

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/harperreed/sensing/internal/storage"
)

// Config stores sensing SDK configuration.
type Config struct {
	// APIBaseURL is the remote sensing service endpoint.
	APIBaseURL string `json:"api_base_url,omitempty"`

	// APIKey identifies this SDK build to the service.
	APIKey string `json:"api_key,omitempty"`

	// DataDir is the root directory for the local store. Supports ~
	// expansion. Defaults to the standard XDG data directory.
	DataDir string `json:"data_dir,omitempty"`

	// StalenessHours is how old the newest cached row may be before a
	// read triggers a refresh. Defaults to 3.
	StalenessHours int `json:"staleness_hours,omitempty"`

	// LogLevel sets the logger verbosity: debug, info, warn, error.
	LogLevel string `json:"log_level,omitempty"`
}

const defaultBaseURL = "https://api.sensing.2389.dev"

// GetAPIBaseURL returns the configured endpoint with its default.
func (c *Config) GetAPIBaseURL() string {
	if c.APIBaseURL == "" {
		return defaultBaseURL
	}
	return strings.TrimRight(c.APIBaseURL, "/")
}

// GetDataDir returns the configured data directory with ~ expanded,
// defaulting to the standard XDG data directory.
func (c *Config) GetDataDir() string {
	if c.DataDir == "" {
		return storage.DataDir()
	}
	return ExpandPath(c.DataDir)
}

// GetDBPath returns the store location inside the data directory.
func (c *Config) GetDBPath() string {
	return filepath.Join(c.GetDataDir(), "sensing.db")
}

// GetStaleness returns the refresh threshold as a duration.
func (c *Config) GetStaleness() time.Duration {
	if c.StalenessHours <= 0 {
		return 3 * time.Hour
	}
	return time.Duration(c.StalenessHours) * time.Hour
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) string {
	if path == "" {
		return ""
	}
	if path == "~" {
		home, _ := os.UserHomeDir()
		return home
	}
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

// GetConfigPath returns the config file path.
func GetConfigPath() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, _ := os.UserHomeDir()
		configDir = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configDir, "sensing", "config.json")
}

// Load reads config from disk and applies environment overrides. A missing
// file yields defaults, not an error.
func Load() (*Config, error) {
	path := GetConfigPath()
	cfg := &Config{}
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	if err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

// applyEnv lets the environment override the file, matching what the host
// app's build system injects.
func (c *Config) applyEnv() {
	if v := os.Getenv("SENSING_API_BASE_URL"); v != "" {
		c.APIBaseURL = v
	}
	if v := os.Getenv("SENSING_API_KEY"); v != "" {
		c.APIKey = v
	}
	if v := os.Getenv("SENSING_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("SENSING_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("SENSING_STALENESS_HOURS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.StalenessHours = n
		}
	}
}

// Save writes config to disk.
func (c *Config) Save() error {
	path := GetConfigPath()
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
