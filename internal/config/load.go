package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load loads configuration with priority: defaults < file < flags.
func Load() (*Config, error) {
	// Start with defaults
	cfg := Default()

	// Try to load from file (explicit path takes priority)
	configPath := ConfigPath()
	if configPath == "" {
		configPath = findConfigFile()
	}

	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", configPath, err)
		}
	}

	// Apply CLI flags (highest priority)
	applyFlags(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise break the viewer at runtime.
func (c *Config) Validate() error {
	switch c.Controls.Scheme {
	case "map", "freeflight":
	default:
		return fmt.Errorf("unknown control scheme %q", c.Controls.Scheme)
	}
	if c.Map.DataURL != "" && !strings.HasSuffix(c.Map.DataURL, "/") {
		c.Map.DataURL += "/"
	}
	if c.View.FOV <= 0 || c.View.FOV >= 180 {
		return fmt.Errorf("fov must be in (0, 180), got %v", c.View.FOV)
	}
	if c.Controls.MinDistance > c.Controls.MaxDistance {
		return fmt.Errorf("min_distance %v exceeds max_distance %v", c.Controls.MinDistance, c.Controls.MaxDistance)
	}
	return nil
}

// findConfigFile looks for config in standard locations.
func findConfigFile() string {
	candidates := []string{
		"./config.yaml",
		filepath.Join(ConfigDir(), "config.yaml"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// ConfigDir returns the OS-appropriate config directory.
func ConfigDir() string {
	switch runtime.GOOS {
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", "BlueMapGo")
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "BlueMapGo")
	default: // Linux and others
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "bluemap-go")
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "bluemap-go")
	}
}

// loadFromFile loads config from a YAML file, merging with existing values.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}
