package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Window.Width != 1280 {
		t.Errorf("expected width 1280, got %d", cfg.Window.Width)
	}
	if cfg.Window.Height != 720 {
		t.Errorf("expected height 720, got %d", cfg.Window.Height)
	}
	if cfg.Window.Fullscreen {
		t.Error("expected fullscreen to be false by default")
	}

	// View distances match the web viewer defaults
	if cfg.View.HiresDistance != 100 {
		t.Errorf("expected hires distance 100, got %v", cfg.View.HiresDistance)
	}
	if cfg.View.LowresDistance != 1000 {
		t.Errorf("expected lowres distance 1000, got %v", cfg.View.LowresDistance)
	}

	if cfg.Controls.Scheme != "map" {
		t.Errorf("expected scheme 'map', got %s", cfg.Controls.Scheme)
	}

	if cfg.Network.Timeout != 30*time.Second {
		t.Errorf("expected timeout 30s, got %v", cfg.Network.Timeout)
	}

	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.LogFile != "" {
		t.Errorf("expected empty log file, got %s", cfg.Logging.LogFile)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
window:
  width: 1920
  height: 1080
  fullscreen: true

map:
  data_url: "https://maps.example.org/maps/world/"
  tile_cache_hash: 42

view:
  hires_distance: 150
  lowres_distance: 2000

controls:
  scheme: freeflight

network:
  timeout: 5s
  requests_per_second: 20

proxy:
  upstreams:
    main: "https://bluemap.example.org"

logging:
  level: "debug"
  log_file: "viewer.log"
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Window.Width != 1920 {
		t.Errorf("expected width 1920, got %d", cfg.Window.Width)
	}
	if !cfg.Window.Fullscreen {
		t.Error("expected fullscreen to be true")
	}
	if cfg.Map.DataURL != "https://maps.example.org/maps/world/" {
		t.Errorf("unexpected data url %s", cfg.Map.DataURL)
	}
	if cfg.Map.TileCacheHash != 42 {
		t.Errorf("expected cache hash 42, got %d", cfg.Map.TileCacheHash)
	}
	if cfg.View.HiresDistance != 150 {
		t.Errorf("expected hires distance 150, got %v", cfg.View.HiresDistance)
	}
	// Untouched keys keep their defaults
	if cfg.View.FOV != 75 {
		t.Errorf("expected fov 75, got %v", cfg.View.FOV)
	}
	if cfg.Controls.Scheme != "freeflight" {
		t.Errorf("expected scheme freeflight, got %s", cfg.Controls.Scheme)
	}
	if cfg.Network.Timeout != 5*time.Second {
		t.Errorf("expected timeout 5s, got %v", cfg.Network.Timeout)
	}
	if cfg.Proxy.Upstreams["main"] != "https://bluemap.example.org" {
		t.Errorf("unexpected upstreams %v", cfg.Proxy.Upstreams)
	}
	if cfg.Logging.LogFile != "viewer.log" {
		t.Errorf("expected log file 'viewer.log', got %s", cfg.Logging.LogFile)
	}
}

func TestLoadFromFileInvalid(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	invalidYAML := `
window:
  width: not a number
  invalid syntax here
`

	if err := os.WriteFile(configPath, []byte(invalidYAML), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err == nil {
		t.Error("expected error loading invalid YAML, got nil")
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	cfg := Default()
	if err := loadFromFile(cfg, "/nonexistent/path/config.yaml"); err == nil {
		t.Error("expected error loading missing file, got nil")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"unknown scheme", func(c *Config) { c.Controls.Scheme = "orbit" }, true},
		{"zero fov", func(c *Config) { c.View.FOV = 0 }, true},
		{"inverted distances", func(c *Config) { c.Controls.MinDistance = 100; c.Controls.MaxDistance = 10 }, true},
		{"data url without slash", func(c *Config) { c.Map.DataURL = "http://x/maps/world" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	cfg := Default()
	cfg.Map.DataURL = "http://x/maps/world"
	_ = cfg.Validate()
	if cfg.Map.DataURL != "http://x/maps/world/" {
		t.Errorf("expected trailing slash to be added, got %s", cfg.Map.DataURL)
	}
}

func TestConfigDir(t *testing.T) {
	dir := ConfigDir()

	if dir == "" {
		t.Error("ConfigDir returned empty string")
	}
	if !filepath.IsAbs(dir) {
		t.Errorf("ConfigDir should return absolute path, got %s", dir)
	}
}

func TestFindConfigFile(t *testing.T) {
	origDir, _ := os.Getwd()
	defer os.Chdir(origDir)

	tmpDir := t.TempDir()
	os.Chdir(tmpDir)
	t.Setenv("XDG_CONFIG_HOME", tmpDir)
	t.Setenv("HOME", tmpDir)

	path := findConfigFile()
	if path != "" {
		t.Errorf("expected empty path when no config exists, got %s", path)
	}

	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("window:\n  width: 800\n"), 0644); err != nil {
		t.Fatalf("failed to create test config: %v", err)
	}

	path = findConfigFile()
	if path == "" {
		t.Error("expected to find config.yaml in current directory")
	}
}

func TestApplyFlags(t *testing.T) {
	tests := []struct {
		name     string
		setup    func()
		verify   func(*Config)
		teardown func()
	}{
		{
			name:  "debug flag",
			setup: func() { *flagDebug = true },
			verify: func(cfg *Config) {
				if cfg.Logging.Level != "debug" {
					t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
				}
				if !cfg.Window.ShowFPS {
					t.Error("expected show_fps to be enabled with debug flag")
				}
			},
			teardown: func() { *flagDebug = false },
		},
		{
			name:  "map flag",
			setup: func() { *flagMap = "http://other/maps/nether/" },
			verify: func(cfg *Config) {
				if cfg.Map.DataURL != "http://other/maps/nether/" {
					t.Errorf("expected map url override, got %s", cfg.Map.DataURL)
				}
			},
			teardown: func() { *flagMap = "" },
		},
		{
			name:  "controls flag",
			setup: func() { *flagControls = "freeflight" },
			verify: func(cfg *Config) {
				if cfg.Controls.Scheme != "freeflight" {
					t.Errorf("expected freeflight, got %s", cfg.Controls.Scheme)
				}
			},
			teardown: func() { *flagControls = "" },
		},
		{
			name:  "windowed flag",
			setup: func() { *flagWindowed = true },
			verify: func(cfg *Config) {
				if cfg.Window.Fullscreen {
					t.Error("expected fullscreen to be false with windowed flag")
				}
			},
			teardown: func() { *flagWindowed = false },
		},
		{
			name:  "fullscreen flag",
			setup: func() { *flagFullscreen = true },
			verify: func(cfg *Config) {
				if !cfg.Window.Fullscreen {
					t.Error("expected fullscreen to be true with fullscreen flag")
				}
			},
			teardown: func() { *flagFullscreen = false },
		},
		{
			name: "width and height flags",
			setup: func() {
				*flagWidth = 2560
				*flagHeight = 1440
			},
			verify: func(cfg *Config) {
				if cfg.Window.Width != 2560 {
					t.Errorf("expected width 2560, got %d", cfg.Window.Width)
				}
				if cfg.Window.Height != 1440 {
					t.Errorf("expected height 1440, got %d", cfg.Window.Height)
				}
			},
			teardown: func() {
				*flagWidth = 0
				*flagHeight = 0
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setup()
			defer tt.teardown()

			cfg := Default()
			applyFlags(cfg)

			tt.verify(cfg)
		})
	}
}

func TestLoadPriority(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
window:
  width: 1600
  height: 900
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	*flagConfig = configPath
	*flagWidth = 1920
	defer func() {
		*flagConfig = ""
		*flagWidth = 0
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	// Width should be from flag (1920), not file (1600)
	if cfg.Window.Width != 1920 {
		t.Errorf("expected width 1920 from flag, got %d", cfg.Window.Width)
	}
	// Height should be from file (900) since no flag override
	if cfg.Window.Height != 900 {
		t.Errorf("expected height 900 from file, got %d", cfg.Window.Height)
	}
}
