// Package config handles viewer configuration loading and management.
package config

import "time"

// Config holds all viewer settings.
type Config struct {
	Window   WindowConfig   `yaml:"window"`
	Map      MapConfig      `yaml:"map"`
	View     ViewConfig     `yaml:"view"`
	Controls ControlsConfig `yaml:"controls"`
	Network  NetworkConfig  `yaml:"network"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Proxy    ProxyConfig    `yaml:"proxy"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// WindowConfig holds display settings.
type WindowConfig struct {
	Width      int  `yaml:"width"`
	Height     int  `yaml:"height"`
	Fullscreen bool `yaml:"fullscreen"`
	VSync      bool `yaml:"vsync"`
	ShowFPS    bool `yaml:"show_fps"`
}

// MapConfig selects the map to stream.
type MapConfig struct {
	DataURL string `yaml:"data_url"` // Base URL of the map data, ending in '/'
	// TileCacheHash is appended to tile URLs. Zero picks a random token.
	TileCacheHash int `yaml:"tile_cache_hash"`
}

// ViewConfig holds camera and streaming distances.
type ViewConfig struct {
	HiresDistance  float64 `yaml:"hires_distance"`
	LowresDistance float64 `yaml:"lowres_distance"`
	FOV            float64 `yaml:"fov"`
}

// ControlsConfig holds control scheme settings.
type ControlsConfig struct {
	Scheme      string  `yaml:"scheme"` // "map" or "freeflight"
	MinDistance float64 `yaml:"min_distance"`
	MaxDistance float64 `yaml:"max_distance"`
	MoveSpeed   float64 `yaml:"move_speed"`
	ZoomSpeed   float64 `yaml:"zoom_speed"`
	RotateSpeed float64 `yaml:"rotate_speed"`
}

// NetworkConfig holds HTTP fetch settings.
type NetworkConfig struct {
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`
	BreakerFailures   uint32        `yaml:"breaker_failures"`
	BreakerTimeout    time.Duration `yaml:"breaker_timeout"`
	UserAgent         string        `yaml:"user_agent"`
}

// MetricsConfig holds the Prometheus endpoint settings.
type MetricsConfig struct {
	Listen string `yaml:"listen"` // Empty disables the endpoint
}

// ProxyConfig holds map proxy settings.
type ProxyConfig struct {
	Listen         string            `yaml:"listen"`
	Upstreams      map[string]string `yaml:"upstreams"` // server id -> base URL
	RequestsPerMin int               `yaml:"requests_per_min"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Window: WindowConfig{
			Width:      1280,
			Height:     720,
			Fullscreen: false,
			VSync:      true,
			ShowFPS:    false,
		},
		Map: MapConfig{
			DataURL: "http://localhost:8100/maps/world/",
		},
		View: ViewConfig{
			HiresDistance:  100,
			LowresDistance: 1000,
			FOV:            75,
		},
		Controls: ControlsConfig{
			Scheme:      "map",
			MinDistance: 5,
			MaxDistance: 10000,
			MoveSpeed:   1,
			ZoomSpeed:   1,
			RotateSpeed: 1,
		},
		Network: NetworkConfig{
			Timeout:           30 * time.Second,
			RequestsPerSecond: 200,
			Burst:             50,
			BreakerFailures:   10,
			BreakerTimeout:    15 * time.Second,
			UserAgent:         "bluemap-go",
		},
		Proxy: ProxyConfig{
			Listen:         ":8100",
			Upstreams:      map[string]string{},
			RequestsPerMin: 6000,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}
