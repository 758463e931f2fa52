package config

import (
	"os"
	"path/filepath"
	"time"
)

// Config holds runtime settings for portalctl.
//
// Fields:
//   - ServerURL: base URL of the campusdesk REST API.
//   - RequestTimeout: per-request HTTP timeout.
//   - TokenFile: where the bearer token from the last login is kept.
type Config struct {
	ServerURL      string
	RequestTimeout time.Duration
	TokenFile      string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://localhost:5000"
	c.RequestTimeout = 10 * time.Second
	c.TokenFile = defaultTokenFile()
}

func defaultTokenFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".portalctl-token"
	}
	return filepath.Join(dir, "campusdesk", "token")
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
