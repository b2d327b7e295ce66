package config

import "time"

// Config holds runtime settings for the Sparkle CLI.
//
// Fields:
//   - ServerBaseURL: base URL of the account service HTTP API.
//   - DatabasePath: path to the local preference database.
//   - Platform: platform the client reports (web, ios, android).
//   - RequestTimeout: per-request timeout for account service calls.
type Config struct {
	ServerBaseURL  string
	DatabasePath   string
	Platform       string
	RequestTimeout time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerBaseURL = "http://127.0.0.1:8080"
	c.DatabasePath = "sparkle.db"
	c.Platform = "web"
	c.RequestTimeout = 10 * time.Second
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
