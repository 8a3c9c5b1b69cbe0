package config

import (
	"os"
	"time"
)

// Config holds runtime settings for the gophauth CLI.
//
// Fields:
//   - ServerURL: base URL of the HTTP API, without the /api/v1 prefix.
//   - DeviceID: device identifier sent on signup and signin. When empty the
//     client generates one and keeps it under StateDir.
//   - StateDir: directory for client state, absolute or relative to the working directory.
//   - RequestTimeout: per-request HTTP timeout.
//   - OnlineCheckInterval: how often the client checks server reachability.
type Config struct {
	ServerURL           string
	DeviceID            string
	StateDir            string
	RequestTimeout      time.Duration
	OnlineCheckInterval time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080"
	c.StateDir = ".gophauth"
	c.RequestTimeout = 10 * time.Second
	c.OnlineCheckInterval = 3 * time.Second
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg, os.Args[1:])
	parseFlags(cfg, os.Args[1:])
	return cfg
}
