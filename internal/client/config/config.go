package config

import "time"

// Config holds runtime settings for the GophShare CLI.
//
// Fields:
//   - ServerURL: base URL of the REST API.
//   - HealthAddr: host:port of the gRPC health service.
//   - StatePath: SQLite file holding the persisted refresh credential.
//   - DownloadDir: where downloaded plaintext is written.
//   - RefreshSkew: how long before access-token expiry a proactive refresh
//     kicks in.
//   - RequestTimeout: per-request HTTP timeout.
//   - OnlineCheckInterval: how often the CLI probes server health.
type Config struct {
	ServerURL      string
	HealthAddr     string
	StatePath      string
	DownloadDir    string
	RefreshSkew    time.Duration
	RequestTimeout time.Duration

	OnlineCheckInterval time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080"
	c.HealthAddr = "127.0.0.1:50051"
	c.StatePath = "gophshare.db"
	c.DownloadDir = "."
	c.RefreshSkew = 30 * time.Second
	c.RequestTimeout = 30 * time.Second
	c.OnlineCheckInterval = 10 * time.Second
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
