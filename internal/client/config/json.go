package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/gophshare/internal/flagx"
	"github.com/dmitrijs2005/gophshare/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Pointer
// fields let a file override only the keys it mentions.
type JsonConfig struct {
	ServerURL      *string         `json:"server_url"`
	HealthAddr     *string         `json:"health_addr"`
	StatePath      *string         `json:"state_path"`
	DownloadDir    *string         `json:"download_dir"`
	RefreshSkew    *timex.Duration `json:"refresh_skew"`
	RequestTimeout *timex.Duration `json:"request_timeout"`

	OnlineCheckInterval *timex.Duration `json:"online_check_interval"`
}

// parseJson overlays Config with values loaded from a JSON file named by -c
// or -config. Panics on read or unmarshal errors.
func parseJson(cfg *Config) {
	// Resolve file path from flags.
	jsonConfigFile := flagx.ConfigPath(os.Args[1:])
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.ServerURL != nil {
		cfg.ServerURL = *jc.ServerURL
	}
	if jc.HealthAddr != nil {
		cfg.HealthAddr = *jc.HealthAddr
	}
	if jc.StatePath != nil {
		cfg.StatePath = *jc.StatePath
	}
	if jc.DownloadDir != nil {
		cfg.DownloadDir = *jc.DownloadDir
	}
	if jc.RefreshSkew != nil {
		cfg.RefreshSkew = jc.RefreshSkew.Duration
	}
	if jc.RequestTimeout != nil {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	if jc.OnlineCheckInterval != nil {
		cfg.OnlineCheckInterval = jc.OnlineCheckInterval.Duration
	}
}
