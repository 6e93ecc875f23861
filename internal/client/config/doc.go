// Package config loads runtime configuration for the GophShare CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   base URL of the REST API
//	-h string   address:port of the gRPC health service
//	-f string   local state database file
//	-o string   download directory
//	-w int      proactive refresh skew (seconds)
//	-t int      request timeout (seconds)
//	-i int      online status check interval (seconds)
//
// # JSON schema
//
// Durations are timex.Duration values, either strings like "30s" or integer
// nanoseconds:
//
//	{
//	  "server_url": "http://127.0.0.1:8080",
//	  "health_addr": "127.0.0.1:50051",
//	  "state_path": "gophshare.db",
//	  "download_dir": "downloads",
//	  "refresh_skew": "30s",
//	  "request_timeout": "30s",
//	  "online_check_interval": "10s"
//	}
package config
