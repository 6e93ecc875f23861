package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/gophshare/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   base URL of the REST API
//	-h string   address and port of the gRPC health service
//	-f string   path of the local state database
//	-o string   download directory
//	-w int      proactive refresh skew in seconds
//	-t int      request timeout in seconds
//	-i int      online status check interval in seconds
//
// Note: The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	// Filter args to include only those handled here.
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-h", "-f", "-o", "-w", "-t", "-i"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerURL, "a", cfg.ServerURL, "base URL of the server API")
	fs.StringVar(&cfg.HealthAddr, "h", cfg.HealthAddr, "address and port of the health service")
	fs.StringVar(&cfg.StatePath, "f", cfg.StatePath, "local state database file")
	fs.StringVar(&cfg.DownloadDir, "o", cfg.DownloadDir, "download directory")
	refreshSkew := fs.Int("w", int(cfg.RefreshSkew.Seconds()), "refresh access token this many seconds before expiry")
	requestTimeout := fs.Int("t", int(cfg.RequestTimeout.Seconds()), "request timeout (in seconds)")
	onlineCheckInterval := fs.Int("i", int(cfg.OnlineCheckInterval.Seconds()), "online status check interval (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.RefreshSkew = time.Duration(*refreshSkew) * time.Second
	cfg.RequestTimeout = time.Duration(*requestTimeout) * time.Second
	cfg.OnlineCheckInterval = time.Duration(*onlineCheckInterval) * time.Second
}
