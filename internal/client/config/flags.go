package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/clipvault/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:],
		[]string{"-d", "-p", "-s", "-f", "-m", "-t", "-n", "-a", "-i", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.DBPath, "d", cfg.DBPath, "path to the clip database")
	fs.StringVar(&cfg.PreviewDir, "p", cfg.PreviewDir, "directory for preview files")
	size := fs.String("s", fmt.Sprintf("%dx%d", cfg.Width, cfg.Height), "capture size WIDTHxHEIGHT")
	fs.IntVar(&cfg.FPS, "f", cfg.FPS, "compositor frame rate")
	prefs := flagx.CSV(cfg.MIMEPreferences)
	fs.Var(&prefs, "m", "comma separated container preference list")
	fs.StringVar(&cfg.TransportKind, "t", cfg.TransportKind, "transport: simulated, s3 or minio")
	fs.IntVar(&cfg.UploadConcurrency, "n", cfg.UploadConcurrency, "upload concurrency")
	fs.StringVar(&cfg.HealthEndpoint, "a", cfg.HealthEndpoint, "address and port of the health endpoint")
	onlineCheckInterval := fs.Int("i", int(cfg.OnlineCheckInterval.Seconds()), "online check interval (in seconds)")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	w, h, err := parseSize(*size)
	if err != nil {
		panic(err)
	}
	cfg.Width, cfg.Height = w, h
	cfg.MIMEPreferences = []string(prefs)
	if *onlineCheckInterval <= 0 {
		panic(fmt.Errorf("invalid online check interval %d, want a positive number of seconds", *onlineCheckInterval))
	}
	cfg.OnlineCheckInterval = time.Duration(*onlineCheckInterval) * time.Second
}

// parseSize parses "WIDTHxHEIGHT".
func parseSize(s string) (int, int, error) {
	ws, hs, ok := strings.Cut(strings.ToLower(s), "x")
	if !ok {
		return 0, 0, fmt.Errorf("invalid size %q, want WIDTHxHEIGHT", s)
	}
	w, err := strconv.Atoi(ws)
	if err != nil || w <= 0 {
		return 0, 0, fmt.Errorf("invalid width in %q", s)
	}
	h, err := strconv.Atoi(hs)
	if err != nil || h <= 0 {
		return 0, 0, fmt.Errorf("invalid height in %q", s)
	}
	return w, h, nil
}
