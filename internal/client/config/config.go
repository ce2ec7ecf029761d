package config

import (
	"time"

	"github.com/dmitrijs2005/clipvault/internal/client/transport"
	"github.com/dmitrijs2005/clipvault/internal/common"
)

// Config holds runtime settings for the clipvault CLI.
//
// Units: intervals and latencies are time.Duration; SimulatedFailureRate is a
// probability in [0, 1].
type Config struct {
	DBPath     string
	PreviewDir string

	Width           int
	Height          int
	FPS             int
	MIMEPreferences []string
	FFmpegPath      string

	TransportKind        string
	S3                   transport.S3Config
	MinIO                transport.MinIOConfig
	SimulatedLatency     time.Duration
	SimulatedFailureRate float64
	UploadConcurrency    int

	HealthEndpoint      string
	OnlineCheckInterval time.Duration

	LogLevel string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.DBPath = "clipvault.db"
	c.PreviewDir = "previews"
	c.Width = 720
	c.Height = 1280
	c.FPS = 30
	c.MIMEPreferences = append([]string(nil), common.DefaultMIMEPreferences...)
	c.FFmpegPath = "ffmpeg"
	c.TransportKind = transport.KindSimulated
	c.S3 = transport.S3Config{Region: "us-east-1", PresignExpiry: 15 * time.Minute}
	c.MinIO = transport.MinIOConfig{Region: "us-east-1"}
	c.SimulatedLatency = 2 * time.Second
	c.SimulatedFailureRate = 0.4
	c.UploadConcurrency = 2
	c.HealthEndpoint = ""
	c.OnlineCheckInterval = 3 * time.Second
	c.LogLevel = "info"
}

// TransportOptions converts the transport related settings.
func (c *Config) TransportOptions() transport.Options {
	return transport.Options{
		Kind:                 c.TransportKind,
		S3:                   c.S3,
		MinIO:                c.MinIO,
		SimulatedLatency:     c.SimulatedLatency,
		SimulatedFailureRate: c.SimulatedFailureRate,
	}
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
