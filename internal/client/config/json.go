package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/clipvault/internal/flagx"
	"github.com/dmitrijs2005/clipvault/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling.
// It relies on timex.Duration so JSON can specify intervals either as
// strings like "3s" or as integer nanoseconds. After parsing, values
// are copied into the runtime Config (which uses time.Duration).
type JsonConfig struct {
	DBPath               string           `json:"db_path"`
	PreviewDir           string           `json:"preview_dir"`
	Width                int              `json:"width"`
	Height               int              `json:"height"`
	FPS                  int              `json:"fps"`
	MIMEPreferences      []string         `json:"mime_preferences"`
	FFmpegPath           string           `json:"ffmpeg_path"`
	Transport            string           `json:"transport"`
	S3                   *JsonS3Config    `json:"s3"`
	MinIO                *JsonMinIOConfig `json:"minio"`
	SimulatedLatency     *timex.Duration  `json:"simulated_latency"`
	SimulatedFailureRate *float64         `json:"simulated_failure_rate"`
	UploadConcurrency    int              `json:"upload_concurrency"`
	HealthEndpoint       string           `json:"health_endpoint"`
	OnlineCheckInterval  *timex.Duration  `json:"online_check_interval"`
	LogLevel             string           `json:"log_level"`
}

type JsonS3Config struct {
	Region        string          `json:"region"`
	AccessKey     string          `json:"access_key"`
	SecretKey     string          `json:"secret_key"`
	BaseEndpoint  string          `json:"base_endpoint"`
	Bucket        string          `json:"bucket"`
	PresignExpiry *timex.Duration `json:"presign_expiry"`
	UsePathStyle  bool            `json:"use_path_style"`
}

type JsonMinIOConfig struct {
	Endpoint  string `json:"endpoint"`
	AccessKey string `json:"access_key"`
	SecretKey string `json:"secret_key"`
	Bucket    string `json:"bucket"`
	Region    string `json:"region"`
	UseSSL    bool   `json:"use_ssl"`
}

// parseJson overlays Config with values loaded from a JSON file.
//
// The file path comes from -c or -config (flagx.JsonConfigFlags). When
// neither is given nothing is loaded. Keys absent from the file leave the
// current value in place. Panics on read or unmarshal errors.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
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

	jc.apply(cfg)
}

func (jc *JsonConfig) apply(cfg *Config) {
	setString(&cfg.DBPath, jc.DBPath)
	setString(&cfg.PreviewDir, jc.PreviewDir)
	setInt(&cfg.Width, jc.Width)
	setInt(&cfg.Height, jc.Height)
	setInt(&cfg.FPS, jc.FPS)
	if len(jc.MIMEPreferences) > 0 {
		cfg.MIMEPreferences = jc.MIMEPreferences
	}
	setString(&cfg.FFmpegPath, jc.FFmpegPath)
	setString(&cfg.TransportKind, jc.Transport)

	if s := jc.S3; s != nil {
		setString(&cfg.S3.Region, s.Region)
		setString(&cfg.S3.AccessKey, s.AccessKey)
		setString(&cfg.S3.SecretKey, s.SecretKey)
		setString(&cfg.S3.BaseEndpoint, s.BaseEndpoint)
		setString(&cfg.S3.Bucket, s.Bucket)
		if s.PresignExpiry != nil {
			cfg.S3.PresignExpiry = s.PresignExpiry.Duration
		}
		cfg.S3.UsePathStyle = s.UsePathStyle
	}
	if m := jc.MinIO; m != nil {
		setString(&cfg.MinIO.Endpoint, m.Endpoint)
		setString(&cfg.MinIO.AccessKey, m.AccessKey)
		setString(&cfg.MinIO.SecretKey, m.SecretKey)
		setString(&cfg.MinIO.Bucket, m.Bucket)
		setString(&cfg.MinIO.Region, m.Region)
		cfg.MinIO.UseSSL = m.UseSSL
	}

	if jc.SimulatedLatency != nil {
		cfg.SimulatedLatency = jc.SimulatedLatency.Duration
	}
	if jc.SimulatedFailureRate != nil {
		cfg.SimulatedFailureRate = *jc.SimulatedFailureRate
	}
	setInt(&cfg.UploadConcurrency, jc.UploadConcurrency)
	setString(&cfg.HealthEndpoint, jc.HealthEndpoint)
	if jc.OnlineCheckInterval != nil {
		if jc.OnlineCheckInterval.Duration <= 0 {
			panic(fmt.Errorf("invalid online_check_interval %s, want a positive duration", jc.OnlineCheckInterval.Duration))
		}
		cfg.OnlineCheckInterval = jc.OnlineCheckInterval.Duration
	}
	setString(&cfg.LogLevel, jc.LogLevel)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}
