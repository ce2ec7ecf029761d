package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, dir, name string, data map[string]any) string {
	t.Helper()
	if dir == "" {
		dir = t.TempDir()
	}
	if name == "" {
		name = "cfg.json"
	}
	path := filepath.Join(dir, name)
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson_SourcesAndPrecedence(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	dir := t.TempDir()
	pathFlag := writeTempJSON(t, dir, "flag.json", map[string]any{
		"db_path":                "/var/lib/clips.db",
		"mime_preferences":       []string{"video/webm"},
		"transport":              "s3",
		"s3":                     map[string]any{"bucket": "clips", "presign_expiry": "5m", "use_path_style": true},
		"simulated_failure_rate": 0,
		"simulated_latency":      int64(time.Second),
		"online_check_interval":  "10s",
	})

	t.Run("loads from flags", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", pathFlag}

		cfg := &Config{}
		cfg.LoadDefaults()
		parseJson(cfg)

		assert.Equal(t, "/var/lib/clips.db", cfg.DBPath)
		assert.Equal(t, []string{"video/webm"}, cfg.MIMEPreferences)
		assert.Equal(t, "s3", cfg.TransportKind)
		assert.Equal(t, "clips", cfg.S3.Bucket)
		assert.Equal(t, "us-east-1", cfg.S3.Region, "absent keys keep defaults")
		assert.Equal(t, 5*time.Minute, cfg.S3.PresignExpiry)
		assert.True(t, cfg.S3.UsePathStyle)
		assert.Zero(t, cfg.SimulatedFailureRate)
		assert.Equal(t, time.Second, cfg.SimulatedLatency)
		assert.Equal(t, 10*time.Second, cfg.OnlineCheckInterval)
		assert.Equal(t, 720, cfg.Width)
	})

	t.Run("short flag", func(t *testing.T) {
		os.Args = []string{"testbin", "-c", pathFlag}

		cfg := &Config{}
		parseJson(cfg)
		assert.Equal(t, "/var/lib/clips.db", cfg.DBPath)
	})

	t.Run("no config flag leaves values unchanged", func(t *testing.T) {
		os.Args = []string{"testbin"}

		cfg := &Config{
			DBPath:              "defaults.db",
			OnlineCheckInterval: 42 * time.Second,
		}
		parseJson(cfg)

		assert.Equal(t, "defaults.db", cfg.DBPath)
		assert.Equal(t, 42*time.Second, cfg.OnlineCheckInterval)
	})

	t.Run("invalid JSON panics", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ this is not valid json`), 0o600))

		os.Args = []string{"testbin", "-config", bad}

		cfg := &Config{}
		require.Panics(t, func() { parseJson(cfg) })
	})

	t.Run("non-positive check interval panics", func(t *testing.T) {
		for _, v := range []any{"0s", "-1s", 0} {
			path := writeTempJSON(t, dir, "interval.json", map[string]any{"online_check_interval": v})
			os.Args = []string{"testbin", "-c", path}
			require.Panics(t, func() { parseJson(&Config{}) }, "%v", v)
		}
	})

	t.Run("missing file panics", func(t *testing.T) {
		os.Args = []string{"testbin", "-c", filepath.Join(dir, "absent.json")}
		require.Panics(t, func() { parseJson(&Config{}) })
	})
}
