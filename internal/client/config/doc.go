// Package config loads runtime configuration for the clipvault CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-d string   path to the SQLite database
//	-p string   directory for preview files
//	-s string   capture size as WIDTHxHEIGHT, e.g. 720x1280
//	-f int      compositor frame rate
//	-m string   comma separated container preference list
//	-t string   transport kind: simulated, s3 or minio
//	-n int      upload concurrency for sync
//	-a string   health endpoint host:port; empty disables the online watcher
//	-i int      online status check interval (seconds)
//	-l string   log level: debug, info, warn or error
//
// # JSON schema
//
// Intervals use timex.Duration, so values can be either strings like "3s" or
// integer nanoseconds. Absent keys keep their defaults:
//
//	{
//	  "db_path": "clipvault.db",
//	  "preview_dir": "previews",
//	  "width": 720,
//	  "height": 1280,
//	  "fps": 30,
//	  "mime_preferences": ["video/mp4", "video/webm"],
//	  "ffmpeg_path": "ffmpeg",
//	  "transport": "s3",
//	  "s3": {"region": "eu-north-1", "bucket": "clips", "presign_expiry": "15m"},
//	  "simulated_latency": "2s",
//	  "simulated_failure_rate": 0.4,
//	  "upload_concurrency": 2,
//	  "health_endpoint": "127.0.0.1:50051",
//	  "online_check_interval": "3s",
//	  "log_level": "info"
//	}
//
// Note: This package does not read environment variables directly; use the
// JSON file or flags to configure values.
package config
