// Package config loads server configuration from the environment, with an
// optional TOML file for archive destinations.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	DatabaseURL string // CAPTURE_DATABASE_URL (required)
	HTTPAddr    string // CAPTURE_HTTP_ADDR (default ":8000")
	NATSURL     string // CAPTURE_NATS_URL (optional, empty = no event bus)

	// Archive settings
	ArchiveInterval time.Duration // CAPTURE_ARCHIVE_INTERVAL (default 0 = disabled)
	Archive         ArchiveConfig // CAPTURE_ARCHIVE_CONFIG (TOML file) or env S3 settings
}

// ArchiveConfig lists the cold-storage destinations for the event archiver.
type ArchiveConfig struct {
	S3 []S3Destination `toml:"s3"`
}

// S3Destination is one S3-compatible archive target.
type S3Destination struct {
	Bucket   string `toml:"bucket"`
	Key      string `toml:"key"`
	Region   string `toml:"region"`
	Endpoint string `toml:"endpoint,omitempty"` // custom endpoint for MinIO and similar
}

func Load() (*Config, error) {
	c := &Config{
		DatabaseURL: os.Getenv("CAPTURE_DATABASE_URL"),
		HTTPAddr:    envOrDefault("CAPTURE_HTTP_ADDR", ":8000"),
		NATSURL:     os.Getenv("CAPTURE_NATS_URL"),
	}
	if c.DatabaseURL == "" {
		return nil, fmt.Errorf("CAPTURE_DATABASE_URL is required")
	}

	intervalStr := envOrDefault("CAPTURE_ARCHIVE_INTERVAL", "0")
	d, err := time.ParseDuration(intervalStr)
	if err != nil {
		return nil, fmt.Errorf("CAPTURE_ARCHIVE_INTERVAL: %w", err)
	}
	c.ArchiveInterval = d

	if path := os.Getenv("CAPTURE_ARCHIVE_CONFIG"); path != "" {
		if _, err := toml.DecodeFile(path, &c.Archive); err != nil {
			return nil, fmt.Errorf("CAPTURE_ARCHIVE_CONFIG: %w", err)
		}
	} else if bucket := os.Getenv("CAPTURE_ARCHIVE_S3_BUCKET"); bucket != "" {
		c.Archive.S3 = []S3Destination{{
			Bucket:   bucket,
			Key:      envOrDefault("CAPTURE_ARCHIVE_S3_KEY", "capture/events.jsonl"),
			Region:   envOrDefault("CAPTURE_ARCHIVE_S3_REGION", "us-east-1"),
			Endpoint: os.Getenv("CAPTURE_ARCHIVE_S3_ENDPOINT"),
		}}
	}

	return c, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
