// Package config loads portal settings from the environment, an optional
// .env file and an optional TOML file. Environment variables win over the
// TOML file, which wins over built-in defaults.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Session backends.
const (
	BackendCookie   = "cookie"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

const minSecretLength = 32

type Config struct {
	HTTPAddr string // DRIVEHUB_HTTP_ADDR (default ":3000")
	APIURL   string // DRIVEHUB_API_URL (default "http://localhost:8080/api")
	NATSURL  string // DRIVEHUB_NATS_URL (optional, empty = no events)
	LogLevel slog.Level

	// Session settings
	SessionBackend string        // DRIVEHUB_SESSION_BACKEND (cookie|redis|postgres; default cookie)
	SessionSecret  string        // DRIVEHUB_SESSION_SECRET (required for cookie)
	SessionTTL     time.Duration // DRIVEHUB_SESSION_TTL (default 24h)
	CookieSecure   bool          // DRIVEHUB_COOKIE_SECURE
	RedisURL       string        // DRIVEHUB_REDIS_URL (required for redis)
	DatabaseURL    string        // DRIVEHUB_DATABASE_URL (required for postgres)

	PresenceIdle time.Duration // DRIVEHUB_PRESENCE_IDLE (default 15m)

	// Archive settings
	ArchiveInterval   time.Duration // DRIVEHUB_ARCHIVE_INTERVAL (default 0 = disabled)
	ArchiveS3Bucket   string        // DRIVEHUB_ARCHIVE_S3_BUCKET (enables S3 when set)
	ArchiveS3Key      string        // DRIVEHUB_ARCHIVE_S3_KEY (default "drivehub/presence.jsonl")
	ArchiveS3Region   string        // DRIVEHUB_ARCHIVE_S3_REGION (default "us-east-1")
	ArchiveS3Endpoint string        // DRIVEHUB_ARCHIVE_S3_ENDPOINT (custom endpoint for MinIO)
	ArchiveFile       string        // DRIVEHUB_ARCHIVE_FILE (enables the file destination when set)
}

// fileConfig mirrors Config in the TOML file. Durations are strings so that
// "24h" style values read naturally.
type fileConfig struct {
	HTTPAddr string `toml:"http_addr"`
	APIURL   string `toml:"api_url"`
	NATSURL  string `toml:"nats_url"`
	LogLevel string `toml:"log_level"`

	Session struct {
		Backend      string `toml:"backend"`
		Secret       string `toml:"secret"`
		TTL          string `toml:"ttl"`
		CookieSecure *bool  `toml:"cookie_secure"`
		RedisURL     string `toml:"redis_url"`
		DatabaseURL  string `toml:"database_url"`
	} `toml:"session"`

	Presence struct {
		Idle string `toml:"idle"`
	} `toml:"presence"`

	Archive struct {
		Interval   string `toml:"interval"`
		S3Bucket   string `toml:"s3_bucket"`
		S3Key      string `toml:"s3_key"`
		S3Region   string `toml:"s3_region"`
		S3Endpoint string `toml:"s3_endpoint"`
		File       string `toml:"file"`
	} `toml:"archive"`
}

// Load reads .env from the working directory (if present), then the TOML
// file named by DRIVEHUB_CONFIG (if set), then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	var fc fileConfig
	if path := os.Getenv("DRIVEHUB_CONFIG"); path != "" {
		if _, err := toml.DecodeFile(path, &fc); err != nil {
			return nil, fmt.Errorf("DRIVEHUB_CONFIG %s: %w", path, err)
		}
	}

	c := &Config{
		HTTPAddr:          pick("DRIVEHUB_HTTP_ADDR", fc.HTTPAddr, ":3000"),
		APIURL:            pick("DRIVEHUB_API_URL", fc.APIURL, "http://localhost:8080/api"),
		NATSURL:           pick("DRIVEHUB_NATS_URL", fc.NATSURL, ""),
		SessionBackend:    strings.ToLower(pick("DRIVEHUB_SESSION_BACKEND", fc.Session.Backend, BackendCookie)),
		SessionSecret:     pick("DRIVEHUB_SESSION_SECRET", fc.Session.Secret, ""),
		RedisURL:          pick("DRIVEHUB_REDIS_URL", fc.Session.RedisURL, ""),
		DatabaseURL:       pick("DRIVEHUB_DATABASE_URL", fc.Session.DatabaseURL, ""),
		ArchiveS3Bucket:   pick("DRIVEHUB_ARCHIVE_S3_BUCKET", fc.Archive.S3Bucket, ""),
		ArchiveS3Key:      pick("DRIVEHUB_ARCHIVE_S3_KEY", fc.Archive.S3Key, "drivehub/presence.jsonl"),
		ArchiveS3Region:   pick("DRIVEHUB_ARCHIVE_S3_REGION", fc.Archive.S3Region, "us-east-1"),
		ArchiveS3Endpoint: pick("DRIVEHUB_ARCHIVE_S3_ENDPOINT", fc.Archive.S3Endpoint, ""),
		ArchiveFile:       pick("DRIVEHUB_ARCHIVE_FILE", fc.Archive.File, ""),
	}

	var err error
	if c.SessionTTL, err = duration("DRIVEHUB_SESSION_TTL", fc.Session.TTL, "24h"); err != nil {
		return nil, err
	}
	if c.PresenceIdle, err = duration("DRIVEHUB_PRESENCE_IDLE", fc.Presence.Idle, "15m"); err != nil {
		return nil, err
	}
	if c.ArchiveInterval, err = duration("DRIVEHUB_ARCHIVE_INTERVAL", fc.Archive.Interval, "0"); err != nil {
		return nil, err
	}

	if fc.Session.CookieSecure != nil {
		c.CookieSecure = *fc.Session.CookieSecure
	}
	if v := os.Getenv("DRIVEHUB_COOKIE_SECURE"); v != "" {
		if c.CookieSecure, err = strconv.ParseBool(v); err != nil {
			return nil, fmt.Errorf("DRIVEHUB_COOKIE_SECURE: %w", err)
		}
	}

	level := pick("DRIVEHUB_LOG_LEVEL", fc.LogLevel, "info")
	if err := c.LogLevel.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("DRIVEHUB_LOG_LEVEL: %w", err)
	}

	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) validate() error {
	switch c.SessionBackend {
	case BackendCookie:
		if len(c.SessionSecret) < minSecretLength {
			return fmt.Errorf("DRIVEHUB_SESSION_SECRET must be at least %d bytes for the cookie backend", minSecretLength)
		}
	case BackendRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("DRIVEHUB_REDIS_URL is required for the redis backend")
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DRIVEHUB_DATABASE_URL is required for the postgres backend")
		}
	default:
		return fmt.Errorf("DRIVEHUB_SESSION_BACKEND: unknown backend %q", c.SessionBackend)
	}
	if c.SessionTTL < 0 {
		return fmt.Errorf("DRIVEHUB_SESSION_TTL must not be negative")
	}
	if c.ArchiveInterval > 0 && c.ArchiveS3Bucket == "" && c.ArchiveFile == "" {
		return fmt.Errorf("DRIVEHUB_ARCHIVE_INTERVAL is set but no archive destination is configured")
	}
	return nil
}

// ArchiveEnabled reports whether the roster archive should run.
func (c *Config) ArchiveEnabled() bool {
	return c.ArchiveInterval > 0
}

func pick(key, fromFile, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	if fromFile != "" {
		return fromFile
	}
	return fallback
}

func duration(key, fromFile, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(pick(key, fromFile, fallback))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
