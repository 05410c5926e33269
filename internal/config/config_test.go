package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const testSecret = "0123456789abcdef0123456789abcdef"

var allEnvVars = []string{
	"DRIVEHUB_CONFIG", "DRIVEHUB_HTTP_ADDR", "DRIVEHUB_API_URL", "DRIVEHUB_NATS_URL",
	"DRIVEHUB_LOG_LEVEL", "DRIVEHUB_SESSION_BACKEND", "DRIVEHUB_SESSION_SECRET",
	"DRIVEHUB_SESSION_TTL", "DRIVEHUB_COOKIE_SECURE", "DRIVEHUB_REDIS_URL",
	"DRIVEHUB_DATABASE_URL", "DRIVEHUB_PRESENCE_IDLE", "DRIVEHUB_ARCHIVE_INTERVAL",
	"DRIVEHUB_ARCHIVE_S3_BUCKET", "DRIVEHUB_ARCHIVE_S3_KEY", "DRIVEHUB_ARCHIVE_S3_REGION",
	"DRIVEHUB_ARCHIVE_S3_ENDPOINT", "DRIVEHUB_ARCHIVE_FILE",
}

// clearAllEnv blanks every setting and moves into an empty directory so a
// stray .env cannot leak in.
func clearAllEnv(t *testing.T) {
	t.Helper()
	for _, key := range allEnvVars {
		t.Setenv(key, "")
	}
	t.Chdir(t.TempDir())
}

func TestLoad_Defaults(t *testing.T) {
	clearAllEnv(t)
	t.Setenv("DRIVEHUB_SESSION_SECRET", testSecret)

	c, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.HTTPAddr != ":3000" || c.APIURL != "http://localhost:8080/api" {
		t.Errorf("addresses = %q, %q", c.HTTPAddr, c.APIURL)
	}
	if c.SessionBackend != BackendCookie || c.SessionTTL != 24*time.Hour || c.CookieSecure {
		t.Errorf("session = %q, %v, secure=%v", c.SessionBackend, c.SessionTTL, c.CookieSecure)
	}
	if c.PresenceIdle != 15*time.Minute {
		t.Errorf("presence idle = %v", c.PresenceIdle)
	}
	if c.ArchiveEnabled() || c.ArchiveS3Region != "us-east-1" || c.ArchiveS3Key != "drivehub/presence.jsonl" {
		t.Errorf("archive = %v, %q, %q", c.ArchiveInterval, c.ArchiveS3Region, c.ArchiveS3Key)
	}
	if c.LogLevel != slog.LevelInfo {
		t.Errorf("log level = %v", c.LogLevel)
	}
}

func TestLoad_Validation(t *testing.T) {
	for _, tc := range []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "CookieWithoutSecret",
			env:     map[string]string{},
			wantErr: "DRIVEHUB_SESSION_SECRET",
		},
		{
			name:    "CookieShortSecret",
			env:     map[string]string{"DRIVEHUB_SESSION_SECRET": "short"},
			wantErr: "at least 32 bytes",
		},
		{
			name:    "RedisWithoutURL",
			env:     map[string]string{"DRIVEHUB_SESSION_BACKEND": "redis"},
			wantErr: "DRIVEHUB_REDIS_URL",
		},
		{
			name:    "PostgresWithoutURL",
			env:     map[string]string{"DRIVEHUB_SESSION_BACKEND": "postgres"},
			wantErr: "DRIVEHUB_DATABASE_URL",
		},
		{
			name:    "UnknownBackend",
			env:     map[string]string{"DRIVEHUB_SESSION_BACKEND": "memcached"},
			wantErr: "unknown backend",
		},
		{
			name:    "BadTTL",
			env:     map[string]string{"DRIVEHUB_SESSION_SECRET": testSecret, "DRIVEHUB_SESSION_TTL": "forever"},
			wantErr: "DRIVEHUB_SESSION_TTL",
		},
		{
			name:    "BadBool",
			env:     map[string]string{"DRIVEHUB_SESSION_SECRET": testSecret, "DRIVEHUB_COOKIE_SECURE": "maybe"},
			wantErr: "DRIVEHUB_COOKIE_SECURE",
		},
		{
			name:    "BadLogLevel",
			env:     map[string]string{"DRIVEHUB_SESSION_SECRET": testSecret, "DRIVEHUB_LOG_LEVEL": "chatty"},
			wantErr: "DRIVEHUB_LOG_LEVEL",
		},
		{
			name:    "ArchiveWithoutDestination",
			env:     map[string]string{"DRIVEHUB_SESSION_SECRET": testSecret, "DRIVEHUB_ARCHIVE_INTERVAL": "5m"},
			wantErr: "no archive destination",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			clearAllEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("error %q does not mention %q", err, tc.wantErr)
			}
		})
	}
}

func TestLoad_RedisBackend(t *testing.T) {
	clearAllEnv(t)
	t.Setenv("DRIVEHUB_SESSION_BACKEND", "Redis")
	t.Setenv("DRIVEHUB_REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("DRIVEHUB_SESSION_TTL", "2h")
	t.Setenv("DRIVEHUB_COOKIE_SECURE", "true")
	t.Setenv("DRIVEHUB_LOG_LEVEL", "debug")

	c, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.SessionBackend != BackendRedis || c.SessionTTL != 2*time.Hour || !c.CookieSecure {
		t.Errorf("config = %+v", c)
	}
	if c.LogLevel != slog.LevelDebug {
		t.Errorf("log level = %v", c.LogLevel)
	}
}

func TestLoad_TOMLFileWithEnvOverride(t *testing.T) {
	clearAllEnv(t)

	path := filepath.Join(t.TempDir(), "drivehub.toml")
	content := `
http_addr = ":4000"
api_url = "http://rental:8080/api"

[session]
backend = "postgres"
database_url = "postgres://db/drivehub"
ttl = "12h"
cookie_secure = true

[archive]
interval = "10m"
file = "/var/lib/drivehub/roster.jsonl"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("DRIVEHUB_CONFIG", path)
	t.Setenv("DRIVEHUB_HTTP_ADDR", ":5000")

	c, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.HTTPAddr != ":5000" {
		t.Errorf("env should override file: HTTPAddr = %q", c.HTTPAddr)
	}
	if c.APIURL != "http://rental:8080/api" || c.SessionBackend != BackendPostgres || c.SessionTTL != 12*time.Hour {
		t.Errorf("file values not applied: %+v", c)
	}
	if !c.CookieSecure {
		t.Error("cookie_secure from file not applied")
	}
	if !c.ArchiveEnabled() || c.ArchiveFile != "/var/lib/drivehub/roster.jsonl" {
		t.Errorf("archive = %v, %q", c.ArchiveInterval, c.ArchiveFile)
	}
}

func TestLoad_MissingTOMLFile(t *testing.T) {
	clearAllEnv(t)
	t.Setenv("DRIVEHUB_CONFIG", filepath.Join(t.TempDir(), "absent.toml"))
	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestLoad_DotEnv(t *testing.T) {
	clearAllEnv(t)
	// clearAllEnv sets every var to "", which godotenv treats as already
	// present. Unset the two the .env file provides.
	os.Unsetenv("DRIVEHUB_SESSION_SECRET")
	os.Unsetenv("DRIVEHUB_NATS_URL")
	t.Cleanup(func() {
		os.Unsetenv("DRIVEHUB_SESSION_SECRET")
		os.Unsetenv("DRIVEHUB_NATS_URL")
	})

	env := "DRIVEHUB_SESSION_SECRET=" + testSecret + "\nDRIVEHUB_NATS_URL=nats://bus:4222\n"
	if err := os.WriteFile(".env", []byte(env), 0o600); err != nil {
		t.Fatal(err)
	}

	c, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.NATSURL != "nats://bus:4222" || c.SessionSecret != testSecret {
		t.Errorf("dotenv values not applied: nats=%q", c.NATSURL)
	}
}
