// Package config loads tap configuration from a TOML file with KPATAP_*
// environment overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	// Source API
	AccessToken        string `toml:"access_token"`         // KPATAP_ACCESS_TOKEN (required)
	StartDate          string `toml:"start_date"`           // KPATAP_START_DATE (RFC 3339; used only when no bookmark exists)
	UserAgent          string `toml:"user_agent"`           // KPATAP_USER_AGENT
	APIURL             string `toml:"api_url"`              // KPATAP_API_URL (default: production endpoint)
	ExtraRetryStatuses []int  `toml:"extra_retry_statuses"` // KPATAP_EXTRA_RETRY_STATUSES (comma-separated)
	RequestTimeout     string `toml:"request_timeout"`      // KPATAP_REQUEST_TIMEOUT (default "5m")

	// Bookmark store
	DatabaseURL string `toml:"database_url"` // KPATAP_DATABASE_URL (postgres; empty = file store)
	StatePath   string `toml:"state_path"`   // KPATAP_STATE_PATH (default "state.json")

	// Outputs
	NATSURL    string `toml:"nats_url"`    // KPATAP_NATS_URL (optional, empty = no NATS output)
	S3Bucket   string `toml:"s3_bucket"`   // KPATAP_S3_BUCKET (enables S3 export when set)
	S3Key      string `toml:"s3_key"`      // KPATAP_S3_KEY (default "kpatap/records.jsonl")
	S3Region   string `toml:"s3_region"`   // KPATAP_S3_REGION (default "us-east-1")
	S3Endpoint string `toml:"s3_endpoint"` // KPATAP_S3_ENDPOINT (custom endpoint for MinIO)
}

// Load reads the TOML file at path (skipped when path is empty), applies
// environment overrides, and fills defaults. Token presence is checked by the
// caller, which may prompt for it interactively.
func Load(path string) (*Config, error) {
	c := &Config{}
	if path != "" {
		if _, err := toml.DecodeFile(path, c); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	applyEnv(&c.AccessToken, "KPATAP_ACCESS_TOKEN")
	applyEnv(&c.StartDate, "KPATAP_START_DATE")
	applyEnv(&c.UserAgent, "KPATAP_USER_AGENT")
	applyEnv(&c.APIURL, "KPATAP_API_URL")
	applyEnv(&c.RequestTimeout, "KPATAP_REQUEST_TIMEOUT")
	applyEnv(&c.DatabaseURL, "KPATAP_DATABASE_URL")
	applyEnv(&c.StatePath, "KPATAP_STATE_PATH")
	applyEnv(&c.NATSURL, "KPATAP_NATS_URL")
	applyEnv(&c.S3Bucket, "KPATAP_S3_BUCKET")
	applyEnv(&c.S3Key, "KPATAP_S3_KEY")
	applyEnv(&c.S3Region, "KPATAP_S3_REGION")
	applyEnv(&c.S3Endpoint, "KPATAP_S3_ENDPOINT")

	if v := os.Getenv("KPATAP_EXTRA_RETRY_STATUSES"); v != "" {
		statuses, err := parseStatuses(v)
		if err != nil {
			return nil, fmt.Errorf("KPATAP_EXTRA_RETRY_STATUSES: %w", err)
		}
		c.ExtraRetryStatuses = statuses
	}

	if c.RequestTimeout == "" {
		c.RequestTimeout = "5m"
	}
	if c.StatePath == "" {
		c.StatePath = "state.json"
	}
	if c.S3Key == "" {
		c.S3Key = "kpatap/records.jsonl"
	}
	if c.S3Region == "" {
		c.S3Region = "us-east-1"
	}

	if _, err := c.Timeout(); err != nil {
		return nil, err
	}
	if _, err := c.StartMillis(); err != nil {
		return nil, err
	}
	return c, nil
}

// Timeout parses the request timeout.
func (c *Config) Timeout() (time.Duration, error) {
	d, err := time.ParseDuration(c.RequestTimeout)
	if err != nil {
		return 0, fmt.Errorf("request_timeout: %w", err)
	}
	return d, nil
}

// StartMillis returns the configured start date as epoch milliseconds, or 0
// when unset. It is the lower time bound only for streams without a bookmark.
func (c *Config) StartMillis() (int64, error) {
	if c.StartDate == "" {
		return 0, nil
	}
	t, err := time.Parse(time.RFC3339, c.StartDate)
	if err != nil {
		return 0, fmt.Errorf("start_date: %w", err)
	}
	return t.UnixMilli(), nil
}

func applyEnv(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func parseStatuses(v string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid status %q", part)
		}
		out = append(out, n)
	}
	return out, nil
}
