package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/robfig/cron/v3"
)

// Environment variables read by Load.
const (
	EnvPrefix = "PULSELOG_"
	EnvFile   = "PULSELOG_CONFIG"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if PULSELOG_CONFIG is set
//  3. env (prefix PULSELOG_)
func Load(_ context.Context) (*Config, error) {
	base := New()
	k := koanf.New(".")

	if path := os.Getenv(EnvFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: read %s: %w", ErrLoadConfig, path, err)
		}
	}

	// PULSELOG_QUEUE_SIZE -> queue_size; underscores match the koanf tags.
	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: environment: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the fields Load cannot type-check.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
	}
	if strings.TrimSpace(c.Addr) == "" {
		return invalid("addr must not be empty")
	}
	switch c.StoreDriver {
	case DriverMemory:
	case DriverSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			return invalid("sqlite_path is required for the sqlite driver")
		}
	default:
		return invalid("unknown store_driver %q", c.StoreDriver)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return invalid("timezone %q: %v", c.Timezone, err)
	}
	if _, err := cron.ParseStandard(c.DigestSchedule); err != nil {
		return invalid("digest_schedule %q: %v", c.DigestSchedule, err)
	}
	if c.QueueSize <= 0 || c.DedupeSize <= 0 {
		return invalid("queue_size and dedupe_size must be positive")
	}
	if c.RecentLogLimit <= 0 || c.DashboardLogLimit <= 0 || c.StoredInsightLimit <= 0 {
		return invalid("log and insight limits must be positive")
	}
	if c.SummaryTimeoutMS <= 0 {
		return invalid("summary_timeout_ms must be positive")
	}
	if c.MaxBodyBytes <= 0 {
		return invalid("max_body_bytes must be positive")
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return invalid("unknown log_format %q", c.LogFormat)
	}
	return nil
}
