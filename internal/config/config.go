// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - New builds a Config with defaults; Load layers a YAML file and the
//   environment on top and validates the result.
// - Optional integrations (OpenAI, Redis, Telegram) stay disabled while their
//   keys are empty.
package config

import (
	"runtime"
	"time"
)

// Store drivers.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the insight refresh queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of refresh workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize bounds the set of athletes with a pending refresh.
	DedupeSize int `koanf:"dedupe_size"`

	// StoreDriver is memory or sqlite; SQLitePath is the database file for sqlite.
	StoreDriver string `koanf:"store_driver"`
	SQLitePath  string `koanf:"sqlite_path"`

	// Timezone is the IANA zone calendar days are counted in.
	Timezone string `koanf:"timezone"`

	// RecentLogLimit, DashboardLogLimit and StoredInsightLimit size the
	// evaluation windows of the feed and the dashboard.
	RecentLogLimit     int `koanf:"recent_log_limit"`
	DashboardLogLimit  int `koanf:"dashboard_log_limit"`
	StoredInsightLimit int `koanf:"stored_insight_limit"`

	// OpenAI settings enable prose summaries when OpenAIAPIKey is set.
	OpenAIAPIKey     string `koanf:"openai_api_key"`
	OpenAIModel      string `koanf:"openai_model"`
	OpenAIBaseURL    string `koanf:"openai_base_url"`
	SummaryTimeoutMS int    `koanf:"summary_timeout_ms"`

	// RedisAddr selects a Redis summary cache; empty keeps summaries in memory.
	RedisAddr        string `koanf:"redis_addr"`
	SummaryCacheTTLS int    `koanf:"summary_cache_ttl_s"`

	// Telegram settings enable the weekly digest when both are set.
	TelegramToken  string `koanf:"telegram_token"`
	TelegramChatID int64  `koanf:"telegram_chat_id"`

	// DigestSchedule is a five-field cron spec.
	DigestSchedule string `koanf:"digest_schedule"`

	// MaxBodyBytes caps request bodies.
	MaxBodyBytes int64 `koanf:"max_body_bytes"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:           "info",
		LogFormat:          "text",
		Addr:               ":9080",
		QueueSize:          1024,
		WorkerCount:        runtime.NumCPU(),
		DedupeSize:         50_000,
		StoreDriver:        DriverMemory,
		SQLitePath:         "pulselog.db",
		Timezone:           "UTC",
		RecentLogLimit:     30,
		DashboardLogLimit:  14,
		StoredInsightLimit: 50,
		OpenAIModel:        "gpt-4o-mini",
		SummaryTimeoutMS:   10_000,
		SummaryCacheTTLS:   3600,
		DigestSchedule:     "0 18 * * 0",
		MaxBodyBytes:       1 << 20,
	}
}

// Location loads Timezone. Load has already validated it.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// SummaryTimeout is SummaryTimeoutMS as a duration.
func (c *Config) SummaryTimeout() time.Duration {
	return time.Duration(c.SummaryTimeoutMS) * time.Millisecond
}

// SummaryCacheTTL is SummaryCacheTTLS as a duration.
func (c *Config) SummaryCacheTTL() time.Duration {
	return time.Duration(c.SummaryCacheTTLS) * time.Second
}

// SummariesEnabled reports whether an OpenAI key is configured.
func (c *Config) SummariesEnabled() bool { return c.OpenAIAPIKey != "" }

// DigestEnabled reports whether Telegram delivery is configured.
func (c *Config) DigestEnabled() bool { return c.TelegramToken != "" && c.TelegramChatID != 0 }
