package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/okian/pulselog/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.QueueSize, convey.ShouldEqual, 1024)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU())
			convey.So(cfg.StoreDriver, convey.ShouldEqual, config.DriverMemory)
			convey.So(cfg.RecentLogLimit, convey.ShouldEqual, 30)
			convey.So(cfg.DashboardLogLimit, convey.ShouldEqual, 14)
			convey.So(cfg.StoredInsightLimit, convey.ShouldEqual, 50)
			convey.So(cfg.SummaryTimeout(), convey.ShouldEqual, 10*time.Second)
			convey.So(cfg.SummaryCacheTTL(), convey.ShouldEqual, time.Hour)
			convey.So(cfg.Location(), convey.ShouldEqual, time.UTC)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("Then optional integrations are off", func() {
			convey.So(cfg.SummariesEnabled(), convey.ShouldBeFalse)
			convey.So(cfg.DigestEnabled(), convey.ShouldBeFalse)

			cfg.TelegramToken = "123:abc"
			convey.So(cfg.DigestEnabled(), convey.ShouldBeFalse)
			cfg.TelegramChatID = 42
			convey.So(cfg.DigestEnabled(), convey.ShouldBeTrue)
		})
	})
}

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.So(err, convey.ShouldBeNil)
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.Timezone, convey.ShouldEqual, "UTC")
		})

		convey.Convey("When loading config with environment variables", func() {
			t.Setenv("PULSELOG_ADDR", ":8080")
			t.Setenv("PULSELOG_QUEUE_SIZE", "64")
			t.Setenv("PULSELOG_WORKER_COUNT", "3")
			t.Setenv("PULSELOG_STORE_DRIVER", "sqlite")
			t.Setenv("PULSELOG_SQLITE_PATH", "/tmp/p.db")
			t.Setenv("PULSELOG_TELEGRAM_CHAT_ID", "-100123")
			t.Setenv("PULSELOG_OPENAI_API_KEY", "sk-test")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 64)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 3)
				convey.So(cfg.StoreDriver, convey.ShouldEqual, config.DriverSQLite)
				convey.So(cfg.SQLitePath, convey.ShouldEqual, "/tmp/p.db")
				convey.So(cfg.TelegramChatID, convey.ShouldEqual, int64(-100123))
				convey.So(cfg.SummariesEnabled(), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When loading config with a YAML file and env overrides", func() {
			path := writeConfig(t, `
# weekly digest on Monday mornings
addr: ":9090"
timezone: "America/Chicago"
digest_schedule: "0 7 * * 1"
dashboard_log_limit: 21
redis_addr: "localhost:6379"
`)
			t.Setenv(config.EnvFile, path)
			t.Setenv("PULSELOG_ADDR", ":7070")

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":7070")
				convey.So(cfg.DashboardLogLimit, convey.ShouldEqual, 21)
				convey.So(cfg.DigestSchedule, convey.ShouldEqual, "0 7 * * 1")
				convey.So(cfg.RedisAddr, convey.ShouldEqual, "localhost:6379")
				convey.So(cfg.Location().String(), convey.ShouldEqual, "America/Chicago")
			})
		})

		convey.Convey("When the config file cannot be read", func() {
			t.Setenv(config.EnvFile, "/non/existent/file.yaml")

			cfg, err := config.Load(ctx)

			convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			convey.So(cfg, convey.ShouldBeNil)
		})

		convey.Convey("When the config file is not valid YAML", func() {
			t.Setenv(config.EnvFile, writeConfig(t, `invalid: yaml: content: [`))

			cfg, err := config.Load(ctx)

			convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			convey.So(cfg, convey.ShouldBeNil)
		})

		convey.Convey("When values fail validation", func() {
			cases := map[string]string{
				"PULSELOG_ADDR":            " ",
				"PULSELOG_STORE_DRIVER":    "postgres",
				"PULSELOG_TIMEZONE":        "Mars/Olympus",
				"PULSELOG_DIGEST_SCHEDULE": "whenever",
				"PULSELOG_LOG_FORMAT":      "xml",
				"PULSELOG_QUEUE_SIZE":      "0",
			}
			for key, value := range cases {
				t.Setenv(key, value)
				cfg, err := config.Load(ctx)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
				_ = os.Unsetenv(key)
			}
		})

		convey.Convey("When sqlite is selected without a path", func() {
			t.Setenv("PULSELOG_STORE_DRIVER", "sqlite")
			t.Setenv("PULSELOG_SQLITE_PATH", "")

			_, err := config.Load(ctx)

			convey.So(err, convey.ShouldNotBeNil)
			convey.So(err.Error(), convey.ShouldContainSubstring, "sqlite_path is required")
		})
	})
}

// clearConfigEnvVars unsets every PULSELOG_ variable. goconvey reruns the
// setup above for each leaf, so every leaf starts from a clean environment.
func clearConfigEnvVars() {
	for _, kv := range os.Environ() {
		if key, _, ok := strings.Cut(kv, "="); ok && strings.HasPrefix(key, config.EnvPrefix) {
			_ = os.Unsetenv(key)
		}
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pulselog.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}
