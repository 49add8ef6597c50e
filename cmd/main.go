package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/pulselog/internal/adapters/cache"
	"github.com/okian/pulselog/internal/adapters/http/api"
	"github.com/okian/pulselog/internal/adapters/http/swagger"
	"github.com/okian/pulselog/internal/adapters/llm"
	"github.com/okian/pulselog/internal/adapters/notify"
	"github.com/okian/pulselog/internal/adapters/repository"
	"github.com/okian/pulselog/internal/adapters/repository/sqlite"
	service "github.com/okian/pulselog/internal/app"
	"github.com/okian/pulselog/internal/config"
	"github.com/okian/pulselog/internal/domain/summary"
	"github.com/okian/pulselog/pkg/logger"
	"github.com/okian/pulselog/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 30 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	serviceMetricsInterval    = 5 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// Only the custom registry is exposed; drop the default collectors.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		// Logger isn't configured yet
		_, _ = os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		_, _ = os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	loggerInstance := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	svc, closers, err := buildService(ctx, cfg, loggerInstance)
	if err != nil {
		loggerInstance.Error(ctx, "failed to build service", logger.Error(err))
		os.Exit(1)
	}
	if err := svc.Start(ctx); err != nil {
		loggerInstance.Error(ctx, "failed to start service", logger.Error(err))
		closeAll(ctx, loggerInstance, closers)
		os.Exit(1)
	}
	defer closeAll(ctx, loggerInstance, closers)
	defer svc.Stop()

	go startSystemMetricsUpdater(ctx)
	go startServiceMetricsUpdater(ctx, svc)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newMux(ctx, cfg, svc),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		loggerInstance.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			loggerInstance.Error(ctx, "HTTP server failed", logger.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	loggerInstance.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		loggerInstance.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	loggerInstance.Info(ctx, "server stopped")
}

// buildService assembles the service and its optional collaborators from cfg.
// The returned closers release what the service does not own.
func buildService(ctx context.Context, cfg *config.Config, log logger.Logger) (*service.Service, []io.Closer, error) {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	opts := []service.Option{
		service.WithLogger(log.Named("service")),
		service.WithStore(store),
		service.WithWorkerCount(cfg.WorkerCount),
		service.WithQueueSize(cfg.QueueSize),
		service.WithDedupeSize(cfg.DedupeSize),
		service.WithLocation(cfg.Location()),
		service.WithLogLimits(cfg.RecentLogLimit, cfg.DashboardLogLimit, cfg.StoredInsightLimit),
		service.WithDigestSchedule(cfg.DigestSchedule),
	}

	var closers []io.Closer
	sum, closer, err := buildSummarizer(ctx, cfg, log)
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	if closer != nil {
		closers = append(closers, closer)
	}
	opts = append(opts, service.WithSummarizer(sum))

	if cfg.DigestEnabled() {
		tg, err := notify.NewTelegram(cfg.TelegramToken, cfg.TelegramChatID)
		if err != nil {
			_ = store.Close()
			closeAll(ctx, log, closers)
			return nil, nil, fmt.Errorf("telegram notifier: %w", err)
		}
		opts = append(opts, service.WithNotifier(tg))
		log.Info(ctx, "weekly digest enabled", logger.String("schedule", cfg.DigestSchedule))
	}

	return service.New(opts...), closers, nil
}

// openStore opens the configured store driver.
func openStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	switch cfg.StoreDriver {
	case config.DriverSQLite:
		st, err := sqlite.Open(ctx, cfg.SQLitePath, sqlite.WithInsightRetention(cfg.StoredInsightLimit))
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return st, nil
	default:
		return repository.NewMemoryStore(ctx, repository.WithInsightRetention(cfg.StoredInsightLimit)), nil
	}
}

// buildSummarizer returns a summarizer that is unavailable unless an OpenAI key
// is configured. Restatements are cached in Redis when redis_addr is set and
// reachable, in memory otherwise.
func buildSummarizer(ctx context.Context, cfg *config.Config, log logger.Logger) (*summary.Summarizer, io.Closer, error) {
	if !cfg.SummariesEnabled() {
		log.Info(ctx, "summaries disabled: no openai_api_key")
		return summary.New(summary.WithLogger(log.Named("summary"))), nil, nil
	}

	completer, err := llm.NewOpenAI(cfg.OpenAIAPIKey,
		llm.WithModel(cfg.OpenAIModel),
		llm.WithBaseURL(cfg.OpenAIBaseURL),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("openai completer: %w", err)
	}

	var (
		store  summary.Cache = cache.NewMemory()
		closer io.Closer
	)
	if cfg.RedisAddr != "" {
		rc, err := cache.NewRedis(ctx, cfg.RedisAddr)
		if err != nil {
			log.Warn(ctx, "redis unavailable; caching summaries in memory",
				logger.String("redis_addr", cfg.RedisAddr),
				logger.Error(err),
			)
		} else {
			store, closer = rc, rc
		}
	}

	log.Info(ctx, "summaries enabled", logger.String("model", cfg.OpenAIModel))
	return summary.New(
		summary.WithCompleter(completer),
		summary.WithCache(store, cfg.SummaryCacheTTL()),
		summary.WithTimeout(cfg.SummaryTimeout()),
		summary.WithLogger(log.Named("summary")),
	), closer, nil
}

// newMux registers the API and docs routes.
func newMux(ctx context.Context, cfg *config.Config, svc *service.Service) *http.ServeMux {
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(svc, api.WithMaxBodyBytes(cfg.MaxBodyBytes)).Register(ctx, mux)
	return mux
}

func closeAll(ctx context.Context, log logger.Logger, closers []io.Closer) {
	for _, c := range closers {
		if err := c.Close(); err != nil {
			log.Warn(ctx, "close failed", logger.Error(err))
		}
	}
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// startServiceMetricsUpdater starts a background goroutine that updates service metrics.
func startServiceMetricsUpdater(ctx context.Context, svc *service.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// GetStats refreshes the queue, worker and athlete gauges.
			_ = svc.GetStats(ctx)
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}
