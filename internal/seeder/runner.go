package seeder

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/pulselog/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// File permission constants.
const (
	directoryPermission = 0750
	filePermission      = 0600
)

// Run seeds a running service and reads each athlete's dashboard back.
// Per-athlete failures are counted in Stats and do not stop the run.
func Run(ctx context.Context, cfg Config) (*Stats, error) {
	log := cfg.Logger
	if log == nil {
		log = logger.Get()
	}
	log = log.Named("seeder")
	stats := &Stats{
		StartTime: time.Now(),
		Readiness: make(map[string]int),
	}

	log.Info(ctx, "starting pulselog seeding run",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("athletes", cfg.Athletes),
		logger.Int("days", cfg.Days),
		logger.Int("workers", cfg.Workers),
		logger.Duration("timeout", cfg.Timeout),
	)

	c := newClient(cfg.BaseURL, cfg.Timeout)
	if err := c.health(ctx); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	plans := Generate(cfg, time.Now())
	if cfg.OutputFile != "" {
		if err := savePlans(cfg.OutputFile, plans); err != nil {
			log.Warn(ctx, "failed to save plans", logger.Error(err))
		}
	}

	var seeded, submitted, queued, deferred, meets, failures atomic.Int64
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, plan := range plans {
		g.Go(func() error {
			if err := seedAthlete(gctx, c, plan, &submitted, &queued, &deferred, &meets); err != nil {
				failures.Add(1)
				log.Warn(gctx, "athlete seeding failed",
					logger.String("athlete_id", plan.AthleteID),
					logger.Error(err),
				)
				return nil
			}
			seeded.Add(1)
			if cfg.Verbose {
				log.Info(gctx, "athlete seeded",
					logger.String("athlete_id", plan.AthleteID),
					logger.String("archetype", string(plan.Archetype)),
				)
			}
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return stats, fmt.Errorf("seeding interrupted: %w", err)
	}

	if cfg.Settle > 0 {
		log.Info(ctx, "waiting for refreshes to settle", logger.Duration("settle", cfg.Settle))
		select {
		case <-ctx.Done():
			return stats, fmt.Errorf("seeding interrupted: %w", ctx.Err())
		case <-time.After(cfg.Settle):
		}
	}

	var mu sync.Mutex
	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, plan := range plans {
		g.Go(func() error {
			d, err := c.dashboard(gctx, plan.AthleteID)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				stats.Failures++
				return nil
			}
			stats.Readiness[d.Readiness.String()]++
			return nil
		})
	}
	_ = g.Wait()

	stats.AthletesSeeded = int(seeded.Load())
	stats.LogsSubmitted = int(submitted.Load())
	stats.LogsQueued = int(queued.Load())
	stats.LogsDeferred = int(deferred.Load())
	stats.MeetsScheduled = int(meets.Load())
	stats.Failures += int(failures.Load())
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	displayFinalStats(ctx, log, stats)
	return stats, nil
}

// seedAthlete submits one plan. Logs go oldest first so each refresh sees
// the history leading up to it.
func seedAthlete(ctx context.Context, c *client, plan Plan, submitted, queued, deferred, meets *atomic.Int64) error {
	if err := c.putProfile(ctx, plan.AthleteID, plan.Profile); err != nil {
		return fmt.Errorf("profile: %w", err)
	}
	for _, m := range plan.Meets {
		if err := c.postMeet(ctx, plan.AthleteID, m); err != nil {
			return fmt.Errorf("meet %s: %w", m.Date, err)
		}
		meets.Add(1)
	}
	for _, l := range plan.Logs {
		ok, err := c.postLog(ctx, plan.AthleteID, l)
		if err != nil {
			return fmt.Errorf("log %s: %w", l.Date, err)
		}
		submitted.Add(1)
		if ok {
			queued.Add(1)
		} else {
			deferred.Add(1)
		}
	}
	return nil
}

// savePlans writes the generated plans to filename as JSON.
func savePlans(filename string, plans []Plan) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(plans, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal plans: %w", err)
	}
	if err := os.WriteFile(filename, data, filePermission); err != nil {
		return fmt.Errorf("failed to write plans: %w", err)
	}
	return nil
}

func displayFinalStats(ctx context.Context, log logger.Logger, stats *Stats) {
	var logsPerSecond float64
	if stats.Duration > 0 {
		logsPerSecond = float64(stats.LogsSubmitted) / stats.Duration.Seconds()
	}
	log.Info(ctx, "final statistics",
		logger.Int("athletesSeeded", stats.AthletesSeeded),
		logger.Int("logsSubmitted", stats.LogsSubmitted),
		logger.Int("logsQueued", stats.LogsQueued),
		logger.Int("logsDeferred", stats.LogsDeferred),
		logger.Int("meetsScheduled", stats.MeetsScheduled),
		logger.Int("failures", stats.Failures),
		logger.Int("red", stats.Readiness["red"]),
		logger.Int("yellow", stats.Readiness["yellow"]),
		logger.Int("green", stats.Readiness["green"]),
		logger.Duration("duration", stats.Duration),
		logger.Float64("logsPerSecond", logsPerSecond),
	)
}
