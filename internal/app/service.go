// Package service wires the insight engine to storage, the refresh queue and
// the optional restatement and notification collaborators. It implements the
// dependencies required by the HTTP API.
package service

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	eventqueue "github.com/okian/pulselog/internal/adapters/mq/queue"
	workerpool "github.com/okian/pulselog/internal/adapters/mq/worker"
	"github.com/okian/pulselog/internal/adapters/notify"
	"github.com/okian/pulselog/internal/adapters/repository"
	"github.com/okian/pulselog/internal/domain/dedupe"
	"github.com/okian/pulselog/internal/domain/summary"
	"github.com/okian/pulselog/pkg/logger"
	"github.com/okian/pulselog/pkg/metrics"
	"github.com/robfig/cron/v3"
)

// Defaults.
const (
	defaultQueueSize      = 1024
	defaultDedupeSize     = 50000
	defaultRecentLimit    = 30
	defaultDashboardLimit = 14
	defaultStoredLimit    = 50
	defaultDigestSchedule = "0 18 * * 0"
)

// Service implements the API dependencies for the training insight system.
type Service struct {
	mu sync.RWMutex

	// Core components
	store      repository.Store
	deduper    dedupe.Deduper
	queue      *eventqueue.InMemoryQueue
	pool       *workerpool.Pool
	summarizer *summary.Summarizer
	notifier   notify.Notifier
	scheduler  *cron.Cron

	// Configuration
	workerCount    int
	queueSize      int
	dedupeSize     int
	recentLimit    int
	dashboardLimit int
	storedLimit    int
	digestSchedule string
	location       *time.Location
	now            func() time.Time

	// State
	started     bool
	stopping    bool
	ownsStore   bool
	storeClosed bool
	cancel   context.CancelFunc

	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:    runtime.NumCPU(),
		queueSize:      defaultQueueSize,
		dedupeSize:     defaultDedupeSize,
		recentLimit:    defaultRecentLimit,
		dashboardLimit: defaultDashboardLimit,
		storedLimit:    defaultStoredLimit,
		digestSchedule: defaultDigestSchedule,
		location:       time.UTC,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes the store, the refresh pipeline and the digest scheduler.
// Calling Start on a started service does nothing.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.storeClosed {
		return ErrStoreClosed
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.logger.Info(ctx, "starting insight service...")

	// Background components outlive the start call; they stop on Stop.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	if s.store == nil {
		s.store = repository.NewMemoryStore(runCtx,
			repository.WithClock(s.now),
			repository.WithInsightRetention(s.storedLimit),
		)
		s.ownsStore = true
		s.logger.Info(ctx, "using in-memory store")
	}
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = eventqueue.NewInMemoryQueue(
		eventqueue.WithCapacity(s.queueSize),
		eventqueue.WithClock(s.now),
	)
	s.pool = workerpool.NewPool(s.workerCount, s.queue, workerpool.RefreshFunc(s.Refresh),
		workerpool.WithLogger(s.logger),
	)
	s.pool.Start(runCtx)

	if s.notifier != nil {
		sched, err := s.newScheduler()
		if err != nil {
			cancel()
			_ = s.pool.Shutdown(ctx)
			return err
		}
		s.scheduler = sched
		s.scheduler.Start()
	}

	s.cancel = cancel
	s.started = true
	s.logger.Info(ctx, "insight service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Bool("summaries", s.summarizer.Available()),
		logger.Bool("digest", s.scheduler != nil),
	)
	return nil
}

// Stop drains the refresh queue, stops the scheduler and closes the store.
// Queued refreshes still run against the store while draining.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started || s.stopping {
		s.mu.Unlock()
		return
	}
	s.stopping = true
	sched, pool := s.scheduler, s.pool
	s.mu.Unlock()

	ctx := context.Background()
	s.logger.Info(ctx, "stopping insight service...")

	if sched != nil {
		<-sched.Stop().Done()
	}
	if err := pool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "worker pool shutdown", logger.Error(err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancel()
	if err := s.store.Close(); err != nil {
		s.logger.Warn(ctx, "store close", logger.Error(err))
	}
	// A store the service created is rebuilt on the next Start; a supplied one cannot be.
	if s.ownsStore {
		s.store, s.ownsStore = nil, false
	} else {
		s.storeClosed = true
	}
	s.scheduler = nil
	s.started = false
	s.stopping = false
	s.logger.Info(ctx, "insight service stopped")
}

// backend returns the store once the service is running.
func (s *Service) backend() (repository.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.store, nil
}

// clock returns the current time in the service's location.
func (s *Service) clock() time.Time {
	return s.now().In(s.location)
}

// requestRefresh queues a re-evaluation of athleteID unless one is already
// pending. It reports whether a refresh is pending afterwards.
func (s *Service) requestRefresh(ctx context.Context, athleteID string) bool {
	s.mu.RLock()
	deduper, q := s.deduper, s.queue
	s.mu.RUnlock()

	if deduper.SeenAndRecord(ctx, athleteID) {
		metrics.RecordRefreshCoalesced()
		return true
	}
	if err := q.Enqueue(ctx, eventqueue.Job{AthleteID: athleteID, RequestedAt: s.now()}); err != nil {
		deduper.Unrecord(ctx, athleteID)
		s.logger.Warn(ctx, "refresh not queued",
			logger.String("athlete_id", athleteID),
			logger.Error(err),
		)
		return false
	}
	return true
}

// Refresh re-evaluates an athlete and stores the resulting insights. Workers
// call it for every queued job.
func (s *Service) Refresh(ctx context.Context, job eventqueue.Job) error {
	s.mu.RLock()
	deduper := s.deduper
	s.mu.RUnlock()
	// Released first so a log recorded during evaluation queues another pass.
	if deduper != nil {
		deduper.Unrecord(ctx, job.AthleteID)
	}

	store, err := s.backend()
	if err != nil {
		return err
	}
	snap, err := s.evaluate(ctx, job.AthleteID, s.recentLimit, "refresh")
	if err != nil {
		return err
	}
	if len(snap.insights) == 0 {
		return nil
	}
	if _, err := store.SaveInsights(ctx, job.AthleteID, snap.insights); err != nil {
		return fmt.Errorf("save insights: %w", err)
	}
	return nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":         s.started,
		"workerCount":     s.workerCount,
		"queueSize":       s.queueSize,
		"dedupeSize":      s.dedupeSize,
		"summaries":       s.summarizer.Available(),
		"digestScheduled": s.scheduler != nil,
	}

	if s.started {
		stats["queueLength"] = s.queue.Len()
		stats["pendingRefreshes"] = s.deduper.Size()
		if athletes, err := s.store.Athletes(ctx); err == nil {
			stats["athletes"] = len(athletes)
			metrics.UpdateAthletesTotal(len(athletes))
		}
		metrics.UpdateQueueSize(s.queue.Len())
		metrics.UpdateWorkerCount(s.pool.Size())
	}
	return stats
}
