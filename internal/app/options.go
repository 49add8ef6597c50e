package service

import (
	"time"

	"github.com/okian/pulselog/internal/adapters/notify"
	"github.com/okian/pulselog/internal/adapters/repository"
	"github.com/okian/pulselog/internal/domain/summary"
	"github.com/okian/pulselog/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of refresh workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the refresh queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize bounds the set of athletes with a pending refresh.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStore uses store instead of a fresh in-memory store. The service closes
// it on Stop, after which Start returns ErrStoreClosed.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithSummarizer enables prose restatement of insights.
func WithSummarizer(sum *summary.Summarizer) Option {
	return func(s *Service) {
		s.summarizer = sum
	}
}

// WithNotifier enables the weekly digest.
func WithNotifier(n notify.Notifier) Option {
	return func(s *Service) {
		s.notifier = n
	}
}

// WithDigestSchedule sets the cron spec of the weekly digest.
func WithDigestSchedule(spec string) Option {
	return func(s *Service) {
		if spec != "" {
			s.digestSchedule = spec
		}
	}
}

// WithLocation sets the time zone calendar days are counted in.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithClock overrides the evaluation clock.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogLimits sets how many recent logs the feed and the dashboard evaluate,
// and how many stored insights the feed merges.
func WithLogLimits(recent, dashboard, stored int) Option {
	return func(s *Service) {
		if recent > 0 {
			s.recentLimit = recent
		}
		if dashboard > 0 {
			s.dashboardLimit = dashboard
		}
		if stored > 0 {
			s.storedLimit = stored
		}
	}
}
