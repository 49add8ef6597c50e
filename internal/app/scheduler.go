package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/okian/pulselog/internal/adapters/notify"
	"github.com/okian/pulselog/pkg/logger"
	"github.com/okian/pulselog/pkg/metrics"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"
)

const (
	digestConcurrency = 4
	digestTimeout     = 5 * time.Minute
)

// ErrNoNotifier is returned by SendDigests when no notifier is configured.
var ErrNoNotifier = errors.New("no digest notifier configured")

// ParseSchedule validates a standard five-field cron spec.
func ParseSchedule(spec string) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("invalid digest schedule %q: %w", spec, err)
	}
	return nil
}

func (s *Service) newScheduler() (*cron.Cron, error) {
	c := cron.New(cron.WithLocation(s.location))
	_, err := c.AddFunc(s.digestSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), digestTimeout)
		defer cancel()
		sent, err := s.SendDigests(ctx)
		if err != nil {
			s.logger.Error(ctx, "weekly digest incomplete", logger.Int("sent", sent), logger.Error(err))
			return
		}
		s.logger.Info(ctx, "weekly digest sent", logger.Int("sent", sent))
	})
	if err != nil {
		return nil, fmt.Errorf("schedule digest %q: %w", s.digestSchedule, err)
	}
	return c, nil
}

// SendDigests sends every athlete's weekly digest and returns how many were
// delivered. Failures for one athlete do not stop the others.
func (s *Service) SendDigests(ctx context.Context) (int, error) {
	if s.notifier == nil {
		return 0, ErrNoNotifier
	}
	store, err := s.backend()
	if err != nil {
		return 0, err
	}
	athletes, err := store.Athletes(ctx)
	if err != nil {
		return 0, fmt.Errorf("list athletes: %w", err)
	}

	var (
		mu   sync.Mutex
		sent int
		errs []error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(digestConcurrency)
	for _, id := range athletes {
		g.Go(func() error {
			err := s.sendDigest(gctx, id)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				metrics.RecordDigest("failed")
				errs = append(errs, err)
				return nil
			}
			metrics.RecordDigest("sent")
			sent++
			return nil
		})
	}
	_ = g.Wait()
	return sent, errors.Join(errs...)
}

func (s *Service) sendDigest(ctx context.Context, athleteID string) error {
	dash, err := s.Dashboard(ctx, athleteID)
	if err != nil {
		return fmt.Errorf("digest %s: %w", athleteID, err)
	}
	week, err := s.WeeklySummary(ctx, athleteID)
	if err != nil {
		return fmt.Errorf("digest %s: %w", athleteID, err)
	}
	return s.notifier.SendDigest(ctx, notify.Digest{
		AthleteID:     athleteID,
		WeekEnding:    s.clock(),
		Readiness:     dash.Readiness,
		Priority:      dash.Priority,
		Summary:       week.Summary,
		Insights:      week.Insights,
		UpcomingMeets: week.UpcomingMeets,
	})
}
