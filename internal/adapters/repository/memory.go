package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/okian/pulselog/internal/domain/model"
	"github.com/okian/pulselog/pkg/metrics"
)

// athleteData is everything stored for one athlete.
type athleteData struct {
	logs     map[string]model.DailyLog // keyed by YYYY-MM-DD
	profile  *model.AthleteProfile
	meets    []model.Meet
	insights []model.StoredInsight // append order
}

// MemoryStore is a mutex-guarded, process-local Store.
type MemoryStore struct {
	mu       sync.RWMutex
	athletes map[string]*athleteData
	now      func() time.Time
	closed   atomic.Bool

	insightRetention int

	metricsUpdateInterval time.Duration
	wg                    sync.WaitGroup
	stopChan              chan struct{}
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore constructs an in-memory store and starts its metrics updater.
func NewMemoryStore(ctx context.Context, opts ...Option) *MemoryStore {
	s := &MemoryStore{
		athletes:              make(map[string]*athleteData),
		now:                   time.Now,
		insightRetention:      DefaultInsightRetention,
		metricsUpdateInterval: 5 * time.Second,
		stopChan:              make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.startMetricsUpdater(ctx)
	return s
}

func (s *MemoryStore) startMetricsUpdater(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.metricsUpdateInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				s.mu.RLock()
				n := len(s.athletes)
				s.mu.RUnlock()
				metrics.UpdateAthletesTotal(n)
			}
		}
	}()
}

// Close stops the metrics updater. Later calls fail with ErrStoreClosed.
func (s *MemoryStore) Close() error {
	if s.closed.CompareAndSwap(false, true) {
		close(s.stopChan)
	}
	s.wg.Wait()
	return nil
}

func (s *MemoryStore) check(ctx context.Context, athleteID string) error {
	if s.closed.Load() {
		return ErrStoreClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if athleteID == "" {
		return ErrMissingAthlete
	}
	return nil
}

// athlete returns the record for id, creating it. Caller holds s.mu.
func (s *MemoryStore) athlete(id string) *athleteData {
	a, ok := s.athletes[id]
	if !ok {
		a = &athleteData{logs: make(map[string]model.DailyLog)}
		s.athletes[id] = a
	}
	return a
}

func observe(op string, start time.Time) {
	metrics.RecordStoreLatency(op, float64(time.Since(start).Microseconds())/1000)
}

// UpsertLog implements Store.UpsertLog.
func (s *MemoryStore) UpsertLog(ctx context.Context, log model.DailyLog) (model.DailyLog, error) {
	defer observe("upsert_log", time.Now())
	if err := s.check(ctx, log.AthleteID); err != nil {
		return model.DailyLog{}, err
	}
	log = CloneLog(log)
	log.Date = model.Day(log.Date)
	key := model.FormatDate(log.Date)
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.athlete(log.AthleteID)
	if prev, ok := a.logs[key]; ok {
		log.ID, log.CreatedAt = prev.ID, prev.CreatedAt
	} else {
		log.ID, log.CreatedAt = uuid.NewString(), now
	}
	log.UpdatedAt = now
	a.logs[key] = log
	return CloneLog(log), nil
}

// RecentLogs implements Store.RecentLogs.
func (s *MemoryStore) RecentLogs(ctx context.Context, athleteID string, limit int) ([]model.DailyLog, error) {
	defer observe("recent_logs", time.Now())
	if err := s.check(ctx, athleteID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, limit)
	}
	out := s.logsWhere(athleteID, func(model.DailyLog) bool { return true })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// LogsSince implements Store.LogsSince.
func (s *MemoryStore) LogsSince(ctx context.Context, athleteID string, since time.Time) ([]model.DailyLog, error) {
	defer observe("logs_since", time.Now())
	if err := s.check(ctx, athleteID); err != nil {
		return nil, err
	}
	from := model.Day(since)
	return s.logsWhere(athleteID, func(l model.DailyLog) bool { return !l.Date.Before(from) }), nil
}

func (s *MemoryStore) logsWhere(athleteID string, keep func(model.DailyLog) bool) []model.DailyLog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []model.DailyLog{}
	a, ok := s.athletes[athleteID]
	if !ok {
		return out
	}
	for _, l := range a.logs {
		if keep(l) {
			out = append(out, CloneLog(l))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out
}

// UpsertProfile implements Store.UpsertProfile.
func (s *MemoryStore) UpsertProfile(ctx context.Context, p model.AthleteProfile) (model.AthleteProfile, error) {
	defer observe("upsert_profile", time.Now())
	if err := s.check(ctx, p.AthleteID); err != nil {
		return model.AthleteProfile{}, err
	}
	p = CloneProfile(p)
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.athlete(p.AthleteID)
	if a.profile != nil {
		p.CreatedAt = a.profile.CreatedAt
	} else {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	a.profile = &p
	return CloneProfile(p), nil
}

// Profile implements Store.Profile.
func (s *MemoryStore) Profile(ctx context.Context, athleteID string) (model.AthleteProfile, error) {
	defer observe("profile", time.Now())
	if err := s.check(ctx, athleteID); err != nil {
		return model.AthleteProfile{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.athletes[athleteID]
	if !ok || a.profile == nil {
		metrics.RecordErrorByComponent("repository", "not_found")
		return model.AthleteProfile{}, fmt.Errorf("profile %s: %w", athleteID, ErrNotFound)
	}
	return CloneProfile(*a.profile), nil
}

// AddMeet implements Store.AddMeet.
func (s *MemoryStore) AddMeet(ctx context.Context, m model.Meet) (model.Meet, error) {
	defer observe("add_meet", time.Now())
	if err := s.check(ctx, m.AthleteID); err != nil {
		return model.Meet{}, err
	}
	m.ID = uuid.NewString()
	m.Date = model.Day(m.Date)
	m.CreatedAt = s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.athlete(m.AthleteID)
	a.meets = append(a.meets, m)
	return m, nil
}

// UpcomingMeets implements Store.UpcomingMeets.
func (s *MemoryStore) UpcomingMeets(ctx context.Context, athleteID string, from time.Time) ([]model.Meet, error) {
	defer observe("upcoming_meets", time.Now())
	if err := s.check(ctx, athleteID); err != nil {
		return nil, err
	}
	day := model.Day(from)
	out := []model.Meet{}

	s.mu.RLock()
	if a, ok := s.athletes[athleteID]; ok {
		for _, m := range a.meets {
			if !m.Date.Before(day) {
				out = append(out, m)
			}
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// SaveInsights implements Store.SaveInsights.
func (s *MemoryStore) SaveInsights(ctx context.Context, athleteID string, insights []model.Insight) ([]model.StoredInsight, error) {
	defer observe("save_insights", time.Now())
	if err := s.check(ctx, athleteID); err != nil {
		return nil, err
	}
	now := s.now()
	out := make([]model.StoredInsight, len(insights))
	for i, ins := range insights {
		ins.CreatedAt = now
		out[i] = model.StoredInsight{ID: uuid.NewString(), AthleteID: athleteID, Insight: ins}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.athlete(athleteID)
	a.insights = append(a.insights, out...)
	if extra := len(a.insights) - s.insightRetention; extra > 0 {
		a.insights = append([]model.StoredInsight(nil), a.insights[extra:]...)
	}
	return out, nil
}

// StoredInsights implements Store.StoredInsights.
func (s *MemoryStore) StoredInsights(ctx context.Context, athleteID string, limit int) ([]model.StoredInsight, error) {
	defer observe("stored_insights", time.Now())
	if err := s.check(ctx, athleteID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, limit)
	}
	out := []model.StoredInsight{}

	s.mu.RLock()
	if a, ok := s.athletes[athleteID]; ok {
		for i := len(a.insights) - 1; i >= 0; i-- {
			out = append(out, a.insights[i])
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Athletes implements Store.Athletes.
func (s *MemoryStore) Athletes(ctx context.Context) ([]string, error) {
	if s.closed.Load() {
		return nil, ErrStoreClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	out := make([]string, 0, len(s.athletes))
	for id, a := range s.athletes {
		if a.profile != nil || len(a.logs) > 0 {
			out = append(out, id)
		}
	}
	s.mu.RUnlock()
	sort.Strings(out)
	return out, nil
}
