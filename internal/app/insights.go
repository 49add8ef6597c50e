package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/pulselog/internal/domain/insight"
	"github.com/okian/pulselog/internal/domain/model"
	"github.com/okian/pulselog/internal/domain/summary"
	"github.com/okian/pulselog/internal/domain/types"
	"github.com/okian/pulselog/pkg/logger"
	"github.com/okian/pulselog/pkg/metrics"
)

// weeklyLookbackDays is how far back the weekly summary reads logs.
const weeklyLookbackDays = 7

// snapshot is one evaluation: the inputs read and the insights produced.
type snapshot struct {
	now      time.Time
	logs     []model.DailyLog
	meets    []model.Meet
	insights []model.Insight
}

// load reads the evaluation inputs for an athlete. logs are supplied by the caller.
func (s *Service) load(ctx context.Context, athleteID string, logs []model.DailyLog) (insight.Input, []model.Meet, error) {
	store, err := s.backend()
	if err != nil {
		return insight.Input{}, nil, err
	}
	profile, err := profileOrNil(ctx, store, athleteID)
	if err != nil {
		return insight.Input{}, nil, err
	}
	meets, err := store.UpcomingMeets(ctx, athleteID, s.clock())
	if err != nil {
		return insight.Input{}, nil, fmt.Errorf("load meets: %w", err)
	}
	return insight.Input{Logs: logs, Profile: profile, Meets: meets}, meets, nil
}

// run evaluates in at one instant and records evaluation metrics.
func (s *Service) run(in insight.Input, now time.Time, source string) []model.Insight {
	start := time.Now()
	out := insight.Generate(in, now)
	metrics.RecordEvaluation(source, float64(time.Since(start).Microseconds())/1000)
	for _, ins := range out {
		metrics.RecordInsight(string(ins.Type), ins.Severity.String())
	}
	metrics.RecordReadiness(insight.Readiness(out).String())
	return out
}

// evaluate runs the engine over the athlete's limit most recent logs.
func (s *Service) evaluate(ctx context.Context, athleteID string, limit int, source string) (snapshot, error) {
	store, err := s.backend()
	if err != nil {
		return snapshot{}, err
	}
	logs, err := store.RecentLogs(ctx, athleteID, limit)
	if err != nil {
		return snapshot{}, fmt.Errorf("load logs: %w", err)
	}
	in, meets, err := s.load(ctx, athleteID, logs)
	if err != nil {
		return snapshot{}, err
	}
	now := s.clock()
	return snapshot{now: now, logs: logs, meets: meets, insights: s.run(in, now, source)}, nil
}

// Evaluate returns the insights for the athlete's recent history, most urgent first.
func (s *Service) Evaluate(ctx context.Context, athleteID string) ([]model.Insight, error) {
	snap, err := s.evaluate(ctx, athleteID, s.recentLimit, "evaluate")
	if err != nil {
		return nil, err
	}
	return snap.insights, nil
}

// Dashboard returns the priority insight and readiness over the last two weeks of logs.
func (s *Service) Dashboard(ctx context.Context, athleteID string) (types.Dashboard, error) {
	snap, err := s.evaluate(ctx, athleteID, s.dashboardLimit, "dashboard")
	if err != nil {
		return types.Dashboard{}, err
	}
	d := types.Dashboard{
		AthleteID:      athleteID,
		Readiness:      insight.Readiness(snap.insights),
		Insights:       snap.insights,
		LogsConsidered: len(snap.logs),
	}
	if p, ok := insight.Priority(snap.insights); ok {
		d.Priority = &p
	}
	if len(snap.logs) > 0 && model.DaysBetween(snap.logs[0].Date, snap.now) == 0 {
		d.HasLoggedToday = true
	}
	return d, nil
}

// Feed merges a fresh evaluation with stored snapshots and groups the result by severity.
func (s *Service) Feed(ctx context.Context, athleteID string) (types.Feed, error) {
	snap, err := s.evaluate(ctx, athleteID, s.recentLimit, "feed")
	if err != nil {
		return types.Feed{}, err
	}
	store, err := s.backend()
	if err != nil {
		return types.Feed{}, err
	}
	stored, err := store.StoredInsights(ctx, athleteID, s.storedLimit)
	if err != nil {
		return types.Feed{}, fmt.Errorf("load stored insights: %w", err)
	}
	merged := insight.Merge(athleteID, snap.insights, stored)
	return types.Feed{
		AthleteID: athleteID,
		Insights:  merged,
		Groups:    insight.GroupBySeverity(merged),
	}, nil
}

// WeeklySummary evaluates the past week and restates it when a summarizer is
// configured. The summary is nil whenever restatement is unavailable or fails.
func (s *Service) WeeklySummary(ctx context.Context, athleteID string) (types.WeeklySummary, error) {
	store, err := s.backend()
	if err != nil {
		return types.WeeklySummary{}, err
	}
	now := s.clock()
	logs, err := store.LogsSince(ctx, athleteID, model.Day(now).AddDate(0, 0, -weeklyLookbackDays))
	if err != nil {
		return types.WeeklySummary{}, fmt.Errorf("load logs: %w", err)
	}
	in, meets, err := s.load(ctx, athleteID, logs)
	if err != nil {
		return types.WeeklySummary{}, err
	}
	insights := s.run(in, now, "weekly")

	out := types.WeeklySummary{
		AthleteID:     athleteID,
		Available:     s.summarizer.Available(),
		Insights:      insights,
		LogsThisWeek:  len(logs),
		UpcomingMeets: meets,
	}

	start := time.Now()
	res, err := s.summarizer.Weekly(ctx, insights)
	elapsed := float64(time.Since(start).Milliseconds())
	switch {
	case err == nil:
		outcome := "generated"
		if res.Cached {
			outcome = "cached"
		}
		metrics.RecordSummaryOutcome("weekly", outcome, elapsed)
		out.Summary = &res.Text
	case errors.Is(err, summary.ErrSummaryUnavailable):
		metrics.RecordSummaryOutcome("weekly", "unavailable", elapsed)
	case errors.Is(err, summary.ErrNoInsights):
		metrics.RecordSummaryOutcome("weekly", "empty", elapsed)
	case errors.Is(err, summary.ErrRejected):
		metrics.RecordSummaryOutcome("weekly", "rejected", elapsed)
		s.logger.Warn(ctx, "weekly summary rejected", logger.String("athlete_id", athleteID), logger.Error(err))
	default:
		metrics.RecordSummaryOutcome("weekly", "fallback", elapsed)
		s.logger.Warn(ctx, "weekly summary failed", logger.String("athlete_id", athleteID), logger.Error(err))
	}
	return out, nil
}

// Explain returns the dashboard insights with clearer wording where the
// summarizer can provide it. Each explanation falls back to the original.
func (s *Service) Explain(ctx context.Context, athleteID string) ([]types.Enhanced, error) {
	snap, err := s.evaluate(ctx, athleteID, s.dashboardLimit, "explain")
	if err != nil {
		return nil, err
	}
	dc := summary.DataContext{LogsCount: len(snap.logs)}
	if n := len(snap.logs); n > 0 {
		dc.DaysOfData = model.DaysBetween(snap.logs[n-1].Date, snap.logs[0].Date) + 1
	}

	out := make([]types.Enhanced, 0, len(snap.insights))
	for _, ins := range snap.insights {
		start := time.Now()
		text, reworded := s.summarizer.Enhance(ctx, ins, dc)
		outcome := "original"
		if reworded {
			outcome = "enhanced"
		}
		metrics.RecordSummaryOutcome("enhance", outcome, float64(time.Since(start).Milliseconds()))
		out = append(out, types.Enhanced{Insight: ins, Enhanced: text})
	}
	return out, nil
}
