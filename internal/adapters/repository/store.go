// Package repository defines the training data store and its in-memory implementation.
package repository

import (
	"context"
	"time"

	"github.com/okian/pulselog/internal/domain/model"
)

// DefaultInsightRetention is how many stored insights a store keeps per athlete.
const DefaultInsightRetention = 50

// Store persists athlete data and insight snapshots. The engine never
// touches it: callers load a snapshot, evaluate, and optionally save.
type Store interface {
	// UpsertLog stores log, replacing any log for the same athlete and date.
	// The returned log carries the assigned ID and timestamps.
	UpsertLog(ctx context.Context, log model.DailyLog) (model.DailyLog, error)
	// RecentLogs returns up to limit logs ordered by date, newest first.
	RecentLogs(ctx context.Context, athleteID string, limit int) ([]model.DailyLog, error)
	// LogsSince returns logs dated on or after since, newest first.
	LogsSince(ctx context.Context, athleteID string, since time.Time) ([]model.DailyLog, error)

	UpsertProfile(ctx context.Context, p model.AthleteProfile) (model.AthleteProfile, error)
	// Profile returns ErrNotFound when the athlete has not onboarded.
	Profile(ctx context.Context, athleteID string) (model.AthleteProfile, error)

	AddMeet(ctx context.Context, m model.Meet) (model.Meet, error)
	// UpcomingMeets returns meets dated on or after from, soonest first.
	UpcomingMeets(ctx context.Context, athleteID string, from time.Time) ([]model.Meet, error)

	// SaveInsights assigns identity to an evaluation's insights and stores them.
	// Only the newest DefaultInsightRetention (or the configured retention)
	// insights per athlete are kept.
	SaveInsights(ctx context.Context, athleteID string, insights []model.Insight) ([]model.StoredInsight, error)
	// StoredInsights returns up to limit stored insights, newest first.
	StoredInsights(ctx context.Context, athleteID string, limit int) ([]model.StoredInsight, error)

	// Athletes lists every athlete with a profile or at least one log.
	Athletes(ctx context.Context) ([]string, error)

	Close() error
}

// CloneLog copies l so that callers cannot alias stored pointer fields.
func CloneLog(l model.DailyLog) model.DailyLog {
	l.Distance = clonePtr(l.Distance)
	l.AvgPace = clonePtr(l.AvgPace)
	l.RPE = clonePtr(l.RPE)
	l.SleepHours = clonePtr(l.SleepHours)
	l.Soreness = clonePtr(l.Soreness)
	l.Mood = clonePtr(l.Mood)
	return l
}

// CloneProfile copies p including its race times.
func CloneProfile(p model.AthleteProfile) model.AthleteProfile {
	if p.RaceTimes != nil {
		rt := make(map[string]string, len(p.RaceTimes))
		for k, v := range p.RaceTimes {
			rt[k] = v
		}
		p.RaceTimes = rt
	}
	p.WeeklyMileage = clonePtr(p.WeeklyMileage)
	return p
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
