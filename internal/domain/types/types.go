// Package types contains the read models served to clients.
package types

import (
	"github.com/okian/pulselog/internal/domain/insight"
	"github.com/okian/pulselog/internal/domain/model"
)

// Dashboard is the at-a-glance readiness view.
type Dashboard struct {
	AthleteID      string          `json:"athlete_id"`
	Readiness      model.Severity  `json:"readiness"`
	Priority       *model.Insight  `json:"priority"`
	Insights       []model.Insight `json:"insights"`
	HasLoggedToday bool            `json:"has_logged_today"`
	LogsConsidered int             `json:"logs_considered"`
}

// Feed is the insights history: fresh and stored insights merged and grouped.
type Feed struct {
	AthleteID string                `json:"athlete_id"`
	Insights  []model.StoredInsight `json:"insights"`
	Groups    insight.Groups        `json:"groups"`
}

// WeeklySummary is the optional prose restatement of the week's insights.
// Summary is nil when no restatement is available; Insights always carries
// the facts it was built from.
type WeeklySummary struct {
	AthleteID     string          `json:"athlete_id"`
	Summary       *string         `json:"summary"`
	Available     bool            `json:"available"`
	Insights      []model.Insight `json:"insights"`
	LogsThisWeek  int             `json:"logs_this_week"`
	UpcomingMeets []model.Meet    `json:"upcoming_meets"`
}

// Enhanced is an insight paired with an optional reworded explanation.
type Enhanced struct {
	model.Insight
	Enhanced string `json:"enhanced_explanation"`
}

// LogRequest is a daily log as submitted. An empty Date means today.
type LogRequest struct {
	Date        string   `json:"date"`
	SessionType string   `json:"session_type"`
	Distance    *float64 `json:"distance"`
	AvgPace     *string  `json:"avg_pace"`
	RPE         *int     `json:"rpe"`
	SleepHours  *float64 `json:"sleep_hours"`
	Soreness    *int     `json:"soreness"`
	Mood        *int     `json:"mood"`
	Notes       string   `json:"notes"`
}

// LogReceipt is the stored log and whether an insight refresh was queued for it.
type LogReceipt struct {
	Log           model.DailyLog `json:"log"`
	RefreshQueued bool           `json:"refresh_queued"`
}

// ProfileRequest is an onboarding profile as submitted.
type ProfileRequest struct {
	PrimarySport    string            `json:"primary_sport"`
	PrimaryEvent    string            `json:"primary_event"`
	RaceTimes       map[string]string `json:"race_times"`
	WeeklyMileage   *float64          `json:"weekly_mileage"`
	ExperienceLevel string            `json:"experience_level"`
	Goals           string            `json:"goals"`
}

// MeetRequest schedules a competition.
type MeetRequest struct {
	Date     string `json:"date"`
	Event    string `json:"event"`
	Priority string `json:"priority"`
}
