// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"strings"
	"time"
)

// SessionType classifies a training session.
type SessionType string

// Session types accepted in a daily log.
const (
	SessionEasy    SessionType = "easy"
	SessionWorkout SessionType = "workout"
	SessionLong    SessionType = "long"
	SessionRace    SessionType = "race"
)

// ParseSessionType validates s against the known session types.
func ParseSessionType(s string) (SessionType, error) {
	switch st := SessionType(strings.ToLower(strings.TrimSpace(s))); st {
	case SessionEasy, SessionWorkout, SessionLong, SessionRace:
		return st, nil
	default:
		return "", fmt.Errorf("unknown session type %q", s)
	}
}

// IsHard reports whether the session is a workout or a race.
func (t SessionType) IsHard() bool {
	return t == SessionWorkout || t == SessionRace
}

// MeetPriority ranks a competition: A is the target race of the season.
type MeetPriority string

// Meet priorities.
const (
	PriorityA MeetPriority = "A"
	PriorityB MeetPriority = "B"
	PriorityC MeetPriority = "C"
)

// ParseMeetPriority validates s as a meet priority; empty defaults to C.
func ParseMeetPriority(s string) (MeetPriority, error) {
	switch p := MeetPriority(strings.ToUpper(strings.TrimSpace(s))); p {
	case "":
		return PriorityC, nil
	case PriorityA, PriorityB, PriorityC:
		return p, nil
	default:
		return "", fmt.Errorf("unknown meet priority %q", s)
	}
}

// DailyLog is one athlete's training entry for a calendar date.
// Nil pointers mean the athlete did not record the value.
type DailyLog struct {
	ID          string      `json:"id"`
	AthleteID   string      `json:"athlete_id"`
	Date        time.Time   `json:"date"`
	SessionType SessionType `json:"session_type"`
	Distance    *float64    `json:"distance"`
	AvgPace     *string     `json:"avg_pace"`
	RPE         *int        `json:"rpe"`
	SleepHours  *float64    `json:"sleep_hours"`
	Soreness    *int        `json:"soreness"`
	Mood        *int        `json:"mood"`
	Notes       string      `json:"notes,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// AthleteProfile holds onboarding data. RaceTimes maps event codes to best times.
type AthleteProfile struct {
	AthleteID       string            `json:"athlete_id"`
	PrimarySport    string            `json:"primary_sport"`
	PrimaryEvent    string            `json:"primary_event,omitempty"`
	RaceTimes       map[string]string `json:"race_times"`
	WeeklyMileage   *float64          `json:"weekly_mileage"`
	ExperienceLevel string            `json:"experience_level,omitempty"`
	Goals           string            `json:"goals,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// Meet is a scheduled competition.
type Meet struct {
	ID        string       `json:"id"`
	AthleteID string       `json:"athlete_id"`
	Date      time.Time    `json:"date"`
	Event     string       `json:"event"`
	Priority  MeetPriority `json:"priority"`
	CreatedAt time.Time    `json:"created_at"`
}

// RefreshJob asks the worker pool to re-evaluate an athlete's insights.
type RefreshJob struct {
	AthleteID   string
	RequestedAt time.Time
}
