package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/okian/pulselog/internal/adapters/repository"
	"github.com/okian/pulselog/internal/domain/catalog"
	"github.com/okian/pulselog/internal/domain/model"
	"github.com/okian/pulselog/internal/domain/pace"
	"github.com/okian/pulselog/internal/domain/types"
	"github.com/okian/pulselog/pkg/logger"
	"github.com/okian/pulselog/pkg/metrics"
)

// Accepted ranges for self-reported values.
const (
	minRPE      = 1
	maxRPE      = 10
	maxSleep    = 24
	maxSoreness = 10
	minMood     = 1
	maxMood     = 5
	maxNotes    = 2000
)

var experienceLevels = map[string]bool{
	"high_school":     true,
	"college":         true,
	"post_collegiate": true,
}

// LogSession records the athlete's log for a day, replacing any earlier log
// for the same date, and queues an insight refresh.
func (s *Service) LogSession(ctx context.Context, athleteID string, req types.LogRequest) (types.LogReceipt, error) {
	store, err := s.backend()
	if err != nil {
		return types.LogReceipt{}, err
	}
	log, err := s.buildLog(athleteID, req)
	if err != nil {
		return types.LogReceipt{}, err
	}

	stored, err := store.UpsertLog(ctx, log)
	if err != nil {
		return types.LogReceipt{}, fmt.Errorf("record log: %w", err)
	}
	metrics.RecordLogRecorded()
	s.logger.Debug(ctx, "log recorded",
		logger.String("athlete_id", athleteID),
		logger.String("date", model.FormatDate(stored.Date)),
		logger.String("session_type", string(stored.SessionType)),
	)

	return types.LogReceipt{
		Log:           stored,
		RefreshQueued: s.requestRefresh(ctx, athleteID),
	}, nil
}

func (s *Service) buildLog(athleteID string, req types.LogRequest) (model.DailyLog, error) {
	if strings.TrimSpace(athleteID) == "" {
		return model.DailyLog{}, fmt.Errorf("%w: %w", ErrInvalidLog, ErrMissingAthlete)
	}
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalidLog, fmt.Sprintf(format, args...))
	}

	today := model.Day(s.clock())
	date := today
	if strings.TrimSpace(req.Date) != "" {
		d, err := model.ParseDate(req.Date)
		if err != nil {
			return model.DailyLog{}, invalid("%v", err)
		}
		if d.After(today) {
			return model.DailyLog{}, invalid("date %s is in the future", req.Date)
		}
		date = d
	}

	st, err := model.ParseSessionType(req.SessionType)
	if err != nil {
		return model.DailyLog{}, invalid("%v", err)
	}
	if req.Distance != nil && *req.Distance < 0 {
		return model.DailyLog{}, invalid("distance must not be negative")
	}
	if req.RPE != nil && (*req.RPE < minRPE || *req.RPE > maxRPE) {
		return model.DailyLog{}, invalid("rpe must be between %d and %d", minRPE, maxRPE)
	}
	if req.SleepHours != nil && (*req.SleepHours < 0 || *req.SleepHours > maxSleep) {
		return model.DailyLog{}, invalid("sleep_hours must be between 0 and %d", maxSleep)
	}
	if req.Soreness != nil && (*req.Soreness < 0 || *req.Soreness > maxSoreness) {
		return model.DailyLog{}, invalid("soreness must be between 0 and %d", maxSoreness)
	}
	if req.Mood != nil && (*req.Mood < minMood || *req.Mood > maxMood) {
		return model.DailyLog{}, invalid("mood must be between %d and %d", minMood, maxMood)
	}

	var avgPace *string
	if req.AvgPace != nil && strings.TrimSpace(*req.AvgPace) != "" {
		p := strings.TrimSpace(*req.AvgPace)
		if _, ok := pace.ParsePace(p); !ok {
			return model.DailyLog{}, invalid("avg_pace %q must be M:SS", p)
		}
		avgPace = &p
	}
	notes := strings.TrimSpace(req.Notes)
	if len(notes) > maxNotes {
		return model.DailyLog{}, invalid("notes longer than %d bytes", maxNotes)
	}

	return model.DailyLog{
		AthleteID:   athleteID,
		Date:        date,
		SessionType: st,
		Distance:    req.Distance,
		AvgPace:     avgPace,
		RPE:         req.RPE,
		SleepHours:  req.SleepHours,
		Soreness:    req.Soreness,
		Mood:        req.Mood,
		Notes:       notes,
	}, nil
}

// RecentLogs returns up to limit of the athlete's logs, newest first.
// A non-positive limit uses the feed's default.
func (s *Service) RecentLogs(ctx context.Context, athleteID string, limit int) ([]model.DailyLog, error) {
	store, err := s.backend()
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = s.recentLimit
	}
	return store.RecentLogs(ctx, athleteID, limit)
}

// UpsertProfile validates and stores an athlete's onboarding profile.
func (s *Service) UpsertProfile(ctx context.Context, athleteID string, req types.ProfileRequest) (model.AthleteProfile, error) {
	store, err := s.backend()
	if err != nil {
		return model.AthleteProfile{}, err
	}
	p, err := buildProfile(athleteID, req)
	if err != nil {
		return model.AthleteProfile{}, err
	}
	stored, err := store.UpsertProfile(ctx, p)
	if err != nil {
		return model.AthleteProfile{}, fmt.Errorf("store profile: %w", err)
	}
	return stored, nil
}

func buildProfile(athleteID string, req types.ProfileRequest) (model.AthleteProfile, error) {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalidProfile, fmt.Sprintf(format, args...))
	}
	if strings.TrimSpace(athleteID) == "" {
		return model.AthleteProfile{}, fmt.Errorf("%w: %w", ErrInvalidProfile, ErrMissingAthlete)
	}

	event := strings.TrimSpace(req.PrimaryEvent)
	if event != "" {
		if _, ok := catalog.Lookup(event); !ok {
			return model.AthleteProfile{}, invalid("unknown primary_event %q", event)
		}
	}
	raceTimes := make(map[string]string, len(req.RaceTimes))
	for code, result := range req.RaceTimes {
		result = strings.TrimSpace(result)
		if result == "" {
			continue
		}
		if err := catalog.ValidateResult(code, result); err != nil {
			return model.AthleteProfile{}, invalid("race_times: %v", err)
		}
		raceTimes[code] = result
	}
	if req.WeeklyMileage != nil && *req.WeeklyMileage < 0 {
		return model.AthleteProfile{}, invalid("weekly_mileage must not be negative")
	}
	level := strings.TrimSpace(req.ExperienceLevel)
	if level != "" && !experienceLevels[level] {
		return model.AthleteProfile{}, invalid("unknown experience_level %q", level)
	}
	sport := strings.TrimSpace(req.PrimarySport)
	if sport == "" {
		sport = "track"
	}

	return model.AthleteProfile{
		AthleteID:       athleteID,
		PrimarySport:    sport,
		PrimaryEvent:    event,
		RaceTimes:       raceTimes,
		WeeklyMileage:   req.WeeklyMileage,
		ExperienceLevel: level,
		Goals:           strings.TrimSpace(req.Goals),
	}, nil
}

// Profile returns the athlete's profile or repository.ErrNotFound.
func (s *Service) Profile(ctx context.Context, athleteID string) (model.AthleteProfile, error) {
	store, err := s.backend()
	if err != nil {
		return model.AthleteProfile{}, err
	}
	return store.Profile(ctx, athleteID)
}

// AddMeet schedules a competition.
func (s *Service) AddMeet(ctx context.Context, athleteID string, req types.MeetRequest) (model.Meet, error) {
	store, err := s.backend()
	if err != nil {
		return model.Meet{}, err
	}
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalidMeet, fmt.Sprintf(format, args...))
	}
	if strings.TrimSpace(athleteID) == "" {
		return model.Meet{}, fmt.Errorf("%w: %w", ErrInvalidMeet, ErrMissingAthlete)
	}
	date, err := model.ParseDate(req.Date)
	if err != nil {
		return model.Meet{}, invalid("%v", err)
	}
	event := strings.TrimSpace(req.Event)
	if event == "" {
		return model.Meet{}, invalid("event is required")
	}
	priority, err := model.ParseMeetPriority(req.Priority)
	if err != nil {
		return model.Meet{}, invalid("%v", err)
	}

	m, err := store.AddMeet(ctx, model.Meet{
		AthleteID: athleteID,
		Date:      date,
		Event:     event,
		Priority:  priority,
	})
	if err != nil {
		return model.Meet{}, fmt.Errorf("store meet: %w", err)
	}
	return m, nil
}

// UpcomingMeets lists meets from today onwards, soonest first.
func (s *Service) UpcomingMeets(ctx context.Context, athleteID string) ([]model.Meet, error) {
	store, err := s.backend()
	if err != nil {
		return nil, err
	}
	return store.UpcomingMeets(ctx, athleteID, s.clock())
}

// profileOrNil loads the profile, treating a missing one as nil.
func profileOrNil(ctx context.Context, store repository.Store, athleteID string) (*model.AthleteProfile, error) {
	p, err := store.Profile(ctx, athleteID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	return &p, nil
}
