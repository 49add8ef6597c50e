// Package sqlite is a repository.Store on an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/okian/pulselog/internal/adapters/repository"
	"github.com/okian/pulselog/internal/adapters/repository/sqlite/migrations"
	"github.com/okian/pulselog/internal/domain/model"
	"github.com/okian/pulselog/pkg/metrics"
	_ "modernc.org/sqlite"
)

// Store provides SQLite-backed training data persistence.
type Store struct {
	sqlDB     *sql.DB
	now       func() time.Time
	retention int
}

var _ repository.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithInsightRetention caps the stored insights kept per athlete.
func WithInsightRetention(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.retention = n
		}
	}
}

// WithClock overrides the time source used for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// Open opens the database at path and applies migrations.
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := "file:" + filepath.Clean(path) +
		"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(ctx, sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	s := &Store{sqlDB: sqlDB, now: time.Now, retention: repository.DefaultInsightRetention}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close releases the SQLite connection.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) check(ctx context.Context, athleteID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return repository.ErrStoreClosed
	}
	if strings.TrimSpace(athleteID) == "" {
		return repository.ErrMissingAthlete
	}
	return nil
}

func observe(op string, start time.Time) {
	metrics.RecordStoreLatency(op, float64(time.Since(start).Microseconds())/1000)
}

func millis(t time.Time) int64 { return t.UTC().UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

// UpsertLog implements repository.Store.
func (s *Store) UpsertLog(ctx context.Context, log model.DailyLog) (model.DailyLog, error) {
	defer observe("upsert_log", time.Now())
	if err := s.check(ctx, log.AthleteID); err != nil {
		return model.DailyLog{}, err
	}
	log = repository.CloneLog(log)
	log.Date = model.Day(log.Date)
	now := millis(s.now())

	var createdAt int64
	err := s.sqlDB.QueryRowContext(ctx, `
INSERT INTO daily_logs (
	id, athlete_id, log_date, session_type, distance, avg_pace, rpe,
	sleep_hours, soreness, mood, notes, created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (athlete_id, log_date) DO UPDATE SET
	session_type = excluded.session_type,
	distance = excluded.distance,
	avg_pace = excluded.avg_pace,
	rpe = excluded.rpe,
	sleep_hours = excluded.sleep_hours,
	soreness = excluded.soreness,
	mood = excluded.mood,
	notes = excluded.notes,
	updated_at = excluded.updated_at
RETURNING id, created_at
`,
		uuid.NewString(), log.AthleteID, model.FormatDate(log.Date), string(log.SessionType),
		nullable(log.Distance), nullable(log.AvgPace), nullable(log.RPE),
		nullable(log.SleepHours), nullable(log.Soreness), nullable(log.Mood),
		log.Notes, now, now,
	).Scan(&log.ID, &createdAt)
	if err != nil {
		return model.DailyLog{}, fmt.Errorf("upsert log: %w", err)
	}
	log.CreatedAt, log.UpdatedAt = fromMillis(createdAt), fromMillis(now)
	return log, nil
}

const logColumns = `id, athlete_id, log_date, session_type, distance, avg_pace, rpe,
	sleep_hours, soreness, mood, notes, created_at, updated_at`

// RecentLogs implements repository.Store.
func (s *Store) RecentLogs(ctx context.Context, athleteID string, limit int) ([]model.DailyLog, error) {
	defer observe("recent_logs", time.Now())
	if err := s.check(ctx, athleteID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, fmt.Errorf("%w: %d", repository.ErrInvalidLimit, limit)
	}
	return s.queryLogs(ctx, `SELECT `+logColumns+` FROM daily_logs
WHERE athlete_id = ? ORDER BY log_date DESC LIMIT ?`, athleteID, limit)
}

// LogsSince implements repository.Store.
func (s *Store) LogsSince(ctx context.Context, athleteID string, since time.Time) ([]model.DailyLog, error) {
	defer observe("logs_since", time.Now())
	if err := s.check(ctx, athleteID); err != nil {
		return nil, err
	}
	return s.queryLogs(ctx, `SELECT `+logColumns+` FROM daily_logs
WHERE athlete_id = ? AND log_date >= ? ORDER BY log_date DESC`, athleteID, model.FormatDate(since))
}

func (s *Store) queryLogs(ctx context.Context, query string, args ...any) ([]model.DailyLog, error) {
	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query logs: %w", err)
	}
	defer rows.Close()

	out := []model.DailyLog{}
	for rows.Next() {
		var (
			l                    model.DailyLog
			date, session        string
			distance, sleep      sql.NullFloat64
			pace                 sql.NullString
			rpe, soreness, mood  sql.NullInt64
			createdAt, updatedAt int64
		)
		if err := rows.Scan(&l.ID, &l.AthleteID, &date, &session, &distance, &pace, &rpe,
			&sleep, &soreness, &mood, &l.Notes, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan log: %w", err)
		}
		if l.Date, err = model.ParseDate(date); err != nil {
			return nil, fmt.Errorf("scan log %s: %w", l.ID, err)
		}
		l.SessionType = model.SessionType(session)
		l.Distance, l.SleepHours = floatPtr(distance), floatPtr(sleep)
		l.AvgPace = stringPtr(pace)
		l.RPE, l.Soreness, l.Mood = intPtr(rpe), intPtr(soreness), intPtr(mood)
		l.CreatedAt, l.UpdatedAt = fromMillis(createdAt), fromMillis(updatedAt)
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate logs: %w", err)
	}
	return out, nil
}

// UpsertProfile implements repository.Store.
func (s *Store) UpsertProfile(ctx context.Context, p model.AthleteProfile) (model.AthleteProfile, error) {
	defer observe("upsert_profile", time.Now())
	if err := s.check(ctx, p.AthleteID); err != nil {
		return model.AthleteProfile{}, err
	}
	p = repository.CloneProfile(p)
	if p.RaceTimes == nil {
		p.RaceTimes = map[string]string{}
	}
	raceTimes, err := json.Marshal(p.RaceTimes)
	if err != nil {
		return model.AthleteProfile{}, fmt.Errorf("encode race times: %w", err)
	}
	now := millis(s.now())

	var createdAt int64
	err = s.sqlDB.QueryRowContext(ctx, `
INSERT INTO athlete_profiles (
	athlete_id, primary_sport, primary_event, race_times, weekly_mileage,
	experience_level, goals, created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (athlete_id) DO UPDATE SET
	primary_sport = excluded.primary_sport,
	primary_event = excluded.primary_event,
	race_times = excluded.race_times,
	weekly_mileage = excluded.weekly_mileage,
	experience_level = excluded.experience_level,
	goals = excluded.goals,
	updated_at = excluded.updated_at
RETURNING created_at
`,
		p.AthleteID, p.PrimarySport, p.PrimaryEvent, string(raceTimes), nullable(p.WeeklyMileage),
		p.ExperienceLevel, p.Goals, now, now,
	).Scan(&createdAt)
	if err != nil {
		return model.AthleteProfile{}, fmt.Errorf("upsert profile: %w", err)
	}
	p.CreatedAt, p.UpdatedAt = fromMillis(createdAt), fromMillis(now)
	return p, nil
}

// Profile implements repository.Store.
func (s *Store) Profile(ctx context.Context, athleteID string) (model.AthleteProfile, error) {
	defer observe("profile", time.Now())
	if err := s.check(ctx, athleteID); err != nil {
		return model.AthleteProfile{}, err
	}
	var (
		p                    model.AthleteProfile
		raceTimes            string
		mileage              sql.NullFloat64
		createdAt, updatedAt int64
	)
	err := s.sqlDB.QueryRowContext(ctx, `
SELECT athlete_id, primary_sport, primary_event, race_times, weekly_mileage,
	experience_level, goals, created_at, updated_at
FROM athlete_profiles WHERE athlete_id = ?
`, athleteID).Scan(&p.AthleteID, &p.PrimarySport, &p.PrimaryEvent, &raceTimes, &mileage,
		&p.ExperienceLevel, &p.Goals, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		metrics.RecordErrorByComponent("repository", "not_found")
		return model.AthleteProfile{}, fmt.Errorf("profile %s: %w", athleteID, repository.ErrNotFound)
	}
	if err != nil {
		return model.AthleteProfile{}, fmt.Errorf("get profile: %w", err)
	}
	if err := json.Unmarshal([]byte(raceTimes), &p.RaceTimes); err != nil {
		return model.AthleteProfile{}, fmt.Errorf("decode race times: %w", err)
	}
	p.WeeklyMileage = floatPtr(mileage)
	p.CreatedAt, p.UpdatedAt = fromMillis(createdAt), fromMillis(updatedAt)
	return p, nil
}

// AddMeet implements repository.Store.
func (s *Store) AddMeet(ctx context.Context, m model.Meet) (model.Meet, error) {
	defer observe("add_meet", time.Now())
	if err := s.check(ctx, m.AthleteID); err != nil {
		return model.Meet{}, err
	}
	m.ID = uuid.NewString()
	m.Date = model.Day(m.Date)
	m.CreatedAt = fromMillis(millis(s.now()))

	if _, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO meets (id, athlete_id, meet_date, event, priority, created_at)
VALUES (?, ?, ?, ?, ?, ?)
`, m.ID, m.AthleteID, model.FormatDate(m.Date), m.Event, string(m.Priority), millis(m.CreatedAt)); err != nil {
		return model.Meet{}, fmt.Errorf("add meet: %w", err)
	}
	return m, nil
}

// UpcomingMeets implements repository.Store.
func (s *Store) UpcomingMeets(ctx context.Context, athleteID string, from time.Time) ([]model.Meet, error) {
	defer observe("upcoming_meets", time.Now())
	if err := s.check(ctx, athleteID); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT id, athlete_id, meet_date, event, priority, created_at
FROM meets WHERE athlete_id = ? AND meet_date >= ?
ORDER BY meet_date ASC, created_at ASC
`, athleteID, model.FormatDate(from))
	if err != nil {
		return nil, fmt.Errorf("list meets: %w", err)
	}
	defer rows.Close()

	out := []model.Meet{}
	for rows.Next() {
		var (
			m              model.Meet
			date, priority string
			createdAt      int64
		)
		if err := rows.Scan(&m.ID, &m.AthleteID, &date, &m.Event, &priority, &createdAt); err != nil {
			return nil, fmt.Errorf("scan meet: %w", err)
		}
		if m.Date, err = model.ParseDate(date); err != nil {
			return nil, fmt.Errorf("scan meet %s: %w", m.ID, err)
		}
		m.Priority = model.MeetPriority(priority)
		m.CreatedAt = fromMillis(createdAt)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate meets: %w", err)
	}
	return out, nil
}

// SaveInsights implements repository.Store.
func (s *Store) SaveInsights(ctx context.Context, athleteID string, insights []model.Insight) ([]model.StoredInsight, error) {
	defer observe("save_insights", time.Now())
	if err := s.check(ctx, athleteID); err != nil {
		return nil, err
	}
	now := fromMillis(millis(s.now()))

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin save insights: %w", err)
	}
	out := make([]model.StoredInsight, len(insights))
	for i, ins := range insights {
		ins.CreatedAt = now
		raw, err := model.EncodeRawData(ins.RawData)
		if err != nil {
			_ = tx.Rollback()
			return nil, err
		}
		si := model.StoredInsight{ID: uuid.NewString(), AthleteID: athleteID, Insight: ins}
		if _, err := tx.ExecContext(ctx, `
INSERT INTO insights (id, athlete_id, type, severity, explanation, raw_data, confidence, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`, si.ID, athleteID, string(ins.Type), ins.Severity.String(), ins.Explanation, raw,
			string(ins.Confidence), millis(now)); err != nil {
			_ = tx.Rollback()
			return nil, fmt.Errorf("save insight: %w", err)
		}
		out[i] = si
	}
	if _, err := tx.ExecContext(ctx, `
DELETE FROM insights WHERE athlete_id = ? AND id NOT IN (
    SELECT id FROM insights WHERE athlete_id = ?
    ORDER BY created_at DESC, rowid DESC
    LIMIT ?
)
`, athleteID, athleteID, s.retention); err != nil {
		_ = tx.Rollback()
		return nil, fmt.Errorf("prune insights: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit insights: %w", err)
	}
	return out, nil
}

// StoredInsights implements repository.Store.
func (s *Store) StoredInsights(ctx context.Context, athleteID string, limit int) ([]model.StoredInsight, error) {
	defer observe("stored_insights", time.Now())
	if err := s.check(ctx, athleteID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, fmt.Errorf("%w: %d", repository.ErrInvalidLimit, limit)
	}
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT id, athlete_id, type, severity, explanation, raw_data, confidence, created_at
FROM insights WHERE athlete_id = ?
ORDER BY created_at DESC, rowid DESC
LIMIT ?
`, athleteID, limit)
	if err != nil {
		return nil, fmt.Errorf("list insights: %w", err)
	}
	defer rows.Close()

	out := make([]model.StoredInsight, 0, limit)
	for rows.Next() {
		var (
			si                           model.StoredInsight
			typ, severity, raw, confName string
			createdAt                    int64
		)
		if err := rows.Scan(&si.ID, &si.AthleteID, &typ, &severity, &si.Explanation, &raw, &confName, &createdAt); err != nil {
			return nil, fmt.Errorf("scan insight: %w", err)
		}
		if si.Severity, err = model.ParseSeverity(severity); err != nil {
			return nil, fmt.Errorf("scan insight %s: %w", si.ID, err)
		}
		if si.RawData, err = model.DecodeRawData(raw); err != nil {
			return nil, fmt.Errorf("scan insight %s: %w", si.ID, err)
		}
		si.Type = model.InsightType(typ)
		si.Confidence = model.Confidence(confName)
		si.CreatedAt = fromMillis(createdAt)
		out = append(out, si)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate insights: %w", err)
	}
	return out, nil
}

// Athletes implements repository.Store.
func (s *Store) Athletes(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, repository.ErrStoreClosed
	}
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT athlete_id FROM athlete_profiles
UNION
SELECT DISTINCT athlete_id FROM daily_logs
ORDER BY athlete_id
`)
	if err != nil {
		return nil, fmt.Errorf("list athletes: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan athlete: %w", err)
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate athletes: %w", err)
	}
	return out, nil
}

func nullable[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return &v.Float64
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

func stringPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	return &v.String
}
