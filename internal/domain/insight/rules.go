package insight

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/okian/pulselog/internal/domain/model"
	"github.com/okian/pulselog/internal/domain/pace"
)

// Rule thresholds.
const (
	paceMinRPE = 6

	fatigueWindowDays  = 5
	fatigueHighRPE     = 7
	fatigueMinSessions = 3
	fatigueRedAvgRPE   = 8.0

	sleepWindowDays = 3
	sleepMaxLogs    = 3
	sleepMinLogs    = 2
	sleepThreshold  = 6.5
	sleepRedAvg     = 5.5

	loadMinLogs       = 7
	loadWeekDays      = 7
	loadYellowPercent = 20
	loadRedPercent    = 30
	percentScale      = 100
	hundredthsPerMile = 100

	meetHorizonDays    = 7
	meetRiskDays       = 4
	meetRecentDays     = 3
	meetHardSessionRPE = 7
)

// Rule inspects a snapshot and yields at most one insight.
// Rules are pure: identical input and now always give identical output.
type Rule func(in Input, now time.Time) (model.Insight, bool)

// EasyPace flags the most recent log when it is an easy run at RPE >= 6 logged
// faster than the fast bound of the athlete's easy-pace range.
func EasyPace(in Input, now time.Time) (model.Insight, bool) {
	log, ok := latest(in.Logs, now)
	if !ok || log.SessionType != model.SessionEasy || log.RPE == nil || log.AvgPace == nil {
		return model.Insight{}, false
	}
	if *log.RPE < paceMinRPE || in.Profile == nil {
		return model.Insight{}, false
	}
	band, ok := pace.EstimateEasyRange(in.Profile.RaceTimes, in.Profile.PrimaryEvent)
	if !ok {
		return model.Insight{}, false
	}
	secs, ok := pace.ParsePace(*log.AvgPace)
	if !ok || !band.TooFast(secs) {
		return model.Insight{}, false
	}

	severity := model.SeverityYellow
	if secs < band.Min {
		severity = model.SeverityRed
	}
	slow, fast := pace.Format(band.Min), pace.Format(band.Max)
	return model.Insight{
		Type:     model.InsightPace,
		Severity: severity,
		Explanation: fmt.Sprintf(
			"The easy run on %s averaged %s/mile at RPE %d. Based on current fitness, easy pace should be %s–%s/mile. This may be adding unnecessary fatigue.",
			model.FormatDate(log.Date), *log.AvgPace, *log.RPE, slow, fast,
		),
		RawData: map[string]any{
			"log_date":       model.FormatDate(log.Date),
			"logged_pace":    *log.AvgPace,
			"pace_range_min": slow,
			"pace_range_max": fast,
			"rpe":            *log.RPE,
		},
		Confidence: model.ConfidenceHigh,
		CreatedAt:  now,
	}, true
}

// Fatigue fires when at least three sessions at RPE >= 7 fall in the last five days.
func Fatigue(in Input, now time.Time) (model.Insight, bool) {
	var high []int
	for _, log := range in.Logs {
		if log.RPE == nil || !within(log.Date, now, fatigueWindowDays) {
			continue
		}
		if *log.RPE >= fatigueHighRPE {
			high = append(high, *log.RPE)
		}
	}
	if len(high) < fatigueMinSessions {
		return model.Insight{}, false
	}

	sum := 0
	for _, rpe := range high {
		sum += rpe
	}
	avg := float64(sum) / float64(len(high))
	severity := model.SeverityYellow
	if avg >= fatigueRedAvgRPE {
		severity = model.SeverityRed
	}
	avgText := oneDecimal(avg)
	return model.Insight{
		Type:     model.InsightFatigue,
		Severity: severity,
		Explanation: fmt.Sprintf(
			"High-intensity sessions (RPE ≥ %d) have occurred %d times in the past %d days. Average RPE: %s. Fatigue risk is elevated.",
			fatigueHighRPE, len(high), fatigueWindowDays, avgText,
		),
		RawData: map[string]any{
			"high_rpe_sessions": len(high),
			"days_checked":      fatigueWindowDays,
			"avg_rpe":           avgText,
			"threshold_rpe":     fatigueHighRPE,
		},
		Confidence: model.ConfidenceHigh,
		CreatedAt:  now,
	}, true
}

// SleepDebt averages sleep over the three most recent logs of the last three days.
func SleepDebt(in Input, now time.Time) (model.Insight, bool) {
	var recent []model.DailyLog
	for _, log := range in.Logs {
		if log.SleepHours != nil && within(log.Date, now, sleepWindowDays) {
			recent = append(recent, log)
		}
	}
	sortNewestFirst(recent)
	if len(recent) > sleepMaxLogs {
		recent = recent[:sleepMaxLogs]
	}
	if len(recent) < sleepMinLogs {
		return model.Insight{}, false
	}

	total := 0.0
	for _, log := range recent {
		total += *log.SleepHours
	}
	avg := total / float64(len(recent))
	if avg >= sleepThreshold {
		return model.Insight{}, false
	}
	severity := model.SeverityYellow
	if avg < sleepRedAvg {
		severity = model.SeverityRed
	}
	avgText := oneDecimal(avg)
	return model.Insight{
		Type:     model.InsightSleep,
		Severity: severity,
		Explanation: fmt.Sprintf(
			"Sleep has averaged %s hours over the last %d logged nights, below the %s-hour threshold.",
			avgText, len(recent), oneDecimal(sleepThreshold),
		),
		RawData: map[string]any{
			"avg_sleep":    avgText,
			"days_checked": len(recent),
			"threshold":    sleepThreshold,
		},
		Confidence: model.ConfidenceModerate,
		CreatedAt:  now,
	}, true
}

// LoadSpike compares distance over [now-7d, now) with the week before it.
func LoadSpike(in Input, now time.Time) (model.Insight, bool) {
	if len(in.Logs) < loadMinLogs {
		return model.Insight{}, false
	}
	// Distances are summed in hundredths of a mile so the thresholds compare exactly.
	var current, previous int64
	for _, log := range in.Logs {
		if log.Distance == nil {
			continue
		}
		hundredths := int64(math.Round(*log.Distance * hundredthsPerMile))
		switch ago := daysAgo(log.Date, now); {
		case ago >= 0 && ago < loadWeekDays:
			current += hundredths
		case ago >= loadWeekDays && ago < 2*loadWeekDays:
			previous += hundredths
		}
	}
	if current == 0 || previous == 0 {
		return model.Insight{}, false
	}

	if current*percentScale <= previous*(percentScale+loadYellowPercent) {
		return model.Insight{}, false
	}
	severity := model.SeverityYellow
	if current*percentScale > previous*(percentScale+loadRedPercent) {
		severity = model.SeverityRed
	}
	increase := float64(current-previous) / float64(previous)
	percent := strconv.FormatFloat(increase*100, 'f', 0, 64)
	prevText := oneDecimal(float64(previous) / hundredthsPerMile)
	curText := oneDecimal(float64(current) / hundredthsPerMile)
	return model.Insight{
		Type:     model.InsightLoad,
		Severity: severity,
		Explanation: fmt.Sprintf(
			"Weekly mileage increased %s%% (%s → %s miles). Rapid increases in training load increase injury risk.",
			percent, prevText, curText,
		),
		RawData: map[string]any{
			"previous_week":    prevText,
			"current_week":     curText,
			"increase_percent": percent,
		},
		Confidence: model.ConfidenceHigh,
		CreatedAt:  now,
	}, true
}

// PreMeet warns about hard training within four days of the next meet.
// It never escalates past yellow.
func PreMeet(in Input, now time.Time) (model.Insight, bool) {
	var next *model.Meet
	nextIn := 0
	for i := range in.Meets {
		until := model.DaysBetween(now, in.Meets[i].Date)
		if until < 0 || until > meetHorizonDays {
			continue
		}
		if next == nil || in.Meets[i].Date.Before(next.Date) {
			next, nextIn = &in.Meets[i], until
		}
	}
	if next == nil || nextIn > meetRiskDays {
		return model.Insight{}, false
	}

	hard := 0
	for _, log := range in.Logs {
		if !within(log.Date, now, meetRecentDays) {
			continue
		}
		if log.SessionType.IsHard() || (log.RPE != nil && *log.RPE >= meetHardSessionRPE) {
			hard++
		}
	}
	if hard == 0 {
		return model.Insight{}, false
	}

	unit := "days"
	if nextIn == 1 {
		unit = "day"
	}
	return model.Insight{
		Type:     model.InsightPreMeet,
		Severity: model.SeverityYellow,
		Explanation: fmt.Sprintf(
			"You are %d %s out from %s (%s meet on %s). High-intensity training at this point may reduce freshness.",
			nextIn, unit, next.Event, next.Priority, model.FormatDate(next.Date),
		),
		RawData: map[string]any{
			"meet_date":                      model.FormatDate(next.Date),
			"meet_event":                     next.Event,
			"meet_priority":                  string(next.Priority),
			"days_until":                     nextIn,
			"high_intensity_sessions_recent": hard,
		},
		Confidence: model.ConfidenceModerate,
		CreatedAt:  now,
	}, true
}

// daysAgo counts calendar days from d to now; future dates are negative.
func daysAgo(d, now time.Time) int {
	return model.DaysBetween(d, now)
}

// within reports whether d falls in the last n days, today included.
func within(d, now time.Time, n int) bool {
	ago := daysAgo(d, now)
	return ago >= 0 && ago <= n
}

// latest returns the most recent log not dated after now.
func latest(logs []model.DailyLog, now time.Time) (model.DailyLog, bool) {
	var out model.DailyLog
	found := false
	for _, log := range logs {
		if daysAgo(log.Date, now) < 0 {
			continue
		}
		if !found || log.Date.After(out.Date) {
			out, found = log, true
		}
	}
	return out, found
}

func sortNewestFirst(logs []model.DailyLog) {
	sort.SliceStable(logs, func(i, j int) bool { return logs[i].Date.After(logs[j].Date) })
}

func oneDecimal(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}
