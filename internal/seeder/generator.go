package seeder

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/okian/pulselog/internal/domain/model"
	"github.com/okian/pulselog/internal/domain/types"
)

// Archetype tuning.
const (
	fatigueDays      = 3
	taperMeetInDays  = 4
	farMeetInDays    = 30
	loadRampFactor   = 1.4
	easyDistance     = 5.0
	workoutDistance  = 6.0
	longDistance     = 10.0
	restfulSleepMin  = 7.5
	shortSleepMin    = 5.0
	sleepJitter      = 1.0
	daysPerWeek      = 7
	noteEveryNthDays = 5
)

// Generate builds one plan per athlete, archetypes assigned round-robin.
// Logs run oldest first and end on now's calendar date.
func Generate(cfg Config, now time.Time) []Plan {
	plans := make([]Plan, 0, cfg.Athletes)
	for i := 0; i < cfg.Athletes; i++ {
		rng := rand.New(rand.NewPCG(cfg.Seed, uint64(i)))
		arch := Archetypes[i%len(Archetypes)]
		plans = append(plans, Plan{
			AthleteID: uuid.NewString(),
			Archetype: arch,
			Profile:   profileFor(arch),
			Meets:     meetsFor(arch, now),
			Logs:      logsFor(arch, cfg.Days, now, rng),
		})
	}
	return plans
}

func profileFor(arch Archetype) types.ProfileRequest {
	mileage := 35.0
	p := types.ProfileRequest{
		PrimarySport:    "track",
		PrimaryEvent:    "1500m",
		RaceTimes:       map[string]string{"1500m": "4:25"},
		WeeklyMileage:   &mileage,
		ExperienceLevel: "college",
		Goals:           "Stay healthy through the outdoor season",
	}
	if arch == Tapering {
		p.PrimaryEvent = "5k"
		p.RaceTimes = map[string]string{"5k": "19:30", "mile": "5:30"}
		p.ExperienceLevel = "post_collegiate"
		p.Goals = "Break 19 in the 5K"
	}
	return p
}

func meetsFor(arch Archetype, now time.Time) []types.MeetRequest {
	today := model.Day(now)
	if arch == Tapering {
		return []types.MeetRequest{
			{Date: model.FormatDate(today.AddDate(0, 0, taperMeetInDays)), Event: "5k", Priority: "A"},
			{Date: model.FormatDate(today.AddDate(0, 0, farMeetInDays)), Event: "mile", Priority: "C"},
		}
	}
	return []types.MeetRequest{
		{Date: model.FormatDate(today.AddDate(0, 0, farMeetInDays)), Event: "1500m", Priority: "B"},
	}
}

func logsFor(arch Archetype, days int, now time.Time, rng *rand.Rand) []types.LogRequest {
	today := model.Day(now)
	logs := make([]types.LogRequest, 0, days)
	for i := 0; i < days; i++ {
		ago := days - 1 - i
		logs = append(logs, logFor(arch, i, ago, today.AddDate(0, 0, -ago), rng))
	}
	return logs
}

func logFor(arch Archetype, index, ago int, date time.Time, rng *rand.Rand) types.LogRequest {
	session := model.SessionEasy
	distance, rpe := easyDistance, 3+rng.IntN(2)
	switch index % daysPerWeek {
	case 2, 5:
		session, distance, rpe = model.SessionWorkout, workoutDistance, 7
	case 6:
		session, distance, rpe = model.SessionLong, longDistance, 5
	}

	sleep := restfulSleepMin + rng.Float64()*sleepJitter
	soreness := 2 + rng.IntN(3)
	mood := 4
	pace := "8:40"

	switch arch {
	case Overreaching:
		if ago < daysPerWeek {
			distance *= loadRampFactor
		}
		if ago < fatigueDays {
			session, rpe = model.SessionWorkout, 9
			soreness, mood = 8+rng.IntN(2), 2
		}
	case ShortSleeper:
		sleep = shortSleepMin + rng.Float64()*0.9
	case Tapering:
		if session == model.SessionEasy {
			pace, rpe = "6:50", 6
		}
	}
	if session != model.SessionEasy {
		pace = "6:15"
	}

	distance = round1(distance)
	sleep = round1(sleep)
	req := types.LogRequest{
		Date:        model.FormatDate(date),
		SessionType: string(session),
		Distance:    &distance,
		AvgPace:     &pace,
		RPE:         &rpe,
		SleepHours:  &sleep,
		Soreness:    &soreness,
		Mood:        &mood,
	}
	if index%noteEveryNthDays == 0 {
		req.Notes = "Legs felt fine, windy on the back stretch"
	}
	return req
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
