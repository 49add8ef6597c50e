package insight_test

import (
	"testing"
	"time"

	"github.com/okian/pulselog/internal/domain/insight"
	"github.com/okian/pulselog/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

var now = time.Date(2026, time.October, 18, 15, 30, 0, 0, time.UTC)

func daysAgo(n int) time.Time { return model.Day(now).AddDate(0, 0, -n) }

func intp(v int) *int           { return &v }
func floatp(v float64) *float64 { return &v }
func strp(v string) *string     { return &v }

func entry(n int) model.DailyLog {
	return model.DailyLog{AthleteID: "a1", Date: daysAgo(n), SessionType: model.SessionEasy}
}

func withRPE(l model.DailyLog, r int) model.DailyLog {
	l.RPE = intp(r)
	return l
}

func profile5k(t string) *model.AthleteProfile {
	return &model.AthleteProfile{AthleteID: "a1", PrimaryEvent: "5k", RaceTimes: map[string]string{"5k": t}}
}

func TestEasyPace(t *testing.T) {
	Convey("Given a 15:30 5k athlete", t, func() {
		in := insight.Input{Profile: profile5k("15:30")}

		Convey("When today's easy run was 5:30/mile at RPE 7", func() {
			l := withRPE(entry(0), 7)
			l.AvgPace = strp("5:30")
			in.Logs = []model.DailyLog{l}

			ins, ok := insight.EasyPace(in, now)

			Convey("Then a red pace insight is produced", func() {
				So(ok, ShouldBeTrue)
				So(ins.Type, ShouldEqual, model.InsightPace)
				So(ins.Severity, ShouldEqual, model.SeverityRed)
				So(ins.Confidence, ShouldEqual, model.ConfidenceHigh)
				So(ins.RawData["logged_pace"], ShouldEqual, "5:30")
				So(ins.RawData["pace_range_min"], ShouldEqual, "7:29")
				So(ins.RawData["pace_range_max"], ShouldEqual, "6:29")
				So(ins.RawData["rpe"], ShouldEqual, 7)
				So(ins.RawData["log_date"], ShouldEqual, "2026-10-18")
				So(ins.Explanation, ShouldContainSubstring, "5:30/mile at RPE 7")
				So(ins.Explanation, ShouldContainSubstring, "7:29–6:29/mile")
				So(ins.CreatedAt, ShouldEqual, now)
			})
		})

		Convey("When the run sits exactly on the fast bound", func() {
			l := withRPE(entry(0), 7)
			l.AvgPace = strp("6:29")
			in.Logs = []model.DailyLog{l}
			_, ok := insight.EasyPace(in, now)
			So(ok, ShouldBeFalse)
		})

		Convey("When the run is one second quicker than the fast bound", func() {
			l := withRPE(entry(0), 7)
			l.AvgPace = strp("6:28")
			in.Logs = []model.DailyLog{l}
			ins, ok := insight.EasyPace(in, now)
			So(ok, ShouldBeTrue)
			So(ins.Severity, ShouldEqual, model.SeverityRed)
		})

		Convey("When RPE is below 6", func() {
			l := withRPE(entry(0), 5)
			l.AvgPace = strp("5:30")
			in.Logs = []model.DailyLog{l}
			_, ok := insight.EasyPace(in, now)
			So(ok, ShouldBeFalse)
		})

		Convey("When the most recent log is a workout", func() {
			easy := withRPE(entry(1), 7)
			easy.AvgPace = strp("5:30")
			hard := withRPE(entry(0), 9)
			hard.SessionType = model.SessionWorkout
			hard.AvgPace = strp("5:00")
			in.Logs = []model.DailyLog{easy, hard}
			_, ok := insight.EasyPace(in, now)
			So(ok, ShouldBeFalse)
		})

		Convey("When a future-dated log exists it is not the latest", func() {
			past := withRPE(entry(0), 7)
			past.AvgPace = strp("5:30")
			future := withRPE(entry(-2), 3)
			future.AvgPace = strp("9:00")
			in.Logs = []model.DailyLog{future, past}
			_, ok := insight.EasyPace(in, now)
			So(ok, ShouldBeTrue)
		})

		Convey("When the pace is malformed or missing", func() {
			l := withRPE(entry(0), 7)
			l.AvgPace = strp("quick")
			in.Logs = []model.DailyLog{l}
			_, ok := insight.EasyPace(in, now)
			So(ok, ShouldBeFalse)

			l.AvgPace = nil
			in.Logs = []model.DailyLog{l}
			_, ok = insight.EasyPace(in, now)
			So(ok, ShouldBeFalse)
		})
	})

	Convey("Given no usable profile", t, func() {
		l := withRPE(entry(0), 7)
		l.AvgPace = strp("5:30")

		_, ok := insight.EasyPace(insight.Input{Logs: []model.DailyLog{l}}, now)
		So(ok, ShouldBeFalse)

		p := &model.AthleteProfile{PrimaryEvent: "marathon", RaceTimes: map[string]string{"marathon": "2:30:00"}}
		_, ok = insight.EasyPace(insight.Input{Logs: []model.DailyLog{l}, Profile: p}, now)
		So(ok, ShouldBeFalse)
	})
}

func TestFatigue(t *testing.T) {
	Convey("Given four RPE 8 sessions in the last five days", t, func() {
		in := insight.Input{Logs: []model.DailyLog{
			withRPE(entry(0), 8), withRPE(entry(1), 8), withRPE(entry(2), 8), withRPE(entry(4), 8),
		}}
		ins, ok := insight.Fatigue(in, now)

		Convey("Then fatigue is red", func() {
			So(ok, ShouldBeTrue)
			So(ins.Severity, ShouldEqual, model.SeverityRed)
			So(ins.RawData["high_rpe_sessions"], ShouldEqual, 4)
			So(ins.RawData["avg_rpe"], ShouldEqual, "8.0")
			So(ins.RawData["days_checked"], ShouldEqual, 5)
			So(ins.RawData["threshold_rpe"], ShouldEqual, 7)
			So(ins.Confidence, ShouldEqual, model.ConfidenceHigh)
		})
	})

	Convey("Given three RPE 7 sessions", t, func() {
		in := insight.Input{Logs: []model.DailyLog{withRPE(entry(0), 7), withRPE(entry(2), 7), withRPE(entry(3), 7)}}
		ins, ok := insight.Fatigue(in, now)
		So(ok, ShouldBeTrue)
		So(ins.Severity, ShouldEqual, model.SeverityYellow)
		So(ins.RawData["avg_rpe"], ShouldEqual, "7.0")
	})

	Convey("Given only two hard sessions among many easy ones", t, func() {
		logs := []model.DailyLog{withRPE(entry(0), 10), withRPE(entry(1), 10)}
		for i := 0; i < 5; i++ {
			logs = append(logs, withRPE(entry(i), 6))
		}
		_, ok := insight.Fatigue(insight.Input{Logs: logs}, now)
		So(ok, ShouldBeFalse)
	})

	Convey("Given hard sessions outside the window or without RPE", t, func() {
		in := insight.Input{Logs: []model.DailyLog{
			withRPE(entry(0), 8), withRPE(entry(6), 9), withRPE(entry(-1), 9), entry(1),
		}}
		_, ok := insight.Fatigue(in, now)
		So(ok, ShouldBeFalse)
	})
}

func TestSleepDebt(t *testing.T) {
	sleep := func(n int, h float64) model.DailyLog {
		l := entry(n)
		l.SleepHours = floatp(h)
		return l
	}

	Convey("Given 5.0 and 5.2 hours on the last two nights", t, func() {
		ins, ok := insight.SleepDebt(insight.Input{Logs: []model.DailyLog{sleep(0, 5.0), sleep(1, 5.2)}}, now)

		Convey("Then sleep debt is red with moderate confidence", func() {
			So(ok, ShouldBeTrue)
			So(ins.Type, ShouldEqual, model.InsightSleep)
			So(ins.Severity, ShouldEqual, model.SeverityRed)
			So(ins.Confidence, ShouldEqual, model.ConfidenceModerate)
			So(ins.RawData["avg_sleep"], ShouldEqual, "5.1")
			So(ins.RawData["days_checked"], ShouldEqual, 2)
			So(ins.RawData["threshold"], ShouldEqual, 6.5)
		})
	})

	Convey("Given an average between 5.5 and 6.5", t, func() {
		ins, ok := insight.SleepDebt(insight.Input{Logs: []model.DailyLog{sleep(0, 6.0), sleep(1, 6.2)}}, now)
		So(ok, ShouldBeTrue)
		So(ins.Severity, ShouldEqual, model.SeverityYellow)
	})

	Convey("Given enough sleep", t, func() {
		_, ok := insight.SleepDebt(insight.Input{Logs: []model.DailyLog{sleep(0, 6.5), sleep(1, 6.5)}}, now)
		So(ok, ShouldBeFalse)
	})

	Convey("Given a single logged night", t, func() {
		_, ok := insight.SleepDebt(insight.Input{Logs: []model.DailyLog{sleep(0, 3.0), entry(1)}}, now)
		So(ok, ShouldBeFalse)
	})

	Convey("Given four nights in the window listed oldest first", t, func() {
		logs := []model.DailyLog{sleep(3, 2.0), sleep(2, 7.0), sleep(1, 7.0), sleep(0, 7.0)}
		_, ok := insight.SleepDebt(insight.Input{Logs: logs}, now)

		Convey("Then only the three most recent count", func() {
			So(ok, ShouldBeFalse)
			So(logs[0].Date, ShouldEqual, daysAgo(3))
		})
	})
}

func TestLoadSpike(t *testing.T) {
	run := func(n int, miles float64) model.DailyLog {
		l := entry(n)
		l.Distance = floatp(miles)
		return l
	}
	weeks := func(previous, current []float64) []model.DailyLog {
		var logs []model.DailyLog
		for i, d := range previous {
			logs = append(logs, run(7+i, d))
		}
		for i, d := range current {
			logs = append(logs, run(i, d))
		}
		return logs
	}

	Convey("Given 20 miles last week and 27 this week", t, func() {
		logs := weeks([]float64{5, 5, 5, 5}, []float64{9, 9, 9})
		ins, ok := insight.LoadSpike(insight.Input{Logs: logs}, now)

		Convey("Then the 35% jump is red", func() {
			So(ok, ShouldBeTrue)
			So(ins.Severity, ShouldEqual, model.SeverityRed)
			So(ins.RawData["increase_percent"], ShouldEqual, "35")
			So(ins.RawData["previous_week"], ShouldEqual, "20.0")
			So(ins.RawData["current_week"], ShouldEqual, "27.0")
			So(ins.Explanation, ShouldContainSubstring, "35%")
		})
	})

	Convey("Given a 25% jump", t, func() {
		ins, ok := insight.LoadSpike(insight.Input{Logs: weeks([]float64{5, 5, 5, 5}, []float64{10, 10, 5})}, now)
		So(ok, ShouldBeTrue)
		So(ins.Severity, ShouldEqual, model.SeverityYellow)
	})

	Convey("Given exactly a 20% jump", t, func() {
		_, ok := insight.LoadSpike(insight.Input{Logs: weeks([]float64{5, 5, 5, 5}, []float64{8, 8, 8})}, now)
		So(ok, ShouldBeFalse)
	})

	Convey("Given fewer than seven logs", t, func() {
		_, ok := insight.LoadSpike(insight.Input{Logs: weeks([]float64{5, 5}, []float64{20, 20, 20})}, now)
		So(ok, ShouldBeFalse)
	})

	Convey("Given no distance in the previous week", t, func() {
		logs := weeks(nil, []float64{5, 5, 5, 5, 5, 5, 5})
		_, ok := insight.LoadSpike(insight.Input{Logs: logs}, now)
		So(ok, ShouldBeFalse)
	})

	Convey("Given distance only in the previous week", t, func() {
		logs := weeks([]float64{5, 5, 5, 5, 5, 5, 5}, nil)
		So(logs, ShouldHaveLength, 7)
		_, ok := insight.LoadSpike(insight.Input{Logs: logs}, now)
		So(ok, ShouldBeFalse)
	})

	Convey("Given daily runs of 20/7 and then 26/7 miles", t, func() {
		var prev, cur []float64
		for i := 0; i < 7; i++ {
			prev = append(prev, 20.0/7)
			cur = append(cur, 26.0/7)
		}
		ins, ok := insight.LoadSpike(insight.Input{Logs: weeks(prev, cur)}, now)

		Convey("Then a jump that rounds to 30% stays yellow", func() {
			So(ok, ShouldBeTrue)
			So(ins.RawData["increase_percent"], ShouldEqual, "30")
			So(ins.Severity, ShouldEqual, model.SeverityYellow)
		})
	})

	Convey("Given exactly a 30% jump", t, func() {
		ins, ok := insight.LoadSpike(insight.Input{Logs: weeks([]float64{5, 5, 5, 5}, []float64{13, 13})}, now)
		So(ok, ShouldBeTrue)
		So(ins.Severity, ShouldEqual, model.SeverityYellow)
	})
}

func TestPreMeet(t *testing.T) {
	meetIn := func(n int) model.Meet {
		return model.Meet{AthleteID: "a1", Date: model.Day(now).AddDate(0, 0, n), Event: "5000m", Priority: model.PriorityA}
	}
	workout := entry(1)
	workout.SessionType = model.SessionWorkout

	Convey("Given a meet in three days and a workout yesterday", t, func() {
		ins, ok := insight.PreMeet(insight.Input{Logs: []model.DailyLog{workout}, Meets: []model.Meet{meetIn(3)}}, now)

		Convey("Then a yellow pre-meet insight is produced", func() {
			So(ok, ShouldBeTrue)
			So(ins.Type, ShouldEqual, model.InsightPreMeet)
			So(ins.Severity, ShouldEqual, model.SeverityYellow)
			So(ins.Confidence, ShouldEqual, model.ConfidenceModerate)
			So(ins.RawData["days_until"], ShouldEqual, 3)
			So(ins.RawData["meet_event"], ShouldEqual, "5000m")
			So(ins.RawData["meet_priority"], ShouldEqual, "A")
			So(ins.RawData["high_intensity_sessions_recent"], ShouldEqual, 1)
			So(ins.Explanation, ShouldContainSubstring, "3 days out from 5000m")
		})
	})

	Convey("Given several meets", t, func() {
		ins, ok := insight.PreMeet(insight.Input{Logs: []model.DailyLog{workout}, Meets: []model.Meet{meetIn(4), meetIn(1)}}, now)
		So(ok, ShouldBeTrue)
		So(ins.RawData["days_until"], ShouldEqual, 1)
		So(ins.Explanation, ShouldContainSubstring, "1 day out")
	})

	Convey("Given the nearest meet is six days away", t, func() {
		_, ok := insight.PreMeet(insight.Input{Logs: []model.DailyLog{workout}, Meets: []model.Meet{meetIn(6), meetIn(2)}}, now)
		So(ok, ShouldBeTrue)
		_, ok = insight.PreMeet(insight.Input{Logs: []model.DailyLog{workout}, Meets: []model.Meet{meetIn(6)}}, now)
		So(ok, ShouldBeFalse)
	})

	Convey("Given meets at the edges of the risk window", t, func() {
		logs := []model.DailyLog{workout}
		for _, c := range []struct {
			days  int
			fires bool
		}{
			{0, true},
			{4, true},
			{5, false},
			{7, false},
		} {
			ins, ok := insight.PreMeet(insight.Input{Logs: logs, Meets: []model.Meet{meetIn(c.days)}}, now)
			So(ok, ShouldEqual, c.fires)
			if c.fires {
				So(ins.RawData["days_until"], ShouldEqual, c.days)
			}
		}
	})

	Convey("Given only easy low-RPE sessions", t, func() {
		_, ok := insight.PreMeet(insight.Input{Logs: []model.DailyLog{withRPE(entry(0), 4)}, Meets: []model.Meet{meetIn(2)}}, now)
		So(ok, ShouldBeFalse)
	})

	Convey("Given an easy session logged at RPE 7", t, func() {
		_, ok := insight.PreMeet(insight.Input{Logs: []model.DailyLog{withRPE(entry(2), 7)}, Meets: []model.Meet{meetIn(2)}}, now)
		So(ok, ShouldBeTrue)
	})

	Convey("Given a meet that has passed", t, func() {
		_, ok := insight.PreMeet(insight.Input{Logs: []model.DailyLog{workout}, Meets: []model.Meet{meetIn(-1)}}, now)
		So(ok, ShouldBeFalse)
	})
}
