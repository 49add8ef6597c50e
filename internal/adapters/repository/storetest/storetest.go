// Package storetest holds the behaviour every repository.Store must satisfy.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/okian/pulselog/internal/adapters/repository"
	"github.com/okian/pulselog/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

// Factory builds an empty store reading time from now.
type Factory func(t *testing.T, now func() time.Time) repository.Store

func day(s string) time.Time {
	d, err := model.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func rpe(v int) *int { return &v }

// Run exercises f against the Store contract.
func Run(t *testing.T, f Factory) {
	ctx := context.Background()

	Convey("Given an empty store", t, func() {
		clock := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
		s := f(t, func() time.Time { return clock })
		Reset(func() { _ = s.Close() })

		Convey("When logs are upserted", func() {
			first, err := s.UpsertLog(ctx, model.DailyLog{AthleteID: "a1", Date: day("2026-10-16"), SessionType: model.SessionEasy, RPE: rpe(4)})
			So(err, ShouldBeNil)
			_, err = s.UpsertLog(ctx, model.DailyLog{AthleteID: "a1", Date: day("2026-10-17"), SessionType: model.SessionWorkout, RPE: rpe(8)})
			So(err, ShouldBeNil)
			_, err = s.UpsertLog(ctx, model.DailyLog{AthleteID: "a2", Date: day("2026-10-17"), SessionType: model.SessionLong})
			So(err, ShouldBeNil)

			Convey("Then identity and timestamps are assigned", func() {
				So(first.ID, ShouldNotBeEmpty)
				So(first.CreatedAt.Equal(clock), ShouldBeTrue)
			})

			Convey("Then recent logs come newest first and respect the limit", func() {
				logs, err := s.RecentLogs(ctx, "a1", 10)
				So(err, ShouldBeNil)
				So(logs, ShouldHaveLength, 2)
				So(model.FormatDate(logs[0].Date), ShouldEqual, "2026-10-17")
				So(*logs[0].RPE, ShouldEqual, 8)

				logs, err = s.RecentLogs(ctx, "a1", 1)
				So(err, ShouldBeNil)
				So(logs, ShouldHaveLength, 1)
			})

			Convey("Then a second log for the same date replaces the first", func() {
				clock = clock.Add(time.Hour)
				again, err := s.UpsertLog(ctx, model.DailyLog{AthleteID: "a1", Date: day("2026-10-16"), SessionType: model.SessionLong, Notes: "moved"})
				So(err, ShouldBeNil)
				So(again.ID, ShouldEqual, first.ID)
				So(again.CreatedAt.Equal(first.CreatedAt), ShouldBeTrue)
				So(again.UpdatedAt.After(first.UpdatedAt), ShouldBeTrue)

				logs, _ := s.RecentLogs(ctx, "a1", 10)
				So(logs, ShouldHaveLength, 2)
				So(logs[1].SessionType, ShouldEqual, model.SessionLong)
				So(logs[1].RPE, ShouldBeNil)
				So(logs[1].Notes, ShouldEqual, "moved")
			})

			Convey("Then logs since a date include that date", func() {
				logs, err := s.LogsSince(ctx, "a1", day("2026-10-17"))
				So(err, ShouldBeNil)
				So(logs, ShouldHaveLength, 1)
			})

			Convey("Then athletes are listed once each", func() {
				ids, err := s.Athletes(ctx)
				So(err, ShouldBeNil)
				So(ids, ShouldResemble, []string{"a1", "a2"})
			})
		})

		Convey("When reading an unknown athlete", func() {
			logs, err := s.RecentLogs(ctx, "ghost", 5)
			So(err, ShouldBeNil)
			So(logs, ShouldBeEmpty)

			_, err = s.Profile(ctx, "ghost")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})

		Convey("When arguments are invalid", func() {
			_, err := s.RecentLogs(ctx, "a1", 0)
			So(errors.Is(err, repository.ErrInvalidLimit), ShouldBeTrue)
			_, err = s.UpsertLog(ctx, model.DailyLog{Date: day("2026-10-16")})
			So(errors.Is(err, repository.ErrMissingAthlete), ShouldBeTrue)
		})

		Convey("When a profile is upserted twice", func() {
			p, err := s.UpsertProfile(ctx, model.AthleteProfile{
				AthleteID: "a1", PrimarySport: "running", PrimaryEvent: "5k",
				RaceTimes: map[string]string{"5k": "15:30"},
			})
			So(err, ShouldBeNil)
			clock = clock.Add(time.Minute)
			_, err = s.UpsertProfile(ctx, model.AthleteProfile{
				AthleteID: "a1", PrimarySport: "running", PrimaryEvent: "10k",
				RaceTimes: map[string]string{"10k": "32:10", "5k": "15:20"},
			})
			So(err, ShouldBeNil)

			got, err := s.Profile(ctx, "a1")
			So(err, ShouldBeNil)
			So(got.PrimaryEvent, ShouldEqual, "10k")
			So(got.RaceTimes, ShouldResemble, map[string]string{"10k": "32:10", "5k": "15:20"})
			So(got.CreatedAt.Equal(p.CreatedAt), ShouldBeTrue)
			So(got.UpdatedAt.Equal(clock), ShouldBeTrue)
		})

		Convey("When meets are added", func() {
			for _, d := range []string{"2026-10-25", "2026-10-10", "2026-10-20"} {
				_, err := s.AddMeet(ctx, model.Meet{AthleteID: "a1", Date: day(d), Event: "5k", Priority: model.PriorityA})
				So(err, ShouldBeNil)
			}

			Convey("Then upcoming meets are soonest first and exclude past ones", func() {
				meets, err := s.UpcomingMeets(ctx, "a1", day("2026-10-18"))
				So(err, ShouldBeNil)
				So(meets, ShouldHaveLength, 2)
				So(model.FormatDate(meets[0].Date), ShouldEqual, "2026-10-20")
				So(meets[0].ID, ShouldNotBeEmpty)
			})
		})

		Convey("When insights are saved across evaluations", func() {
			_, err := s.SaveInsights(ctx, "a1", []model.Insight{
				{Type: model.InsightSleep, Severity: model.SeverityRed, Explanation: "old", RawData: map[string]any{"avg_sleep": "5.1"}, Confidence: model.ConfidenceModerate},
			})
			So(err, ShouldBeNil)
			clock = clock.Add(time.Hour)
			saved, err := s.SaveInsights(ctx, "a1", []model.Insight{
				{Type: model.InsightLoad, Severity: model.SeverityYellow, Explanation: "new", RawData: map[string]any{"increase_percent": "25"}, Confidence: model.ConfidenceHigh},
			})
			So(err, ShouldBeNil)
			So(saved[0].ID, ShouldNotBeEmpty)
			So(saved[0].AthleteID, ShouldEqual, "a1")

			Convey("Then they read back newest first", func() {
				got, err := s.StoredInsights(ctx, "a1", 50)
				So(err, ShouldBeNil)
				So(got, ShouldHaveLength, 2)
				So(got[0].Explanation, ShouldEqual, "new")
				So(got[0].Severity, ShouldEqual, model.SeverityYellow)
				So(got[0].RawData["increase_percent"], ShouldEqual, "25")
				So(got[1].Confidence, ShouldEqual, model.ConfidenceModerate)

				got, err = s.StoredInsights(ctx, "a1", 1)
				So(err, ShouldBeNil)
				So(got, ShouldHaveLength, 1)
			})
		})

		Convey("When more insights are saved than the store retains", func() {
			for i := 0; i < repository.DefaultInsightRetention+10; i++ {
				_, err := s.SaveInsights(ctx, "a1", []model.Insight{
					{Type: model.InsightLoad, Severity: model.SeverityYellow, Explanation: fmt.Sprintf("n%d", i), Confidence: model.ConfidenceHigh},
				})
				So(err, ShouldBeNil)
				clock = clock.Add(time.Minute)
			}
			_, err := s.SaveInsights(ctx, "a2", []model.Insight{
				{Type: model.InsightSleep, Severity: model.SeverityRed, Explanation: "other", Confidence: model.ConfidenceModerate},
			})
			So(err, ShouldBeNil)

			Convey("Then only the newest are kept", func() {
				got, err := s.StoredInsights(ctx, "a1", 1000)
				So(err, ShouldBeNil)
				So(got, ShouldHaveLength, repository.DefaultInsightRetention)
				So(got[0].Explanation, ShouldEqual, fmt.Sprintf("n%d", repository.DefaultInsightRetention+9))
				So(got[len(got)-1].Explanation, ShouldEqual, "n10")

				other, err := s.StoredInsights(ctx, "a2", 1000)
				So(err, ShouldBeNil)
				So(other, ShouldHaveLength, 1)
			})
		})

		Convey("When the context is cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			_, err := s.RecentLogs(cctx, "a1", 5)
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
		})
	})
}
