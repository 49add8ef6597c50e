package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/pulselog/internal/adapters/repository"
	"github.com/okian/pulselog/internal/adapters/repository/storetest"
	"github.com/okian/pulselog/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMemoryStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T, now func() time.Time) repository.Store {
		return repository.NewMemoryStore(context.Background(), repository.WithClock(now))
	})
}

func TestMemoryStoreIsolation(t *testing.T) {
	ctx := context.Background()

	Convey("Given a stored log", t, func() {
		s := repository.NewMemoryStore(ctx, repository.WithMetricsUpdateInterval(10*time.Millisecond))
		Reset(func() { _ = s.Close() })

		rpe := 6
		in := model.DailyLog{AthleteID: "a1", Date: time.Now(), SessionType: model.SessionEasy, RPE: &rpe}
		_, err := s.UpsertLog(ctx, in)
		So(err, ShouldBeNil)

		Convey("When the caller mutates its copy", func() {
			rpe = 10
			logs, _ := s.RecentLogs(ctx, "a1", 1)
			*logs[0].RPE = 1

			Convey("Then the stored value is unchanged", func() {
				again, _ := s.RecentLogs(ctx, "a1", 1)
				So(*again[0].RPE, ShouldEqual, 6)
			})
		})

		Convey("When the store is closed", func() {
			So(s.Close(), ShouldBeNil)
			So(s.Close(), ShouldBeNil)
			_, err := s.RecentLogs(ctx, "a1", 1)
			So(errors.Is(err, repository.ErrStoreClosed), ShouldBeTrue)
		})
	})
}

func TestMemoryStoreInsightRetention(t *testing.T) {
	ctx := context.Background()

	Convey("Given a store that keeps two insights per athlete", t, func() {
		clock := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
		s := repository.NewMemoryStore(ctx,
			repository.WithInsightRetention(2),
			repository.WithClock(func() time.Time { return clock }),
		)
		Reset(func() { _ = s.Close() })

		Convey("When three evaluations are saved", func() {
			for _, text := range []string{"first", "second", "third"} {
				_, err := s.SaveInsights(ctx, "a1", []model.Insight{{Type: model.InsightSleep, Explanation: text}})
				So(err, ShouldBeNil)
				clock = clock.Add(time.Hour)
			}

			Convey("Then the oldest is dropped", func() {
				got, err := s.StoredInsights(ctx, "a1", 10)
				So(err, ShouldBeNil)
				So(got, ShouldHaveLength, 2)
				So(got[0].Explanation, ShouldEqual, "third")
				So(got[1].Explanation, ShouldEqual, "second")
			})
		})
	})
}
