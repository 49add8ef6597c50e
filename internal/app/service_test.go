package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/okian/pulselog/internal/adapters/notify"
	"github.com/okian/pulselog/internal/adapters/repository"
	service "github.com/okian/pulselog/internal/app"
	"github.com/okian/pulselog/internal/domain/model"
	"github.com/okian/pulselog/internal/domain/summary"
	"github.com/okian/pulselog/internal/domain/types"
	"github.com/okian/pulselog/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

var now = time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return now }

func intp(v int) *int           { return &v }
func floatp(v float64) *float64 { return &v }
func strp(v string) *string     { return &v }

type fakeCompleter struct {
	text  string
	err   error
	calls int
}

func (f *fakeCompleter) Complete(_ context.Context, _ summary.Request) (string, error) {
	f.calls++
	return f.text, f.err
}

type fakeNotifier struct {
	mu      sync.Mutex
	digests []notify.Digest
	err     error
}

func (f *fakeNotifier) SendDigest(_ context.Context, d notify.Digest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.digests = append(f.digests, d)
	return nil
}

func newService(opts ...service.Option) (*service.Service, *repository.MemoryStore) {
	store := repository.NewMemoryStore(context.Background(), repository.WithClock(clock))
	base := []service.Option{
		service.WithStore(store),
		service.WithClock(clock),
		service.WithWorkerCount(2),
		service.WithLogger(logger.Nop()),
	}
	svc := service.New(append(base, opts...)...)
	return svc, store
}

// logHardWeek records four RPE 8 workouts ending today.
func logHardWeek(ctx context.Context, svc *service.Service, athleteID string) {
	for i := 0; i < 4; i++ {
		_, err := svc.LogSession(ctx, athleteID, types.LogRequest{
			Date:        model.FormatDate(now.AddDate(0, 0, -i)),
			SessionType: "workout",
			Distance:    floatp(6),
			RPE:         intp(8),
		})
		So(err, ShouldBeNil)
	}
}

func TestServiceLifecycle(t *testing.T) {
	Convey("Given a service that has not started", t, func() {
		svc, _ := newService()
		ctx := context.Background()

		Convey("Operations report that it is not started", func() {
			_, err := svc.LogSession(ctx, "a1", types.LogRequest{SessionType: "easy"})
			So(err, ShouldEqual, service.ErrNotStarted)
			_, err = svc.Dashboard(ctx, "a1")
			So(err, ShouldEqual, service.ErrNotStarted)
			So(svc.GetStats(ctx)["started"], ShouldEqual, false)
		})

		Convey("Stop is a no-op", func() {
			So(func() { svc.Stop() }, ShouldNotPanic)
		})

		Convey("When started twice and stopped twice", func() {
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.Start(ctx), ShouldBeNil)
			stats := svc.GetStats(ctx)
			So(stats["started"], ShouldEqual, true)
			So(stats["workerCount"], ShouldEqual, 2)
			So(stats["summaries"], ShouldEqual, false)
			So(stats["digestScheduled"], ShouldEqual, false)
			svc.Stop()
			svc.Stop()
			So(svc.GetStats(ctx)["started"], ShouldEqual, false)
		})
	})

	Convey("Given a service built without a store", t, func() {
		svc := service.New(service.WithLogger(logger.Nop()), service.WithClock(clock))
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("It runs on a fresh in-memory store", func() {
			_, err := svc.LogSession(ctx, "a1", types.LogRequest{SessionType: "easy"})
			So(err, ShouldBeNil)
			logs, err := svc.RecentLogs(ctx, "a1", 0)
			So(err, ShouldBeNil)
			So(logs, ShouldHaveLength, 1)
		})
	})

	Convey("Given a stopped service that was given a store", t, func() {
		svc, _ := newService()
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		svc.Stop()

		Convey("Restarting reports the closed store", func() {
			So(svc.Start(ctx), ShouldEqual, service.ErrStoreClosed)
			_, err := svc.LogSession(ctx, "a1", types.LogRequest{SessionType: "easy"})
			So(err, ShouldEqual, service.ErrNotStarted)
		})
	})

	Convey("Given a stopped service that built its own store", t, func() {
		svc := service.New(service.WithLogger(logger.Nop()), service.WithClock(clock))
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		_, err := svc.LogSession(ctx, "a1", types.LogRequest{SessionType: "easy"})
		So(err, ShouldBeNil)
		svc.Stop()

		Convey("Restarting runs on a fresh store", func() {
			So(svc.Start(ctx), ShouldBeNil)
			defer svc.Stop()
			_, err := svc.LogSession(ctx, "a2", types.LogRequest{SessionType: "easy"})
			So(err, ShouldBeNil)
			logs, err := svc.RecentLogs(ctx, "a1", 0)
			So(err, ShouldBeNil)
			So(logs, ShouldBeEmpty)
		})
	})

	Convey("An invalid digest schedule fails Start", t, func() {
		svc, _ := newService(service.WithNotifier(&fakeNotifier{}), service.WithDigestSchedule("every sunday"))
		So(svc.Start(context.Background()), ShouldNotBeNil)
	})
}

func TestLogSession(t *testing.T) {
	Convey("Given a running service", t, func() {
		svc, _ := newService()
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("A log without a date is recorded for today and queues a refresh", func() {
			r, err := svc.LogSession(ctx, "a1", types.LogRequest{
				SessionType: "Easy",
				Distance:    floatp(5),
				AvgPace:     strp(" 7:45 "),
				RPE:         intp(4),
				SleepHours:  floatp(7.5),
				Soreness:    intp(0),
				Mood:        intp(5),
				Notes:       "  felt fine ",
			})
			So(err, ShouldBeNil)
			So(r.RefreshQueued, ShouldBeTrue)
			So(r.Log.ID, ShouldNotBeEmpty)
			So(model.FormatDate(r.Log.Date), ShouldEqual, "2026-10-18")
			So(r.Log.SessionType, ShouldEqual, model.SessionEasy)
			So(*r.Log.AvgPace, ShouldEqual, "7:45")
			So(r.Log.Notes, ShouldEqual, "felt fine")
		})

		Convey("A second log for the same date replaces the first", func() {
			first, err := svc.LogSession(ctx, "a1", types.LogRequest{Date: "2026-10-17", SessionType: "easy"})
			So(err, ShouldBeNil)
			second, err := svc.LogSession(ctx, "a1", types.LogRequest{Date: "2026-10-17", SessionType: "workout", RPE: intp(8)})
			So(err, ShouldBeNil)
			So(second.Log.ID, ShouldEqual, first.Log.ID)

			logs, err := svc.RecentLogs(ctx, "a1", 10)
			So(err, ShouldBeNil)
			So(logs, ShouldHaveLength, 1)
			So(logs[0].SessionType, ShouldEqual, model.SessionWorkout)
		})

		Convey("Invalid logs are rejected", func() {
			bad := []types.LogRequest{
				{SessionType: "tempo"},
				{SessionType: "easy", RPE: intp(11)},
				{SessionType: "easy", RPE: intp(0)},
				{SessionType: "easy", SleepHours: floatp(25)},
				{SessionType: "easy", Soreness: intp(11)},
				{SessionType: "easy", Mood: intp(0)},
				{SessionType: "easy", Distance: floatp(-1)},
				{SessionType: "easy", AvgPace: strp("fast")},
				{Date: "18/10/2026", SessionType: "easy"},
				{Date: "2026-10-19", SessionType: "easy"},
			}
			for _, req := range bad {
				_, err := svc.LogSession(ctx, "a1", req)
				So(errors.Is(err, service.ErrInvalidLog), ShouldBeTrue)
			}

			_, err := svc.LogSession(ctx, " ", types.LogRequest{SessionType: "easy"})
			So(errors.Is(err, service.ErrMissingAthlete), ShouldBeTrue)
		})
	})
}

func TestProfilesAndMeets(t *testing.T) {
	Convey("Given a running service", t, func() {
		svc, _ := newService()
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("A missing profile is not found", func() {
			_, err := svc.Profile(ctx, "a1")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})

		Convey("A valid profile round-trips", func() {
			p, err := svc.UpsertProfile(ctx, "a1", types.ProfileRequest{
				PrimaryEvent:    "5k",
				RaceTimes:       map[string]string{"5k": "15:30", "marathon": "", "100m": "10.95"},
				WeeklyMileage:   floatp(50),
				ExperienceLevel: "college",
			})
			So(err, ShouldBeNil)
			So(p.PrimarySport, ShouldEqual, "track")
			So(p.RaceTimes, ShouldResemble, map[string]string{"5k": "15:30", "100m": "10.95"})

			got, err := svc.Profile(ctx, "a1")
			So(err, ShouldBeNil)
			So(got.PrimaryEvent, ShouldEqual, "5k")
		})

		Convey("Invalid profiles are rejected", func() {
			bad := []types.ProfileRequest{
				{PrimaryEvent: "javelin"},
				{PrimaryEvent: "5k", RaceTimes: map[string]string{"5k": "15.30"}},
				{RaceTimes: map[string]string{"discus": "50.00"}},
				{WeeklyMileage: floatp(-5)},
				{ExperienceLevel: "pro"},
			}
			for _, req := range bad {
				_, err := svc.UpsertProfile(ctx, "a1", req)
				So(errors.Is(err, service.ErrInvalidProfile), ShouldBeTrue)
			}
		})

		Convey("Meets are validated and listed soonest first", func() {
			_, err := svc.AddMeet(ctx, "a1", types.MeetRequest{Date: "2026-11-01", Event: "5000m", Priority: "a"})
			So(err, ShouldBeNil)
			_, err = svc.AddMeet(ctx, "a1", types.MeetRequest{Date: "2026-10-25", Event: "8k"})
			So(err, ShouldBeNil)
			_, err = svc.AddMeet(ctx, "a1", types.MeetRequest{Date: "2026-10-01", Event: "old"})
			So(err, ShouldBeNil)

			meets, err := svc.UpcomingMeets(ctx, "a1")
			So(err, ShouldBeNil)
			So(meets, ShouldHaveLength, 2)
			So(meets[0].Event, ShouldEqual, "8k")
			So(meets[0].Priority, ShouldEqual, model.PriorityC)
			So(meets[1].Priority, ShouldEqual, model.PriorityA)

			_, err = svc.AddMeet(ctx, "a1", types.MeetRequest{Date: "2026-11-01", Event: "5000m", Priority: "D"})
			So(errors.Is(err, service.ErrInvalidMeet), ShouldBeTrue)
			_, err = svc.AddMeet(ctx, "a1", types.MeetRequest{Date: "soon", Event: "5000m"})
			So(errors.Is(err, service.ErrInvalidMeet), ShouldBeTrue)
			_, err = svc.AddMeet(ctx, "a1", types.MeetRequest{Date: "2026-11-01"})
			So(errors.Is(err, service.ErrInvalidMeet), ShouldBeTrue)
		})
	})
}

func TestInsightViews(t *testing.T) {
	Convey("Given an athlete with four hard sessions this week", t, func() {
		svc, store := newService()
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()
		logHardWeek(ctx, svc, "a1")

		Convey("Evaluate reports red fatigue", func() {
			insights, err := svc.Evaluate(ctx, "a1")
			So(err, ShouldBeNil)
			So(insights, ShouldHaveLength, 1)
			So(insights[0].Type, ShouldEqual, model.InsightFatigue)
			So(insights[0].RawData["avg_rpe"], ShouldEqual, "8.0")
		})

		Convey("The dashboard shows red readiness and today's log", func() {
			d, err := svc.Dashboard(ctx, "a1")
			So(err, ShouldBeNil)
			So(d.Readiness, ShouldEqual, model.SeverityRed)
			So(d.Priority, ShouldNotBeNil)
			So(d.Priority.Type, ShouldEqual, model.InsightFatigue)
			So(d.HasLoggedToday, ShouldBeTrue)
			So(d.LogsConsidered, ShouldEqual, 4)
		})

		Convey("A meet three days out adds a pre-meet insight ahead of fatigue", func() {
			_, err := svc.AddMeet(ctx, "a1", types.MeetRequest{Date: "2026-10-21", Event: "5000m"})
			So(err, ShouldBeNil)
			d, err := svc.Dashboard(ctx, "a1")
			So(err, ShouldBeNil)
			So(d.Priority.Type, ShouldEqual, model.InsightPreMeet)
			So(d.Readiness, ShouldEqual, model.SeverityYellow)
		})

		Convey("Refreshing stores a snapshot that the feed folds into the fresh result", func() {
			So(svc.Refresh(ctx, model.RefreshJob{AthleteID: "a1"}), ShouldBeNil)
			stored, err := store.StoredInsights(ctx, "a1", 10)
			So(err, ShouldBeNil)
			So(len(stored), ShouldBeGreaterThanOrEqualTo, 1)

			feed, err := svc.Feed(ctx, "a1")
			So(err, ShouldBeNil)
			So(feed.Insights, ShouldHaveLength, 1)
			So(feed.Groups.Red, ShouldHaveLength, 1)
			So(feed.Groups.Yellow, ShouldBeEmpty)
		})

		Convey("The queued refresh eventually persists insights", func() {
			deadline := time.Now().Add(2 * time.Second)
			var stored []model.StoredInsight
			for time.Now().Before(deadline) {
				stored, _ = store.StoredInsights(ctx, "a1", 10)
				if len(stored) > 0 {
					break
				}
				time.Sleep(10 * time.Millisecond)
			}
			So(stored, ShouldNotBeEmpty)
			So(stored[0].Type, ShouldEqual, model.InsightFatigue)
		})

		Convey("Without a summarizer the weekly summary carries only the facts", func() {
			w, err := svc.WeeklySummary(ctx, "a1")
			So(err, ShouldBeNil)
			So(w.Summary, ShouldBeNil)
			So(w.Available, ShouldBeFalse)
			So(w.LogsThisWeek, ShouldEqual, 4)
			So(w.Insights, ShouldHaveLength, 1)
		})

		Convey("Explanations fall back to the original text", func() {
			out, err := svc.Explain(ctx, "a1")
			So(err, ShouldBeNil)
			So(out, ShouldHaveLength, 1)
			So(out[0].Enhanced, ShouldEqual, out[0].Explanation)
		})
	})

	Convey("Given an athlete with no logs", t, func() {
		svc, _ := newService()
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("Every view is empty and green", func() {
			d, err := svc.Dashboard(ctx, "nobody")
			So(err, ShouldBeNil)
			So(d.Readiness, ShouldEqual, model.SeverityGreen)
			So(d.Priority, ShouldBeNil)
			So(d.HasLoggedToday, ShouldBeFalse)

			feed, err := svc.Feed(ctx, "nobody")
			So(err, ShouldBeNil)
			So(feed.Insights, ShouldBeEmpty)
		})
	})
}

func TestWeeklySummaryRestatement(t *testing.T) {
	Convey("Given a service with a summarizer", t, func() {
		completer := &fakeCompleter{text: "Hard sessions happened 4 times in the past 5 days at an average RPE of 8.0."}
		svc, _ := newService(service.WithSummarizer(summary.New(summary.WithCompleter(completer))))
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()
		logHardWeek(ctx, svc, "a1")

		Convey("A faithful restatement is returned", func() {
			w, err := svc.WeeklySummary(ctx, "a1")
			So(err, ShouldBeNil)
			So(w.Available, ShouldBeTrue)
			So(w.Summary, ShouldNotBeNil)
			So(*w.Summary, ShouldEqual, completer.text)
		})

		Convey("A restatement with invented numbers is dropped", func() {
			completer.text = "You ran 42 miles this week."
			w, err := svc.WeeklySummary(ctx, "a1")
			So(err, ShouldBeNil)
			So(w.Summary, ShouldBeNil)
			So(w.Insights, ShouldHaveLength, 1)
		})

		Convey("A completer failure is not a request failure", func() {
			completer.err = errors.New("upstream 503")
			w, err := svc.WeeklySummary(ctx, "a1")
			So(err, ShouldBeNil)
			So(w.Summary, ShouldBeNil)
		})

		Convey("An athlete without insights is not sent to the completer", func() {
			w, err := svc.WeeklySummary(ctx, "quiet")
			So(err, ShouldBeNil)
			So(w.Summary, ShouldBeNil)
			So(completer.calls, ShouldEqual, 0)
		})
	})
}

func TestDigests(t *testing.T) {
	Convey("Given a service with a notifier", t, func() {
		n := &fakeNotifier{}
		svc, _ := newService(service.WithNotifier(n))
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()
		logHardWeek(ctx, svc, "a1")
		_, err := svc.UpsertProfile(ctx, "a2", types.ProfileRequest{PrimaryEvent: "mile"})
		So(err, ShouldBeNil)

		So(svc.GetStats(ctx)["digestScheduled"], ShouldEqual, true)

		Convey("Every athlete receives a digest", func() {
			sent, err := svc.SendDigests(ctx)
			So(err, ShouldBeNil)
			So(sent, ShouldEqual, 2)
			So(n.digests, ShouldHaveLength, 2)

			byID := map[string]notify.Digest{}
			for _, d := range n.digests {
				byID[d.AthleteID] = d
			}
			So(byID["a1"].Readiness, ShouldEqual, model.SeverityRed)
			So(byID["a2"].Readiness, ShouldEqual, model.SeverityGreen)
			So(byID["a2"].Priority, ShouldBeNil)
		})

		Convey("Delivery failures are reported per athlete", func() {
			n.err = errors.New("chat not found")
			sent, err := svc.SendDigests(ctx)
			So(sent, ShouldEqual, 0)
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "chat not found")
		})
	})

	Convey("Without a notifier digests are unavailable", t, func() {
		svc, _ := newService()
		So(svc.Start(context.Background()), ShouldBeNil)
		defer svc.Stop()
		_, err := svc.SendDigests(context.Background())
		So(err, ShouldEqual, service.ErrNoNotifier)
	})

	Convey("Digest schedules are validated", t, func() {
		So(service.ParseSchedule("0 18 * * 0"), ShouldBeNil)
		So(service.ParseSchedule("@weekly"), ShouldBeNil)
		So(service.ParseSchedule("sometimes"), ShouldNotBeNil)
	})
}
