package model_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/okian/pulselog/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestSeverity(t *testing.T) {
	Convey("Given the severity scale", t, func() {
		So(model.SeverityRed.Worse(model.SeverityYellow), ShouldBeTrue)
		So(model.SeverityYellow.Worse(model.SeverityGreen), ShouldBeTrue)
		So(model.SeverityGreen.Worse(model.SeverityGreen), ShouldBeFalse)
		So(model.Severity(7).Valid(), ShouldBeFalse)

		Convey("When encoded as JSON it travels by name", func() {
			b, err := json.Marshal(model.Insight{Type: model.InsightLoad, Severity: model.SeverityYellow})
			So(err, ShouldBeNil)
			So(string(b), ShouldContainSubstring, `"severity":"yellow"`)

			var back model.Insight
			So(json.Unmarshal(b, &back), ShouldBeNil)
			So(back.Severity, ShouldEqual, model.SeverityYellow)
		})

		Convey("When the name is unknown", func() {
			var s model.Severity
			So(s.UnmarshalText([]byte("amber")), ShouldNotBeNil)
			_, err := model.Severity(9).MarshalText()
			So(err, ShouldNotBeNil)
		})
	})
}

func TestParsers(t *testing.T) {
	Convey("Given session types", t, func() {
		st, err := model.ParseSessionType(" Workout ")
		So(err, ShouldBeNil)
		So(st, ShouldEqual, model.SessionWorkout)
		So(st.IsHard(), ShouldBeTrue)
		So(model.SessionLong.IsHard(), ShouldBeFalse)

		_, err = model.ParseSessionType("tempo")
		So(err, ShouldNotBeNil)
	})

	Convey("Given meet priorities", t, func() {
		p, err := model.ParseMeetPriority("")
		So(err, ShouldBeNil)
		So(p, ShouldEqual, model.PriorityC)

		p, err = model.ParseMeetPriority("a")
		So(err, ShouldBeNil)
		So(p, ShouldEqual, model.PriorityA)

		_, err = model.ParseMeetPriority("D")
		So(err, ShouldNotBeNil)
	})
}

func TestDates(t *testing.T) {
	Convey("Given calendar dates", t, func() {
		d, err := model.ParseDate("2026-10-18")
		So(err, ShouldBeNil)
		So(model.FormatDate(d), ShouldEqual, "2026-10-18")

		_, err = model.ParseDate("18/10/2026")
		So(err, ShouldNotBeNil)

		Convey("Then day distance counts calendar days, not hours", func() {
			late := time.Date(2026, 10, 18, 23, 59, 0, 0, time.UTC)
			early := time.Date(2026, 10, 19, 0, 1, 0, 0, time.UTC)
			So(model.DaysBetween(late, early), ShouldEqual, 1)
			So(model.DaysBetween(early, late), ShouldEqual, -1)
			So(model.DaysBetween(d, late), ShouldEqual, 0)
		})

		Convey("Then the date is read in the clock's own location", func() {
			loc := time.FixedZone("UTC-7", -7*3600)
			evening := time.Date(2026, 10, 18, 20, 0, 0, 0, loc)
			So(model.FormatDate(evening), ShouldEqual, "2026-10-18")
			So(model.FormatDate(evening.UTC()), ShouldEqual, "2026-10-19")
		})
	})
}

func TestRawData(t *testing.T) {
	Convey("Given raw data", t, func() {
		s, err := model.EncodeRawData(map[string]any{"avg_rpe": "8.0", "high_rpe_sessions": 4})
		So(err, ShouldBeNil)

		back, err := model.DecodeRawData(s)
		So(err, ShouldBeNil)
		So(back["avg_rpe"], ShouldEqual, "8.0")
		So(back["high_rpe_sessions"], ShouldEqual, 4.0)

		empty, err := model.EncodeRawData(nil)
		So(err, ShouldBeNil)
		So(empty, ShouldEqual, "{}")

		_, err = model.DecodeRawData("{")
		So(err, ShouldNotBeNil)
	})
}
