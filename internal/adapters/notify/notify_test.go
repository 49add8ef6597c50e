package notify_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/okian/pulselog/internal/adapters/notify"
	"github.com/okian/pulselog/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

type fakeSender struct {
	sent []tgbotapi.MessageConfig
	err  error
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, msg)
	}
	return tgbotapi.Message{}, f.err
}

func digest() notify.Digest {
	summary := "Sleep averaged 5.1 hours <below> threshold."
	ins := model.Insight{Type: model.InsightSleep, Severity: model.SeverityRed, Explanation: "Sleep has averaged 5.1 hours."}
	return notify.Digest{
		AthleteID:  "a1",
		WeekEnding: time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC),
		Readiness:  model.SeverityRed,
		Priority:   &ins,
		Summary:    &summary,
		Insights:   []model.Insight{ins},
		UpcomingMeets: []model.Meet{
			{Date: time.Date(2026, 10, 24, 0, 0, 0, 0, time.UTC), Event: "5k", Priority: model.PriorityA},
		},
	}
}

func TestTelegram(t *testing.T) {
	Convey("Given a telegram notifier", t, func() {
		fs := &fakeSender{}
		n := notify.NewTelegramWithSender(fs, 42)

		Convey("When a digest is sent", func() {
			err := n.SendDigest(context.Background(), digest())

			Convey("Then one HTML message reaches the chat", func() {
				So(err, ShouldBeNil)
				So(fs.sent, ShouldHaveLength, 1)
				So(fs.sent[0].ChatID, ShouldEqual, 42)
				So(fs.sent[0].ParseMode, ShouldEqual, tgbotapi.ModeHTML)
				So(fs.sent[0].Text, ShouldContainSubstring, "&lt;below&gt;")
				So(fs.sent[0].Text, ShouldContainSubstring, "2026-10-24 5k (A)")
			})
		})

		Convey("When the sender fails", func() {
			fs.err = errors.New("bad gateway")
			err := n.SendDigest(context.Background(), digest())
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "a1")
		})
	})

	Convey("Given no chat id", t, func() {
		_, err := notify.NewTelegram("token", 0)
		So(errors.Is(err, notify.ErrNoChat), ShouldBeTrue)
	})
}

func TestFormatDigest(t *testing.T) {
	Convey("Given a digest without a summary", t, func() {
		d := digest()
		d.Summary = nil
		text := notify.FormatDigest(d)

		Convey("Then the structured explanations are listed", func() {
			So(text, ShouldContainSubstring, "<b>sleep</b>: Sleep has averaged 5.1 hours.")
			So(text, ShouldNotContainSubstring, "Priority:")
		})
	})

	Convey("Given a quiet week", t, func() {
		text := notify.FormatDigest(notify.Digest{AthleteID: "a2", Readiness: model.SeverityGreen})
		So(text, ShouldContainSubstring, "No flags this week")
	})

	Convey("Given a very long summary", t, func() {
		d := digest()
		long := strings.Repeat("x", 5000)
		d.Summary = &long
		So(len([]rune(notify.FormatDigest(d))), ShouldEqual, 4096)
	})
}
