// Package notify delivers the weekly readiness digest to a Telegram chat.
package notify

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/okian/pulselog/internal/domain/model"
)

// maxMessageRunes is Telegram's message length limit.
const maxMessageRunes = 4096

// ErrNoChat is returned when no destination chat is configured.
var ErrNoChat = errors.New("telegram chat id is required")

// Digest is one athlete's weekly readiness report.
type Digest struct {
	AthleteID     string
	WeekEnding    time.Time
	Readiness     model.Severity
	Priority      *model.Insight
	Summary       *string
	Insights      []model.Insight
	UpcomingMeets []model.Meet
}

// Notifier delivers digests.
type Notifier interface {
	SendDigest(ctx context.Context, d Digest) error
}

// Sender is the part of tgbotapi.BotAPI the notifier needs.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram sends digests as HTML messages to one chat.
type Telegram struct {
	sender Sender
	chatID int64
}

// NewTelegram authenticates the bot token and returns a notifier for chatID.
func NewTelegram(token string, chatID int64) (*Telegram, error) {
	if chatID == 0 {
		return nil, ErrNoChat
	}
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return NewTelegramWithSender(api, chatID), nil
}

// NewTelegramWithSender builds a notifier over an existing sender.
func NewTelegramWithSender(s Sender, chatID int64) *Telegram {
	return &Telegram{sender: s, chatID: chatID}
}

// SendDigest implements Notifier.
func (t *Telegram) SendDigest(ctx context.Context, d Digest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(t.chatID, FormatDigest(d))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if _, err := t.sender.Send(msg); err != nil {
		return fmt.Errorf("send digest for %s: %w", d.AthleteID, err)
	}
	return nil
}

var severityMarks = map[model.Severity]string{
	model.SeverityGreen:  "🟢",
	model.SeverityYellow: "🟡",
	model.SeverityRed:    "🔴",
}

// FormatDigest renders d as Telegram HTML.
func FormatDigest(d Digest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<b>Weekly readiness: %s</b> %s\n", html.EscapeString(d.AthleteID), severityMarks[d.Readiness])
	fmt.Fprintf(&b, "<i>Week ending %s</i>\n\n", model.FormatDate(d.WeekEnding))

	switch {
	case d.Summary != nil:
		b.WriteString(html.EscapeString(*d.Summary))
		b.WriteString("\n")
	case len(d.Insights) == 0:
		b.WriteString("No flags this week. Readiness is green.\n")
	default:
		for _, ins := range d.Insights {
			fmt.Fprintf(&b, "%s <b>%s</b>: %s\n", severityMarks[ins.Severity], ins.Type, html.EscapeString(ins.Explanation))
		}
	}

	if d.Priority != nil && d.Summary != nil {
		fmt.Fprintf(&b, "\nPriority: <b>%s</b> (%s)\n", d.Priority.Type, d.Priority.Severity)
	}
	if len(d.UpcomingMeets) > 0 {
		b.WriteString("\n<b>Upcoming meets</b>\n")
		for _, m := range d.UpcomingMeets {
			fmt.Fprintf(&b, "• %s %s (%s)\n", model.FormatDate(m.Date), html.EscapeString(m.Event), m.Priority)
		}
	}
	return truncate(b.String(), maxMessageRunes)
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit-1]) + "…"
}
