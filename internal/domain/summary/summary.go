// Package summary restates engine output in prose through an optional
// language-model completer. It never changes the facts: generated text is
// checked by Guard and any failure degrades to the structured explanation.
package summary

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/okian/pulselog/internal/domain/model"
	"github.com/okian/pulselog/pkg/logger"
)

// Generation settings for each kind of restatement.
const (
	weeklyTemperature  = 0.3
	weeklyMaxTokens    = 200
	enhanceTemperature = 0.2
	enhanceMaxTokens   = 100

	// minClearExplanation is the length above which a high-confidence
	// explanation is returned as-is.
	minClearExplanation = 20

	weeklyWindowDays = 7
)

const (
	weeklySystem  = "You are a collegiate distance coach. You only restate facts. You never invent advice or predictions."
	enhanceSystem = "You are a collegiate distance coach. You only restate facts more clearly. You never change meaning or add advice."
)

// Request is one chat completion.
type Request struct {
	System      string
	User        string
	Temperature float64
	MaxTokens   int
}

// Completer produces text for a prompt.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Cache stores guarded restatements by fingerprint.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// Result is a guarded weekly restatement.
type Result struct {
	Text   string
	Cached bool
}

// DataContext describes how much history backs an insight.
type DataContext struct {
	LogsCount  int
	DaysOfData int
}

// Summarizer is the restatement layer. The zero value, or one built without a
// completer, is valid and reports ErrSummaryUnavailable.
type Summarizer struct {
	completer Completer
	cache     Cache
	cacheTTL  time.Duration
	timeout   time.Duration
	logger    logger.Logger
}

// New creates a summarizer.
func New(opts ...Option) *Summarizer {
	s := &Summarizer{
		cacheTTL: time.Hour,
		timeout:  10 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Available reports whether a completer is configured.
func (s *Summarizer) Available() bool {
	return s != nil && s.completer != nil
}

type fact struct {
	Type        model.InsightType `json:"type"`
	Severity    model.Severity    `json:"severity"`
	Explanation string            `json:"explanation"`
	RawData     map[string]any    `json:"raw_data"`
	Confidence  model.Confidence  `json:"confidence"`
}

func facts(insights []model.Insight) []fact {
	out := make([]fact, len(insights))
	for i, ins := range insights {
		out[i] = fact{ins.Type, ins.Severity, ins.Explanation, ins.RawData, ins.Confidence}
	}
	return out
}

// Weekly restates a week's insights in two or three sentences.
func (s *Summarizer) Weekly(ctx context.Context, insights []model.Insight) (Result, error) {
	if !s.Available() {
		return Result{}, ErrSummaryUnavailable
	}
	if len(insights) == 0 {
		return Result{}, ErrNoInsights
	}

	body, err := json.MarshalIndent(facts(insights), "", "  ")
	if err != nil {
		return Result{}, fmt.Errorf("encode facts: %w", err)
	}
	key := fingerprint("weekly", body)
	if text, ok := s.cached(ctx, key); ok {
		return Result{Text: text, Cached: true}, nil
	}

	text, err := s.complete(ctx, Request{
		System:      weeklySystem,
		User:        weeklyPrompt(string(body)),
		Temperature: weeklyTemperature,
		MaxTokens:   weeklyMaxTokens,
	})
	if err != nil {
		return Result{}, err
	}
	if err := Guard(text, insights, strconv.Itoa(weeklyWindowDays)); err != nil {
		return Result{}, err
	}
	s.store(ctx, key, text)
	return Result{Text: text}, nil
}

// Enhance returns a clearer wording of the insight's explanation, or the
// original explanation when no rewording is needed or possible. The second
// result reports whether the text was reworded.
func (s *Summarizer) Enhance(ctx context.Context, ins model.Insight, dc DataContext) (string, bool) {
	if ins.Confidence == model.ConfidenceHigh && len(ins.Explanation) > minClearExplanation {
		return ins.Explanation, false
	}
	if !s.Available() {
		return ins.Explanation, false
	}

	raw, err := json.Marshal(ins.RawData)
	if err != nil {
		return ins.Explanation, false
	}
	text, err := s.complete(ctx, Request{
		System:      enhanceSystem,
		User:        enhancePrompt(ins, string(raw), dc),
		Temperature: enhanceTemperature,
		MaxTokens:   enhanceMaxTokens,
	})
	if err == nil {
		err = Guard(text, []model.Insight{ins}, strconv.Itoa(dc.LogsCount), strconv.Itoa(dc.DaysOfData))
	}
	if err != nil {
		s.warn(ctx, "explanation enhancement failed", err, ins.Type)
		return ins.Explanation, false
	}
	return text, true
}

func (s *Summarizer) complete(ctx context.Context, req Request) (string, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	text, err := s.completer.Complete(ctx, req)
	if err != nil {
		return "", fmt.Errorf("complete: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

func (s *Summarizer) cached(ctx context.Context, key string) (string, bool) {
	if s.cache == nil {
		return "", false
	}
	text, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.warn(ctx, "summary cache read failed", err, "")
		return "", false
	}
	return text, ok
}

func (s *Summarizer) store(ctx context.Context, key, text string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, text, s.cacheTTL); err != nil {
		s.warn(ctx, "summary cache write failed", err, "")
	}
}

func (s *Summarizer) warn(ctx context.Context, msg string, err error, t model.InsightType) {
	if s.logger == nil || errors.Is(err, context.Canceled) {
		return
	}
	fields := []logger.Field{logger.Error(err)}
	if t != "" {
		fields = append(fields, logger.String("insight_type", string(t)))
	}
	s.logger.Warn(ctx, msg, fields...)
}

func fingerprint(kind string, body []byte) string {
	sum := sha256.Sum256(body)
	return kind + ":" + hex.EncodeToString(sum[:])
}

func weeklyPrompt(facts string) string {
	return `Review this athlete's training week and restate the insights below as a short weekly summary, in the voice of a collegiate distance coach.

Rules:
- Restate only the facts given. Add no advice.
- Make no predictions about injuries or outcomes.
- Keep every severity exactly as stated.
- Write like a post-practice log review: direct and factual, not motivational.

Insights:
` + facts + `

Write 2-3 sentences. If the data is thin, say only what is known.`
}

func enhancePrompt(ins model.Insight, raw string, dc DataContext) string {
	return fmt.Sprintf(`Reword this training insight so it reads clearly. Keep its meaning and severity and add no advice.

Original: %s
Raw data: %s
Confidence: %s
History: %d logs over %d days

Write one sentence. Add no predictions or advice.`, ins.Explanation, raw, ins.Confidence, dc.LogsCount, dc.DaysOfData)
}
