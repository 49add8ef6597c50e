package summary

import "errors"

// Errors returned by the summarizer. Callers treat every one of them as
// "no restatement" and fall back to the structured explanations.
var (
	ErrSummaryUnavailable = errors.New("summary unavailable: no completer configured")
	ErrNoInsights         = errors.New("summary skipped: no insights to restate")
	ErrEmptyResponse      = errors.New("summary completer returned no text")
	ErrRejected           = errors.New("summary rejected by fact guard")
)
