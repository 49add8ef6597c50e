package summary

import (
	"time"

	"github.com/okian/pulselog/pkg/logger"
)

// Option configures a Summarizer.
type Option func(*Summarizer)

// WithCompleter enables restatement. A nil completer leaves it disabled.
func WithCompleter(c Completer) Option {
	return func(s *Summarizer) {
		s.completer = c
	}
}

// WithCache stores guarded weekly summaries for ttl.
func WithCache(c Cache, ttl time.Duration) Option {
	return func(s *Summarizer) {
		s.cache = c
		if ttl > 0 {
			s.cacheTTL = ttl
		}
	}
}

// WithTimeout bounds each completion call.
func WithTimeout(d time.Duration) Option {
	return func(s *Summarizer) {
		s.timeout = d
	}
}

// WithLogger sets the logger used for degraded paths.
func WithLogger(l logger.Logger) Option {
	return func(s *Summarizer) {
		if l != nil {
			s.logger = l.Named("summary")
		}
	}
}
