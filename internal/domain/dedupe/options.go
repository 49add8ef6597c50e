package dedupe

import "time"

// Option configures the pending set.
type Option func(*pendingSet)

// WithMaxSize bounds the number of pending keys; the oldest claim is evicted
// when full. Zero or negative means unbounded.
func WithMaxSize(maxSize int) Option {
	return func(d *pendingSet) {
		d.maxSize = maxSize
	}
}

// WithTTL sets how long a claim stays valid. Zero or negative never expires.
func WithTTL(ttl time.Duration) Option {
	return func(d *pendingSet) {
		d.ttl = ttl
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(d *pendingSet) {
		if now != nil {
			d.now = now
		}
	}
}
