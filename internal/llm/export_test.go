package llm

import (
	"context"
	"time"
)

// WithSleep exposes withSleep to external tests.
func WithSleep(sleep func(context.Context, time.Duration) error) RetryOption {
	return withSleep(sleep)
}

// SetClock overrides the fallback clock.
func (f *FallbackGenerator) SetClock(now func() time.Time) {
	f.now = now
}
