package llm

import (
	"context"
	"errors"
	"net"
	"time"

	"go.uber.org/zap"

	"agrofin/internal/port"
)

const (
	defaultBaseDelay = time.Second
	defaultMaxDelay  = 8 * time.Second
)

// RetryOption configures a RetryGenerator.
type RetryOption func(*RetryGenerator)

// WithBackoff sets the first delay and the cap on any single delay.
func WithBackoff(base, maxDelay time.Duration) RetryOption {
	return func(r *RetryGenerator) {
		r.baseDelay = base
		r.maxDelay = maxDelay
	}
}

// WithRetryLogger logs each retried attempt.
func WithRetryLogger(log *zap.Logger) RetryOption {
	return func(r *RetryGenerator) { r.log = log }
}

// withSleep replaces the wait between attempts. Tests only.
func withSleep(sleep func(context.Context, time.Duration) error) RetryOption {
	return func(r *RetryGenerator) { r.sleep = sleep }
}

// RetryGenerator repeats transient failures with exponential backoff.
//
// Server errors, timeouts and network failures are transient. A rate limit
// is retried only when its Retry-After fits under the delay cap; longer
// limits are returned at once so a FallbackGenerator can move on. Client
// errors, truncated output and empty responses are permanent.
type RetryGenerator struct {
	next       port.Generator
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
	sleep      func(context.Context, time.Duration) error
	log        *zap.Logger
}

// NewRetryGenerator wraps next with at most maxRetries additional attempts.
func NewRetryGenerator(next port.Generator, maxRetries int, opts ...RetryOption) *RetryGenerator {
	if maxRetries < 0 {
		maxRetries = 0
	}
	r := &RetryGenerator{
		next:       next,
		maxRetries: maxRetries,
		baseDelay:  defaultBaseDelay,
		maxDelay:   defaultMaxDelay,
		sleep:      sleepContext,
		log:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.log == nil {
		r.log = zap.NewNop()
	}
	return r
}

func (r *RetryGenerator) Generate(ctx context.Context, prompt string) (*port.Generation, error) {
	delay := r.baseDelay
	for attempt := 0; ; attempt++ {
		out, err := r.next.Generate(ctx, prompt)
		if err == nil {
			return out, nil
		}
		if attempt >= r.maxRetries || ctx.Err() != nil {
			return nil, err
		}

		wait, ok := r.backoff(err, delay)
		if !ok {
			return nil, err
		}
		r.log.Warn("llm.RetryGenerator: retrying",
			zap.Int("attempt", attempt+1),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
		if err := r.sleep(ctx, wait); err != nil {
			return nil, err
		}
		delay = min(delay*2, r.maxDelay)
	}
}

// backoff returns how long to wait before repeating after err, and false
// when err is permanent.
func (r *RetryGenerator) backoff(err error, delay time.Duration) (time.Duration, bool) {
	var rlErr *RateLimitError
	if errors.As(err, &rlErr) {
		if rlErr.RetryAfter > r.maxDelay {
			return 0, false
		}
		return max(rlErr.RetryAfter, delay), true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return delay, apiErr.Temporary()
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return delay, true
	}
	return 0, false
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
