package llm

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"agrofin/internal/port"
)

// circuitState tracks rate-limit backoff for a single generator.
type circuitState struct {
	mu      sync.RWMutex
	resetAt time.Time // zero value = closed (healthy)
}

func (c *circuitState) isOpenWithReset(now time.Time) (time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.resetAt, !c.resetAt.IsZero() && now.Before(c.resetAt)
}

func (c *circuitState) open(resetAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetAt = resetAt
}

// FallbackGenerator tries generators in order, skipping those whose circuit
// is open after a rate limit.
type FallbackGenerator struct {
	generators []port.Generator
	circuits   []*circuitState
	names      []string
	log        *zap.Logger
	now        func() time.Time
}

// NewFallbackGenerator creates a FallbackGenerator from an ordered list of
// generators and their names.
func NewFallbackGenerator(generators []port.Generator, names []string, log *zap.Logger) *FallbackGenerator {
	if log == nil {
		log = zap.NewNop()
	}
	circuits := make([]*circuitState, len(generators))
	for i := range circuits {
		circuits[i] = &circuitState{}
	}
	return &FallbackGenerator{
		generators: generators,
		circuits:   circuits,
		names:      names,
		log:        log,
		now:        time.Now,
	}
}

func (f *FallbackGenerator) Generate(ctx context.Context, prompt string) (*port.Generation, error) {
	now := f.now()
	var lastErr error
	allRateLimited := true
	var earliestReset time.Time

	for i, g := range f.generators {
		if resetAt, open := f.circuits[i].isOpenWithReset(now); open {
			f.log.Info("llm.FallbackGenerator: skipping provider",
				zap.String("provider", f.names[i]),
				zap.Time("circuit_open_until", resetAt),
			)
			if earliestReset.IsZero() || resetAt.Before(earliestReset) {
				earliestReset = resetAt
			}
			continue
		}

		out, err := g.Generate(ctx, prompt)
		if err == nil {
			return out, nil
		}
		if ctx.Err() != nil {
			return nil, err
		}

		f.log.Warn("llm.FallbackGenerator: provider failed", zap.String("provider", f.names[i]), zap.Error(err))
		lastErr = err

		var rlErr *RateLimitError
		if errors.As(err, &rlErr) {
			resetAt := now.Add(rlErr.RetryAfter)
			f.circuits[i].open(resetAt)
			if earliestReset.IsZero() || resetAt.Before(earliestReset) {
				earliestReset = resetAt
			}
		} else {
			allRateLimited = false
		}
	}

	if lastErr == nil || allRateLimited {
		retryAfter := earliestReset.Sub(now)
		if retryAfter < time.Second {
			retryAfter = time.Second
		}
		return nil, NewRateLimitError("all", fmt.Errorf("all providers rate limited"), int(retryAfter.Seconds()))
	}

	return nil, fmt.Errorf("all providers failed: %w", lastErr)
}
