package understanding

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"aria/internal/port"
)

// circuitState tracks rate-limit backoff for a single provider.
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

// FallbackUnderstander tries providers in order, skipping those with open circuits.
// It implements port.Understander.
type FallbackUnderstander struct {
	providers []port.Understander
	circuits  []*circuitState
	names     []string
	now       func() time.Time
	log       zerolog.Logger
}

// NewFallbackUnderstander creates a FallbackUnderstander from an ordered list of providers and their names.
func NewFallbackUnderstander(providers []port.Understander, names []string, log zerolog.Logger) *FallbackUnderstander {
	circuits := make([]*circuitState, len(providers))
	for i := range circuits {
		circuits[i] = &circuitState{}
	}
	return &FallbackUnderstander{
		providers: providers,
		circuits:  circuits,
		names:     names,
		now:       time.Now,
		log:       log,
	}
}

func (f *FallbackUnderstander) Understand(ctx context.Context, input port.UnderstandInput) (*port.Understanding, error) {
	now := f.now()
	var lastErr error
	allRateLimited := true
	var earliestReset time.Time

	for i, p := range f.providers {
		if resetAt, open := f.circuits[i].isOpenWithReset(now); open {
			f.log.Debug().Str("provider", f.names[i]).Time("reset_at", resetAt).
				Msg("understanding.FallbackUnderstander: skipping provider, circuit open")
			if earliestReset.IsZero() || resetAt.Before(earliestReset) {
				earliestReset = resetAt
			}
			continue
		}

		out, err := p.Understand(ctx, input)
		if err == nil {
			return out, nil
		}
		if ctx.Err() != nil {
			return nil, err
		}

		f.log.Warn().Err(err).Str("provider", f.names[i]).Msg("understanding.FallbackUnderstander: provider failed")
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
		return nil, NewRateLimitError("all", fmt.Errorf("all providers rate limited"), retryAfter)
	}

	return nil, fmt.Errorf("all providers failed: %w", lastErr)
}
