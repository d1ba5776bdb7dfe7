package understanding

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"aria/internal/port"
)

// Retrying retries transient provider failures with linear backoff.
// Rate limits and caller cancellation are returned immediately.
type Retrying struct {
	inner   port.Understander
	name    string
	retries int
	backoff time.Duration
	log     zerolog.Logger
}

// NewRetrying wraps inner so that each call makes at most retries+1 attempts.
func NewRetrying(inner port.Understander, name string, retries int, log zerolog.Logger) *Retrying {
	return &Retrying{inner: inner, name: name, retries: retries, backoff: 500 * time.Millisecond, log: log}
}

// WithBackoff overrides the delay unit between attempts.
func (r *Retrying) WithBackoff(d time.Duration) *Retrying {
	r.backoff = d
	return r
}

func (r *Retrying) Understand(ctx context.Context, input port.UnderstandInput) (*port.Understanding, error) {
	var lastErr error
	for attempt := 0; attempt <= r.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * r.backoff):
			}
		}

		out, err := r.inner.Understand(ctx, input)
		if err == nil {
			return out, nil
		}
		lastErr = err

		var rlErr *RateLimitError
		if errors.As(err, &rlErr) || ctx.Err() != nil {
			return nil, err
		}
		r.log.Warn().Err(err).Str("provider", r.name).Int("attempt", attempt+1).
			Msg("understanding.Retrying: attempt failed")
	}
	return nil, lastErr
}
