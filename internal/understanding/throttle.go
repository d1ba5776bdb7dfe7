package understanding

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"aria/internal/port"
)

// Throttled spaces out calls to a provider with a token bucket.
type Throttled struct {
	inner   port.Understander
	limiter *rate.Limiter
}

// NewThrottled allows perSecond calls per second with a burst of one.
func NewThrottled(inner port.Understander, perSecond float64) *Throttled {
	return &Throttled{inner: inner, limiter: rate.NewLimiter(rate.Limit(perSecond), 1)}
}

func (t *Throttled) Understand(ctx context.Context, input port.UnderstandInput) (*port.Understanding, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for rate limiter: %w", err)
	}
	return t.inner.Understand(ctx, input)
}
