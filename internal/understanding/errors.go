package understanding

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// DefaultRetryAfter applies when a provider throttles without saying for how long.
const DefaultRetryAfter = time.Minute

// RateLimitError reports that a provider refused a request with HTTP 429.
// RetryAfter is how long the provider asked callers to back off.
type RateLimitError struct {
	Provider   string
	RetryAfter time.Duration
	Err        error
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s rate limited, retry in %s: %v", e.Provider, e.RetryAfter, e.Err)
}

func (e *RateLimitError) Unwrap() error {
	return e.Err
}

// NewRateLimitError wraps err for provider. A non-positive retryAfter becomes DefaultRetryAfter.
func NewRateLimitError(provider string, err error, retryAfter time.Duration) *RateLimitError {
	if retryAfter <= 0 {
		retryAfter = DefaultRetryAfter
	}
	return &RateLimitError{Provider: provider, RetryAfter: retryAfter, Err: err}
}

// RateLimitFromResponse builds the RateLimitError for a 429 response, honoring
// Retry-After in both its delay-seconds and HTTP-date forms.
func RateLimitFromResponse(provider string, resp *http.Response, err error, now time.Time) *RateLimitError {
	return NewRateLimitError(provider, err, retryAfterHeader(resp.Header.Get("Retry-After"), now))
}

func retryAfterHeader(val string, now time.Time) time.Duration {
	val = strings.TrimSpace(val)
	if val == "" {
		return 0
	}
	if secs, err := strconv.Atoi(val); err == nil {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(val); err == nil {
		return at.Sub(now).Round(time.Second)
	}
	return 0
}
