package understanding_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"aria/internal/port"
	"aria/internal/understanding"
	"aria/mocks"
)

var testInput = port.UnderstandInput{Conversation: "user: I need a hotel in Paris"}

func output(model string) *port.Understanding {
	return &port.Understanding{
		TransactionType: "hotel_booking",
		FieldEvidence:   map[string]port.FieldEvidence{},
		ModelUsed:       model,
	}
}

func TestFallbackUnderstander_FirstSucceeds(t *testing.T) {
	p1 := new(mocks.MockUnderstander)
	p2 := new(mocks.MockUnderstander)
	p1.On("Understand", mock.Anything, testInput).Return(output("claude"), nil)

	fu := understanding.NewFallbackUnderstander(
		[]port.Understander{p1, p2}, []string{"claude", "openai"}, zerolog.Nop())

	result, err := fu.Understand(context.Background(), testInput)

	require.NoError(t, err)
	assert.Equal(t, "claude", result.ModelUsed)
	p2.AssertNotCalled(t, "Understand", mock.Anything, mock.Anything)
}

func TestFallbackUnderstander_FirstFails_SecondSucceeds(t *testing.T) {
	p1 := new(mocks.MockUnderstander)
	p2 := new(mocks.MockUnderstander)
	p1.On("Understand", mock.Anything, testInput).Return(nil, errors.New("generic error"))
	p2.On("Understand", mock.Anything, testInput).Return(output("gpt-4o"), nil)

	fu := understanding.NewFallbackUnderstander(
		[]port.Understander{p1, p2}, []string{"claude", "openai"}, zerolog.Nop())

	result, err := fu.Understand(context.Background(), testInput)

	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", result.ModelUsed)
}

func TestFallbackUnderstander_RateLimitOpensCircuit(t *testing.T) {
	p1 := new(mocks.MockUnderstander)
	p2 := new(mocks.MockUnderstander)
	p1.On("Understand", mock.Anything, testInput).
		Return(nil, understanding.NewRateLimitError("claude", errors.New("429"), 60*time.Second)).Once()
	p2.On("Understand", mock.Anything, testInput).Return(output("gemini"), nil)

	fu := understanding.NewFallbackUnderstander(
		[]port.Understander{p1, p2}, []string{"claude", "gemini"}, zerolog.Nop())

	for i := 0; i < 3; i++ {
		result, err := fu.Understand(context.Background(), testInput)
		require.NoError(t, err)
		assert.Equal(t, "gemini", result.ModelUsed)
	}
	p1.AssertNumberOfCalls(t, "Understand", 1)
	p2.AssertNumberOfCalls(t, "Understand", 3)
}

func TestFallbackUnderstander_AllRateLimited(t *testing.T) {
	p1 := new(mocks.MockUnderstander)
	p2 := new(mocks.MockUnderstander)
	p1.On("Understand", mock.Anything, testInput).
		Return(nil, understanding.NewRateLimitError("claude", errors.New("429"), 30*time.Second))
	p2.On("Understand", mock.Anything, testInput).
		Return(nil, understanding.NewRateLimitError("gemini", errors.New("429"), 90*time.Second))

	fu := understanding.NewFallbackUnderstander(
		[]port.Understander{p1, p2}, []string{"claude", "gemini"}, zerolog.Nop())

	_, err := fu.Understand(context.Background(), testInput)
	var rlErr *understanding.RateLimitError
	require.ErrorAs(t, err, &rlErr)
	assert.Equal(t, "all", rlErr.Provider)
	assert.InDelta(t, 30, rlErr.RetryAfter.Seconds(), 1)

	// Both circuits are open now; neither provider is called again.
	_, err = fu.Understand(context.Background(), testInput)
	require.ErrorAs(t, err, &rlErr)
	p1.AssertNumberOfCalls(t, "Understand", 1)
	p2.AssertNumberOfCalls(t, "Understand", 1)
}

func TestFallbackUnderstander_AllFail(t *testing.T) {
	p1 := new(mocks.MockUnderstander)
	p2 := new(mocks.MockUnderstander)
	p1.On("Understand", mock.Anything, testInput).
		Return(nil, understanding.NewRateLimitError("claude", errors.New("429"), 30*time.Second))
	p2.On("Understand", mock.Anything, testInput).Return(nil, errors.New("bad gateway"))

	fu := understanding.NewFallbackUnderstander(
		[]port.Understander{p1, p2}, []string{"claude", "gemini"}, zerolog.Nop())

	_, err := fu.Understand(context.Background(), testInput)
	require.Error(t, err)
	var rlErr *understanding.RateLimitError
	assert.False(t, errors.As(err, &rlErr))
	assert.Contains(t, err.Error(), "bad gateway")
}

func TestFallbackUnderstander_StopsOnCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p1 := new(mocks.MockUnderstander)
	p2 := new(mocks.MockUnderstander)
	p1.On("Understand", mock.Anything, testInput).
		Run(func(mock.Arguments) { cancel() }).
		Return(nil, context.Canceled)

	fu := understanding.NewFallbackUnderstander(
		[]port.Understander{p1, p2}, []string{"claude", "gemini"}, zerolog.Nop())

	_, err := fu.Understand(ctx, testInput)
	assert.ErrorIs(t, err, context.Canceled)
	p2.AssertNotCalled(t, "Understand", mock.Anything, mock.Anything)
}

func TestRetrying(t *testing.T) {
	t.Run("retries_transient_errors", func(t *testing.T) {
		p := new(mocks.MockUnderstander)
		p.On("Understand", mock.Anything, testInput).Return(nil, errors.New("timeout")).Twice()
		p.On("Understand", mock.Anything, testInput).Return(output("claude"), nil).Once()

		r := understanding.NewRetrying(p, "claude", 2, zerolog.Nop()).WithBackoff(0)
		result, err := r.Understand(context.Background(), testInput)

		require.NoError(t, err)
		assert.Equal(t, "claude", result.ModelUsed)
		p.AssertNumberOfCalls(t, "Understand", 3)
	})

	t.Run("gives_up_after_limit", func(t *testing.T) {
		p := new(mocks.MockUnderstander)
		p.On("Understand", mock.Anything, testInput).Return(nil, errors.New("timeout"))

		r := understanding.NewRetrying(p, "claude", 1, zerolog.Nop()).WithBackoff(0)
		_, err := r.Understand(context.Background(), testInput)

		assert.EqualError(t, err, "timeout")
		p.AssertNumberOfCalls(t, "Understand", 2)
	})

	t.Run("rate_limit_not_retried", func(t *testing.T) {
		p := new(mocks.MockUnderstander)
		p.On("Understand", mock.Anything, testInput).
			Return(nil, understanding.NewRateLimitError("claude", errors.New("429"), 5*time.Second))

		r := understanding.NewRetrying(p, "claude", 3, zerolog.Nop()).WithBackoff(0)
		_, err := r.Understand(context.Background(), testInput)

		var rlErr *understanding.RateLimitError
		assert.ErrorAs(t, err, &rlErr)
		p.AssertNumberOfCalls(t, "Understand", 1)
	})
}

func TestRateLimitError(t *testing.T) {
	err := understanding.NewRateLimitError("claude", errors.New("429"), 0)
	assert.Equal(t, understanding.DefaultRetryAfter, err.RetryAfter)
	assert.Contains(t, err.Error(), "claude rate limited")
	assert.EqualError(t, errors.Unwrap(err), "429")
}

func TestRateLimitFromResponse(t *testing.T) {
	now := time.Date(2025, time.May, 1, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		header string
		want   time.Duration
	}{
		{"seconds", "30", 30 * time.Second},
		{"http_date", "Thu, 01 May 2025 09:02:00 GMT", 2 * time.Minute},
		{"missing", "", understanding.DefaultRetryAfter},
		{"date_in_past", "Wed, 21 Oct 2015 07:28:00 GMT", understanding.DefaultRetryAfter},
		{"garbage", "soon", understanding.DefaultRetryAfter},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := &http.Response{StatusCode: http.StatusTooManyRequests, Header: http.Header{}}
			if tt.header != "" {
				resp.Header.Set("Retry-After", tt.header)
			}
			err := understanding.RateLimitFromResponse("claude", resp, errors.New("429"), now)
			assert.Equal(t, "claude", err.Provider)
			assert.Equal(t, tt.want, err.RetryAfter)
		})
	}
}

func TestThrottled(t *testing.T) {
	p := new(mocks.MockUnderstander)
	p.On("Understand", mock.Anything, testInput).Return(output("claude"), nil)

	th := understanding.NewThrottled(p, 1000)
	for i := 0; i < 3; i++ {
		_, err := th.Understand(context.Background(), testInput)
		require.NoError(t, err)
	}
	p.AssertNumberOfCalls(t, "Understand", 3)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := understanding.NewThrottled(p, 0.001).Understand(ctx, testInput)
	assert.Error(t, err)
}
