package llm_test

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"agrofin/internal/extraction"
	"agrofin/internal/llm"
	"agrofin/mocks"
)

type recordedSleeps struct {
	waits []time.Duration
}

func (r *recordedSleeps) sleep(_ context.Context, d time.Duration) error {
	r.waits = append(r.waits, d)
	return nil
}

func newRetry(g *mocks.MockGenerator, retries int) (*llm.RetryGenerator, *recordedSleeps) {
	rec := &recordedSleeps{}
	return llm.NewRetryGenerator(g, retries,
		llm.WithBackoff(time.Second, 4*time.Second),
		llm.WithSleep(rec.sleep),
	), rec
}

func TestRetryGenerator_SucceedsFirstTry(t *testing.T) {
	g := new(mocks.MockGenerator)
	g.On("Generate", mock.Anything, testPrompt).Return(generation("gemini"), nil)

	r, rec := newRetry(g, 3)
	out, err := r.Generate(context.Background(), testPrompt)

	require.NoError(t, err)
	assert.Equal(t, "gemini", out.Model)
	assert.Empty(t, rec.waits)
}

func TestRetryGenerator_RetriesServerErrorsWithBackoff(t *testing.T) {
	g := new(mocks.MockGenerator)
	serverErr := &llm.APIError{Provider: "gemini", StatusCode: 503}
	g.On("Generate", mock.Anything, testPrompt).Return(nil, serverErr).Times(3)
	g.On("Generate", mock.Anything, testPrompt).Return(generation("gemini"), nil).Once()

	r, rec := newRetry(g, 3)
	out, err := r.Generate(context.Background(), testPrompt)

	require.NoError(t, err)
	assert.Equal(t, "gemini", out.Model)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}, rec.waits)
}

func TestRetryGenerator_GivesUpAfterMaxRetries(t *testing.T) {
	g := new(mocks.MockGenerator)
	serverErr := &llm.APIError{Provider: "gemini", StatusCode: 500}
	g.On("Generate", mock.Anything, testPrompt).Return(nil, serverErr)

	r, rec := newRetry(g, 2)
	_, err := r.Generate(context.Background(), testPrompt)

	assert.ErrorIs(t, err, serverErr)
	g.AssertNumberOfCalls(t, "Generate", 3)
	assert.Len(t, rec.waits, 2)
}

func TestRetryGenerator_PermanentErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"client error", &llm.APIError{Provider: "gemini", StatusCode: 400}},
		{"empty response", &extraction.EmptyResponseError{Provider: "gemini"}},
		{"truncated", fmt.Errorf("%w (finishReason: MAX_TOKENS)", llm.ErrTruncated)},
		{"long rate limit", llm.NewRateLimitError("gemini", errors.New("429"), 60)},
		{"unknown", errors.New("unmarshaling response")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := new(mocks.MockGenerator)
			g.On("Generate", mock.Anything, testPrompt).Return(nil, tt.err)

			r, rec := newRetry(g, 3)
			_, err := r.Generate(context.Background(), testPrompt)

			assert.ErrorIs(t, err, tt.err)
			g.AssertNumberOfCalls(t, "Generate", 1)
			assert.Empty(t, rec.waits)
		})
	}
}

func TestRetryGenerator_ShortRateLimitWaitsRetryAfter(t *testing.T) {
	g := new(mocks.MockGenerator)
	g.On("Generate", mock.Anything, testPrompt).Return(nil, llm.NewRateLimitError("gemini", errors.New("429"), 3)).Once()
	g.On("Generate", mock.Anything, testPrompt).Return(generation("gemini"), nil).Once()

	r, rec := newRetry(g, 1)
	_, err := r.Generate(context.Background(), testPrompt)

	require.NoError(t, err)
	assert.Equal(t, []time.Duration{3 * time.Second}, rec.waits)
}

func TestRetryGenerator_RetriesNetworkErrors(t *testing.T) {
	g := new(mocks.MockGenerator)
	netErr := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
	g.On("Generate", mock.Anything, testPrompt).Return(nil, fmt.Errorf("calling gemini API: %w", netErr)).Once()
	g.On("Generate", mock.Anything, testPrompt).Return(generation("gemini"), nil).Once()

	r, _ := newRetry(g, 1)
	_, err := r.Generate(context.Background(), testPrompt)

	require.NoError(t, err)
	g.AssertNumberOfCalls(t, "Generate", 2)
}

func TestRetryGenerator_CancelledContextStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	g := new(mocks.MockGenerator)
	g.On("Generate", mock.Anything, testPrompt).Return(nil, &llm.APIError{Provider: "gemini", StatusCode: 502})

	r, rec := newRetry(g, 3)
	_, err := r.Generate(ctx, testPrompt)

	require.Error(t, err)
	g.AssertNumberOfCalls(t, "Generate", 1)
	assert.Empty(t, rec.waits)
}

func TestRetryGenerator_NegativeRetriesMeansOneAttempt(t *testing.T) {
	g := new(mocks.MockGenerator)
	g.On("Generate", mock.Anything, testPrompt).Return(nil, &llm.APIError{Provider: "gemini", StatusCode: 500})

	r, _ := newRetry(g, -1)
	_, err := r.Generate(context.Background(), testPrompt)

	require.Error(t, err)
	g.AssertNumberOfCalls(t, "Generate", 1)
}
