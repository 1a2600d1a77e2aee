package llm_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"agrofin/internal/llm"
	"agrofin/internal/port"
	"agrofin/mocks"
)

const testPrompt = "extraia os dados"

func generation(model string) *port.Generation {
	return &port.Generation{Text: `{"ok":true}`, Model: model}
}

func TestFallbackGenerator_FirstSucceeds(t *testing.T) {
	g1 := new(mocks.MockGenerator)
	g2 := new(mocks.MockGenerator)
	g1.On("Generate", mock.Anything, testPrompt).Return(generation("gemini"), nil)

	fg := llm.NewFallbackGenerator([]port.Generator{g1, g2}, []string{"gemini", "claude"}, nil)
	out, err := fg.Generate(context.Background(), testPrompt)

	require.NoError(t, err)
	assert.Equal(t, "gemini", out.Model)
	g2.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
}

func TestFallbackGenerator_FirstFails_SecondSucceeds(t *testing.T) {
	g1 := new(mocks.MockGenerator)
	g2 := new(mocks.MockGenerator)
	g1.On("Generate", mock.Anything, testPrompt).Return(nil, errors.New("boom"))
	g2.On("Generate", mock.Anything, testPrompt).Return(generation("claude"), nil)

	fg := llm.NewFallbackGenerator([]port.Generator{g1, g2}, []string{"gemini", "claude"}, nil)
	out, err := fg.Generate(context.Background(), testPrompt)

	require.NoError(t, err)
	assert.Equal(t, "claude", out.Model)
}

func TestFallbackGenerator_RateLimitOpensCircuit(t *testing.T) {
	g1 := new(mocks.MockGenerator)
	g2 := new(mocks.MockGenerator)
	g1.On("Generate", mock.Anything, testPrompt).
		Return(nil, llm.NewRateLimitError("gemini", errors.New("429"), 60)).Once()
	g2.On("Generate", mock.Anything, testPrompt).Return(generation("claude"), nil)

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	fg := llm.NewFallbackGenerator([]port.Generator{g1, g2}, []string{"gemini", "claude"}, nil)
	fg.SetClock(func() time.Time { return now })

	_, err := fg.Generate(context.Background(), testPrompt)
	require.NoError(t, err)

	// Within the window the first provider is skipped.
	now = now.Add(30 * time.Second)
	out, err := fg.Generate(context.Background(), testPrompt)
	require.NoError(t, err)
	assert.Equal(t, "claude", out.Model)
	g1.AssertNumberOfCalls(t, "Generate", 1)

	// After the window it is tried again.
	now = now.Add(31 * time.Second)
	g1.On("Generate", mock.Anything, testPrompt).Return(generation("gemini"), nil)
	out, err = fg.Generate(context.Background(), testPrompt)
	require.NoError(t, err)
	assert.Equal(t, "gemini", out.Model)
}

func TestFallbackGenerator_AllRateLimited(t *testing.T) {
	g1 := new(mocks.MockGenerator)
	g2 := new(mocks.MockGenerator)
	g1.On("Generate", mock.Anything, testPrompt).Return(nil, llm.NewRateLimitError("gemini", errors.New("429"), 30))
	g2.On("Generate", mock.Anything, testPrompt).Return(nil, llm.NewRateLimitError("claude", errors.New("429"), 90))

	fg := llm.NewFallbackGenerator([]port.Generator{g1, g2}, []string{"gemini", "claude"}, nil)
	_, err := fg.Generate(context.Background(), testPrompt)

	var rlErr *llm.RateLimitError
	require.ErrorAs(t, err, &rlErr)
	assert.Equal(t, "all", rlErr.Provider)
	assert.Equal(t, 30*time.Second, rlErr.RetryAfter)
}

func TestFallbackGenerator_AllCircuitsOpen(t *testing.T) {
	g1 := new(mocks.MockGenerator)
	g1.On("Generate", mock.Anything, testPrompt).Return(nil, llm.NewRateLimitError("gemini", errors.New("429"), 45)).Once()

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	fg := llm.NewFallbackGenerator([]port.Generator{g1}, []string{"gemini"}, nil)
	fg.SetClock(func() time.Time { return now })

	_, err := fg.Generate(context.Background(), testPrompt)
	require.Error(t, err)

	now = now.Add(15 * time.Second)
	_, err = fg.Generate(context.Background(), testPrompt)
	var rlErr *llm.RateLimitError
	require.ErrorAs(t, err, &rlErr)
	assert.Equal(t, 30*time.Second, rlErr.RetryAfter)
	g1.AssertNumberOfCalls(t, "Generate", 1)
}

func TestFallbackGenerator_MixedFailuresWrapLastError(t *testing.T) {
	g1 := new(mocks.MockGenerator)
	g2 := new(mocks.MockGenerator)
	last := &llm.APIError{Provider: "claude", StatusCode: 500, Body: "oops"}
	g1.On("Generate", mock.Anything, testPrompt).Return(nil, llm.NewRateLimitError("gemini", errors.New("429"), 10))
	g2.On("Generate", mock.Anything, testPrompt).Return(nil, last)

	fg := llm.NewFallbackGenerator([]port.Generator{g1, g2}, []string{"gemini", "claude"}, nil)
	_, err := fg.Generate(context.Background(), testPrompt)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "all providers failed")
	assert.ErrorIs(t, err, last)
}

func TestFallbackGenerator_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	g1 := new(mocks.MockGenerator)
	g2 := new(mocks.MockGenerator)
	g1.On("Generate", mock.Anything, testPrompt).Return(nil, context.Canceled)

	fg := llm.NewFallbackGenerator([]port.Generator{g1, g2}, []string{"gemini", "claude"}, nil)
	_, err := fg.Generate(ctx, testPrompt)

	assert.ErrorIs(t, err, context.Canceled)
	g2.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
}
