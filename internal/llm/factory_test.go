package llm_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"agrofin/internal/config"
	"agrofin/internal/llm"
	"agrofin/internal/port"
	"agrofin/mocks"
)

func TestNewGenerator_UnknownProvider(t *testing.T) {
	_, err := llm.NewGenerator(&config.LLMProviderConfig{Provider: "nonexistent"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown llm provider")
}

func TestNewGenerator_UsesRegisteredFactory(t *testing.T) {
	g := new(mocks.MockGenerator)
	llm.RegisterProvider("test-factory", func(cfg *config.LLMProviderConfig) (port.Generator, error) {
		assert.Equal(t, "key", cfg.APIKey)
		return g, nil
	})

	got, err := llm.NewGenerator(&config.LLMProviderConfig{Provider: "test-factory", APIKey: "key"})
	require.NoError(t, err)
	assert.Same(t, g, got)
	assert.Contains(t, llm.Registered(), "test-factory")
}

func TestBuild_NoProviders(t *testing.T) {
	_, err := llm.Build(&config.LLMConfig{}, nil)
	require.Error(t, err)
}

func TestBuild_SingleProviderIsRetryWrapped(t *testing.T) {
	llm.RegisterProvider("test-single", func(*config.LLMProviderConfig) (port.Generator, error) {
		return new(mocks.MockGenerator), nil
	})

	got, err := llm.Build(&config.LLMConfig{Primary: config.LLMProviderConfig{Provider: "test-single"}}, nil)
	require.NoError(t, err)
	assert.IsType(t, &llm.RetryGenerator{}, got)
}

func TestBuild_FallsBackInConfiguredOrder(t *testing.T) {
	primary := new(mocks.MockGenerator)
	tertiary := new(mocks.MockGenerator)
	primary.On("Generate", mock.Anything, testPrompt).Return(nil, &llm.APIError{Provider: "a", StatusCode: 401})
	tertiary.On("Generate", mock.Anything, testPrompt).Return(generation("c"), nil)

	llm.RegisterProvider("test-a", func(*config.LLMProviderConfig) (port.Generator, error) { return primary, nil })
	llm.RegisterProvider("test-c", func(*config.LLMProviderConfig) (port.Generator, error) { return tertiary, nil })

	got, err := llm.Build(&config.LLMConfig{
		Primary:  config.LLMProviderConfig{Provider: "test-a"},
		Tertiary: config.LLMProviderConfig{Provider: "test-c"},
	}, nil)
	require.NoError(t, err)
	assert.IsType(t, &llm.FallbackGenerator{}, got)

	out, err := got.Generate(context.Background(), testPrompt)
	require.NoError(t, err)
	assert.Equal(t, "c", out.Model)
	primary.AssertNumberOfCalls(t, "Generate", 1)
}
