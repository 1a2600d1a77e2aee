// Package claude implements port.Generator on the Anthropic Messages API.
package claude

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"agrofin/internal/config"
	"agrofin/internal/extraction"
	"agrofin/internal/llm"
	"agrofin/internal/port"
)

const (
	providerName = "claude"
	apiURL       = "https://api.anthropic.com/v1/messages"
	apiVersion   = "2023-06-01"
	defaultModel = "claude-sonnet-4-20250514"
)

func init() {
	llm.RegisterProvider(providerName, func(cfg *config.LLMProviderConfig) (port.Generator, error) {
		return NewGenerator(cfg), nil
	})
}

// Generator sends the prompt as a single user message.
type Generator struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
}

// NewGenerator creates a Claude generator from a provider config.
func NewGenerator(cfg *config.LLMProviderConfig) *Generator {
	return newGenerator(cfg, apiURL)
}

// NewGeneratorWithEndpoint creates a generator pointing at a custom API endpoint (for testing).
func NewGeneratorWithEndpoint(cfg *config.LLMProviderConfig, endpoint string) *Generator {
	return newGenerator(cfg, endpoint)
}

func newGenerator(cfg *config.LLMProviderConfig, endpoint string) *Generator {
	model := cfg.DefaultModel
	if model == "" {
		model = defaultModel
	}
	return &Generator{
		apiKey:   cfg.APIKey,
		model:    model,
		endpoint: endpoint,
		client:   &http.Client{Timeout: llm.Timeout(cfg.TimeoutSecs)},
	}
}

func (g *Generator) Generate(ctx context.Context, prompt string) (*port.Generation, error) {
	reqBody := map[string]interface{}{
		"model":      g.model,
		"max_tokens": 8192,
		"messages": []map[string]interface{}{
			{
				"role":    "user",
				"content": prompt,
			},
		},
	}

	body, err := llm.PostJSON(ctx, g.client, llm.Request{
		Provider: providerName,
		Endpoint: g.endpoint,
		Header: http.Header{
			"X-Api-Key":         []string{g.apiKey},
			"Anthropic-Version": []string{apiVersion},
		},
		Body: reqBody,
	})
	if err != nil {
		return nil, err
	}
	return parseResponse(body, g.model)
}

// apiResponse models the Messages API response.
type apiResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

func parseResponse(body []byte, model string) (*port.Generation, error) {
	var resp apiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("unmarshaling response: %w", err)
	}
	if resp.StopReason == "max_tokens" {
		return nil, fmt.Errorf("%w (stop_reason: max_tokens)", llm.ErrTruncated)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if strings.TrimSpace(text.String()) == "" {
		return nil, &extraction.EmptyResponseError{Provider: providerName}
	}
	return &port.Generation{Text: text.String(), Model: model}, nil
}
