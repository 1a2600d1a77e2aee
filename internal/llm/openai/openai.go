// Package openai implements port.Generator on the OpenAI Chat Completions API.
package openai

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
	providerName = "openai"
	apiURL       = "https://api.openai.com/v1/chat/completions"
	defaultModel = "gpt-4o"
)

func init() {
	llm.RegisterProvider(providerName, func(cfg *config.LLMProviderConfig) (port.Generator, error) {
		return NewGenerator(cfg), nil
	})
}

// Generator requests a JSON object completion for the prompt.
type Generator struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
}

// NewGenerator creates an OpenAI generator from a provider config.
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
		"response_format": map[string]interface{}{
			"type": "json_object",
		},
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
		Header:   http.Header{"Authorization": []string{"Bearer " + g.apiKey}},
		Body:     reqBody,
	})
	if err != nil {
		return nil, err
	}
	return parseResponse(body, g.model)
}

// apiResponse models the Chat Completions response.
type apiResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

func parseResponse(body []byte, model string) (*port.Generation, error) {
	var resp apiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("unmarshaling response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, &extraction.EmptyResponseError{Provider: providerName}
	}
	if resp.Choices[0].FinishReason == "length" {
		return nil, fmt.Errorf("%w (finish_reason: length)", llm.ErrTruncated)
	}

	text := resp.Choices[0].Message.Content
	if strings.TrimSpace(text) == "" {
		return nil, &extraction.EmptyResponseError{Provider: providerName}
	}
	return &port.Generation{Text: text, Model: model}, nil
}
