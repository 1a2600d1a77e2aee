// Package gemini implements port.Generator on Google's Gemini API.
package gemini

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
	providerName = "gemini"
	apiBaseURL   = "https://generativelanguage.googleapis.com/v1beta/models"
	defaultModel = "gemini-2.0-flash"
)

func init() {
	llm.RegisterProvider(providerName, func(cfg *config.LLMProviderConfig) (port.Generator, error) {
		return NewGenerator(cfg), nil
	})
}

// Generator calls the generateContent endpoint with a text prompt.
type Generator struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
}

// NewGenerator creates a Gemini generator.
func NewGenerator(cfg *config.LLMProviderConfig) *Generator {
	return newGenerator(cfg, "")
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
	if endpoint == "" {
		endpoint = fmt.Sprintf("%s/%s:generateContent", apiBaseURL, model)
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
		"contents": []map[string]interface{}{
			{
				"role": "user",
				"parts": []map[string]interface{}{
					{"text": prompt},
				},
			},
		},
		"generationConfig": map[string]interface{}{
			"responseMimeType": "application/json",
			"maxOutputTokens":  8192,
		},
	}

	body, err := llm.PostJSON(ctx, g.client, llm.Request{
		Provider: providerName,
		Endpoint: g.endpoint,
		Header:   http.Header{"X-Goog-Api-Key": []string{g.apiKey}},
		Body:     reqBody,
	})
	if err != nil {
		return nil, err
	}
	return parseResponse(body, g.model)
}

// apiResponse models the generateContent response.
type apiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
}

func parseResponse(body []byte, model string) (*port.Generation, error) {
	var resp apiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("unmarshaling response: %w", err)
	}
	if len(resp.Candidates) == 0 {
		return nil, &extraction.EmptyResponseError{Provider: providerName}
	}

	candidate := resp.Candidates[0]
	if candidate.FinishReason == "MAX_TOKENS" {
		return nil, fmt.Errorf("%w (finishReason: MAX_TOKENS)", llm.ErrTruncated)
	}

	var text strings.Builder
	for _, part := range candidate.Content.Parts {
		text.WriteString(part.Text)
	}
	if strings.TrimSpace(text.String()) == "" {
		return nil, &extraction.EmptyResponseError{Provider: providerName}
	}
	return &port.Generation{Text: text.String(), Model: model}, nil
}
