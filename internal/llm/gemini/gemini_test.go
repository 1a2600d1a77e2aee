package gemini_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agrofin/internal/config"
	"agrofin/internal/extraction"
	"agrofin/internal/llm"
	"agrofin/internal/llm/gemini"
)

func newTestGenerator(serverURL string) *gemini.Generator {
	cfg := &config.LLMProviderConfig{
		Provider:     "gemini",
		APIKey:       "test-gemini-key",
		DefaultModel: "gemini-2.0-flash",
		TimeoutSecs:  30,
	}
	return gemini.NewGeneratorWithEndpoint(cfg, serverURL)
}

func successResponse(finishReason string, parts ...string) map[string]interface{} {
	ps := make([]map[string]interface{}, 0, len(parts))
	for _, p := range parts {
		ps = append(ps, map[string]interface{}{"text": p})
	}
	return map[string]interface{}{
		"candidates": []map[string]interface{}{
			{
				"content":      map[string]interface{}{"role": "model", "parts": ps},
				"finishReason": finishReason,
			},
		},
	}
}

func serve(t *testing.T, status int, body interface{}) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestGenerator_SendsTextPrompt(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "test-gemini-key", r.Header.Get("x-goog-api-key"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var reqBody map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&reqBody))
		contents := reqBody["contents"].([]interface{})
		require.Len(t, contents, 1)
		parts := contents[0].(map[string]interface{})["parts"].([]interface{})
		require.Len(t, parts, 1)
		assert.Equal(t, "extraia os dados", parts[0].(map[string]interface{})["text"])

		genCfg := reqBody["generationConfig"].(map[string]interface{})
		assert.Equal(t, "application/json", genCfg["responseMimeType"])

		_ = json.NewEncoder(w).Encode(successResponse("STOP", `{"numero_nota_fiscal":"123"}`))
	}))
	defer server.Close()

	out, err := newTestGenerator(server.URL).Generate(context.Background(), "extraia os dados")

	require.NoError(t, err)
	assert.Equal(t, `{"numero_nota_fiscal":"123"}`, out.Text)
	assert.Equal(t, "gemini-2.0-flash", out.Model)
}

func TestGenerator_JoinsParts(t *testing.T) {
	server := serve(t, http.StatusOK, successResponse("STOP", `{"a":`, `1}`))

	out, err := newTestGenerator(server.URL).Generate(context.Background(), "p")

	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, out.Text)
}

func TestGenerator_EmptyResponses(t *testing.T) {
	tests := []struct {
		name string
		body interface{}
	}{
		{"no candidates", map[string]interface{}{"candidates": []interface{}{}}},
		{"no parts", successResponse("STOP")},
		{"blank text", successResponse("STOP", "  \n")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := serve(t, http.StatusOK, tt.body)

			_, err := newTestGenerator(server.URL).Generate(context.Background(), "p")

			var emptyErr *extraction.EmptyResponseError
			require.ErrorAs(t, err, &emptyErr)
			assert.Equal(t, "gemini", emptyErr.Provider)
		})
	}
}

func TestGenerator_Truncated(t *testing.T) {
	server := serve(t, http.StatusOK, successResponse("MAX_TOKENS", `{"a":`))

	_, err := newTestGenerator(server.URL).Generate(context.Background(), "p")

	assert.ErrorIs(t, err, llm.ErrTruncated)
}

func TestGenerator_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "12")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"code":429}}`))
	}))
	defer server.Close()

	_, err := newTestGenerator(server.URL).Generate(context.Background(), "p")

	var rlErr *llm.RateLimitError
	require.ErrorAs(t, err, &rlErr)
	assert.Equal(t, "gemini", rlErr.Provider)
	assert.Equal(t, 12.0, rlErr.RetryAfter.Seconds())
}

func TestGenerator_APIError(t *testing.T) {
	server := serve(t, http.StatusBadRequest, map[string]interface{}{"error": "bad request"})

	_, err := newTestGenerator(server.URL).Generate(context.Background(), "p")

	var apiErr *llm.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "bad request")
}

func TestGenerator_RegisteredWithFactory(t *testing.T) {
	g, err := llm.NewGenerator(&config.LLMProviderConfig{Provider: "gemini", APIKey: "k"})
	require.NoError(t, err)
	assert.IsType(t, &gemini.Generator{}, g)
}
