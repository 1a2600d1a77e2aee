package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultTimeout bounds a single provider request.
const DefaultTimeout = 120 * time.Second

// maxErrorBody caps the reply text kept on an APIError.
const maxErrorBody = 2048

// Request is a JSON POST to a provider endpoint.
type Request struct {
	Provider string
	Endpoint string
	Header   http.Header
	Body     any
}

// PostJSON sends req and returns the body of a 200 reply. A 429 becomes a
// *RateLimitError wrapping an *APIError, other statuses an *APIError.
func PostJSON(ctx context.Context, client *http.Client, req Request) ([]byte, error) {
	bodyBytes, err := json.Marshal(req.Body)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, req.Endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	for k, v := range req.Header {
		httpReq.Header[k] = v
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("calling %s API: %w", req.Provider, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{Provider: req.Provider, StatusCode: resp.StatusCode, Body: truncate(string(respBody), maxErrorBody)}
		if resp.StatusCode == http.StatusTooManyRequests {
			retryAfter := ParseRetryAfterHeader(resp.Header.Get("Retry-After"))
			return nil, NewRateLimitError(req.Provider, apiErr, retryAfter)
		}
		return nil, apiErr
	}
	return respBody, nil
}

// Timeout converts a configured number of seconds into a request timeout.
func Timeout(secs int) time.Duration {
	if secs <= 0 {
		return DefaultTimeout
	}
	return time.Duration(secs) * time.Second
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
