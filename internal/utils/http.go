// Package utils holds small shared helpers for the outbound provider
// adapters: JSON-over-HTTP POST plumbing, an SSE reader for streaming
// completions, and string formatting for log output.
package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

// maxErrorBodySize caps how much of a failed response body is read back
// for the error message.
const maxErrorBodySize int64 = 1 << 20

// CloseWithLog closes a ReadCloser and logs a close failure instead of
// letting it override the caller's primary error.
func CloseWithLog(closer io.ReadCloser) {
	if err := closer.Close(); err != nil {
		slog.Warn("failed to close response body", "error", err.Error())
	}
}

// DoPostJSON performs a synchronous HTTP POST with a JSON body and decodes
// the JSON response into Output. Context cancellation propagates through the
// request; non-2xx statuses become errors carrying a body preview.
func DoPostJSON[Output any](ctx context.Context, client *http.Client, url, apiKey string, body any) (*Output, error) {
	httpClient := client
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("error marshaling request body: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		request.Header.Set("Authorization", "Bearer "+apiKey)
	}

	response, err := httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("error sending request: %w", err)
	}
	defer CloseWithLog(response.Body)

	responseBody, err := io.ReadAll(io.LimitReader(response.Body, maxErrorBodySize*10))
	if err != nil {
		return nil, fmt.Errorf("error reading response body: %w", err)
	}

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return nil, fmt.Errorf("non-2xx status %d: %s", response.StatusCode, TruncateString(string(responseBody), 500))
	}

	var decoded Output
	if err := json.Unmarshal(responseBody, &decoded); err != nil {
		return nil, fmt.Errorf("error unmarshaling response (status %d): %w; preview: %s",
			response.StatusCode, err, TruncateString(string(responseBody), 500))
	}
	return &decoded, nil
}

// DoPostStream performs an HTTP POST and returns the response with its body
// left open for SSE consumption. The caller owns closing the body; on error
// paths the body is drained and closed here.
func DoPostStream(ctx context.Context, client *http.Client, url, apiKey string, body any) (*http.Response, error) {
	httpClient := client
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("error marshaling request body: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Accept", "text/event-stream")
	if apiKey != "" {
		request.Header.Set("Authorization", "Bearer "+apiKey)
	}

	response, err := httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("error sending stream request: %w", err)
	}

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		defer CloseWithLog(response.Body)
		errorBody, readErr := io.ReadAll(io.LimitReader(response.Body, maxErrorBodySize))
		if readErr != nil {
			return nil, fmt.Errorf("non-2xx status %d (failed to read body: %v)", response.StatusCode, readErr)
		}
		return nil, fmt.Errorf("non-2xx status %d: %s", response.StatusCode, TruncateString(string(errorBody), 500))
	}

	return response, nil
}
