// Package search defines the contract for web search providers.
package search

import (
	"context"
	"net/http"
)

// Result is a single search hit.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

// Provider performs a web search and returns ranked results.
type Provider interface {
	// Search runs the query and returns up to maxResults hits. A query with
	// no hits returns an empty slice, not an error.
	Search(ctx context.Context, query string, maxResults int) ([]Result, error)
	// WithHTTPClient sets the HTTP client used for outbound requests.
	WithHTTPClient(client *http.Client) Provider
}
