// Package ai defines the chat-completion collaborator contract. The engine
// treats a completion provider as an opaque function from a prompt to text;
// concrete adapters live in subpackages and are swappable without touching
// any handler.
package ai

import (
	"context"
	"net/http"
)

// Message role values, in the wire vocabulary completion APIs expect.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of a chat-completion prompt.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is a single completion call. Model may be empty, in which
// case the adapter's configured default applies.
type ChatRequest struct {
	Model    string
	Messages []Message
}

// ChatResponse is the completed reply to a ChatRequest.
type ChatResponse struct {
	Content string
	Model   string
}

// Provider is the synchronous completion contract. Implementations must
// honor context cancellation: an aborted run cancels in-flight calls.
type Provider interface {
	// SendMessage sends a chat request and returns the completed response.
	SendMessage(ctx context.Context, request ChatRequest) (*ChatResponse, error)

	// WithHTTPClient sets the HTTP client used for outbound requests,
	// mainly so tests can point the adapter at a fixture server.
	WithHTTPClient(client *http.Client) Provider
}

// StreamProvider is an optional extension for adapters that can deliver the
// reply incrementally. Callers detect support via type assertion and fall
// back to SendMessage otherwise. onDelta is invoked once per content
// fragment, in arrival order, from a single goroutine.
type StreamProvider interface {
	Provider
	StreamMessage(ctx context.Context, request ChatRequest, onDelta func(delta string)) (*ChatResponse, error)
}
