// Package openai is a chat-completions adapter for OpenAI-compatible APIs.
// It implements both ai.Provider and ai.StreamProvider and works against
// any endpoint speaking the /chat/completions wire format.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/jong-choi/langflow/internal/utils"
	"github.com/jong-choi/langflow/providers/ai"
)

const defaultBaseURL = "https://api.openai.com/v1"

// Provider calls an OpenAI-compatible chat-completions endpoint.
type Provider struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

var (
	_ ai.Provider       = (*Provider)(nil)
	_ ai.StreamProvider = (*Provider)(nil)
)

// New creates an adapter with a default model. baseURL may be empty for the
// OpenAI endpoint proper.
func New(apiKey, baseURL, model string) *Provider {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Provider{apiKey: apiKey, baseURL: strings.TrimSuffix(baseURL, "/"), model: model}
}

// WithHTTPClient sets the HTTP client used for outbound requests.
func (provider *Provider) WithHTTPClient(client *http.Client) ai.Provider {
	provider.httpClient = client
	return provider
}

// --- wire types ---

type chatCompletionRequest struct {
	Model    string       `json:"model"`
	Messages []ai.Message `json:"messages"`
	Stream   bool         `json:"stream,omitempty"`
}

type chatCompletionResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

func (provider *Provider) resolveModel(requested string) string {
	if requested != "" {
		return requested
	}
	return provider.model
}

// SendMessage implements ai.Provider.
func (provider *Provider) SendMessage(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
	body := chatCompletionRequest{
		Model:    provider.resolveModel(request.Model),
		Messages: request.Messages,
	}

	decoded, err := utils.DoPostJSON[chatCompletionResponse](ctx, provider.httpClient, provider.baseURL+"/chat/completions", provider.apiKey, body)
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(decoded.Choices) == 0 {
		return nil, errors.New("chat completion returned no choices")
	}

	return &ai.ChatResponse{
		Content: decoded.Choices[0].Message.Content,
		Model:   decoded.Model,
	}, nil
}

// StreamMessage implements ai.StreamProvider. It accumulates the full reply
// while forwarding each content delta to onDelta.
func (provider *Provider) StreamMessage(ctx context.Context, request ai.ChatRequest, onDelta func(delta string)) (*ai.ChatResponse, error) {
	body := chatCompletionRequest{
		Model:    provider.resolveModel(request.Model),
		Messages: request.Messages,
		Stream:   true,
	}

	response, err := utils.DoPostStream(ctx, provider.httpClient, provider.baseURL+"/chat/completions", provider.apiKey, body)
	if err != nil {
		return nil, fmt.Errorf("chat completion stream failed: %w", err)
	}
	defer utils.CloseWithLog(response.Body)

	var content strings.Builder
	model := body.Model

	scanner := utils.NewSSEScanner(response.Body)
	for {
		payload, err := scanner.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("chat completion stream read failed: %w", err)
		}

		var chunk chatCompletionResponse
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			// Skip malformed keepalive payloads rather than aborting the reply.
			continue
		}
		if chunk.Model != "" {
			model = chunk.Model
		}
		for _, choice := range chunk.Choices {
			if choice.Delta.Content != "" {
				content.WriteString(choice.Delta.Content)
				if onDelta != nil {
					onDelta(choice.Delta.Content)
				}
			}
		}
	}

	return &ai.ChatResponse{Content: content.String(), Model: model}, nil
}
