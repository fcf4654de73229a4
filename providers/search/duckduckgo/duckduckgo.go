// Package duckduckgo implements search.Provider on top of the free
// DuckDuckGo Instant Answer API.
package duckduckgo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	"github.com/jong-choi/langflow/internal/utils"
	"github.com/jong-choi/langflow/providers/search"
)

const defaultBaseURL = "https://api.duckduckgo.com"

// Provider queries the DuckDuckGo Instant Answer API. The API returns
// abstracts, instant answers, and related topics rather than a ranked page
// list, so results are synthesized from those fields.
type Provider struct {
	baseURL    string
	httpClient *http.Client
}

var _ search.Provider = (*Provider)(nil)

func New() *Provider {
	return &Provider{baseURL: defaultBaseURL}
}

// WithBaseURL overrides the API endpoint. Used in tests.
func (provider *Provider) WithBaseURL(baseURL string) *Provider {
	provider.baseURL = strings.TrimSuffix(baseURL, "/")
	return provider
}

// WithHTTPClient sets the HTTP client used for outbound requests.
func (provider *Provider) WithHTTPClient(client *http.Client) search.Provider {
	provider.httpClient = client
	return provider
}

// ddgResponse represents the Instant Answer API response.
type ddgResponse struct {
	Heading       string     `json:"Heading"`
	Abstract      string     `json:"Abstract"`
	AbstractText  string     `json:"AbstractText"`
	AbstractURL   string     `json:"AbstractURL"`
	Answer        string     `json:"Answer"`
	Definition    string     `json:"Definition"`
	DefinitionURL string     `json:"DefinitionURL"`
	RelatedTopics []ddgTopic `json:"RelatedTopics"`
}

// ddgTopic is either a leaf topic or a category holding nested topics.
type ddgTopic struct {
	FirstURL string     `json:"FirstURL"`
	Text     string     `json:"Text"`
	Topics   []ddgTopic `json:"Topics"`
}

// Search implements search.Provider.
func (provider *Provider) Search(ctx context.Context, query string, maxResults int) ([]search.Result, error) {
	if maxResults <= 0 {
		maxResults = 5
	}

	response, err := provider.fetch(ctx, query)
	if err != nil {
		return nil, err
	}

	var results []search.Result

	if abstract := provider.abstractContent(response); abstract != "" {
		title := response.Heading
		if title == "" {
			title = query
		}
		results = append(results, search.Result{
			Title:   title,
			URL:     response.AbstractURL,
			Content: abstract,
		})
	}

	if response.Answer != "" {
		results = append(results, search.Result{
			Title:   "Instant answer",
			Content: response.Answer,
		})
	}

	if response.Definition != "" {
		results = append(results, search.Result{
			Title:   "Definition",
			URL:     response.DefinitionURL,
			Content: response.Definition,
		})
	}

	for _, topic := range flattenTopics(response.RelatedTopics) {
		if len(results) >= maxResults {
			break
		}
		if topic.Text == "" {
			continue
		}
		results = append(results, search.Result{
			Title:   topicTitle(topic.Text),
			URL:     topic.FirstURL,
			Content: topic.Text,
		})
	}

	if len(results) > maxResults {
		results = results[:maxResults]
	}
	return results, nil
}

// abstractContent prefers the plain-text abstract; when only the HTML form is
// present it is converted to markdown so downstream prompts stay readable.
func (provider *Provider) abstractContent(response *ddgResponse) string {
	if response.AbstractText != "" {
		return response.AbstractText
	}
	if response.Abstract == "" {
		return ""
	}
	converted, err := htmltomarkdown.ConvertString(response.Abstract)
	if err != nil {
		return response.Abstract
	}
	return strings.TrimSpace(converted)
}

func (provider *Provider) fetch(ctx context.Context, query string) (*ddgResponse, error) {
	params := url.Values{}
	params.Add("q", query)
	params.Add("format", "json")
	params.Add("skip_disambig", "1")

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, provider.baseURL+"/?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	request.Header.Set("User-Agent", "langflow-search/1.0")

	httpClient := provider.httpClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	response, err := httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("error making request: %w", err)
	}
	defer utils.CloseWithLog(response.Body)

	if response.StatusCode != http.StatusOK && response.StatusCode != http.StatusAccepted {
		return nil, fmt.Errorf("unexpected status code: %d", response.StatusCode)
	}

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response: %w", err)
	}

	var decoded ddgResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("error parsing response: %w", err)
	}
	return &decoded, nil
}

// flattenTopics walks category topics into a flat leaf list.
func flattenTopics(topics []ddgTopic) []ddgTopic {
	var flat []ddgTopic
	for _, topic := range topics {
		if len(topic.Topics) > 0 {
			flat = append(flat, flattenTopics(topic.Topics)...)
			continue
		}
		flat = append(flat, topic)
	}
	return flat
}

// topicTitle derives a short title from a topic's leading text.
func topicTitle(text string) string {
	if idx := strings.Index(text, " - "); idx > 0 {
		return text[:idx]
	}
	runes := []rune(text)
	if len(runes) > 60 {
		return string(runes[:60])
	}
	return text
}
