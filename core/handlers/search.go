package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/jong-choi/langflow/core/engine"
	"github.com/jong-choi/langflow/core/state"
	"github.com/jong-choi/langflow/providers/search"
)

// maxSearchResults caps how many hits a search node records.
const maxSearchResults = 5

const searchApology = "Sorry, the web search failed. Please try again."

// Search extracts a query from state, calls the search provider, and records
// both the raw results and a readable summary. Provider failures are
// contained the same way chat failures are.
func Search(provider search.Provider) engine.Handler {
	return engine.HandlerFunc(func(ctx context.Context, snapshot state.Snapshot, nodeCtx engine.NodeContext) (state.Update, error) {
		query := searchQuery(snapshot, nodeCtx)

		results, err := provider.Search(ctx, query, maxSearchResults)
		if err != nil {
			update := record(nodeCtx.Node.ID, kindSearch, map[string]any{
				"error": err.Error(),
				"query": query,
			})
			update[state.ChannelMessages] = state.Message{Role: state.RoleAI, Content: searchApology}
			return update, err
		}
		if len(results) > maxSearchResults {
			results = results[:maxSearchResults]
		}

		summary := formatSearchSummary(query, results)
		raw := make([]state.SearchResult, len(results))
		for index, result := range results {
			raw[index] = state.SearchResult{Title: result.Title, URL: result.URL, Content: result.Content}
		}

		update := record(nodeCtx.Node.ID, kindSearch, map[string]any{
			"response": summary,
			"results":  raw,
			"query":    query,
		})
		update[state.ChannelSearchResults] = raw
		return update, nil
	})
}

// searchQuery resolves the query: explicit config field, else the last
// message content, else empty.
func searchQuery(snapshot state.Snapshot, nodeCtx engine.NodeContext) string {
	if query := configString(nodeCtx.Node, "query"); query != "" {
		return query
	}
	if message, ok := snapshot.LastMessage(); ok {
		return message.Content
	}
	return ""
}

func formatSearchSummary(query string, results []search.Result) string {
	if len(results) == 0 {
		return fmt.Sprintf("No search results found for %q.", query)
	}

	var builder strings.Builder
	fmt.Fprintf(&builder, "Search results for %q:\n", query)
	for index, result := range results {
		fmt.Fprintf(&builder, "\n%d. %s", index+1, result.Title)
		if result.URL != "" {
			fmt.Fprintf(&builder, "\n   %s", result.URL)
		}
		if result.Content != "" {
			fmt.Fprintf(&builder, "\n   %s", result.Content)
		}
		builder.WriteString("\n")
	}
	return strings.TrimRight(builder.String(), "\n")
}
