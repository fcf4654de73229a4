package chatflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/jong-choi/langflow/core/engine"
	"github.com/jong-choi/langflow/core/state"
	"github.com/jong-choi/langflow/providers/search"
)

const maxSearchResults = 5

// Search runs the routing decision's queries against the search provider and
// records a summary, then hands off to the chat node to compose the answer.
// A provider failure is reported as a status event and the chat node answers
// without results.
func Search(provider search.Provider) engine.RouterNode {
	return engine.RouterNodeFunc(func(ctx context.Context, snapshot state.Snapshot, emit engine.ChatEmitter) (engine.Command, error) {
		queries := searchQueries(snapshot)

		emitStatus(emit, NodeSearch, fmt.Sprintf("searching: %s", strings.Join(queries, ", ")))

		var collected []state.SearchResult
		var failures []string
		for _, query := range queries {
			results, err := provider.Search(ctx, query, maxSearchResults)
			if err != nil {
				failures = append(failures, err.Error())
				continue
			}
			for _, result := range results {
				collected = append(collected, state.SearchResult{
					Title: result.Title, URL: result.URL, Content: result.Content,
				})
			}
		}
		if len(collected) > maxSearchResults {
			collected = collected[:maxSearchResults]
		}

		entry := map[string]any{
			"type":     "search",
			"response": formatSummary(collected),
			"results":  collected,
			"queries":  queries,
		}
		if len(failures) > 0 {
			entry["error"] = strings.Join(failures, "; ")
		}

		update := state.Update{
			state.ChannelSearchResults: collected,
			state.ChannelNodeOutputs:   map[string]map[string]any{NodeSearch: entry},
		}
		return engine.GotoNode(update, NodeChat), nil
	})
}

// searchQueries prefers the routing decision's sub-queries, falling back to
// the latest human message.
func searchQueries(snapshot state.Snapshot) []string {
	if entry, ok := snapshot.NodeOutput(NodeRouting); ok {
		switch value := entry["queries"].(type) {
		case []string:
			if len(value) > 0 {
				return value
			}
		case []any:
			// Checkpoint restores decode the list as []any.
			var queries []string
			for _, item := range value {
				if query, ok := item.(string); ok && query != "" {
					queries = append(queries, query)
				}
			}
			if len(queries) > 0 {
				return queries
			}
		}
	}
	if message, ok := snapshot.LastHumanMessage(); ok && message.Content != "" {
		return []string{message.Content}
	}
	return nil
}

func formatSummary(results []state.SearchResult) string {
	if len(results) == 0 {
		return "No search results were found."
	}
	var builder strings.Builder
	for index, result := range results {
		fmt.Fprintf(&builder, "%d. %s", index+1, result.Title)
		if result.URL != "" {
			fmt.Fprintf(&builder, " (%s)", result.URL)
		}
		if result.Content != "" {
			fmt.Fprintf(&builder, "\n%s", result.Content)
		}
		builder.WriteString("\n\n")
	}
	return strings.TrimSpace(builder.String())
}
