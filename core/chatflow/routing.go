// Package chatflow assembles the conversational routing graph: a dynamic
// engine.Router whose entry node classifies the user's intent and redirects
// to a chat, search, or bypass leaf, looping until the turn is answered.
package chatflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/jong-choi/langflow/core/engine"
	"github.com/jong-choi/langflow/core/parse"
	"github.com/jong-choi/langflow/core/state"
	"github.com/jong-choi/langflow/providers/ai"
)

// Node names in the dynamic graph.
const (
	NodeRouting = "routing"
	NodeChat    = "chat"
	NodeSearch  = "search"
	NodeBypass  = "bypass"
)

// Route keys the classifier may answer with. Summarize is recognized but not
// yet implemented; it dispatches to the bypass node.
const (
	RouteChat      = "chat"
	RouteSearch    = "search"
	RouteSummarize = "summarize"
	RouteEnd       = "end"
)

const routingInstruction = `Classify the user's latest message into exactly one route.
Routes:
- "chat": general conversation, questions answerable without live data
- "search": needs current information from the web
- "summarize": asks to summarize earlier conversation
- "end": explicit goodbye or nothing to do

Reply with JSON only: {"route": "<route>", "queries": ["<search query>", ...]}
The queries list is only for the search route and may be empty otherwise.`

// routeDecision is the classifier's structured reply.
type routeDecision struct {
	Route   string   `json:"route"`
	Queries []string `json:"queries"`
}

// Routing asks the completion provider to classify the latest human message.
// Unparsable or unrecognized replies fall back to the chat route. With no
// unanswered human message the turn terminates.
func Routing(provider ai.Provider, model string) engine.RouterNode {
	return engine.RouterNodeFunc(func(ctx context.Context, snapshot state.Snapshot, emit engine.ChatEmitter) (engine.Command, error) {
		last, ok := snapshot.LastMessage()
		if !ok || last.Role != state.RoleHuman {
			// Either nothing was submitted or the leaf already answered.
			return engine.GotoEnd(nil), nil
		}

		decision := classify(ctx, provider, model, last.Content)
		target := routeTarget(decision.Route)

		emitStatus(emit, NodeRouting, fmt.Sprintf("route: %s", decision.Route))

		update := state.Update{
			state.ChannelRouteType: decision.Route,
			state.ChannelNodeOutputs: map[string]map[string]any{
				NodeRouting: {
					"type":    "routing",
					"route":   decision.Route,
					"queries": decision.Queries,
				},
			},
		}
		if target == engine.End {
			return engine.GotoEnd(update), nil
		}
		return engine.GotoNode(update, target), nil
	})
}

// classify runs the classifier and defensively parses its reply. Any failure
// resolves to the chat route.
func classify(ctx context.Context, provider ai.Provider, model, message string) routeDecision {
	response, err := provider.SendMessage(ctx, ai.ChatRequest{
		Model: model,
		Messages: []ai.Message{
			{Role: ai.RoleSystem, Content: routingInstruction},
			{Role: ai.RoleUser, Content: message},
		},
	})
	if err != nil {
		return routeDecision{Route: RouteChat}
	}

	decision, err := parse.StringAs[routeDecision](response.Content)
	if err != nil {
		return routeDecision{Route: RouteChat}
	}
	decision.Route = strings.ToLower(strings.TrimSpace(decision.Route))
	return decision
}

// routeTarget maps a route key to the node that serves it. Unknown keys fall
// back to chat; the end route terminates.
func routeTarget(route string) string {
	switch route {
	case RouteSearch:
		return NodeSearch
	case RouteSummarize:
		return NodeBypass
	case RouteEnd:
		return engine.End
	case RouteChat:
		return NodeChat
	default:
		return NodeChat
	}
}

func emitStatus(emit engine.ChatEmitter, name, message string) {
	if emit != nil {
		emit(engine.ChatEvent{Name: name, Event: engine.EventChatStatus, Message: message})
	}
}
