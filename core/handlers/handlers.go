// Package handlers implements the per-node-type work units the static
// scheduler dispatches: input pass-through, output capture, chat completion,
// web search, template rendering, branch fan-out, and merge fan-in.
package handlers

import (
	"time"

	"github.com/jong-choi/langflow/core/engine"
	"github.com/jong-choi/langflow/core/graph"
	"github.com/jong-choi/langflow/core/state"
	"github.com/jong-choi/langflow/internal/utils"
	"github.com/jong-choi/langflow/providers/ai"
	"github.com/jong-choi/langflow/providers/search"
)

// Output record kinds. Merge recovers text directly from message, ai, and
// input records; anything else is serialized whole.
const (
	kindInput   = "input"
	kindOutput  = "output"
	kindAI      = "ai"
	kindSearch  = "search"
	kindMessage = "message"
	kindBranch  = "branch"
	kindMerge   = "merge"
)

// NewRegistry wires every static node type to its handler.
func NewRegistry(chatProvider ai.Provider, searchProvider search.Provider, defaultModel string) *engine.Registry {
	registry := engine.NewRegistry()
	registry.Register(graph.TypeInput, Input())
	registry.Register(graph.TypeOutput, Output())
	registry.Register(graph.TypeChat, Chat(chatProvider, defaultModel))
	registry.Register(graph.TypeSearch, Search(searchProvider))
	registry.Register(graph.TypeMessage, Message())
	registry.Register(graph.TypeBranch, Branch())
	registry.Register(graph.TypeMerge, Merge())
	return registry
}

// record builds a node output update carrying the standard envelope fields.
func record(nodeID, kind string, fields map[string]any) state.Update {
	entry := map[string]any{
		"type":      kind,
		"nodeId":    nodeID,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	for key, value := range fields {
		entry[key] = value
	}
	return state.Update{
		state.ChannelNodeOutputs: map[string]map[string]any{nodeID: entry},
	}
}

// upstreamText recovers the text a node should treat as its input: the first
// predecessor with a recorded output wins, falling back to the last human
// message when no predecessor has produced anything.
func upstreamText(snapshot state.Snapshot, preds []string) string {
	for _, predID := range preds {
		entry, ok := snapshot.NodeOutput(predID)
		if !ok {
			continue
		}
		if text := looseText(entry); text != "" {
			return text
		}
	}
	if message, ok := snapshot.LastHumanMessage(); ok {
		return message.Content
	}
	return ""
}

// looseText pulls a usable string out of any record shape.
func looseText(entry map[string]any) string {
	if response, ok := entry["response"].(string); ok && response != "" {
		return response
	}
	if merged, ok := entry["mergedContent"].(string); ok && merged != "" {
		return merged
	}
	return ""
}

// recoverText is the merge node's extraction rule: message, ai, and input
// records expose their response field directly; every other kind is
// serialized as a fallback.
func recoverText(entry map[string]any) string {
	kind, _ := entry["type"].(string)
	switch kind {
	case kindMessage, kindAI, kindInput:
		response, _ := entry["response"].(string)
		return response
	default:
		return utils.JSONToString(entry)
	}
}

func configString(node graph.Node, key string) string {
	if node.Config == nil {
		return ""
	}
	value, _ := node.Config[key].(string)
	return value
}
