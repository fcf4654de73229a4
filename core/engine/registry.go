package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/jong-choi/langflow/core/graph"
	"github.com/jong-choi/langflow/core/state"
)

// Emitter forwards a handler's incremental output, such as streamed
// completion tokens, while the handler runs. May be nil.
type Emitter func(delta string)

// NodeContext is everything a handler knows about the node it executes:
// the authored node, its resolved type, the compile-time fan-in/fan-out
// wiring for merge and branch nodes, and the streaming emitter.
type NodeContext struct {
	Node graph.Node
	Type graph.NodeType

	// Preds lists the node's direct predecessors in authored edge order.
	Preds []string

	// MergeSources lists a merge node's input node ids in the order their
	// edges were authored. Empty for other types.
	MergeSources []string

	// BranchTargets lists a branch node's fan-out targets. Empty for other
	// types.
	BranchTargets []string

	Emit Emitter
}

// Handler executes one static node against an immutable state snapshot and
// returns a partial update. A handler that represents failure as data
// returns both the update and the error; the scheduler applies the update
// first, then promotes the node to failed.
type Handler interface {
	Execute(ctx context.Context, snapshot state.Snapshot, nodeCtx NodeContext) (state.Update, error)
}

// HandlerFunc adapts an ordinary function to Handler.
type HandlerFunc func(ctx context.Context, snapshot state.Snapshot, nodeCtx NodeContext) (state.Update, error)

func (fn HandlerFunc) Execute(ctx context.Context, snapshot state.Snapshot, nodeCtx NodeContext) (state.Update, error) {
	return fn(ctx, snapshot, nodeCtx)
}

// Registry maps node types to handlers. Adding a node type means adding one
// registry entry, never branching inside the scheduler.
type Registry struct {
	handlers map[graph.NodeType]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[graph.NodeType]Handler)}
}

// Register binds a handler to a node type, replacing any previous binding.
func (registry *Registry) Register(nodeType graph.NodeType, handler Handler) {
	registry.handlers[nodeType] = handler
}

// Resolve returns the handler for a node's resolved type. A missing handler
// is a scheduling error.
func (registry *Registry) Resolve(nodeType graph.NodeType) (Handler, error) {
	handler, ok := registry.handlers[nodeType]
	if !ok {
		return nil, &SchedulingError{Reason: fmt.Sprintf("no handler registered for node type %q", nodeType)}
	}
	return handler, nil
}

// ResolveType determines a node's effective type. An explicit type field
// always wins; legacy nodes without one fall back to inference from the
// free-text job label in their config.
func ResolveType(node graph.Node) (graph.NodeType, error) {
	if node.Type != "" {
		return node.Type, nil
	}

	label, _ := node.Config["job"].(string)
	if inferred, ok := inferTypeFromLabel(label); ok {
		return inferred, nil
	}
	return "", &SchedulingError{Reason: fmt.Sprintf("node %q has no type and no recognizable job label", node.ID)}
}

func inferTypeFromLabel(label string) (graph.NodeType, bool) {
	normalized := strings.ToLower(strings.TrimSpace(label))
	switch {
	case normalized == "":
		return "", false
	case strings.Contains(normalized, "input"):
		return graph.TypeInput, true
	case strings.Contains(normalized, "output"):
		return graph.TypeOutput, true
	case strings.Contains(normalized, "search"):
		return graph.TypeSearch, true
	case strings.Contains(normalized, "chat"), strings.Contains(normalized, "llm"):
		return graph.TypeChat, true
	case strings.Contains(normalized, "template"), strings.Contains(normalized, "message"):
		return graph.TypeMessage, true
	case strings.Contains(normalized, "branch"), strings.Contains(normalized, "split"):
		return graph.TypeBranch, true
	case strings.Contains(normalized, "merge"), strings.Contains(normalized, "join"):
		return graph.TypeMerge, true
	case strings.Contains(normalized, "rout"):
		return graph.TypeRouting, true
	default:
		return "", false
	}
}
