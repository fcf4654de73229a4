package graph

import "fmt"

// ValidationError reports why an authored graph is not runnable. It is
// returned before any node executes and its Reason is surfaced verbatim to
// the caller. Validation failures are never retried automatically; the
// authored graph must be corrected first.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "graph not runnable: " + e.Reason
}

// ValidateRunnable is the single pre-flight gate an authored graph must pass
// before the static scheduler may run it. It fails with a descriptive reason
// when:
//
//   - the graph has no nodes
//   - there is not exactly one entry node (typed input, else zero-indegree)
//   - there is not exactly one terminal node (typed output, else zero-outdegree)
//   - the graph contains a cycle
//   - any node lies on no start→end path
//
// It is re-evaluated whenever the authored graph changes.
func ValidateRunnable(nodes []Node, edges []Edge) error {
	if len(nodes) == 0 {
		return &ValidationError{Reason: "no nodes"}
	}

	adjacency := BuildAdjacency(nodes, edges)

	starts := EntryCandidates(nodes, adjacency)
	if len(starts) != 1 {
		return &ValidationError{Reason: fmt.Sprintf("expected exactly one start node, found %d", len(starts))}
	}

	ends := TerminalCandidates(nodes, adjacency)
	if len(ends) != 1 {
		return &ValidationError{Reason: fmt.Sprintf("expected exactly one end node, found %d", len(ends))}
	}

	if HasCycle(adjacency) {
		return &ValidationError{Reason: "cycle present"}
	}

	forward := ForwardReachable(starts[0], adjacency)
	reverse := ReverseReachable(ends[0], adjacency)
	for _, node := range nodes {
		if !forward[node.ID] || !reverse[node.ID] {
			return &ValidationError{Reason: fmt.Sprintf("node %q is not on any start→end path", node.ID)}
		}
	}

	return nil
}

// EntryCandidates returns the designated start nodes: those typed input,
// or, when none are flagged, the nodes with zero incoming edges.
func EntryCandidates(nodes []Node, adjacency Adjacency) []string {
	var typed []string
	for _, node := range nodes {
		if node.Type == TypeInput {
			typed = append(typed, node.ID)
		}
	}
	if len(typed) > 0 {
		return typed
	}

	var roots []string
	for _, node := range nodes {
		if adjacency.InDegree[node.ID] == 0 {
			roots = append(roots, node.ID)
		}
	}
	return roots
}

// TerminalCandidates returns the designated end nodes: those typed output,
// or, when none are flagged, the nodes with zero outgoing edges.
func TerminalCandidates(nodes []Node, adjacency Adjacency) []string {
	var typed []string
	for _, node := range nodes {
		if node.Type == TypeOutput {
			typed = append(typed, node.ID)
		}
	}
	if len(typed) > 0 {
		return typed
	}

	var leaves []string
	for _, node := range nodes {
		if len(adjacency.Out[node.ID]) == 0 {
			leaves = append(leaves, node.ID)
		}
	}
	return leaves
}
