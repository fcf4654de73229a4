package graph

import "sort"

// NodeType identifies which handler executes a node. The set is closed:
// adding a behavior means adding a type here and a matching registry entry.
type NodeType string

const (
	// TypeInput passes the caller-supplied payload into state unchanged.
	TypeInput NodeType = "input"

	// TypeOutput records the final rendered content for the caller.
	TypeOutput NodeType = "output"

	// TypeChat invokes the chat-completion provider.
	TypeChat NodeType = "chat"

	// TypeSearch invokes the web-search provider.
	TypeSearch NodeType = "search"

	// TypeMessage renders a stored template against upstream text.
	TypeMessage NodeType = "message"

	// TypeBranch fans the same state out to several targets.
	TypeBranch NodeType = "branch"

	// TypeMerge joins the recorded outputs of several upstream nodes.
	TypeMerge NodeType = "merge"

	// TypeRouting classifies intent and redirects control flow.
	// Only meaningful in the dynamic chat graph.
	TypeRouting NodeType = "routing"
)

// Node is a single authored work unit. Identity is the ID; Type selects the
// handler at compile time; Config carries per-node settings such as template
// text or a model name. Nodes are immutable during one execution.
type Node struct {
	ID     string         `json:"id"`
	Type   NodeType       `json:"type"`
	Config map[string]any `json:"data,omitempty"`
}

// Edge is a directed connection between two authored nodes. Handles
// disambiguate which port of a multi-port node (branch, merge) the edge
// attaches to. Edges determine adjacency only; data flows through the
// shared state store, not along edges.
type Edge struct {
	ID           string `json:"id"`
	Source       string `json:"source"`
	Target       string `json:"target"`
	SourceHandle string `json:"sourceHandle,omitempty"`
	TargetHandle string `json:"targetHandle,omitempty"`
}

// Adjacency is the derived connectivity of an authored graph. It is rebuilt
// whenever the authored node/edge lists change, never stored alongside them.
type Adjacency struct {
	// Out maps a node id to the ids its outgoing edges point at.
	Out map[string][]string

	// In maps a node id to the ids of nodes with an edge into it.
	In map[string][]string

	// InDegree counts incoming edges per node id.
	InDegree map[string]int
}

// BuildAdjacency derives out/in maps and in-degrees from authored nodes and
// edges. Edges referencing unknown node ids are dropped. Runs in O(V+E).
func BuildAdjacency(nodes []Node, edges []Edge) Adjacency {
	adjacency := Adjacency{
		Out:      make(map[string][]string, len(nodes)),
		In:       make(map[string][]string, len(nodes)),
		InDegree: make(map[string]int, len(nodes)),
	}

	known := make(map[string]bool, len(nodes))
	for _, node := range nodes {
		known[node.ID] = true
		adjacency.Out[node.ID] = nil
		adjacency.In[node.ID] = nil
		adjacency.InDegree[node.ID] = 0
	}

	for _, edge := range edges {
		if !known[edge.Source] || !known[edge.Target] {
			continue
		}
		adjacency.Out[edge.Source] = append(adjacency.Out[edge.Source], edge.Target)
		adjacency.In[edge.Target] = append(adjacency.In[edge.Target], edge.Source)
		adjacency.InDegree[edge.Target]++
	}

	return adjacency
}

// HasCycle reports whether the adjacency contains a directed cycle, using
// Kahn's algorithm: repeatedly remove zero-indegree nodes; if fewer nodes
// are removed than exist, a cycle remains. The result does not depend on
// node insertion order.
func HasCycle(adjacency Adjacency) bool {
	inDegree := make(map[string]int, len(adjacency.InDegree))
	for nodeID, degree := range adjacency.InDegree {
		inDegree[nodeID] = degree
	}

	queue := make([]string, 0, len(inDegree))
	for nodeID, degree := range inDegree {
		if degree == 0 {
			queue = append(queue, nodeID)
		}
	}

	removed := 0
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		removed++

		for _, successor := range adjacency.Out[current] {
			inDegree[successor]--
			if inDegree[successor] == 0 {
				queue = append(queue, successor)
			}
		}
	}

	return removed != len(adjacency.InDegree)
}

// ComputeLevels groups node ids into topological levels: nodes removed in
// the same Kahn pass form one level. Level i must fully complete before
// level i+1 starts in the static scheduler; order within a level carries no
// meaning but is made deterministic by sorting each level by the nodes'
// authored order.
//
// Returns nil if the graph contains a cycle.
func ComputeLevels(nodes []Node, edges []Edge) [][]string {
	adjacency := BuildAdjacency(nodes, edges)

	position := make(map[string]int, len(nodes))
	for index, node := range nodes {
		position[node.ID] = index
	}

	inDegree := make(map[string]int, len(adjacency.InDegree))
	for nodeID, degree := range adjacency.InDegree {
		inDegree[nodeID] = degree
	}

	currentLevel := make([]string, 0)
	for nodeID, degree := range inDegree {
		if degree == 0 {
			currentLevel = append(currentLevel, nodeID)
		}
	}
	sortByPosition(currentLevel, position)

	levels := make([][]string, 0)
	processed := 0

	for len(currentLevel) > 0 {
		levels = append(levels, currentLevel)
		processed += len(currentLevel)

		nextLevel := make([]string, 0)
		for _, nodeID := range currentLevel {
			for _, successor := range adjacency.Out[nodeID] {
				inDegree[successor]--
				if inDegree[successor] == 0 {
					nextLevel = append(nextLevel, successor)
				}
			}
		}
		sortByPosition(nextLevel, position)
		currentLevel = nextLevel
	}

	if processed != len(nodes) {
		return nil
	}

	return levels
}

func sortByPosition(nodeIDs []string, position map[string]int) {
	sort.Slice(nodeIDs, func(indexA, indexB int) bool {
		return position[nodeIDs[indexA]] < position[nodeIDs[indexB]]
	})
}

// ForwardReachable returns the set of node ids reachable from start by
// following outgoing edges, including start itself.
func ForwardReachable(start string, adjacency Adjacency) map[string]bool {
	return reach(start, adjacency.Out)
}

// ReverseReachable returns the set of node ids that can reach end by
// following incoming edges backwards, including end itself.
func ReverseReachable(end string, adjacency Adjacency) map[string]bool {
	return reach(end, adjacency.In)
}

func reach(start string, neighbors map[string][]string) map[string]bool {
	visited := make(map[string]bool)

	var dfs func(nodeID string)
	dfs = func(nodeID string) {
		if visited[nodeID] {
			return
		}
		visited[nodeID] = true
		for _, next := range neighbors[nodeID] {
			dfs(next)
		}
	}

	dfs(start)
	return visited
}
