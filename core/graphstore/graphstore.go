// Package graphstore loads and saves authored graphs in their persisted
// shape and translates them into the node/edge lists the compiler consumes.
// Persistence itself belongs to an external collaborator; this package owns
// the contract and an in-memory implementation.
package graphstore

import (
	"context"
	"sort"

	"github.com/jong-choi/langflow/core/graph"
)

// PersistedNode is the stored form of an authored node.
type PersistedNode struct {
	ID   string         `json:"id"`
	Type string         `json:"type"`
	PosX float64        `json:"posX"`
	PosY float64        `json:"posY"`
	Data map[string]any `json:"data,omitempty"`
}

// PersistedEdge is the stored form of an authored edge. Order fixes the
// relative position among a node's edges, which the merge node's fan-in
// ordering depends on.
type PersistedEdge struct {
	ID           string `json:"id"`
	SourceID     string `json:"sourceId"`
	TargetID     string `json:"targetId"`
	SourceHandle string `json:"sourceHandle,omitempty"`
	TargetHandle string `json:"targetHandle,omitempty"`
	Label        string `json:"label,omitempty"`
	Order        int    `json:"order"`
}

// PersistedGraph is one stored graph.
type PersistedGraph struct {
	ID    string          `json:"id"`
	Nodes []PersistedNode `json:"nodes"`
	Edges []PersistedEdge `json:"edges"`
}

// Store persists authored graphs by id.
type Store interface {
	Load(ctx context.Context, graphID string) (PersistedGraph, error)
	Save(ctx context.Context, persisted PersistedGraph) error
}

// Translate converts a persisted graph into compiler input. Edges are
// ordered by their stored order field before translation so fan-in and
// fan-out lists come out in authored order.
func Translate(persisted PersistedGraph) ([]graph.Node, []graph.Edge) {
	nodes := make([]graph.Node, len(persisted.Nodes))
	for index, node := range persisted.Nodes {
		nodes[index] = graph.Node{
			ID:     node.ID,
			Type:   graph.NodeType(node.Type),
			Config: node.Data,
		}
	}

	ordered := append([]PersistedEdge(nil), persisted.Edges...)
	sort.SliceStable(ordered, func(indexA, indexB int) bool {
		return ordered[indexA].Order < ordered[indexB].Order
	})

	edges := make([]graph.Edge, len(ordered))
	for index, edge := range ordered {
		edges[index] = graph.Edge{
			ID:           edge.ID,
			Source:       edge.SourceID,
			Target:       edge.TargetID,
			SourceHandle: edge.SourceHandle,
			TargetHandle: edge.TargetHandle,
		}
	}
	return nodes, edges
}
