package graph

import (
	"fmt"
	"strings"
)

// Mermaid renders the authored graph as a Mermaid flowchart, useful when
// debugging an authored layout outside the visual editor.
func Mermaid(nodes []Node, edges []Edge) string {
	var builder strings.Builder
	builder.WriteString("graph TD\n")

	known := make(map[string]bool, len(nodes))
	connected := make(map[string]bool, len(nodes))
	for _, node := range nodes {
		known[node.ID] = true
	}

	for _, edge := range edges {
		if !known[edge.Source] || !known[edge.Target] {
			continue
		}
		fmt.Fprintf(&builder, "    %s --> %s\n", edge.Source, edge.Target)
		connected[edge.Source] = true
		connected[edge.Target] = true
	}

	for _, node := range nodes {
		if !connected[node.ID] {
			fmt.Fprintf(&builder, "    %s\n", node.ID)
		}
	}

	return builder.String()
}
