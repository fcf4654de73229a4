// Package engine compiles authored graphs into executable form and runs them
// with two scheduling strategies: a static leveled DAG for workflow graphs
// and a dynamic redirection loop for the conversational routing graph.
package engine

import "github.com/jong-choi/langflow/core/state"

// End is the terminal marker a Command may name instead of a node id.
const End = "__end__"

// Command is a dynamic node's return value: a partial state update plus the
// node id(s) to run next. Goto naming End stops the run; naming a node absent
// from the compiled graph is a fatal scheduling error, never silently
// ignored.
type Command struct {
	Update state.Update
	Goto   []string
}

// GotoEnd builds a command that applies an update and then terminates.
func GotoEnd(update state.Update) Command {
	return Command{Update: update, Goto: []string{End}}
}

// GotoNode builds a command that applies an update and redirects to one node.
func GotoNode(update state.Update, target string) Command {
	return Command{Update: update, Goto: []string{target}}
}
