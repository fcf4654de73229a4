package handlers

import (
	"context"
	"strings"

	"github.com/jong-choi/langflow/core/engine"
	"github.com/jong-choi/langflow/core/state"
)

// mergePlaceholder is synthesized when a merge node has nothing to join.
// An empty-input condition is reported as data, never as a run failure.
const mergePlaceholder = "No upstream outputs were available to merge."

// Merge joins the recorded outputs of its compile-time input nodes with a
// blank-line separator, in the input order fixed at compile time, and appends
// the joined text as one new message. This node never fails the run.
func Merge() engine.Handler {
	return engine.HandlerFunc(func(ctx context.Context, snapshot state.Snapshot, nodeCtx engine.NodeContext) (state.Update, error) {
		inputOutputs := make(map[string]any, len(nodeCtx.MergeSources))
		var recovered []string
		for _, sourceID := range nodeCtx.MergeSources {
			entry, ok := snapshot.NodeOutput(sourceID)
			if !ok {
				continue
			}
			inputOutputs[sourceID] = entry
			if text := recoverText(entry); text != "" {
				recovered = append(recovered, text)
			}
		}

		if len(recovered) == 0 {
			update := record(nodeCtx.Node.ID, kindMerge, map[string]any{
				"error":           "no upstream outputs to merge",
				"mergedContent":   mergePlaceholder,
				"inputNodeIds":    nodeCtx.MergeSources,
				"sourceNodeCount": len(nodeCtx.MergeSources),
			})
			update[state.ChannelMessages] = state.Message{Role: state.RoleAI, Content: mergePlaceholder}
			return update, nil
		}

		merged := strings.Join(recovered, "\n\n")
		update := record(nodeCtx.Node.ID, kindMerge, map[string]any{
			"mergedContent":   merged,
			"inputNodeIds":    nodeCtx.MergeSources,
			"inputOutputs":    inputOutputs,
			"sourceNodeCount": len(nodeCtx.MergeSources),
		})
		update[state.ChannelMessages] = state.Message{Role: state.RoleAI, Content: merged}
		return update, nil
	})
}
