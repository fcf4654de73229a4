package handlers

import (
	"context"

	"github.com/jong-choi/langflow/core/engine"
	"github.com/jong-choi/langflow/core/state"
)

// Branch fans the same state out to every statically-resolved target. It
// does not duplicate or transform content; it only re-exposes the upstream
// text so each target reads an identical input.
func Branch() engine.Handler {
	return engine.HandlerFunc(func(ctx context.Context, snapshot state.Snapshot, nodeCtx engine.NodeContext) (state.Update, error) {
		return record(nodeCtx.Node.ID, kindBranch, map[string]any{
			"response": upstreamText(snapshot, nodeCtx.Preds),
			"targets":  nodeCtx.BranchTargets,
		}), nil
	})
}
