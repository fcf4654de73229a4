package handlers

import (
	"context"

	"github.com/jong-choi/langflow/core/engine"
	"github.com/jong-choi/langflow/core/state"
)

// Output records the final rendered content for the caller. Always succeeds
// and has no outgoing effect.
func Output() engine.Handler {
	return engine.HandlerFunc(func(ctx context.Context, snapshot state.Snapshot, nodeCtx engine.NodeContext) (state.Update, error) {
		content := upstreamText(snapshot, nodeCtx.Preds)
		if content == "" {
			if message, ok := snapshot.LastMessage(); ok {
				content = message.Content
			}
		}
		return record(nodeCtx.Node.ID, kindOutput, map[string]any{
			"response": content,
		}), nil
	})
}
