package handlers

import (
	"context"

	"github.com/jong-choi/langflow/core/engine"
	"github.com/jong-choi/langflow/core/state"
)

// Input passes the caller-supplied payload into state unchanged. The payload
// is the node's configured value when present, else the submitted prompt.
// Always succeeds.
func Input() engine.Handler {
	return engine.HandlerFunc(func(ctx context.Context, snapshot state.Snapshot, nodeCtx engine.NodeContext) (state.Update, error) {
		payload := configString(nodeCtx.Node, "value")
		if payload == "" {
			if message, ok := snapshot.LastHumanMessage(); ok {
				payload = message.Content
			}
		}
		return record(nodeCtx.Node.ID, kindInput, map[string]any{
			"response": payload,
		}), nil
	})
}
