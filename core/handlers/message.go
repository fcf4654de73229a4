package handlers

import (
	"context"
	"strings"

	"github.com/jong-choi/langflow/core/engine"
	"github.com/jong-choi/langflow/core/state"
)

// templateToken is the single placeholder a message template may substitute.
const templateToken = "{input}"

// Message renders the node's stored template by substituting every
// occurrence of the placeholder token with the upstream input text. With no
// template configured, the upstream content passes through unchanged.
func Message() engine.Handler {
	return engine.HandlerFunc(func(ctx context.Context, snapshot state.Snapshot, nodeCtx engine.NodeContext) (state.Update, error) {
		input := upstreamText(snapshot, nodeCtx.Preds)

		rendered := input
		if template := configString(nodeCtx.Node, "template"); template != "" {
			rendered = strings.ReplaceAll(template, templateToken, input)
		}

		return record(nodeCtx.Node.ID, kindMessage, map[string]any{
			"response": rendered,
		}), nil
	})
}
