package handlers

import (
	"context"

	"github.com/jong-choi/langflow/core/engine"
	"github.com/jong-choi/langflow/core/state"
	"github.com/jong-choi/langflow/providers/ai"
)

const chatSystemInstruction = "You are a helpful assistant. Answer the user's request clearly and concisely."

// chatApology is the user-facing message appended when the completion
// provider fails. The failure itself is recorded as data in the node's
// output; the scheduler then promotes the node to failed.
const chatApology = "Sorry, I could not generate a response right now. Please try again."

// recentMessageWindow bounds how much transcript is replayed to the provider.
const recentMessageWindow = 10

// Chat invokes the completion provider with a fixed system instruction plus
// the most recent messages. When the provider supports streaming, tokens are
// forwarded through the node's emitter as they arrive.
func Chat(provider ai.Provider, defaultModel string) engine.Handler {
	return engine.HandlerFunc(func(ctx context.Context, snapshot state.Snapshot, nodeCtx engine.NodeContext) (state.Update, error) {
		model := configString(nodeCtx.Node, "model")
		if model == "" {
			model = defaultModel
		}

		request := ai.ChatRequest{
			Model:    model,
			Messages: buildChatMessages(snapshot, nodeCtx),
		}

		response, err := complete(ctx, provider, request, nodeCtx.Emit)
		if err != nil {
			update := record(nodeCtx.Node.ID, kindAI, map[string]any{
				"error": err.Error(),
				"model": model,
			})
			update[state.ChannelMessages] = state.Message{Role: state.RoleAI, Content: chatApology}
			return update, err
		}

		update := record(nodeCtx.Node.ID, kindAI, map[string]any{
			"response": response.Content,
			"model":    response.Model,
		})
		update[state.ChannelMessages] = state.Message{Role: state.RoleAI, Content: response.Content}
		return update, nil
	})
}

func complete(ctx context.Context, provider ai.Provider, request ai.ChatRequest, emit engine.Emitter) (*ai.ChatResponse, error) {
	if streamer, ok := provider.(ai.StreamProvider); ok && emit != nil {
		return streamer.StreamMessage(ctx, request, func(delta string) { emit(delta) })
	}
	return provider.SendMessage(ctx, request)
}

// buildChatMessages assembles the provider request: system instruction,
// recent transcript, and the node's upstream text when the transcript alone
// does not carry it.
func buildChatMessages(snapshot state.Snapshot, nodeCtx engine.NodeContext) []ai.Message {
	messages := []ai.Message{{Role: ai.RoleSystem, Content: chatSystemInstruction}}

	transcript := snapshot.Messages()
	if len(transcript) > recentMessageWindow {
		transcript = transcript[len(transcript)-recentMessageWindow:]
	}
	for _, message := range transcript {
		messages = append(messages, ai.Message{Role: providerRole(message.Role), Content: message.Content})
	}

	if upstream := predText(snapshot, nodeCtx.Preds); upstream != "" {
		messages = append(messages, ai.Message{Role: ai.RoleUser, Content: upstream})
	}
	return messages
}

// predText is upstream recovery without the last-human-message fallback,
// which is already present in the transcript.
func predText(snapshot state.Snapshot, preds []string) string {
	for _, predID := range preds {
		entry, ok := snapshot.NodeOutput(predID)
		if !ok {
			continue
		}
		// Input records mirror the submitted prompt; replaying them would
		// duplicate the transcript entry.
		if kind, _ := entry["type"].(string); kind == kindInput {
			continue
		}
		if text := looseText(entry); text != "" {
			return text
		}
	}
	return ""
}

func providerRole(role string) string {
	switch role {
	case state.RoleHuman:
		return ai.RoleUser
	case state.RoleSystem:
		return ai.RoleSystem
	default:
		return ai.RoleAssistant
	}
}
