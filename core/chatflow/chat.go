package chatflow

import (
	"context"

	"github.com/jong-choi/langflow/core/engine"
	"github.com/jong-choi/langflow/core/state"
	"github.com/jong-choi/langflow/providers/ai"
)

const chatInstruction = "You are a helpful assistant. Answer the user's latest message using the conversation so far."

const chatApology = "Sorry, I could not generate a response right now. Please try again."

// transcriptWindow bounds how much conversation is replayed to the provider.
const transcriptWindow = 12

// Chat answers the current turn. Tokens stream out as on_chat_model_stream
// events; the completed reply is appended to the transcript and control
// returns to routing, which then terminates the turn. A provider failure is
// contained as an apology message and still ends the turn normally.
func Chat(provider ai.Provider, model string) engine.RouterNode {
	return engine.RouterNodeFunc(func(ctx context.Context, snapshot state.Snapshot, emit engine.ChatEmitter) (engine.Command, error) {
		request := ai.ChatRequest{
			Model:    model,
			Messages: buildRequestMessages(snapshot),
		}

		emitChat(emit, engine.ChatEvent{Name: NodeChat, Event: engine.EventChatModelStart})

		response, err := streamOrSend(ctx, provider, request, func(delta string) {
			emitChat(emit, engine.ChatEvent{Name: NodeChat, Event: engine.EventChatModelStream, Chunk: delta})
		})

		entry := map[string]any{
			"type":  "chat",
			"model": request.Model,
		}
		content := chatApology
		if err == nil {
			content = response.Content
			entry["response"] = content
		} else {
			entry["error"] = err.Error()
		}
		emitChat(emit, engine.ChatEvent{Name: NodeChat, Event: engine.EventChatModelEnd, Message: content})

		update := state.Update{
			state.ChannelMessages:    state.Message{Role: state.RoleAI, Content: content},
			state.ChannelNodeOutputs: map[string]map[string]any{NodeChat: entry},
		}
		return engine.GotoNode(update, NodeRouting), nil
	})
}

func streamOrSend(ctx context.Context, provider ai.Provider, request ai.ChatRequest, onDelta func(delta string)) (*ai.ChatResponse, error) {
	if streamer, ok := provider.(ai.StreamProvider); ok {
		return streamer.StreamMessage(ctx, request, onDelta)
	}
	return provider.SendMessage(ctx, request)
}

// buildRequestMessages replays the recent transcript plus any search summary
// recorded for the current turn.
func buildRequestMessages(snapshot state.Snapshot) []ai.Message {
	messages := []ai.Message{{Role: ai.RoleSystem, Content: chatInstruction}}

	if summary := searchSummary(snapshot); summary != "" {
		messages = append(messages, ai.Message{
			Role:    ai.RoleSystem,
			Content: "Web search results for the user's request:\n" + summary,
		})
	}

	transcript := snapshot.Messages()
	if len(transcript) > transcriptWindow {
		transcript = transcript[len(transcript)-transcriptWindow:]
	}
	for _, message := range transcript {
		role := ai.RoleAssistant
		if message.Role == state.RoleHuman {
			role = ai.RoleUser
		}
		messages = append(messages, ai.Message{Role: role, Content: message.Content})
	}
	return messages
}

func searchSummary(snapshot state.Snapshot) string {
	entry, ok := snapshot.NodeOutput(NodeSearch)
	if !ok {
		return ""
	}
	summary, _ := entry["response"].(string)
	return summary
}

func emitChat(emit engine.ChatEmitter, event engine.ChatEvent) {
	if emit != nil {
		emit(event)
	}
}
