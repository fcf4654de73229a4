package chatflow

import (
	"context"

	"github.com/jong-choi/langflow/core/engine"
	"github.com/jong-choi/langflow/core/state"
	"github.com/jong-choi/langflow/providers/ai"
	"github.com/jong-choi/langflow/providers/observability"
	"github.com/jong-choi/langflow/providers/search"
)

// bypassApology is the fixed reply for recognized but unimplemented routes.
const bypassApology = "Sorry, that capability is not available yet."

// Bypass serves routes the classifier recognizes but the graph does not yet
// implement. It emits a synthetic start, stream, end sequence carrying a
// fixed apology and terminates the turn.
func Bypass() engine.RouterNode {
	return engine.RouterNodeFunc(func(ctx context.Context, snapshot state.Snapshot, emit engine.ChatEmitter) (engine.Command, error) {
		emitChat(emit, engine.ChatEvent{Name: NodeBypass, Event: engine.EventChatModelStart})
		emitChat(emit, engine.ChatEvent{Name: NodeBypass, Event: engine.EventChatModelStream, Chunk: bypassApology})
		emitChat(emit, engine.ChatEvent{Name: NodeBypass, Event: engine.EventChatModelEnd, Message: bypassApology})

		update := state.Update{
			state.ChannelMessages: state.Message{Role: state.RoleAI, Content: bypassApology},
		}
		return engine.GotoEnd(update), nil
	})
}

// Options configures a conversational flow.
type Options struct {
	Model         string
	MaxSteps      int
	Observability observability.Provider
}

// New assembles the conversational routing graph. It is compiled once and
// reused across sessions; per-turn state lives in each session's own store.
func New(chatProvider ai.Provider, searchProvider search.Provider, opts Options) *Flow {
	routerOpts := []engine.RouterOption{engine.WithMaxSteps(opts.MaxSteps)}
	if opts.Observability != nil {
		routerOpts = append(routerOpts, engine.WithRouterObservability(opts.Observability))
	}

	router := engine.NewRouter(NodeRouting, routerOpts...).
		AddNode(NodeRouting, Routing(chatProvider, opts.Model)).
		AddNode(NodeChat, Chat(chatProvider, opts.Model)).
		AddNode(NodeSearch, Search(searchProvider)).
		AddNode(NodeBypass, Bypass())

	return &Flow{router: router}
}

// Flow is the reusable conversational graph.
type Flow struct {
	router *engine.Router
}

// Run drives one turn against the session's store, streaming chat events to
// emit as the turn progresses.
func (flow *Flow) Run(ctx context.Context, store *state.Store, emit engine.ChatEmitter) error {
	return flow.router.Run(ctx, store, emit)
}
