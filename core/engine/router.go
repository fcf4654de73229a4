package engine

import (
	"context"
	"fmt"

	"github.com/jong-choi/langflow/core/state"
	"github.com/jong-choi/langflow/providers/observability"
)

// defaultMaxSteps bounds a dynamic run. The routing graph terminates through
// its own handlers; the bound only turns an always-looping routing decision
// into a scheduling error instead of a hung session.
const defaultMaxSteps = 32

// RouterNode is a dynamic node: given an immutable snapshot it returns a
// Command naming the next node(s) to run. Provider failures are represented
// as data inside the returned update; a returned error is fatal to the run.
type RouterNode interface {
	Run(ctx context.Context, snapshot state.Snapshot, emit ChatEmitter) (Command, error)
}

// RouterNodeFunc adapts an ordinary function to RouterNode.
type RouterNodeFunc func(ctx context.Context, snapshot state.Snapshot, emit ChatEmitter) (Command, error)

func (fn RouterNodeFunc) Run(ctx context.Context, snapshot state.Snapshot, emit ChatEmitter) (Command, error) {
	return fn(ctx, snapshot, emit)
}

// Router drives the dynamic redirection graph: a state machine whose states
// are node names plus the End marker, and whose transition function is the
// most recent Command's Goto.
type Router struct {
	nodes    map[string]RouterNode
	entry    string
	maxSteps int
	obs      observability.Provider
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithMaxSteps overrides the step bound for a dynamic run.
func WithMaxSteps(maxSteps int) RouterOption {
	return func(router *Router) {
		if maxSteps > 0 {
			router.maxSteps = maxSteps
		}
	}
}

// WithRouterObservability sets the observability provider.
func WithRouterObservability(provider observability.Provider) RouterOption {
	return func(router *Router) { router.obs = provider }
}

// NewRouter creates a router starting at the named entry node.
func NewRouter(entry string, opts ...RouterOption) *Router {
	router := &Router{
		nodes:    make(map[string]RouterNode),
		entry:    entry,
		maxSteps: defaultMaxSteps,
		obs:      observability.Noop{},
	}
	for _, opt := range opts {
		opt(router)
	}
	return router
}

// AddNode binds a dynamic node under a name, replacing any previous binding.
func (router *Router) AddNode(name string, node RouterNode) *Router {
	router.nodes[name] = node
	return router
}

// Run drives the loop until a Command terminates it. Each command's update is
// merged into the store through the channel reducers before the next node
// runs. An unresolvable Goto target or an exhausted step budget aborts the
// run with a SchedulingError.
func (router *Router) Run(ctx context.Context, store *state.Store, emit ChatEmitter) error {
	if _, ok := router.nodes[router.entry]; !ok {
		return &SchedulingError{Reason: fmt.Sprintf("entry node %q is not registered", router.entry)}
	}

	ctx, span := router.obs.StartSpan(ctx, "router.run")
	defer span.End()

	queue := []string{router.entry}
	steps := 0

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			span.RecordError(err)
			return err
		}
		steps++
		if steps > router.maxSteps {
			err := &SchedulingError{Reason: fmt.Sprintf("dynamic run exceeded %d steps", router.maxSteps)}
			span.RecordError(err)
			return err
		}

		current := queue[0]
		queue = queue[1:]
		node := router.nodes[current]

		span.AddEvent("node.visit", observability.String("node", current), observability.Int("step", steps))

		command, err := node.Run(ctx, store.Snapshot(), emit)
		if err != nil {
			span.RecordError(err)
			return fmt.Errorf("node %q: %w", current, err)
		}
		if err := store.Apply(command.Update); err != nil {
			span.RecordError(err)
			return fmt.Errorf("node %q: %w", current, err)
		}

		for _, target := range command.Goto {
			if target == End {
				continue
			}
			if _, ok := router.nodes[target]; !ok {
				err := &SchedulingError{Reason: fmt.Sprintf("node %q redirected to unknown node %q", current, target)}
				span.RecordError(err)
				return err
			}
			queue = append(queue, target)
		}
	}

	span.SetStatus(observability.StatusOK, "")
	return nil
}
