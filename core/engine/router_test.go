package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/jong-choi/langflow/core/state"
)

func TestRouterFollowsGotoChain(t *testing.T) {
	var visited []string
	visit := func(name string, next string) RouterNode {
		return RouterNodeFunc(func(ctx context.Context, snapshot state.Snapshot, emit ChatEmitter) (Command, error) {
			visited = append(visited, name)
			return GotoNode(nil, next), nil
		})
	}

	router := NewRouter("routing").
		AddNode("routing", visit("routing", "chat")).
		AddNode("chat", RouterNodeFunc(func(ctx context.Context, snapshot state.Snapshot, emit ChatEmitter) (Command, error) {
			visited = append(visited, "chat")
			return GotoEnd(nil), nil
		}))

	if err := router.Run(context.Background(), state.NewStore(), nil); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(visited) != 2 || visited[0] != "routing" || visited[1] != "chat" {
		t.Errorf("visited = %v, want [routing chat]", visited)
	}
}

func TestRouterAppliesUpdatesBetweenNodes(t *testing.T) {
	router := NewRouter("first").
		AddNode("first", RouterNodeFunc(func(ctx context.Context, snapshot state.Snapshot, emit ChatEmitter) (Command, error) {
			update := state.Update{state.ChannelRouteType: "search"}
			return GotoNode(update, "second"), nil
		})).
		AddNode("second", RouterNodeFunc(func(ctx context.Context, snapshot state.Snapshot, emit ChatEmitter) (Command, error) {
			// The first node's update must be visible here.
			if snapshot.RouteType() != "search" {
				return Command{}, errors.New("update from previous node not applied")
			}
			return GotoEnd(nil), nil
		}))

	if err := router.Run(context.Background(), state.NewStore(), nil); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestRouterUnresolvableGotoIsFatal(t *testing.T) {
	router := NewRouter("routing").
		AddNode("routing", RouterNodeFunc(func(ctx context.Context, snapshot state.Snapshot, emit ChatEmitter) (Command, error) {
			return GotoNode(nil, "nowhere"), nil
		}))

	err := router.Run(context.Background(), state.NewStore(), nil)
	var schedulingErr *SchedulingError
	if !errors.As(err, &schedulingErr) {
		t.Fatalf("err = %v, want *SchedulingError", err)
	}
}

func TestRouterStepBound(t *testing.T) {
	router := NewRouter("loop", WithMaxSteps(5)).
		AddNode("loop", RouterNodeFunc(func(ctx context.Context, snapshot state.Snapshot, emit ChatEmitter) (Command, error) {
			return GotoNode(nil, "loop"), nil
		}))

	err := router.Run(context.Background(), state.NewStore(), nil)
	var schedulingErr *SchedulingError
	if !errors.As(err, &schedulingErr) {
		t.Fatalf("err = %v, want *SchedulingError for exhausted step budget", err)
	}
}

func TestRouterFanOutRunsAllTargets(t *testing.T) {
	var visited []string
	leaf := func(name string) RouterNode {
		return RouterNodeFunc(func(ctx context.Context, snapshot state.Snapshot, emit ChatEmitter) (Command, error) {
			visited = append(visited, name)
			return GotoEnd(nil), nil
		})
	}

	router := NewRouter("routing").
		AddNode("routing", RouterNodeFunc(func(ctx context.Context, snapshot state.Snapshot, emit ChatEmitter) (Command, error) {
			return Command{Goto: []string{"a", "b"}}, nil
		})).
		AddNode("a", leaf("a")).
		AddNode("b", leaf("b"))

	if err := router.Run(context.Background(), state.NewStore(), nil); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(visited) != 2 || visited[0] != "a" || visited[1] != "b" {
		t.Errorf("visited = %v, want [a b]", visited)
	}
}

func TestRouterCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	router := NewRouter("routing").
		AddNode("routing", RouterNodeFunc(func(ctx context.Context, snapshot state.Snapshot, emit ChatEmitter) (Command, error) {
			t.Error("node ran despite cancelled context")
			return GotoEnd(nil), nil
		}))

	if err := router.Run(ctx, state.NewStore(), nil); err == nil {
		t.Fatal("expected context error")
	}
}
