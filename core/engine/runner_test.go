package engine

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jong-choi/langflow/core/graph"
	"github.com/jong-choi/langflow/core/state"
)

// nodeBehaviors builds a registry where every node type dispatches to a
// per-node function, so tests can script individual node outcomes.
func nodeBehaviors(behaviors map[string]HandlerFunc) *Registry {
	dispatcher := HandlerFunc(func(ctx context.Context, snapshot state.Snapshot, nodeCtx NodeContext) (state.Update, error) {
		if behavior, ok := behaviors[nodeCtx.Node.ID]; ok {
			return behavior(ctx, snapshot, nodeCtx)
		}
		return nil, nil
	})
	registry := NewRegistry()
	for _, nodeType := range []graph.NodeType{
		graph.TypeInput, graph.TypeOutput, graph.TypeChat, graph.TypeSearch,
		graph.TypeMessage, graph.TypeBranch, graph.TypeMerge,
	} {
		registry.Register(nodeType, dispatcher)
	}
	return registry
}

func chainGraph(t *testing.T, behaviors map[string]HandlerFunc) *CompiledGraph {
	t.Helper()
	nodes := []graph.Node{
		{ID: "in", Type: graph.TypeInput},
		{ID: "chat", Type: graph.TypeChat},
		{ID: "out", Type: graph.TypeOutput},
	}
	edges := []graph.Edge{
		{ID: "e1", Source: "in", Target: "chat"},
		{ID: "e2", Source: "chat", Target: "out"},
	}
	compiled, err := Compile(nodes, edges, nodeBehaviors(behaviors))
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	return compiled
}

type eventRecorder struct {
	mu     sync.Mutex
	events []FlowEvent
}

func (recorder *eventRecorder) emit(event FlowEvent) {
	recorder.mu.Lock()
	recorder.events = append(recorder.events, event)
	recorder.mu.Unlock()
}

func (recorder *eventRecorder) types() []FlowEventType {
	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	types := make([]FlowEventType, len(recorder.events))
	for index, event := range recorder.events {
		types[index] = event.Event
	}
	return types
}

func TestRunLinearChainToCompletion(t *testing.T) {
	var order []string
	var orderMu sync.Mutex
	record := func(id string) HandlerFunc {
		return func(ctx context.Context, snapshot state.Snapshot, nodeCtx NodeContext) (state.Update, error) {
			orderMu.Lock()
			order = append(order, id)
			orderMu.Unlock()
			return nil, nil
		}
	}

	compiled := chainGraph(t, map[string]HandlerFunc{
		"in": record("in"), "chat": record("chat"), "out": record("out"),
	})
	recorder := &eventRecorder{}
	runner := NewRunner(compiled, state.NewStore(), WithFlowEmitter(recorder.emit))

	if err := runner.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if strings.Join(order, ",") != "in,chat,out" {
		t.Errorf("execution order = %v", order)
	}
	for nodeID, status := range runner.Statuses() {
		if status != StatusSuccess {
			t.Errorf("node %s status = %s, want success", nodeID, status)
		}
	}

	types := recorder.types()
	want := []FlowEventType{
		EventFlowStart,
		EventNodeStart, EventNodeComplete,
		EventNodeStart, EventNodeComplete,
		EventNodeStart, EventNodeComplete,
		EventFlowComplete,
	}
	if len(types) != len(want) {
		t.Fatalf("event types = %v, want %v", types, want)
	}
	for index := range want {
		if types[index] != want[index] {
			t.Fatalf("event[%d] = %s, want %s", index, types[index], want[index])
		}
	}
}

func TestLevelMembersRunConcurrently(t *testing.T) {
	nodes := []graph.Node{
		{ID: "in", Type: graph.TypeInput},
		{ID: "a", Type: graph.TypeMessage},
		{ID: "b", Type: graph.TypeMessage},
		{ID: "join", Type: graph.TypeMerge},
	}
	edges := []graph.Edge{
		{ID: "e1", Source: "in", Target: "a"},
		{ID: "e2", Source: "in", Target: "b"},
		{ID: "e3", Source: "a", Target: "join"},
		{ID: "e4", Source: "b", Target: "join"},
	}

	// Each sibling waits for the other to start. Sequential scheduling would
	// deadlock; the test timeout catches that.
	var barrier sync.WaitGroup
	barrier.Add(2)
	rendezvous := func(ctx context.Context, snapshot state.Snapshot, nodeCtx NodeContext) (state.Update, error) {
		barrier.Done()
		done := make(chan struct{})
		go func() {
			barrier.Wait()
			close(done)
		}()
		select {
		case <-done:
			return nil, nil
		case <-time.After(5 * time.Second):
			return nil, errors.New("sibling never started")
		}
	}

	compiled, err := Compile(nodes, edges, nodeBehaviors(map[string]HandlerFunc{
		"a": rendezvous, "b": rendezvous,
	}))
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	runner := NewRunner(compiled, state.NewStore())
	if err := runner.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestLevelFailureHaltsRun(t *testing.T) {
	outRan := false
	compiled := chainGraph(t, map[string]HandlerFunc{
		"chat": func(ctx context.Context, snapshot state.Snapshot, nodeCtx NodeContext) (state.Update, error) {
			return nil, errors.New("provider unavailable")
		},
		"out": func(ctx context.Context, snapshot state.Snapshot, nodeCtx NodeContext) (state.Update, error) {
			outRan = true
			return nil, nil
		},
	})
	recorder := &eventRecorder{}
	runner := NewRunner(compiled, state.NewStore(), WithFlowEmitter(recorder.emit))

	err := runner.Run(context.Background())
	var failure *LevelFailure
	if !errors.As(err, &failure) {
		t.Fatalf("err = %v, want *LevelFailure", err)
	}
	if len(failure.NodeIDs) != 1 || failure.NodeIDs[0] != "chat" {
		t.Errorf("failed nodes = %v, want [chat]", failure.NodeIDs)
	}
	if outRan {
		t.Error("later level ran after failure")
	}
	if runner.Statuses()["chat"] != StatusFailed {
		t.Errorf("chat status = %s, want failed", runner.Statuses()["chat"])
	}
	if runner.Statuses()["out"] != StatusIdle {
		t.Errorf("out status = %s, want idle", runner.Statuses()["out"])
	}

	types := recorder.types()
	if types[len(types)-1] != EventFlowError {
		t.Errorf("last event = %s, want flow_error", types[len(types)-1])
	}
}

func TestFailureUpdateAppliedBeforePromotion(t *testing.T) {
	compiled := chainGraph(t, map[string]HandlerFunc{
		"chat": func(ctx context.Context, snapshot state.Snapshot, nodeCtx NodeContext) (state.Update, error) {
			update := state.Update{
				state.ChannelMessages: state.Message{Role: state.RoleAI, Content: "Sorry, something went wrong."},
			}
			return update, errors.New("provider unavailable")
		},
	})
	store := state.NewStore()
	runner := NewRunner(compiled, store)

	if err := runner.Run(context.Background()); err == nil {
		t.Fatal("expected run failure")
	}

	last, ok := store.Snapshot().LastMessage()
	if !ok || last.Content != "Sorry, something went wrong." {
		t.Errorf("apology update not applied: %+v", last)
	}
}

func TestRetryNodeResumesRun(t *testing.T) {
	attempts := 0
	compiled := chainGraph(t, map[string]HandlerFunc{
		"chat": func(ctx context.Context, snapshot state.Snapshot, nodeCtx NodeContext) (state.Update, error) {
			attempts++
			if attempts == 1 {
				return nil, errors.New("transient failure")
			}
			return nil, nil
		},
	})
	recorder := &eventRecorder{}
	runner := NewRunner(compiled, state.NewStore(), WithFlowEmitter(recorder.emit))

	if err := runner.Run(context.Background()); err == nil {
		t.Fatal("expected first run to fail")
	}
	if err := runner.RetryNode(context.Background(), "chat"); err != nil {
		t.Fatalf("RetryNode: %v", err)
	}

	statuses := runner.Statuses()
	if statuses["chat"] != StatusSuccess || statuses["out"] != StatusSuccess {
		t.Errorf("statuses after retry = %v", statuses)
	}
	types := recorder.types()
	if types[len(types)-1] != EventFlowComplete {
		t.Errorf("last event = %s, want flow_complete", types[len(types)-1])
	}
}

func TestRetryNodeStaysPausedWhileSiblingFailed(t *testing.T) {
	nodes := []graph.Node{
		{ID: "in", Type: graph.TypeInput},
		{ID: "a", Type: graph.TypeMessage},
		{ID: "b", Type: graph.TypeMessage},
		{ID: "join", Type: graph.TypeMerge},
	}
	edges := []graph.Edge{
		{ID: "e1", Source: "in", Target: "a"},
		{ID: "e2", Source: "in", Target: "b"},
		{ID: "e3", Source: "a", Target: "join"},
		{ID: "e4", Source: "b", Target: "join"},
	}

	retriedA := false
	joinRan := false
	fail := func(ctx context.Context, snapshot state.Snapshot, nodeCtx NodeContext) (state.Update, error) {
		return nil, errors.New("boom")
	}
	compiled, err := Compile(nodes, edges, nodeBehaviors(map[string]HandlerFunc{
		"a": func(ctx context.Context, snapshot state.Snapshot, nodeCtx NodeContext) (state.Update, error) {
			if retriedA {
				return nil, nil
			}
			return nil, errors.New("boom")
		},
		"b": fail,
		"join": func(ctx context.Context, snapshot state.Snapshot, nodeCtx NodeContext) (state.Update, error) {
			joinRan = true
			return nil, nil
		},
	}))
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	runner := NewRunner(compiled, state.NewStore())
	if err := runner.Run(context.Background()); err == nil {
		t.Fatal("expected run to fail")
	}

	retriedA = true
	if err := runner.RetryNode(context.Background(), "a"); err != nil {
		t.Fatalf("RetryNode: %v", err)
	}
	if joinRan {
		t.Error("run resumed while sibling b is still failed")
	}
	statuses := runner.Statuses()
	if statuses["a"] != StatusSuccess {
		t.Errorf("a status = %s, want success", statuses["a"])
	}
	if statuses["b"] != StatusFailed {
		t.Errorf("b status = %s, want failed", statuses["b"])
	}
}

func TestRetryLevelResumesOnFullSuccess(t *testing.T) {
	nodes := []graph.Node{
		{ID: "in", Type: graph.TypeInput},
		{ID: "a", Type: graph.TypeMessage},
		{ID: "b", Type: graph.TypeMessage},
		{ID: "join", Type: graph.TypeMerge},
	}
	edges := []graph.Edge{
		{ID: "e1", Source: "in", Target: "a"},
		{ID: "e2", Source: "in", Target: "b"},
		{ID: "e3", Source: "a", Target: "join"},
		{ID: "e4", Source: "b", Target: "join"},
	}

	var healed bool
	flaky := func(ctx context.Context, snapshot state.Snapshot, nodeCtx NodeContext) (state.Update, error) {
		if healed {
			return nil, nil
		}
		return nil, errors.New("boom")
	}
	compiled, err := Compile(nodes, edges, nodeBehaviors(map[string]HandlerFunc{
		"a": flaky, "b": flaky,
	}))
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	runner := NewRunner(compiled, state.NewStore())
	if err := runner.Run(context.Background()); err == nil {
		t.Fatal("expected run to fail")
	}

	healed = true
	if err := runner.RetryLevel(context.Background()); err != nil {
		t.Fatalf("RetryLevel: %v", err)
	}
	for nodeID, status := range runner.Statuses() {
		if status != StatusSuccess {
			t.Errorf("node %s status = %s, want success", nodeID, status)
		}
	}
}

func TestCancelMarksRunningFailedAndStopsScheduling(t *testing.T) {
	started := make(chan struct{})
	outRan := false
	compiled := chainGraph(t, map[string]HandlerFunc{
		"chat": func(ctx context.Context, snapshot state.Snapshot, nodeCtx NodeContext) (state.Update, error) {
			close(started)
			<-ctx.Done()
			return nil, ctx.Err()
		},
		"out": func(ctx context.Context, snapshot state.Snapshot, nodeCtx NodeContext) (state.Update, error) {
			outRan = true
			return nil, nil
		},
	})
	runner := NewRunner(compiled, state.NewStore())

	done := make(chan error, 1)
	go func() { done <- runner.Run(context.Background()) }()

	<-started
	runner.Cancel()

	if err := <-done; err == nil {
		t.Fatal("expected cancelled run to report failure")
	}
	if runner.Statuses()["chat"] != StatusFailed {
		t.Errorf("chat status = %s, want failed", runner.Statuses()["chat"])
	}
	if outRan {
		t.Error("level scheduled after cancellation")
	}
}

func TestRunRejectsConcurrentRuns(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	compiled := chainGraph(t, map[string]HandlerFunc{
		"in": func(ctx context.Context, snapshot state.Snapshot, nodeCtx NodeContext) (state.Update, error) {
			close(started)
			<-release
			return nil, nil
		},
	})
	runner := NewRunner(compiled, state.NewStore())

	done := make(chan error, 1)
	go func() { done <- runner.Run(context.Background()) }()
	<-started

	err := runner.Run(context.Background())
	var schedulingErr *SchedulingError
	if !errors.As(err, &schedulingErr) {
		t.Errorf("second Run err = %v, want *SchedulingError", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Errorf("first Run: %v", err)
	}
}

func TestStreamingDeltasBecomeEvents(t *testing.T) {
	compiled := chainGraph(t, map[string]HandlerFunc{
		"chat": func(ctx context.Context, snapshot state.Snapshot, nodeCtx NodeContext) (state.Update, error) {
			nodeCtx.Emit("Hel")
			nodeCtx.Emit("lo")
			return nil, nil
		},
	})
	recorder := &eventRecorder{}
	runner := NewRunner(compiled, state.NewStore(), WithFlowEmitter(recorder.emit))

	if err := runner.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	var chunks []string
	recorder.mu.Lock()
	for _, event := range recorder.events {
		if event.Event == EventNodeStreaming && event.NodeID == "chat" {
			chunks = append(chunks, event.Message)
		}
	}
	recorder.mu.Unlock()
	if strings.Join(chunks, "") != "Hello" {
		t.Errorf("streamed chunks = %v", chunks)
	}
}
