package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jong-choi/langflow/core/state"
	"github.com/jong-choi/langflow/providers/observability"
)

// NodeStatus tracks one node's progress within a run. It exists for progress
// reporting and retry targeting only; it is not part of the state store.
type NodeStatus string

const (
	StatusIdle    NodeStatus = "idle"
	StatusRunning NodeStatus = "running"
	StatusSuccess NodeStatus = "success"
	StatusFailed  NodeStatus = "failed"
)

// LevelFailure reports the nodes that failed a level. The run stays paused on
// the failing level; retry-node or retry-level may resume it.
type LevelFailure struct {
	Level   int
	NodeIDs []string
}

func (e *LevelFailure) Error() string {
	return fmt.Sprintf("level %d failed at nodes: %s", e.Level, strings.Join(e.NodeIDs, ", "))
}

// Runner executes a compiled workflow graph level by level. Every node in a
// level runs concurrently; the next level starts only once the whole level
// resolves. A failing level halts the run in a paused state that RetryNode
// and RetryLevel can resume.
type Runner struct {
	compiled *CompiledGraph
	store    *state.Store
	emit     FlowEmitter
	obs      observability.Provider

	mu        sync.Mutex
	statuses  map[string]NodeStatus
	nextLevel int
	inFlight  bool
	cancelRun context.CancelFunc
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithFlowEmitter sets the event sink for run progress.
func WithFlowEmitter(emit FlowEmitter) RunnerOption {
	return func(runner *Runner) { runner.emit = emit }
}

// WithObservability sets the observability provider.
func WithObservability(provider observability.Provider) RunnerOption {
	return func(runner *Runner) { runner.obs = provider }
}

// NewRunner creates a runner over a compiled graph and a state store.
func NewRunner(compiled *CompiledGraph, store *state.Store, opts ...RunnerOption) *Runner {
	runner := &Runner{
		compiled: compiled,
		store:    store,
		obs:      observability.Noop{},
		statuses: make(map[string]NodeStatus, len(compiled.Order)),
	}
	for _, nodeID := range compiled.Order {
		runner.statuses[nodeID] = StatusIdle
	}
	for _, opt := range opts {
		opt(runner)
	}
	return runner
}

// Statuses returns a copy of every node's current run status.
func (runner *Runner) Statuses() map[string]NodeStatus {
	runner.mu.Lock()
	defer runner.mu.Unlock()
	statuses := make(map[string]NodeStatus, len(runner.statuses))
	for nodeID, status := range runner.statuses {
		statuses[nodeID] = status
	}
	return statuses
}

// FailedNodes returns the ids currently marked failed, in authored order.
func (runner *Runner) FailedNodes() []string {
	runner.mu.Lock()
	defer runner.mu.Unlock()
	return runner.failedLocked()
}

func (runner *Runner) failedLocked() []string {
	var failed []string
	for _, nodeID := range runner.compiled.Order {
		if runner.statuses[nodeID] == StatusFailed {
			failed = append(failed, nodeID)
		}
	}
	return failed
}

// Run executes the graph from the first unfinished level. It emits
// flow_start, then per-node events, then flow_complete or flow_error. On a
// level failure the run pauses and the returned error is a *LevelFailure.
func (runner *Runner) Run(ctx context.Context) error {
	runCtx, err := runner.begin(ctx)
	if err != nil {
		return err
	}
	defer runner.finish()

	runCtx, span := runner.obs.StartSpan(runCtx, "flow.run",
		observability.Int("levels", len(runner.compiled.Levels)))
	defer span.End()
	started := time.Now()

	runner.emit.send(FlowEvent{Event: EventFlowStart})

	if err := runner.runFrom(runCtx); err != nil {
		span.RecordError(err)
		runner.obs.Counter("flows.failed").Add(runCtx, 1)
		runner.emit.send(FlowEvent{Event: EventFlowError, Error: err.Error()})
		return err
	}

	runner.obs.Counter("flows.completed").Add(runCtx, 1)
	runner.obs.Histogram("flow.duration_ms").Record(runCtx, float64(time.Since(started).Milliseconds()))
	runner.emit.send(FlowEvent{Event: EventFlowComplete})
	return nil
}

// Cancel aborts the in-flight run cooperatively: external calls observe the
// cancelled context, every node still running is marked failed, and no
// further level is scheduled. A no-op when nothing is in flight.
func (runner *Runner) Cancel() {
	runner.mu.Lock()
	cancel := runner.cancelRun
	runner.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// RetryNode re-invokes a single failed node. If it succeeds and no sibling in
// its level is still failed, the run resumes from the level after it.
// Requires the run to not currently be in flight.
func (runner *Runner) RetryNode(ctx context.Context, nodeID string) error {
	runCtx, err := runner.begin(ctx)
	if err != nil {
		return err
	}
	defer runner.finish()

	runner.mu.Lock()
	status := runner.statuses[nodeID]
	runner.mu.Unlock()
	if status != StatusFailed {
		return &SchedulingError{Reason: fmt.Sprintf("node %q is %s, only failed nodes can be retried", nodeID, status)}
	}

	level := runner.compiled.LevelOf(nodeID)
	if runner.execute(runCtx, nodeID) != nil {
		return &LevelFailure{Level: level, NodeIDs: runner.FailedNodes()}
	}

	runner.mu.Lock()
	siblingsFailed := false
	for _, sibling := range runner.compiled.Levels[level] {
		if runner.statuses[sibling] == StatusFailed {
			siblingsFailed = true
		}
	}
	if !siblingsFailed {
		runner.nextLevel = level + 1
	}
	runner.mu.Unlock()

	if siblingsFailed {
		return nil
	}

	if err := runner.runFrom(runCtx); err != nil {
		runner.emit.send(FlowEvent{Event: EventFlowError, Error: err.Error()})
		return err
	}
	runner.emit.send(FlowEvent{Event: EventFlowComplete})
	return nil
}

// RetryLevel re-invokes every currently failed node concurrently. On full
// success the run resumes from the next level; on any continued failure it
// stays paused with the updated failed set.
func (runner *Runner) RetryLevel(ctx context.Context) error {
	runCtx, err := runner.begin(ctx)
	if err != nil {
		return err
	}
	defer runner.finish()

	runner.mu.Lock()
	failed := runner.failedLocked()
	level := runner.nextLevel
	runner.mu.Unlock()
	if len(failed) == 0 {
		return &SchedulingError{Reason: "no failed nodes to retry"}
	}

	stillFailed := runner.executeBatch(runCtx, failed)
	if len(stillFailed) > 0 {
		return &LevelFailure{Level: level, NodeIDs: stillFailed}
	}

	runner.mu.Lock()
	runner.nextLevel = level + 1
	runner.mu.Unlock()

	if err := runner.runFrom(runCtx); err != nil {
		runner.emit.send(FlowEvent{Event: EventFlowError, Error: err.Error()})
		return err
	}
	runner.emit.send(FlowEvent{Event: EventFlowComplete})
	return nil
}

// begin claims single-run exclusivity and derives the cancellable run context.
func (runner *Runner) begin(ctx context.Context) (context.Context, error) {
	runner.mu.Lock()
	defer runner.mu.Unlock()
	if runner.inFlight {
		return nil, &SchedulingError{Reason: "a run is already in flight"}
	}
	runCtx, cancel := context.WithCancel(ctx)
	runner.inFlight = true
	runner.cancelRun = cancel
	return runCtx, nil
}

func (runner *Runner) finish() {
	runner.mu.Lock()
	if runner.cancelRun != nil {
		runner.cancelRun()
		runner.cancelRun = nil
	}
	runner.inFlight = false
	runner.mu.Unlock()
}

func (runner *Runner) runFrom(ctx context.Context) error {
	for {
		runner.mu.Lock()
		levelIndex := runner.nextLevel
		runner.mu.Unlock()
		if levelIndex >= len(runner.compiled.Levels) {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		failed := runner.executeBatch(ctx, runner.compiled.Levels[levelIndex])
		if len(failed) > 0 {
			return &LevelFailure{Level: levelIndex, NodeIDs: failed}
		}

		runner.mu.Lock()
		runner.nextLevel = levelIndex + 1
		runner.mu.Unlock()
	}
}

// executeBatch runs the given nodes concurrently and waits for all of them.
// The batch resolves only when every member has reported; the returned slice
// holds the ids that failed, in authored order.
func (runner *Runner) executeBatch(ctx context.Context, nodeIDs []string) []string {
	var wg sync.WaitGroup
	var mu sync.Mutex
	failedSet := make(map[string]bool)

	for _, nodeID := range nodeIDs {
		wg.Add(1)
		go func(nodeID string) {
			defer wg.Done()
			if err := runner.execute(ctx, nodeID); err != nil {
				mu.Lock()
				failedSet[nodeID] = true
				mu.Unlock()
			}
		}(nodeID)
	}
	wg.Wait()

	var failed []string
	for _, nodeID := range runner.compiled.Order {
		if failedSet[nodeID] {
			failed = append(failed, nodeID)
		}
	}
	return failed
}

// execute runs one node: snapshot in, update out, status and events as side
// effects. The returned update is applied even when the handler reports an
// error, so failure-as-data records land in the store before the node is
// promoted to failed.
func (runner *Runner) execute(ctx context.Context, nodeID string) error {
	compiled := runner.compiled.Nodes[nodeID]

	runner.setStatus(nodeID, StatusRunning)
	runner.emit.send(FlowEvent{Event: EventNodeStart, NodeID: nodeID})

	nodeCtx, span := runner.obs.StartSpan(ctx, "node.execute",
		observability.String("node_id", nodeID),
		observability.String("node_type", string(compiled.Type)))
	defer span.End()
	started := time.Now()

	update, err := compiled.Handler.Execute(nodeCtx, runner.store.Snapshot(), NodeContext{
		Node:          compiled.Node,
		Type:          compiled.Type,
		Preds:         compiled.Preds,
		MergeSources:  compiled.MergeSources,
		BranchTargets: compiled.BranchTargets,
		Emit: func(delta string) {
			runner.emit.send(FlowEvent{Event: EventNodeStreaming, NodeID: nodeID, Message: delta})
		},
	})

	if applyErr := runner.store.Apply(update); applyErr != nil && err == nil {
		err = applyErr
	}

	runner.obs.Histogram("node.duration_ms").Record(nodeCtx, float64(time.Since(started).Milliseconds()),
		observability.String("node_type", string(compiled.Type)))

	if err != nil {
		span.RecordError(err)
		runner.setStatus(nodeID, StatusFailed)
		runner.emit.send(FlowEvent{Event: EventNodeError, NodeID: nodeID, Error: err.Error()})
		return err
	}

	span.SetStatus(observability.StatusOK, "")
	runner.setStatus(nodeID, StatusSuccess)
	runner.emit.send(FlowEvent{Event: EventNodeComplete, NodeID: nodeID, Data: update})
	return nil
}

func (runner *Runner) setStatus(nodeID string, status NodeStatus) {
	runner.mu.Lock()
	runner.statuses[nodeID] = status
	runner.mu.Unlock()
}
