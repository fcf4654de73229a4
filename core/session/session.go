// Package session owns the lifecycle of conversational sessions: an opaque
// id mapped to in-flight state, an idle-eviction timer, and a checkpoint
// persisted between turns.
package session

import (
	"context"
	"time"

	"github.com/jong-choi/langflow/core/state"
)

// Error reports an operation against an unknown or expired session id. It is
// surfaced as a structured response at the session endpoint and never
// silently creates a new session.
type Error struct {
	ID     string
	Reason string
}

func (e *Error) Error() string {
	return "session " + e.ID + ": " + e.Reason
}

// CheckpointStore persists session state between turns. The TTL matches the
// session idle window so an abandoned checkpoint expires with its session.
type CheckpointStore interface {
	Save(ctx context.Context, sessionID string, checkpoint state.Checkpoint, ttl time.Duration) error
	Load(ctx context.Context, sessionID string) (state.Checkpoint, bool, error)
	Delete(ctx context.Context, sessionID string) error
}

// Session is one conversation: its id, state store, and pending input. All
// mutation goes through the Registry, which also enforces the one-run-at-a-
// time rule.
type Session struct {
	ID    string
	Store *state.Store

	pending    string
	hasInput   bool
	inFlight   bool
	timer      *time.Timer
	lastActive time.Time
}
