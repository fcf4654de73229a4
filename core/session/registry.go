package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jong-choi/langflow/core/state"
	"github.com/jong-choi/langflow/providers/observability"
)

// Registry is the process-owned session map. Every session carries an idle
// timer; any activity resets it, and firing evicts the session and deletes
// its checkpoint.
type Registry struct {
	mu          sync.Mutex
	sessions    map[string]*Session
	idleTTL     time.Duration
	checkpoints CheckpointStore
	obs         observability.Provider
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithObservability sets the observability provider.
func WithObservability(provider observability.Provider) RegistryOption {
	return func(registry *Registry) { registry.obs = provider }
}

// NewRegistry creates a registry whose sessions expire after idleTTL without
// activity.
func NewRegistry(idleTTL time.Duration, checkpoints CheckpointStore, opts ...RegistryOption) *Registry {
	registry := &Registry{
		sessions:    make(map[string]*Session),
		idleTTL:     idleTTL,
		checkpoints: checkpoints,
		obs:         observability.Noop{},
	}
	for _, opt := range opts {
		opt(registry)
	}
	return registry
}

// Create registers a new session and starts its idle timer.
func (registry *Registry) Create() *Session {
	registry.mu.Lock()
	defer registry.mu.Unlock()

	session := registry.track(&Session{
		ID:    uuid.NewString(),
		Store: state.NewStore(),
	})

	registry.obs.Counter("sessions.created").Add(context.Background(), 1)
	return session
}

// track arms the idle timer and registers the session. Caller holds mu.
func (registry *Registry) track(session *Session) *Session {
	session.lastActive = time.Now()
	session.timer = time.AfterFunc(registry.idleTTL, func() {
		registry.evict(session.ID)
	})
	registry.sessions[session.ID] = session
	return session
}

// touch records activity and pushes the idle deadline out. Caller holds mu.
func (registry *Registry) touch(session *Session) {
	session.lastActive = time.Now()
	session.timer.Reset(registry.idleTTL)
}

// locate finds a live session, falling back to the checkpoint store when the
// process no longer holds the id in memory (a restart, or another replica
// owned the session last). A rehydrated session starts a fresh idle timer.
// Caller holds mu.
func (registry *Registry) locate(ctx context.Context, sessionID string) (*Session, bool) {
	if session, ok := registry.sessions[sessionID]; ok {
		return session, true
	}

	checkpoint, found, err := registry.checkpoints.Load(ctx, sessionID)
	if err != nil {
		registry.obs.Warn(ctx, "failed to load session checkpoint",
			observability.String("session_id", sessionID),
			observability.Error(err))
		return nil, false
	}
	if !found {
		return nil, false
	}

	session := &Session{ID: sessionID, Store: state.NewStore()}
	session.Store.Restore(checkpoint)
	registry.track(session)

	registry.obs.Counter("sessions.restored").Add(ctx, 1)
	return session, true
}

// Get returns a live session and resets its idle timer. An unknown id is a
// session error, never an implicit create.
func (registry *Registry) Get(ctx context.Context, sessionID string) (*Session, error) {
	registry.mu.Lock()
	defer registry.mu.Unlock()

	session, ok := registry.locate(ctx, sessionID)
	if !ok {
		return nil, &Error{ID: sessionID, Reason: "unknown or expired"}
	}
	registry.touch(session)
	return session, nil
}

// Submit stores the next input against the session and resets its idle
// timer. It acknowledges acceptance; the result arrives on the stream.
func (registry *Registry) Submit(ctx context.Context, sessionID, payload string) error {
	registry.mu.Lock()
	defer registry.mu.Unlock()

	session, ok := registry.locate(ctx, sessionID)
	if !ok {
		return &Error{ID: sessionID, Reason: "unknown or expired"}
	}
	session.pending = payload
	session.hasInput = true
	registry.touch(session)
	return nil
}

// BeginRun claims the session's single-run slot and takes the pending input.
// It fails when no input is waiting or a run is already in flight.
func (registry *Registry) BeginRun(ctx context.Context, sessionID string) (*Session, string, error) {
	registry.mu.Lock()
	defer registry.mu.Unlock()

	session, ok := registry.locate(ctx, sessionID)
	if !ok {
		return nil, "", &Error{ID: sessionID, Reason: "unknown or expired"}
	}
	if session.inFlight {
		return nil, "", &Error{ID: sessionID, Reason: "a run is already in flight"}
	}
	if !session.hasInput {
		return nil, "", &Error{ID: sessionID, Reason: "no pending input"}
	}

	payload := session.pending
	session.pending = ""
	session.hasInput = false
	session.inFlight = true
	registry.touch(session)
	return session, payload, nil
}

// EndRun releases the single-run slot and persists the session's checkpoint
// with the idle window as its TTL.
func (registry *Registry) EndRun(ctx context.Context, sessionID string) {
	registry.mu.Lock()
	session, ok := registry.sessions[sessionID]
	if ok {
		session.inFlight = false
		registry.touch(session)
	}
	registry.mu.Unlock()
	if !ok {
		return
	}

	if err := registry.checkpoints.Save(ctx, sessionID, session.Store.Checkpoint(), registry.idleTTL); err != nil {
		registry.obs.Warn(ctx, "failed to persist session checkpoint",
			observability.String("session_id", sessionID),
			observability.Error(err))
	}
}

// Remove tears a session down explicitly: the idle timer stops and the
// checkpoint is deleted.
func (registry *Registry) Remove(ctx context.Context, sessionID string) error {
	registry.mu.Lock()
	session, ok := registry.sessions[sessionID]
	if ok {
		session.timer.Stop()
		delete(registry.sessions, sessionID)
	}
	registry.mu.Unlock()
	if !ok {
		return &Error{ID: sessionID, Reason: "unknown or expired"}
	}
	return registry.checkpoints.Delete(ctx, sessionID)
}

// Count returns the number of live sessions.
func (registry *Registry) Count() int {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	return len(registry.sessions)
}

// evict is the idle timer's target: drop the session and its checkpoint.
// Activity may have raced the timer firing, so the idle window is re-checked
// against lastActive before anything is dropped.
func (registry *Registry) evict(sessionID string) {
	registry.mu.Lock()
	session, ok := registry.sessions[sessionID]
	if ok {
		if remaining := registry.idleTTL - time.Since(session.lastActive); remaining > 0 {
			session.timer.Reset(remaining)
			registry.mu.Unlock()
			return
		}
		delete(registry.sessions, sessionID)
	}
	registry.mu.Unlock()
	if !ok {
		return
	}

	ctx := context.Background()
	if err := registry.checkpoints.Delete(ctx, sessionID); err != nil {
		registry.obs.Warn(ctx, "failed to delete evicted session checkpoint",
			observability.String("session_id", sessionID),
			observability.Error(err))
	}
	registry.obs.Counter("sessions.evicted").Add(ctx, 1)
	registry.obs.Info(ctx, "session evicted after idle timeout",
		observability.String("session_id", sessionID))
}
