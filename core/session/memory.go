package session

import (
	"context"
	"sync"
	"time"

	"github.com/jong-choi/langflow/core/state"
)

// MemoryStore is the in-process CheckpointStore. TTLs are enforced lazily on
// Load.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	checkpoint state.Checkpoint
	expiresAt  time.Time
}

var _ CheckpointStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry)}
}

func (store *MemoryStore) Save(ctx context.Context, sessionID string, checkpoint state.Checkpoint, ttl time.Duration) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	entry := memoryEntry{checkpoint: checkpoint}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}
	store.entries[sessionID] = entry
	return nil
}

func (store *MemoryStore) Load(ctx context.Context, sessionID string) (state.Checkpoint, bool, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	entry, ok := store.entries[sessionID]
	if !ok {
		return state.Checkpoint{}, false, nil
	}
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		delete(store.entries, sessionID)
		return state.Checkpoint{}, false, nil
	}
	return entry.checkpoint, true, nil
}

func (store *MemoryStore) Delete(ctx context.Context, sessionID string) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	delete(store.entries, sessionID)
	return nil
}
