package graphstore

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore is the in-process Store implementation.
type MemoryStore struct {
	mu     sync.RWMutex
	graphs map[string]PersistedGraph
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{graphs: make(map[string]PersistedGraph)}
}

func (store *MemoryStore) Load(ctx context.Context, graphID string) (PersistedGraph, error) {
	store.mu.RLock()
	defer store.mu.RUnlock()

	persisted, ok := store.graphs[graphID]
	if !ok {
		return PersistedGraph{}, fmt.Errorf("graph %q not found", graphID)
	}
	return persisted, nil
}

func (store *MemoryStore) Save(ctx context.Context, persisted PersistedGraph) error {
	if persisted.ID == "" {
		return fmt.Errorf("graph has no id")
	}
	store.mu.Lock()
	defer store.mu.Unlock()
	store.graphs[persisted.ID] = persisted
	return nil
}
