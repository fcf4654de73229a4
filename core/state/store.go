package state

import (
	"fmt"
	"sync"
)

// Store holds the named state channels for one execution. It is safe for
// concurrent use: handlers running in the same level read snapshots and the
// scheduler applies their returned updates through the channel reducers.
// Handlers never mutate the store directly, so a discarded update leaves no
// trace, which is what makes cancellation side-effect free.
type Store struct {
	mu       sync.RWMutex
	channels map[string]channelDef
	values   map[string]any
}

// NewStore creates a store with the fixed channel set, each holding its
// default value.
func NewStore() *Store {
	channels := defaultChannels()
	values := make(map[string]any, len(channels))
	for name, def := range channels {
		values[name] = def.initial()
	}
	return &Store{channels: channels, values: values}
}

// Apply merges a partial update into the store, channel by channel, through
// each channel's reducer. An update naming an unknown channel is rejected
// whole, before any channel is touched.
func (store *Store) Apply(update Update) error {
	if len(update) == 0 {
		return nil
	}

	store.mu.Lock()
	defer store.mu.Unlock()

	for name := range update {
		if _, known := store.channels[name]; !known {
			return fmt.Errorf("unknown state channel %q", name)
		}
	}

	for name, incoming := range update {
		def := store.channels[name]
		store.values[name] = def.reduce(store.values[name], incoming)
	}
	return nil
}

// Snapshot returns a read-only copy of the current state. Handlers receive
// snapshots, never the store itself.
func (store *Store) Snapshot() Snapshot {
	store.mu.RLock()
	defer store.mu.RUnlock()

	messages, _ := store.values[ChannelMessages].([]Message)
	routeType, _ := store.values[ChannelRouteType].(string)
	searchResults, _ := store.values[ChannelSearchResults].([]SearchResult)
	nodeOutputs, _ := store.values[ChannelNodeOutputs].(map[string]map[string]any)

	snapshot := Snapshot{
		messages:      append([]Message(nil), messages...),
		routeType:     routeType,
		searchResults: append([]SearchResult(nil), searchResults...),
		nodeOutputs:   make(map[string]map[string]any, len(nodeOutputs)),
	}
	for nodeID, record := range nodeOutputs {
		copied := make(map[string]any, len(record))
		for key, value := range record {
			copied[key] = value
		}
		snapshot.nodeOutputs[nodeID] = copied
	}
	return snapshot
}

// Checkpoint captures the store for persistence between session turns.
// The shape is JSON-stable so external checkpoint backends can round-trip it.
func (store *Store) Checkpoint() Checkpoint {
	snapshot := store.Snapshot()
	return Checkpoint{
		Messages:      snapshot.messages,
		RouteType:     snapshot.routeType,
		SearchResults: snapshot.searchResults,
		NodeOutputs:   snapshot.nodeOutputs,
	}
}

// Restore resets the store to a previously captured checkpoint.
func (store *Store) Restore(checkpoint Checkpoint) {
	store.mu.Lock()
	defer store.mu.Unlock()

	store.values[ChannelMessages] = append([]Message(nil), checkpoint.Messages...)
	store.values[ChannelRouteType] = checkpoint.RouteType
	store.values[ChannelSearchResults] = append([]SearchResult(nil), checkpoint.SearchResults...)

	nodeOutputs := make(map[string]map[string]any, len(checkpoint.NodeOutputs))
	for nodeID, record := range checkpoint.NodeOutputs {
		nodeOutputs[nodeID] = record
	}
	store.values[ChannelNodeOutputs] = nodeOutputs
}

// Checkpoint is the serializable form of a store, keyed by session id in the
// checkpoint backends.
type Checkpoint struct {
	Messages      []Message                 `json:"messages"`
	RouteType     string                    `json:"routeType,omitempty"`
	SearchResults []SearchResult            `json:"searchResults,omitempty"`
	NodeOutputs   map[string]map[string]any `json:"nodeOutputs,omitempty"`
}

// Snapshot is an immutable view of the store handed to node handlers.
type Snapshot struct {
	messages      []Message
	routeType     string
	searchResults []SearchResult
	nodeOutputs   map[string]map[string]any
}

// Messages returns the conversation transcript, oldest first.
func (snapshot Snapshot) Messages() []Message { return snapshot.messages }

// LastMessage returns the newest transcript entry, if any.
func (snapshot Snapshot) LastMessage() (Message, bool) {
	if len(snapshot.messages) == 0 {
		return Message{}, false
	}
	return snapshot.messages[len(snapshot.messages)-1], true
}

// LastHumanMessage returns the newest human-authored entry, if any.
func (snapshot Snapshot) LastHumanMessage() (Message, bool) {
	for index := len(snapshot.messages) - 1; index >= 0; index-- {
		if snapshot.messages[index].Role == RoleHuman {
			return snapshot.messages[index], true
		}
	}
	return Message{}, false
}

// RouteType returns the most recent routing decision, or "".
func (snapshot Snapshot) RouteType() string { return snapshot.routeType }

// SearchResults returns the latest raw search results.
func (snapshot Snapshot) SearchResults() []SearchResult { return snapshot.searchResults }

// NodeOutputs returns every recorded per-node output record.
func (snapshot Snapshot) NodeOutputs() map[string]map[string]any { return snapshot.nodeOutputs }

// NodeOutput returns one node's recorded output record, if present.
func (snapshot Snapshot) NodeOutput(nodeID string) (map[string]any, bool) {
	record, exists := snapshot.nodeOutputs[nodeID]
	return record, exists
}
