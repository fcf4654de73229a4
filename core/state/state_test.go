package state

import (
	"encoding/json"
	"sync"
	"testing"
)

func TestApply_MessagesAppendInOrder(t *testing.T) {
	store := NewStore()

	updates := []Update{
		{ChannelMessages: Message{Role: RoleHuman, Content: "first"}},
		{ChannelMessages: []Message{{Role: RoleAI, Content: "second"}, {Role: RoleHuman, Content: "third"}}},
	}
	for _, update := range updates {
		if err := store.Apply(update); err != nil {
			t.Fatalf("apply failed: %v", err)
		}
	}

	messages := store.Snapshot().Messages()
	if len(messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(messages))
	}
	for index, want := range []string{"first", "second", "third"} {
		if messages[index].Content != want {
			t.Fatalf("message %d = %q, want %q", index, messages[index].Content, want)
		}
	}
}

func TestApply_RouteTypeLastWriteWins(t *testing.T) {
	store := NewStore()

	for _, route := range []string{"search", "chat"} {
		if err := store.Apply(Update{ChannelRouteType: route}); err != nil {
			t.Fatalf("apply failed: %v", err)
		}
	}

	if got := store.Snapshot().RouteType(); got != "chat" {
		t.Fatalf("routeType = %q, want last write %q", got, "chat")
	}
}

func TestApply_NodeOutputsMergeShallowlyByID(t *testing.T) {
	store := NewStore()

	first := Update{ChannelNodeOutputs: map[string]map[string]any{
		"n1": {"response": "old"},
		"n2": {"response": "kept"},
	}}
	second := Update{ChannelNodeOutputs: map[string]map[string]any{
		"n1": {"response": "new"},
		"n3": {"response": "added"},
	}}
	for _, update := range []Update{first, second} {
		if err := store.Apply(update); err != nil {
			t.Fatalf("apply failed: %v", err)
		}
	}

	outputs := store.Snapshot().NodeOutputs()
	if len(outputs) != 3 {
		t.Fatalf("expected 3 records, got %d", len(outputs))
	}
	if outputs["n1"]["response"] != "new" {
		t.Fatalf("existing id not overwritten: %v", outputs["n1"])
	}
	if outputs["n2"]["response"] != "kept" {
		t.Fatalf("untouched id lost: %v", outputs["n2"])
	}
}

func TestApply_UnknownChannelRejectedWhole(t *testing.T) {
	store := NewStore()

	err := store.Apply(Update{
		ChannelRouteType: "chat",
		"bogus":          1,
	})
	if err == nil {
		t.Fatal("expected error for unknown channel")
	}
	if got := store.Snapshot().RouteType(); got != "" {
		t.Fatalf("partial apply leaked: routeType = %q", got)
	}
}

func TestSnapshot_IsolatedFromLaterWrites(t *testing.T) {
	store := NewStore()
	if err := store.Apply(Update{ChannelMessages: Message{Role: RoleHuman, Content: "before"}}); err != nil {
		t.Fatalf("apply failed: %v", err)
	}

	snapshot := store.Snapshot()
	if err := store.Apply(Update{ChannelMessages: Message{Role: RoleAI, Content: "after"}}); err != nil {
		t.Fatalf("apply failed: %v", err)
	}

	if len(snapshot.Messages()) != 1 {
		t.Fatalf("snapshot mutated by later write: %v", snapshot.Messages())
	}
}

func TestSnapshot_LastHumanMessageSkipsAIMessages(t *testing.T) {
	store := NewStore()
	err := store.Apply(Update{ChannelMessages: []Message{
		{Role: RoleHuman, Content: "question"},
		{Role: RoleAI, Content: "answer"},
	}})
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}

	message, found := store.Snapshot().LastHumanMessage()
	if !found || message.Content != "question" {
		t.Fatalf("LastHumanMessage = %v/%v, want question", message, found)
	}

	last, _ := store.Snapshot().LastMessage()
	if last.Content != "answer" {
		t.Fatalf("LastMessage = %v, want answer", last)
	}
}

func TestApply_ConcurrentDisjointChannels(t *testing.T) {
	store := NewStore()

	var group sync.WaitGroup
	for range 50 {
		group.Add(2)
		go func() {
			defer group.Done()
			_ = store.Apply(Update{ChannelMessages: Message{Role: RoleAI, Content: "m"}})
		}()
		go func() {
			defer group.Done()
			_ = store.Apply(Update{ChannelNodeOutputs: map[string]map[string]any{"n": {"k": "v"}}})
		}()
	}
	group.Wait()

	snapshot := store.Snapshot()
	if len(snapshot.Messages()) != 50 {
		t.Fatalf("expected 50 appended messages, got %d", len(snapshot.Messages()))
	}
	if _, exists := snapshot.NodeOutput("n"); !exists {
		t.Fatal("node output record missing after concurrent writes")
	}
}

func TestCheckpoint_RoundTripsThroughJSON(t *testing.T) {
	store := NewStore()
	err := store.Apply(Update{
		ChannelMessages:      Message{Role: RoleHuman, Content: "hello"},
		ChannelRouteType:     "search",
		ChannelSearchResults: []SearchResult{{Title: "t", URL: "u", Content: "c"}},
		ChannelNodeOutputs:   map[string]map[string]any{"n1": {"response": "r"}},
	})
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}

	encoded, err := json.Marshal(store.Checkpoint())
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	var decoded Checkpoint
	if err := json.Unmarshal(encoded, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	restored := NewStore()
	restored.Restore(decoded)
	snapshot := restored.Snapshot()

	if message, _ := snapshot.LastMessage(); message.Content != "hello" {
		t.Fatalf("messages lost in round trip: %v", snapshot.Messages())
	}
	if snapshot.RouteType() != "search" {
		t.Fatalf("routeType lost: %q", snapshot.RouteType())
	}
	if len(snapshot.SearchResults()) != 1 || snapshot.SearchResults()[0].Title != "t" {
		t.Fatalf("searchResults lost: %v", snapshot.SearchResults())
	}
	if record, _ := snapshot.NodeOutput("n1"); record["response"] != "r" {
		t.Fatalf("nodeOutputs lost: %v", record)
	}
}
