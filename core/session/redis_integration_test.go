package session

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jong-choi/langflow/core/state"
)

// Requires a reachable Redis; set LANGFLOW_REDIS_ADDR to run.
func TestRedisStoreRoundTrip(t *testing.T) {
	addr := os.Getenv("LANGFLOW_REDIS_ADDR")
	if addr == "" {
		t.Skip("LANGFLOW_REDIS_ADDR not set")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()
	store := NewRedisStore(client)
	ctx := context.Background()

	checkpoint := state.Checkpoint{
		Messages:  []state.Message{{Role: state.RoleHuman, Content: "hi"}},
		RouteType: "chat",
	}
	if err := store.Save(ctx, "it-session", checkpoint, time.Minute); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, found, err := store.Load(ctx, "it-session")
	if err != nil || !found {
		t.Fatalf("Load = (%v, %v)", found, err)
	}
	if loaded.RouteType != "chat" || len(loaded.Messages) != 1 {
		t.Errorf("loaded = %+v", loaded)
	}

	if err := store.Delete(ctx, "it-session"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, found, _ := store.Load(ctx, "it-session"); found {
		t.Error("checkpoint survived Delete")
	}
}
