package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jong-choi/langflow/core/state"
)

// RedisStore persists checkpoints in Redis with a per-key TTL, so abandoned
// sessions expire server-side without any sweeper.
type RedisStore struct {
	client *redis.Client
}

var _ CheckpointStore = (*RedisStore)(nil)

// NewRedisStore wraps an existing Redis client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func checkpointKey(sessionID string) string {
	return "session:" + sessionID
}

func (store *RedisStore) Save(ctx context.Context, sessionID string, checkpoint state.Checkpoint, ttl time.Duration) error {
	encoded, err := json.Marshal(checkpoint)
	if err != nil {
		return fmt.Errorf("error encoding checkpoint: %w", err)
	}
	if err := store.client.Set(ctx, checkpointKey(sessionID), encoded, ttl).Err(); err != nil {
		return fmt.Errorf("error saving checkpoint: %w", err)
	}
	return nil
}

func (store *RedisStore) Load(ctx context.Context, sessionID string) (state.Checkpoint, bool, error) {
	encoded, err := store.client.Get(ctx, checkpointKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return state.Checkpoint{}, false, nil
	}
	if err != nil {
		return state.Checkpoint{}, false, fmt.Errorf("error loading checkpoint: %w", err)
	}

	var checkpoint state.Checkpoint
	if err := json.Unmarshal(encoded, &checkpoint); err != nil {
		return state.Checkpoint{}, false, fmt.Errorf("error decoding checkpoint: %w", err)
	}
	return checkpoint, true, nil
}

func (store *RedisStore) Delete(ctx context.Context, sessionID string) error {
	if err := store.client.Del(ctx, checkpointKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("error deleting checkpoint: %w", err)
	}
	return nil
}
