package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/dilemma-engine/pkg/session"
)

func snapshotKey(sessionID, key string) string {
	return "session:" + sessionID + ":" + key
}

// SaveSnapshot stores the snapshot with the session TTL.
func (r *RedisStorage) SaveSnapshot(ctx context.Context, s *session.Snapshot) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	if err := r.client.Set(ctx, snapshotKey(s.SessionID, s.Key), data, session.TTL).Err(); err != nil {
		r.logger.Error("Failed to save snapshot", "session_id", s.SessionID, "key", s.Key, "error", err)
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot returns ErrNotFound for missing snapshots. Snapshots whose
// stored timestamp is past the TTL are deleted and reported as not found.
func (r *RedisStorage) LoadSnapshot(ctx context.Context, sessionID, key string) (*session.Snapshot, error) {
	k := snapshotKey(sessionID, key)
	data, err := r.client.Get(ctx, k).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}

	var s session.Snapshot
	if err := json.Unmarshal(data, &s); err != nil || s.Expired(r.now()) {
		if delErr := r.client.Del(ctx, k).Err(); delErr != nil {
			r.logger.Warn("Failed to discard stale snapshot", "key", k, "error", delErr)
		}
		return nil, ErrNotFound
	}
	return &s, nil
}

func (r *RedisStorage) DeleteSnapshot(ctx context.Context, sessionID, key string) error {
	if err := r.client.Del(ctx, snapshotKey(sessionID, key)).Err(); err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	return nil
}
