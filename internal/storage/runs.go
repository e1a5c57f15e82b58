package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/dilemma-engine/pkg/run"
)

// RunTTL is how long an untouched run is kept.
const RunTTL = 24 * time.Hour

const maxUpdateRetries = 5

func runKey(id uuid.UUID) string {
	return "run:" + id.String()
}

func (r *RedisStorage) SaveRun(ctx context.Context, s *run.GameRunState) error {
	if s == nil || s.ID == uuid.Nil {
		return errors.New("run with an ID is required")
	}
	data, err := json.Marshal(s)
	if err != nil {
		r.logger.Error("Failed to marshal run", "game_id", s.ID, "error", err)
		return fmt.Errorf("failed to marshal run: %w", err)
	}
	if err := r.client.Set(ctx, runKey(s.ID), data, RunTTL).Err(); err != nil {
		r.logger.Error("Failed to save run", "game_id", s.ID, "error", err)
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

func (r *RedisStorage) LoadRun(ctx context.Context, id uuid.UUID) (*run.GameRunState, error) {
	data, err := r.client.Get(ctx, runKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		r.logger.Error("Failed to load run", "game_id", id, "error", err)
		return nil, fmt.Errorf("failed to load run: %w", err)
	}

	var s run.GameRunState
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run: %w", err)
	}
	return &s, nil
}

// UpdateRun applies fn to the stored run inside a WATCH transaction. When
// another writer changes the run first the update is retried. Errors from
// fn are returned unchanged and nothing is written.
func (r *RedisStorage) UpdateRun(ctx context.Context, id uuid.UUID, fn func(run.GameRunState) (run.GameRunState, error)) (*run.GameRunState, error) {
	key := runKey(id)
	var result run.GameRunState

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		var cur run.GameRunState
		if err := json.Unmarshal(data, &cur); err != nil {
			return fmt.Errorf("failed to unmarshal run: %w", err)
		}
		next, err := fn(cur)
		if err != nil {
			return err
		}
		out, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("failed to marshal run: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, out, RunTTL)
			return nil
		})
		if err == nil {
			result = next
		}
		return err
	}

	for i := 0; i < maxUpdateRetries; i++ {
		err := r.client.Watch(ctx, txf, key)
		if err == nil {
			return &result, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			r.logger.Debug("Run update conflicted, retrying", "game_id", id, "attempt", i+1)
			continue
		}
		return nil, err
	}
	return nil, fmt.Errorf("run %s: too many concurrent updates", id)
}

func (r *RedisStorage) DeleteRun(ctx context.Context, id uuid.UUID) error {
	if err := r.client.Del(ctx, runKey(id)).Err(); err != nil {
		r.logger.Error("Failed to delete run", "game_id", id, "error", err)
		return fmt.Errorf("failed to delete run: %w", err)
	}
	return nil
}
