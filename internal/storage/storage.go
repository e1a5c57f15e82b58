package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/dilemma-engine/pkg/highscore"
	"github.com/jwebster45206/dilemma-engine/pkg/run"
	"github.com/jwebster45206/dilemma-engine/pkg/session"
)

// ErrNotFound is returned when a key does not exist or has expired.
var ErrNotFound = errors.New("not found")

// Storage is everything the API persists.
type Storage interface {
	Ping(ctx context.Context) error
	Close() error

	SaveRun(ctx context.Context, s *run.GameRunState) error
	LoadRun(ctx context.Context, id uuid.UUID) (*run.GameRunState, error)
	UpdateRun(ctx context.Context, id uuid.UUID, fn func(run.GameRunState) (run.GameRunState, error)) (*run.GameRunState, error)
	DeleteRun(ctx context.Context, id uuid.UUID) error

	SubmitHighscore(ctx context.Context, req highscore.SubmitRequest) (*highscore.SubmitResponse, error)
	TopHighscores(ctx context.Context, n int) ([]highscore.Entry, error)

	SaveSnapshot(ctx context.Context, s *session.Snapshot) error
	LoadSnapshot(ctx context.Context, sessionID, key string) (*session.Snapshot, error)
	DeleteSnapshot(ctx context.Context, sessionID, key string) error
}

// RedisStorage implements Storage on Redis.
type RedisStorage struct {
	client *redis.Client
	logger *slog.Logger
	now    func() time.Time
}

// Ensure RedisStorage implements Storage interface
var _ Storage = (*RedisStorage)(nil)

// NewRedisStorage connects to a redis:// URL or a bare host:port address.
func NewRedisStorage(redisURL string, logger *slog.Logger) (*RedisStorage, error) {
	client, err := NewClient(redisURL)
	if err != nil {
		return nil, err
	}
	return NewRedisStorageFromClient(client, logger), nil
}

// NewRedisStorageFromClient wraps an existing client.
func NewRedisStorageFromClient(client *redis.Client, logger *slog.Logger) *RedisStorage {
	return &RedisStorage{
		client: client,
		logger: logger,
		now:    time.Now,
	}
}

// NewClient builds a go-redis client from a URL or address.
func NewClient(redisURL string) (*redis.Client, error) {
	if !strings.Contains(redisURL, "://") {
		return redis.NewClient(&redis.Options{Addr: redisURL}), nil
	}
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	return redis.NewClient(opt), nil
}

// Client returns the underlying Redis client for the queue and broadcaster.
func (r *RedisStorage) Client() *redis.Client {
	return r.client
}

func (r *RedisStorage) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (r *RedisStorage) Close() error {
	if err := r.client.Close(); err != nil {
		r.logger.Error("Failed to close Redis connection", "error", err)
		return err
	}
	r.logger.Info("Redis connection closed")
	return nil
}

// WaitForConnection waits for Redis to become available (used during startup)
func (r *RedisStorage) WaitForConnection(ctx context.Context) error {
	maxRetries := 30
	retryDelay := 2 * time.Second

	for i := 0; i < maxRetries; i++ {
		if err := r.Ping(ctx); err != nil {
			r.logger.Debug("Redis not ready yet", "error", err, "attempt", i+1)

			select {
			case <-ctx.Done():
				return fmt.Errorf("context cancelled while waiting for redis: %w", ctx.Err())
			case <-time.After(retryDelay):
				continue
			}
		}

		r.logger.Info("Redis connection established")
		return nil
	}

	return fmt.Errorf("redis did not become available after %d attempts", maxRetries)
}
