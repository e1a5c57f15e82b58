package queue

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/dilemma-engine/pkg/highscore"
	"github.com/jwebster45206/dilemma-engine/pkg/queue"
)

func setupTestQueue(t *testing.T) (*MirrorQueue, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewMirrorQueue(NewClientFromRedis(rdb, logger)), mr
}

func highscoreJob(gameID string) *queue.Job {
	return &queue.Job{
		Type:   queue.JobTypeHighscore,
		GameID: gameID,
		Entry:  &highscore.Entry{Name: "Pericles", Score: 1100},
	}
}

func TestMirrorQueue_EnqueueDequeue(t *testing.T) {
	q, _ := setupTestQueue(t)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, highscoreJob("g1")))
	require.NoError(t, q.Enqueue(ctx, &queue.Job{Type: queue.JobTypeSummary, GameID: "g2", Role: "Athens", Score: 800}))

	depth, err := q.Depth(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, depth)

	job, err := q.BlockingDequeue(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, "g1", job.GameID)
	assert.NotEmpty(t, job.JobID)
	assert.False(t, job.EnqueuedAt.IsZero())
	assert.Equal(t, 1100, job.Entry.Score)

	job, err = q.BlockingDequeue(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, queue.JobTypeSummary, job.Type)
}

func TestMirrorQueue_RejectsInvalidJob(t *testing.T) {
	q, _ := setupTestQueue(t)
	err := q.Enqueue(context.Background(), &queue.Job{Type: queue.JobTypeHighscore, GameID: "g1"})
	assert.Error(t, err)
}

func TestMirrorQueue_Requeue(t *testing.T) {
	q, _ := setupTestQueue(t)
	ctx := context.Background()
	job := highscoreJob("g1")

	for i := 1; i < queue.MaxAttempts; i++ {
		retried, err := q.Requeue(ctx, job)
		require.NoError(t, err)
		assert.True(t, retried)
		assert.Equal(t, i, job.Attempts)
	}

	retried, err := q.Requeue(ctx, job)
	require.NoError(t, err)
	assert.False(t, retried)

	depth, _ := q.Depth(ctx)
	dead, _ := q.DeadLetters(ctx)
	assert.Equal(t, queue.MaxAttempts-1, depth)
	assert.Equal(t, 1, dead)
}
