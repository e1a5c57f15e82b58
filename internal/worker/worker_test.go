package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/dilemma-engine/internal/remote"
	"github.com/jwebster45206/dilemma-engine/internal/services/queue"
	"github.com/jwebster45206/dilemma-engine/pkg/highscore"
	queuePkg "github.com/jwebster45206/dilemma-engine/pkg/queue"
)

func setupWorker(t *testing.T, mirror remote.Mirror) (*Worker, *queue.MirrorQueue) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	q := queue.NewMirrorQueue(queue.NewClientFromRedis(rdb, logger))
	return New(q, mirror, rdb, logger, "test-worker"), q
}

func job(gameID string) *queuePkg.Job {
	return &queuePkg.Job{
		JobID:      "job-" + gameID,
		Type:       queuePkg.JobTypeHighscore,
		GameID:     gameID,
		UserID:     "u1",
		Entry:      &highscore.Entry{Name: "Cleisthenes", Score: 1300, Role: "Reformer"},
		EnqueuedAt: time.Date(2025, 2, 2, 0, 0, 0, 0, time.UTC),
	}
}

func TestWorker_ProcessHighscore(t *testing.T) {
	mirror := remote.NewMockMirror()
	w, _ := setupWorker(t, mirror)

	require.NoError(t, w.Process(context.Background(), job("g1")))
	// Second delivery of the same game is skipped.
	require.NoError(t, w.Process(context.Background(), job("g1")))

	hs, sums := mirror.Counts()
	assert.Equal(t, 1, hs)
	assert.Equal(t, 0, sums)
	assert.Equal(t, "Cleisthenes", mirror.Highscores[0].Name)
	assert.Equal(t, "g1", mirror.Highscores[0].GameID)
}

func TestWorker_ProcessSummary(t *testing.T) {
	mirror := remote.NewMockMirror()
	w, _ := setupWorker(t, mirror)

	err := w.Process(context.Background(), &queuePkg.Job{Type: queuePkg.JobTypeSummary, GameID: "g2", Role: "Mars Colony", Score: 640})
	require.NoError(t, err)

	_, sums := mirror.Counts()
	require.Equal(t, 1, sums)
	assert.Equal(t, 640, mirror.Summaries[0].Score)
}

func TestWorker_FailedJobIsRequeued(t *testing.T) {
	mirror := remote.NewMockMirror()
	mirror.InsertHighscoreFunc = func(ctx context.Context, row remote.HighscoreRow) error {
		return errors.New("supabase unavailable")
	}
	w, q := setupWorker(t, mirror)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, job("g3")))
	require.NoError(t, w.processNext())

	depth, err := q.Depth(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, depth)

	next, err := q.BlockingDequeue(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, 1, next.Attempts)
}

func TestWorker_InvalidJobDropped(t *testing.T) {
	mirror := remote.NewMockMirror()
	w, _ := setupWorker(t, mirror)

	require.NoError(t, w.Process(context.Background(), &queuePkg.Job{Type: "bogus", GameID: "g"}))
	hs, sums := mirror.Counts()
	assert.Zero(t, hs+sums)
}
