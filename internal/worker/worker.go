package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/dilemma-engine/internal/remote"
	"github.com/jwebster45206/dilemma-engine/internal/services/events"
	"github.com/jwebster45206/dilemma-engine/internal/services/queue"
	queuePkg "github.com/jwebster45206/dilemma-engine/pkg/queue"
)

const (
	workerTimeout = 5 * time.Second

	// doneTTL bounds how long a mirrored game is remembered.
	doneTTL = 7 * 24 * time.Hour
)

// Worker copies queued results to the remote mirror.
type Worker struct {
	id          string
	queue       *queue.MirrorQueue
	mirror      remote.Mirror
	broadcaster *events.Broadcaster
	redisClient *redis.Client
	log         *slog.Logger
	ctx         context.Context
	cancel      context.CancelFunc
}

// New creates a new worker instance
func New(q *queue.MirrorQueue, mirror remote.Mirror, redisClient *redis.Client, log *slog.Logger, workerID string) *Worker {
	ctx, cancel := context.WithCancel(context.Background())

	if workerID == "" {
		workerID = fmt.Sprintf("worker-%s", uuid.New().String()[:8])
	}

	return &Worker{
		id:          workerID,
		queue:       q,
		mirror:      mirror,
		broadcaster: events.NewBroadcaster(redisClient, log),
		redisClient: redisClient,
		log:         log.With("worker_id", workerID),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start processes jobs until Stop is called.
func (w *Worker) Start() error {
	w.log.Info("Worker starting")

	for {
		select {
		case <-w.ctx.Done():
			w.log.Info("Worker shutting down")
			return nil
		default:
			if err := w.processNext(); err != nil {
				if errors.Is(err, context.Canceled) {
					continue
				}
				w.log.Error("Error processing job", "error", err)
				time.Sleep(1 * time.Second)
			}
		}
	}
}

// Stop gracefully shuts down the worker
func (w *Worker) Stop() {
	w.log.Info("Worker stop requested")
	w.cancel()
}

func (w *Worker) processNext() error {
	job, err := w.queue.BlockingDequeue(w.ctx, workerTimeout)
	if err != nil {
		return fmt.Errorf("failed to dequeue job: %w", err)
	}
	if job == nil {
		return nil
	}

	if err := w.Process(w.ctx, job); err != nil {
		retried, qErr := w.queue.Requeue(w.ctx, job)
		if qErr != nil {
			return fmt.Errorf("failed to requeue job %s: %w", job.JobID, qErr)
		}
		w.log.Warn("Mirror job failed",
			"job_id", job.JobID,
			"game_id", job.GameID,
			"attempts", job.Attempts,
			"retrying", retried,
			"error", err)
	}
	return nil
}

func doneKey(job *queuePkg.Job) string {
	return fmt.Sprintf("mirror:done:%s:%s", job.Type, job.GameID)
}

// Process mirrors one job. A game already mirrored for the job's type is
// skipped.
func (w *Worker) Process(ctx context.Context, job *queuePkg.Job) error {
	if err := job.Validate(); err != nil {
		w.log.Error("Dropping invalid job", "job_id", job.JobID, "error", err)
		return nil
	}

	done, err := w.redisClient.Exists(ctx, doneKey(job)).Result()
	if err != nil {
		return fmt.Errorf("failed to check mirror state: %w", err)
	}
	if done > 0 {
		w.log.Debug("Job already mirrored", "job_id", job.JobID, "game_id", job.GameID)
		return nil
	}

	start := time.Now()
	switch job.Type {
	case queuePkg.JobTypeHighscore:
		err = w.mirror.InsertHighscore(ctx, remote.NewHighscoreRow(job.GameID, job.UserID, *job.Entry, job.EnqueuedAt))
	case queuePkg.JobTypeSummary:
		err = w.mirror.InsertSummary(ctx, remote.SummaryRow{
			GameID:    job.GameID,
			UserID:    job.UserID,
			Role:      job.Role,
			Score:     job.Score,
			CreatedAt: job.EnqueuedAt.UTC(),
		})
	}
	if err != nil {
		return err
	}

	if err := w.redisClient.Set(ctx, doneKey(job), w.id, doneTTL).Err(); err != nil {
		w.log.Warn("Failed to record mirrored job", "job_id", job.JobID, "error", err)
	}
	if err := w.broadcaster.PublishMirrorCompleted(ctx, job.GameID, string(job.Type)); err != nil {
		w.log.Warn("Failed to publish mirror event", "error", err)
	}

	w.log.Info("Mirror job processed",
		"job_id", job.JobID,
		"type", job.Type,
		"game_id", job.GameID,
		"duration_ms", time.Since(start).Milliseconds())
	return nil
}
