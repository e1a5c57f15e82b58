package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/dilemma-engine/pkg/queue"
)

const (
	mirrorQueueKey = "mirror:jobs"
	deadLetterKey  = "mirror:dead"
)

// MirrorQueue holds jobs that copy accepted results to the remote leaderboard.
type MirrorQueue struct {
	client *Client
	now    func() time.Time
}

func NewMirrorQueue(client *Client) *MirrorQueue {
	return &MirrorQueue{client: client, now: time.Now}
}

// Enqueue validates the job, fills its ID and timestamp, and appends it.
func (q *MirrorQueue) Enqueue(ctx context.Context, job *queue.Job) error {
	if err := job.Validate(); err != nil {
		return fmt.Errorf("invalid job: %w", err)
	}
	if job.JobID == "" {
		job.JobID = uuid.New().String()
	}
	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = q.now().UTC()
	}
	return q.push(ctx, mirrorQueueKey, job)
}

// Requeue puts a failed job back at the tail with its attempt count bumped.
// Jobs that have used up their attempts go to the dead-letter list instead,
// and Requeue reports false.
func (q *MirrorQueue) Requeue(ctx context.Context, job *queue.Job) (bool, error) {
	job.Attempts++
	if job.Attempts >= queue.MaxAttempts {
		return false, q.push(ctx, deadLetterKey, job)
	}
	return true, q.push(ctx, mirrorQueueKey, job)
}

func (q *MirrorQueue) push(ctx context.Context, key string, job *queue.Job) error {
	data, err := job.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to serialize job: %w", err)
	}
	if err := q.client.rdb.RPush(ctx, key, data).Err(); err != nil {
		return fmt.Errorf("failed to enqueue job: %w", err)
	}
	return nil
}

// BlockingDequeue waits up to timeout for a job. It returns nil, nil when
// the wait times out.
func (q *MirrorQueue) BlockingDequeue(ctx context.Context, timeout time.Duration) (*queue.Job, error) {
	result, err := q.client.rdb.BLPop(ctx, timeout, mirrorQueueKey).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to dequeue job: %w", err)
	}

	// BLPop returns [key, value]
	if len(result) != 2 {
		return nil, fmt.Errorf("unexpected BLPop result: %v", result)
	}

	job, err := queue.FromJSON([]byte(result[1]))
	if err != nil {
		return nil, fmt.Errorf("failed to parse job: %w", err)
	}
	return job, nil
}

// Depth returns the number of pending jobs.
func (q *MirrorQueue) Depth(ctx context.Context) (int, error) {
	count, err := q.client.rdb.LLen(ctx, mirrorQueueKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get queue depth: %w", err)
	}
	return int(count), nil
}

// DeadLetters returns the number of abandoned jobs.
func (q *MirrorQueue) DeadLetters(ctx context.Context) (int, error) {
	count, err := q.client.rdb.LLen(ctx, deadLetterKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get dead letter depth: %w", err)
	}
	return int(count), nil
}
