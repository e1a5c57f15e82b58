package handlers

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/dilemma-engine/internal/analytics"
	"github.com/jwebster45206/dilemma-engine/internal/storage"
	"github.com/jwebster45206/dilemma-engine/pkg/highscore"
	"github.com/jwebster45206/dilemma-engine/pkg/queue"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.LevelError, // Reduce noise in tests
	}))
}

func newTestStorage(t *testing.T) (*storage.RedisStorage, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return storage.NewRedisStorageFromClient(client, testLogger()), mr
}

func newJSONRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// memorySink records event log rows in memory.
type memorySink struct {
	mu        sync.Mutex
	inGame    []analytics.InGameRow
	summaries []analytics.SummaryRow
}

func (s *memorySink) AppendInGame(ctx context.Context, row analytics.InGameRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inGame = append(s.inGame, row)
	return nil
}

func (s *memorySink) AppendSummary(ctx context.Context, row analytics.SummaryRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summaries = append(s.summaries, row)
	return nil
}

// recordingPublisher records announced events by type.
type recordingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *recordingPublisher) add(e string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) PublishRunUpdated(ctx context.Context, gameID string, day int, phase string) error {
	return p.add("run.updated")
}

func (p *recordingPublisher) PublishScoreCalculated(ctx context.Context, gameID string, score int) error {
	return p.add("score.calculated")
}

func (p *recordingPublisher) PublishRankUpdated(ctx context.Context, gameID string, resp *highscore.SubmitResponse) error {
	return p.add("rank.updated")
}

func (p *recordingPublisher) PublishSubmissionFailed(ctx context.Context, gameID, reason string) error {
	return p.add("submission.failed")
}

func (p *recordingPublisher) count(e string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, got := range p.events {
		if got == e {
			n++
		}
	}
	return n
}

// recordingQueue records enqueued mirror jobs.
type recordingQueue struct {
	mu   sync.Mutex
	jobs []queue.Job
}

func (q *recordingQueue) Enqueue(ctx context.Context, job *queue.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, *job)
	return nil
}

func (q *recordingQueue) byType(t queue.JobType) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := 0
	for _, j := range q.jobs {
		if j.Type == t {
			n++
		}
	}
	return n
}
