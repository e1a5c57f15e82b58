package handlers

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/google/uuid"

	"github.com/jwebster45206/dilemma-engine/pkg/queue"
	"github.com/jwebster45206/dilemma-engine/pkg/run"
	"github.com/jwebster45206/dilemma-engine/pkg/scoring"
	"github.com/jwebster45206/dilemma-engine/pkg/textfilter"
)

type runsFixture struct {
	handler *RunsHandler
	events  *recordingPublisher
	jobs    *recordingQueue
	sink    *memorySink
}

func newRunsFixture(t *testing.T) (*runsFixture, func(ctx context.Context, n int) int) {
	t.Helper()
	store, _ := newTestStorage(t)
	f := &runsFixture{
		events: &recordingPublisher{},
		jobs:   &recordingQueue{},
		sink:   &memorySink{},
	}
	f.handler = NewRunsHandler(store, textfilter.NewProfanityFilter(), f.events, f.jobs, f.sink, testLogger())
	countHighscores := func(ctx context.Context, n int) int {
		entries, err := store.TopHighscores(ctx, n)
		if err != nil {
			t.Fatalf("Failed to load highscores: %v", err)
		}
		return len(entries)
	}
	return f, countHighscores
}

func (f *runsFixture) create(t *testing.T, body string) run.GameRunState {
	t.Helper()
	rr := serve(f.handler, http.MethodPost, "/api/runs", body)
	if rr.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d. Response body: %s", rr.Code, rr.Body.String())
	}
	return decode[run.GameRunState](t, rr)
}

func (f *runsFixture) choose(t *testing.T, id uuid.UUID, day int) *http.Response {
	t.Helper()
	body := fmt.Sprintf(`{"title":"Day %d","choice":"Option A","deltas":{"people":5,"middle":-2,"mom":1}}`, day)
	return serve(f.handler, http.MethodPost, fmt.Sprintf("/api/runs/%s/choices", id), body).Result()
}

func (f *runsFixture) finalize(t *testing.T, id uuid.UUID) FinalizeResponse {
	t.Helper()
	rr := serve(f.handler, http.MethodPost, fmt.Sprintf("/api/runs/%s/finalize", id), `{"sessionId":"s1"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d. Response body: %s", rr.Code, rr.Body.String())
	}
	return decode[FinalizeResponse](t, rr)
}

func TestRunsHandler_FullRun(t *testing.T) {
	ctx := context.Background()
	f, countHighscores := newRunsFixture(t)

	s := f.create(t, `{"userId":"u1","roleKey":"athens","roleTitle":"Athens — 431 BCE"}`)
	if s.Day != 1 || s.TotalDays != run.DefaultTotalDays || s.SupportPeople != run.DefaultSupport {
		t.Fatalf("Unexpected new run %+v", s)
	}

	rr := serve(f.handler, http.MethodPost, fmt.Sprintf("/api/runs/%s/finalize", s.ID), `{}`)
	if rr.Code != http.StatusConflict {
		t.Errorf("Expected status 409 when finalizing early, got %d", rr.Code)
	}

	profile := `{"character":{"name":"Perikles","about":"General of Athens"},"politicalSystem":"rule by the assembly of citizens"}`
	rr = serve(f.handler, http.MethodPost, fmt.Sprintf("/api/runs/%s/profile", s.ID), profile)
	if got := decode[run.GameRunState](t, rr); got.PoliticalSystem != "Direct Democracy" {
		t.Errorf("Expected political system to be coerced, got %q", got.PoliticalSystem)
	}

	for day := 1; day <= run.DefaultTotalDays; day++ {
		if resp := f.choose(t, s.ID, day); resp.StatusCode != http.StatusOK {
			t.Fatalf("Day %d: expected status 200, got %d", day, resp.StatusCode)
		}
	}
	if resp := f.choose(t, s.ID, 8); resp.StatusCode != http.StatusConflict {
		t.Errorf("Expected status 409 for a choice in the aftermath, got %d", resp.StatusCode)
	}

	want := scoring.CalculateFinalScore(scoring.CalculateLiveScoreBreakdown(scoring.SupportInput{
		People: 85,
		Middle: 36,
		Mom:    57,
	}))

	first := f.finalize(t, s.ID)
	if first.Cached {
		t.Error("Expected the first finalize to calculate the score")
	}
	if first.Score != want {
		t.Errorf("Expected score %d, got %d", want, first.Score)
	}
	if first.Highscore == nil || first.Highscore.GlobalRank != 1 {
		t.Errorf("Expected a ranked highscore, got %+v", first.Highscore)
	}
	if !first.Run.FinalScoreCalculated || !first.Run.FinalScoreSubmitted {
		t.Errorf("Expected the run to be calculated and submitted, got %+v", first.Run)
	}

	second := f.finalize(t, s.ID)
	if !second.Cached || second.Score != first.Score {
		t.Errorf("Expected the cached score %d, got %+v", first.Score, second)
	}
	if second.Highscore != nil {
		t.Error("Expected no second submission")
	}
	if n := countHighscores(ctx, 10); n != 1 {
		t.Errorf("Expected exactly 1 highscore, got %d", n)
	}

	if n := f.events.count("score.calculated"); n != 1 {
		t.Errorf("Expected 1 score event, got %d", n)
	}
	if n := f.events.count("rank.updated"); n != 1 {
		t.Errorf("Expected 1 rank event, got %d", n)
	}
	if n := f.jobs.byType(queue.JobTypeSummary); n != 1 {
		t.Errorf("Expected 1 summary job, got %d", n)
	}
	if n := f.jobs.byType(queue.JobTypeHighscore); n != 1 {
		t.Errorf("Expected 1 highscore job, got %d", n)
	}
	if len(f.sink.inGame) != run.DefaultTotalDays {
		t.Errorf("Expected %d in-game rows, got %d", run.DefaultTotalDays, len(f.sink.inGame))
	}
	if last := f.sink.inGame[len(f.sink.inGame)-1]; last.Day != run.DefaultTotalDays || last.Role != "Athens — 431 BCE" {
		t.Errorf("Unexpected last in-game row %+v", last)
	}
	if len(f.sink.summaries) != 1 || f.sink.summaries[0].Score != want {
		t.Errorf("Expected 1 summary with score %d, got %+v", want, f.sink.summaries)
	}
}

func TestRunsHandler_ReplayDoesNotResubmit(t *testing.T) {
	ctx := context.Background()
	f, countHighscores := newRunsFixture(t)
	s := f.create(t, `{"roleKey":"mars","totalDays":2,"freePlay":true}`)

	for day := 1; day <= 2; day++ {
		f.choose(t, s.ID, day)
	}
	first := f.finalize(t, s.ID)
	if first.Breakdown.Support.Mom != nil {
		t.Error("Expected no mom track in free play")
	}

	rr := serve(f.handler, http.MethodPost, fmt.Sprintf("/api/runs/%s/replay", s.ID), "")
	replayed := decode[run.GameRunState](t, rr)
	if replayed.FinalScoreCalculated || replayed.FinalScoreBreakdown != nil || !replayed.FinalScoreSubmitted {
		t.Errorf("Expected cleared score with submission kept, got %+v", replayed)
	}

	again := f.finalize(t, s.ID)
	if again.Cached || again.Score != first.Score {
		t.Errorf("Expected a recalculated score of %d, got %+v", first.Score, again)
	}
	if again.Highscore != nil {
		t.Error("Expected no submission after replay")
	}
	if n := countHighscores(ctx, 10); n != 1 {
		t.Errorf("Expected exactly 1 highscore, got %d", n)
	}
	if len(f.sink.summaries) != 0 {
		t.Error("Expected no summary rows for an anonymous run")
	}
}

func TestRunsHandler_ReplaySummarizesOnce(t *testing.T) {
	f, _ := newRunsFixture(t)
	s := f.create(t, `{"userId":"u7","roleKey":"athens","totalDays":1}`)
	f.choose(t, s.ID, 1)
	first := f.finalize(t, s.ID)

	serve(f.handler, http.MethodPost, fmt.Sprintf("/api/runs/%s/replay", s.ID), "")
	again := f.finalize(t, s.ID)
	if again.Cached || again.Score != first.Score {
		t.Errorf("Expected a recalculated score of %d, got %+v", first.Score, again)
	}

	if len(f.sink.summaries) != 1 {
		t.Errorf("Expected 1 summary row, got %d", len(f.sink.summaries))
	}
	if n := f.jobs.byType(queue.JobTypeSummary); n != 1 {
		t.Errorf("Expected 1 summary job, got %d", n)
	}
}

func TestRunsHandler_ReadResetDelete(t *testing.T) {
	f, _ := newRunsFixture(t)
	s := f.create(t, `{"userId":"u2","roleKey":"north-america"}`)
	f.choose(t, s.ID, 1)

	path := fmt.Sprintf("/api/runs/%s", s.ID)
	rr := serve(f.handler, http.MethodGet, path, "")
	if got := decode[run.GameRunState](t, rr); got.Day != 2 || len(got.History) != 1 {
		t.Errorf("Unexpected stored run %+v", got)
	}

	rr = serve(f.handler, http.MethodPost, path+"/reset", "")
	reset := decode[run.GameRunState](t, rr)
	if reset.ID != s.ID || reset.Day != 0 || reset.UserID != "u2" || reset.RoleKey != "" {
		t.Errorf("Unexpected reset run %+v", reset)
	}

	if rr := serve(f.handler, http.MethodDelete, path, ""); rr.Code != http.StatusNoContent {
		t.Errorf("Expected status 204, got %d", rr.Code)
	}
	if rr := serve(f.handler, http.MethodGet, path, ""); rr.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 after delete, got %d", rr.Code)
	}
}

func TestRunsHandler_BadRequests(t *testing.T) {
	id := uuid.New()
	tests := []struct {
		name           string
		method         string
		target         string
		body           string
		expectedStatus int
	}{
		{"missing role", http.MethodPost, "/api/runs", `{}`, http.StatusBadRequest},
		{"too many days", http.MethodPost, "/api/runs", `{"roleKey":"x","totalDays":31}`, http.StatusBadRequest},
		{"invalid JSON", http.MethodPost, "/api/runs", `{`, http.StatusBadRequest},
		{"list not supported", http.MethodGet, "/api/runs", "", http.StatusMethodNotAllowed},
		{"bad ID", http.MethodGet, "/api/runs/abc", "", http.StatusBadRequest},
		{"unknown run", http.MethodGet, "/api/runs/" + id.String(), "", http.StatusNotFound},
		{"unknown run choice", http.MethodPost, "/api/runs/" + id.String() + "/choices", `{}`, http.StatusNotFound},
		{"unknown action", http.MethodPost, "/api/runs/" + id.String() + "/dance", "", http.StatusNotFound},
		{"action needs POST", http.MethodGet, "/api/runs/" + id.String() + "/finalize", "", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, _ := newRunsFixture(t)
			if rr := serve(f.handler, tt.method, tt.target, tt.body); rr.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d. Response body: %s", tt.expectedStatus, rr.Code, rr.Body.String())
			}
		})
	}
}
