package handlers

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/jwebster45206/dilemma-engine/pkg/highscore"
	"github.com/jwebster45206/dilemma-engine/pkg/queue"
	"github.com/jwebster45206/dilemma-engine/pkg/scoring"
	"github.com/jwebster45206/dilemma-engine/pkg/textfilter"
)

func TestHighscoresHandler_SubmitOncePerGame(t *testing.T) {
	store, _ := newTestStorage(t)
	events := &recordingPublisher{}
	jobs := &recordingQueue{}
	handler := NewHighscoresHandler(store, textfilter.NewProfanityFilter(), events, jobs, testLogger())

	body := `{"gameId":"game-1","userId":"u1","name":"Perikles","score":412,"role":"Athens"}`
	for i := 0; i < 3; i++ {
		rr := serve(handler, http.MethodPost, "/api/highscores/submit", body)
		if rr.Code != http.StatusOK {
			t.Fatalf("Submission %d: expected status 200, got %d. Response body: %s", i, rr.Code, rr.Body.String())
		}
		resp := decode[highscore.SubmitResponse](t, rr)
		if !resp.Success || resp.GlobalRank != 1 || resp.UserRank != 1 {
			t.Errorf("Submission %d: unexpected response %+v", i, resp)
		}
	}

	entries, err := store.TopHighscores(context.Background(), 10)
	if err != nil {
		t.Fatalf("Failed to load highscores: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("Expected 1 stored entry, got %d", len(entries))
	}
	if n := events.count("rank.updated"); n != 3 {
		t.Errorf("Expected a rank update per request, got %d", n)
	}
	if n := jobs.byType(queue.JobTypeHighscore); n != 3 {
		t.Errorf("Expected a mirror job per request, got %d", n)
	}
}

func TestHighscoresHandler_CleansEntries(t *testing.T) {
	store, _ := newTestStorage(t)
	handler := NewHighscoresHandler(store, textfilter.NewProfanityFilter(), nil, nil, testLogger())

	body := fmt.Sprintf(`{"gameId":"g","name":"   ","score":%d,"avatarUrl":"javascript:alert(1)"}`, scoring.MaxFinalScore+500)
	if rr := serve(handler, http.MethodPost, "/api/highscores/submit", body); rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}

	entries, err := store.TopHighscores(context.Background(), 1)
	if err != nil || len(entries) != 1 {
		t.Fatalf("Expected 1 entry, got %d (%v)", len(entries), err)
	}
	e := entries[0]
	if e.Name != "Anonymous" {
		t.Errorf("Expected blank name to become Anonymous, got %q", e.Name)
	}
	if e.Score != scoring.MaxFinalScore {
		t.Errorf("Expected score clamped to %d, got %d", scoring.MaxFinalScore, e.Score)
	}
	if e.AvatarURL != "" {
		t.Errorf("Expected unsafe avatar URL to be dropped, got %q", e.AvatarURL)
	}
}

func TestHighscoresHandler_List(t *testing.T) {
	store, _ := newTestStorage(t)
	handler := NewHighscoresHandler(store, textfilter.NewProfanityFilter(), nil, nil, testLogger())

	rr := serve(handler, http.MethodGet, "/api/highscores", "")
	if got := decode[HighscoresResponse](t, rr); got.Entries == nil || len(got.Entries) != 0 {
		t.Errorf("Expected an empty list, got %+v", got.Entries)
	}

	for i, score := range []int{100, 300, 200, 300} {
		body := fmt.Sprintf(`{"gameId":"game-%d","name":"Player %d","score":%d}`, i, i, score)
		if rr := serve(handler, http.MethodPost, "/api/highscores/submit", body); rr.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", rr.Code)
		}
	}

	rr = serve(handler, http.MethodGet, "/api/highscores?limit=3", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}
	got := decode[HighscoresResponse](t, rr).Entries
	want := []string{"Player 1", "Player 3", "Player 2"}
	if len(got) != len(want) {
		t.Fatalf("Expected %d entries, got %d", len(want), len(got))
	}
	for i, name := range want {
		if got[i].Name != name {
			t.Errorf("Position %d: expected %s, got %s", i+1, name, got[i].Name)
		}
	}
}

func TestHighscoresHandler_BadRequests(t *testing.T) {
	tests := []struct {
		name           string
		method         string
		target         string
		body           string
		expectedStatus int
	}{
		{"missing game ID", http.MethodPost, "/api/highscores/submit", `{"name":"x","score":1}`, http.StatusBadRequest},
		{"invalid JSON", http.MethodPost, "/api/highscores/submit", `{`, http.StatusBadRequest},
		{"bad limit", http.MethodGet, "/api/highscores?limit=abc", "", http.StatusBadRequest},
		{"zero limit", http.MethodGet, "/api/highscores?limit=0", "", http.StatusBadRequest},
		{"wrong method", http.MethodDelete, "/api/highscores", "", http.StatusMethodNotAllowed},
		{"unknown path", http.MethodGet, "/api/highscores/other", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, _ := newTestStorage(t)
			handler := NewHighscoresHandler(store, textfilter.NewProfanityFilter(), nil, nil, testLogger())
			if rr := serve(handler, tt.method, tt.target, tt.body); rr.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, rr.Code)
			}
		})
	}
}
