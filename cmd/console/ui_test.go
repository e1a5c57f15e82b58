package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jwebster45206/dilemma-engine/internal/handlers"
	"github.com/jwebster45206/dilemma-engine/pkg/highscore"
	"github.com/jwebster45206/dilemma-engine/pkg/prompts"
	"github.com/jwebster45206/dilemma-engine/pkg/reveal"
	"github.com/jwebster45206/dilemma-engine/pkg/run"
	"github.com/jwebster45206/dilemma-engine/pkg/scoring"
)

type fakeAPI struct {
	server  *httptest.Server
	submits atomic.Int32
}

func writeTestJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	f := &fakeAPI{}
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeTestJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})
	mux.HandleFunc("/api/validate-role", func(w http.ResponseWriter, r *http.Request) {
		var req handlers.ValidateRoleRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if strings.Contains(req.Text, "toaster") {
			writeTestJSON(w, http.StatusOK, handlers.ValidateRoleResponse{Valid: false, Reason: "Toasters hold no power"})
			return
		}
		writeTestJSON(w, http.StatusOK, handlers.ValidateRoleResponse{Valid: true})
	})
	mux.HandleFunc("/api/analyze-role", func(w http.ResponseWriter, r *http.Request) {
		writeTestJSON(w, http.StatusOK, handlers.AnalyzeRoleResponse{SystemName: "Direct Democracy"})
	})
	mux.HandleFunc("/api/name-suggestions", func(w http.ResponseWriter, r *http.Request) {
		writeTestJSON(w, http.StatusOK, map[string]any{"any": map[string]string{"name": "Perikles"}})
	})
	mux.HandleFunc("/api/intro-paragraph", func(w http.ResponseWriter, r *http.Request) {
		writeTestJSON(w, http.StatusOK, handlers.IntroResponse{Paragraph: "The assembly waits for you."})
	})
	mux.HandleFunc("/api/dilemma", func(w http.ResponseWriter, r *http.Request) {
		var req handlers.DilemmaRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Run == nil {
			writeTestJSON(w, http.StatusBadRequest, ErrorResponse{Error: "runId or run is required"})
			return
		}
		s := req.Run
		reply := prompts.DilemmaReply{Day: s.Day}
		if s.Day > 1 {
			reply.SupportShift = prompts.SupportShift{
				People: prompts.Shift{Delta: 5},
				Middle: prompts.Shift{Delta: -2},
				Mom:    prompts.Shift{Delta: 1},
			}
		}
		if s.Day > s.TotalDays {
			reply.Title = "The Aftermath"
			reply.Monologue = "History will judge."
		} else {
			reply.Title = fmt.Sprintf("Crisis %d", s.Day)
			reply.Description = "Something must be done."
			reply.Actions = []prompts.Action{{Title: "Hold firm"}, {Title: "Give way"}, {Title: "Wait"}}
		}
		writeTestJSON(w, http.StatusOK, reply)
	})
	mux.HandleFunc("/api/highscores", func(w http.ResponseWriter, r *http.Request) {
		writeTestJSON(w, http.StatusOK, handlers.HighscoresResponse{Entries: []highscore.Entry{
			{Name: "Solon", Score: 1400, Role: "Archon of Athens"},
			{Name: "Kleon", Score: 200, Role: "Demagogue"},
		}})
	})
	mux.HandleFunc("/api/highscores/submit", func(w http.ResponseWriter, r *http.Request) {
		f.submits.Add(1)
		writeTestJSON(w, http.StatusOK, highscore.SubmitResponse{Success: true, GlobalRank: 2, UserRank: 1, IsPersonalBest: true})
	})
	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func newTestUI(t *testing.T, f *fakeAPI, freePlay bool) ConsoleUI {
	t.Helper()
	cfg := &ConsoleConfig{
		APIBaseURL:   f.server.URL,
		ShareBaseURL: "https://example.test",
		Tone:         "serious",
		Language:     "en",
		FreePlay:     freePlay,
	}
	client := f.server.Client()
	return NewConsoleUI(cfg, newAPIClient(cfg, client), client, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func update(t *testing.T, m ConsoleUI, msg tea.Msg) ConsoleUI {
	t.Helper()
	next, _ := m.Update(msg)
	ui, ok := next.(ConsoleUI)
	if !ok {
		t.Fatalf("expected ConsoleUI, got %T", next)
	}
	return ui
}

func TestConsole_FullRun(t *testing.T) {
	f := newFakeAPI(t)
	m := newTestUI(t, f, false)

	m = update(t, m, m.validateRole("Strategos of Athens")())
	if m.err != nil {
		t.Fatalf("unexpected error: %v", m.err)
	}
	m = update(t, m, m.startRun("Strategos of Athens")())
	if m.stage != stageDilemma {
		t.Fatalf("expected dilemma stage, got %v (err %v)", m.stage, m.err)
	}

	s := m.store.Snapshot()
	if s.Character.Name != "Perikles" {
		t.Errorf("expected suggested name, got %q", s.Character.Name)
	}
	if m.systemName != "Direct Democracy" {
		t.Errorf("expected system name, got %q", m.systemName)
	}
	if m.intro != "The assembly waits for you." {
		t.Errorf("unexpected intro %q", m.intro)
	}

	for day := 1; day <= run.DefaultTotalDays; day++ {
		if m.stage != stageDilemma {
			t.Fatalf("day %d: expected dilemma stage, got %v", day, m.stage)
		}
		m = update(t, m, m.choose(m.dilemma.Title, m.dilemma.Actions[0].Title)())
		if m.err != nil {
			t.Fatalf("day %d: unexpected error: %v", day, m.err)
		}
	}

	if m.stage != stageAftermath {
		t.Fatalf("expected aftermath stage, got %v", m.stage)
	}
	if m.dilemma.Monologue != "History will judge." {
		t.Errorf("unexpected monologue %q", m.dilemma.Monologue)
	}

	s = m.store.Snapshot()
	if s.SupportPeople != 85 || s.SupportMiddle != 36 || s.SupportMom != 57 {
		t.Errorf("unexpected support %v/%v/%v", s.SupportPeople, s.SupportMiddle, s.SupportMom)
	}
	if len(s.History) != run.DefaultTotalDays || s.History[0].Title != "Crisis 1" || s.History[0].Choice != "Hold firm" {
		t.Errorf("unexpected history %+v", s.History)
	}

	m = update(t, m, m.loadBoard()())
	if m.stage != stageScore {
		t.Fatalf("expected score stage, got %v (err %v)", m.stage, m.err)
	}

	m = update(t, m, tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	if m.final.Display().State != reveal.StateSettled {
		t.Fatalf("expected settled reveal after skip")
	}
	m.final.Wait()

	want := scoring.CalculateFinalScore(scoring.CalculateLiveScoreBreakdown(scoring.SupportInput{People: 85, Middle: 36, Mom: 57}))
	s = m.store.Snapshot()
	if !s.FinalScoreCalculated || !s.FinalScoreSubmitted {
		t.Errorf("expected calculated and submitted run, got %v/%v", s.FinalScoreCalculated, s.FinalScoreSubmitted)
	}
	if got := s.FinalScoreBreakdown.Final; got != want {
		t.Errorf("expected final score %d, got %d", want, got)
	}
	if rank := m.final.Rank(); rank != 2 {
		t.Errorf("expected local rank 2, got %d", rank)
	}
	if n := f.submits.Load(); n != 1 {
		t.Errorf("expected 1 submission, got %d", n)
	}

	// Replaying the reveal never submits again.
	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'r'}})
	m = update(t, m, tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	m.final.Wait()
	if n := f.submits.Load(); n != 1 {
		t.Errorf("expected replay not to resubmit, got %d submissions", n)
	}

	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'n'}})
	if m.stage != stageRole || m.final != nil {
		t.Errorf("expected a fresh role stage after new game")
	}
	if s := m.store.Snapshot(); s.Day != 0 || s.FinalScoreSubmitted {
		t.Errorf("expected reset run, got day %d submitted %v", s.Day, s.FinalScoreSubmitted)
	}
}

func TestConsole_InvalidRole(t *testing.T) {
	f := newFakeAPI(t)
	m := newTestUI(t, f, false)

	m = update(t, m, m.validateRole("a toaster")())
	if m.stage != stageRole {
		t.Errorf("expected to stay on role stage, got %v", m.stage)
	}
	if !strings.Contains(m.notice, "Toasters hold no power") {
		t.Errorf("expected rejection reason in notice, got %q", m.notice)
	}
}

func TestConsole_FreePlayIgnoresMom(t *testing.T) {
	f := newFakeAPI(t)
	m := newTestUI(t, f, true)

	m = update(t, m, m.startRun("Governor of the Mars colony")())
	m = update(t, m, m.choose(m.dilemma.Title, m.dilemma.Actions[1].Title)())

	s := m.store.Snapshot()
	if s.SupportMom != run.DefaultSupport {
		t.Errorf("expected mom support untouched in free play, got %v", s.SupportMom)
	}
	if strings.Contains(m.notice, "Mom") {
		t.Errorf("expected no mom shift in notice, got %q", m.notice)
	}
	if !strings.Contains(m.notice, "The people +5") {
		t.Errorf("expected people shift in notice, got %q", m.notice)
	}
}

func TestAPIClient_ErrorResponse(t *testing.T) {
	f := newFakeAPI(t)
	m := newTestUI(t, f, false)

	_, err := m.api.dilemma(t.Context(), run.GameRunState{}, "")
	if err != nil {
		t.Fatalf("inline run should be accepted, got %v", err)
	}

	var out map[string]any
	err = m.api.do(t.Context(), http.MethodGet, "/api/missing", nil, &out)
	if err == nil || !strings.Contains(err.Error(), "404") {
		t.Errorf("expected status error, got %v", err)
	}

	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeTestJSON(w, http.StatusBadRequest, ErrorResponse{Error: "role is required"})
	}))
	defer bad.Close()
	m.api.baseURL = bad.URL
	if _, err := m.api.intro(t.Context(), "", ""); err == nil || !strings.Contains(err.Error(), "role is required") {
		t.Errorf("expected API error message, got %v", err)
	}
}

func TestDescribeShift(t *testing.T) {
	tests := []struct {
		name     string
		deltas   run.SupportDeltas
		freePlay bool
		want     []string
	}{
		{"mixed", run.SupportDeltas{People: 5, Middle: -3, Mom: 0}, false, []string{"The people +5", "The powerful -3"}},
		{"free play hides mom", run.SupportDeltas{Mom: 4}, true, []string{"Nobody's opinion of you changed."}},
		{"mom counted", run.SupportDeltas{Mom: 4}, false, []string{"Mom +4"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := describeShift(tt.deltas, tt.freePlay)
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("describeShift() = %q, want it to contain %q", got, w)
				}
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("Perikles", 20); got != "Perikles" {
		t.Errorf("expected unchanged name, got %q", got)
	}
	if got := truncate("Archon Eponymos of Athens", 10); got != "Archon Ep…" {
		t.Errorf("unexpected truncation %q", got)
	}
}
