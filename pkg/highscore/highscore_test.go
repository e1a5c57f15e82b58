package highscore

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jwebster45206/dilemma-engine/pkg/run"
	"github.com/jwebster45206/dilemma-engine/pkg/scoring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRank(t *testing.T) {
	entries := []Entry{
		{Name: "A", Score: 100},
		{Name: "B", Score: 90},
	}

	tests := []struct {
		name   string
		player string
		score  int
		want   int
	}{
		{"first place", "A", 100, 1},
		{"second place", "B", 90, 2},
		{"absent name", "C", 100, NotRanked},
		{"name with different score", "A", 90, NotRanked},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Rank(entries, tt.player, tt.score))
		})
	}

	assert.Equal(t, NotRanked, Rank(nil, "A", 100))
}

func TestRank_FirstMatchWins(t *testing.T) {
	entries := []Entry{
		{Name: "A", Score: 100, Role: "first"},
		{Name: "A", Score: 100, Role: "second"},
	}
	assert.Equal(t, 1, Rank(entries, "A", 100))
}

func TestBoard_SortedAndStable(t *testing.T) {
	b := NewBoard(0)
	assert.Equal(t, 1, b.Add(Entry{Name: "low", Score: 10}))
	assert.Equal(t, 1, b.Add(Entry{Name: "high", Score: 900}))
	assert.Equal(t, 2, b.Add(Entry{Name: "mid", Score: 500}))
	assert.Equal(t, 3, b.Add(Entry{Name: "mid2", Score: 500}))

	names := []string{}
	for _, e := range b.Entries() {
		names = append(names, e.Name)
	}
	assert.Equal(t, []string{"high", "mid", "mid2", "low"}, names)
	assert.Equal(t, 3, b.Rank("mid2", 500))
	assert.Equal(t, NotRanked, b.Rank("nobody", 1))
}

func TestBoard_LimitAndTop(t *testing.T) {
	b := NewBoard(3)
	for i := 1; i <= 5; i++ {
		b.Add(Entry{Name: "p", Score: i * 100})
	}
	assert.Equal(t, 3, b.Len())
	assert.Equal(t, NotRanked, b.Add(Entry{Name: "tiny", Score: 1}))

	top := b.Top(2)
	require.Len(t, top, 2)
	assert.Equal(t, 500, top[0].Score)
	assert.Equal(t, 400, top[1].Score)

	assert.Len(t, b.Top(HallOfFameSize), 3)
}

func TestBuildEntry(t *testing.T) {
	s := run.Default()
	s.RoleKey = "mars_colony"
	s.RoleTitle = "Mars Colony Governor"
	s.Character = run.Character{Name: "  Ada  ", About: "engineer", AvatarURL: "data:image/png;base64,AAA"}
	s.Ratings = run.Ratings{Democracy: "High", Autonomy: "Low"}
	s.ValuesSummary = "Care, Liberty"
	s.PoliticalSystem = "Technocracy"

	b := scoring.CalculateLiveScoreBreakdown(scoring.SupportInput{People: 100, Middle: 100, Mom: 100})
	e := BuildEntry(b, s)

	assert.Equal(t, "Ada", e.Name)
	assert.Equal(t, 1500, e.Score)
	assert.Equal(t, "Mars Colony Governor", e.Role)
	assert.Equal(t, "Technocracy", e.PoliticalSystem)
	assert.Equal(t, "Care, Liberty", e.Values)

	s.Character.Name = ""
	s.RoleTitle = ""
	e = BuildEntry(b, s)
	assert.Equal(t, "Anonymous", e.Name)
	assert.Equal(t, "mars_colony", e.Role)
}

func TestClient_Submit(t *testing.T) {
	var got SubmitRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/highscores/submit", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(SubmitResponse{Success: true, GlobalRank: 4, UserRank: 1, IsPersonalBest: true})
	}))
	defer server.Close()

	c := NewClient(server.URL+"/", nil)
	resp, err := c.Submit(context.Background(), SubmitRequest{
		UserID: "u1",
		GameID: "g1",
		Entry:  Entry{Name: "Ada", Score: 1200},
	})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, 4, resp.GlobalRank)
	assert.Equal(t, "Ada", got.Name)
	assert.Equal(t, "g1", got.GameID)
	assert.Equal(t, 1200, got.Score)
}

func TestClient_SubmitError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"name is required"}`))
	}))
	defer server.Close()

	_, err := NewClient(server.URL, nil).Submit(context.Background(), SubmitRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "name is required")
}
