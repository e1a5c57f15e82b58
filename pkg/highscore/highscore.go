package highscore

import (
	"sort"
	"strings"
	"sync"

	"github.com/jwebster45206/dilemma-engine/pkg/run"
	"github.com/jwebster45206/dilemma-engine/pkg/scoring"
)

const (
	// HallOfFameSize is the number of entries shown in the Hall of Fame.
	HallOfFameSize = 20

	// NotRanked is returned by Rank when the player is not on the board.
	NotRanked = -1
)

// Entry is a display-ready leaderboard row. Entries are built once per
// completed run and never modified afterwards.
type Entry struct {
	Name            string `json:"name"`
	About           string `json:"about"`
	Democracy       string `json:"democracy"`
	Autonomy        string `json:"autonomy"`
	Values          string `json:"values"`
	Score           int    `json:"score"`
	PoliticalSystem string `json:"politicalSystem"`
	AvatarURL       string `json:"avatarUrl,omitempty"`
	Role            string `json:"role"`
}

// BuildEntry flattens a finished run into a leaderboard entry.
func BuildEntry(b scoring.ScoreBreakdown, s run.GameRunState) Entry {
	role := s.RoleTitle
	if role == "" {
		role = s.RoleKey
	}
	name := strings.TrimSpace(s.Character.Name)
	if name == "" {
		name = "Anonymous"
	}
	return Entry{
		Name:            name,
		About:           strings.TrimSpace(s.Character.About),
		Democracy:       s.Ratings.Democracy,
		Autonomy:        s.Ratings.Autonomy,
		Values:          s.ValuesSummary,
		Score:           scoring.CalculateFinalScore(b),
		PoliticalSystem: s.PoliticalSystem,
		AvatarURL:       s.Character.AvatarURL,
		Role:            role,
	}
}

// Rank returns the 1-indexed position of the first entry matching name and
// score, or NotRanked. Entries are expected to be sorted by score.
func Rank(entries []Entry, name string, score int) int {
	for i, e := range entries {
		if e.Name == name && e.Score == score {
			return i + 1
		}
	}
	return NotRanked
}

// Board is an in-memory leaderboard sorted by descending score. Ties keep
// insertion order.
type Board struct {
	mu      sync.RWMutex
	entries []Entry
	limit   int
}

// NewBoard creates a board that keeps at most limit entries. A limit of zero
// or less keeps everything.
func NewBoard(limit int) *Board {
	return &Board{limit: limit}
}

// Add inserts an entry and returns its 1-indexed position, or NotRanked if
// the entry fell off the end of a limited board.
func (b *Board) Add(e Entry) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	i := sort.Search(len(b.entries), func(i int) bool {
		return b.entries[i].Score < e.Score
	})
	b.entries = append(b.entries, Entry{})
	copy(b.entries[i+1:], b.entries[i:])
	b.entries[i] = e

	if b.limit > 0 && len(b.entries) > b.limit {
		b.entries = b.entries[:b.limit]
		if i >= b.limit {
			return NotRanked
		}
	}
	return i + 1
}

// Entries returns a copy of all entries in rank order.
func (b *Board) Entries() []Entry {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]Entry(nil), b.entries...)
}

// Top returns at most n entries from the top of the board.
func (b *Board) Top(n int) []Entry {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if n > len(b.entries) || n < 0 {
		n = len(b.entries)
	}
	return append([]Entry(nil), b.entries[:n]...)
}

// Rank looks up the player on the board.
func (b *Board) Rank(name string, score int) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return Rank(b.entries, name, score)
}

// Len returns the number of entries.
func (b *Board) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries)
}
