package remote

import (
	"context"
	"sync"
)

// MockMirror records inserted rows for tests.
type MockMirror struct {
	InsertHighscoreFunc func(ctx context.Context, row HighscoreRow) error
	InsertSummaryFunc   func(ctx context.Context, row SummaryRow) error

	Highscores []HighscoreRow
	Summaries  []SummaryRow

	mu sync.Mutex
}

func NewMockMirror() *MockMirror {
	return &MockMirror{}
}

func (m *MockMirror) InsertHighscore(ctx context.Context, row HighscoreRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.InsertHighscoreFunc != nil {
		if err := m.InsertHighscoreFunc(ctx, row); err != nil {
			return err
		}
	}
	m.Highscores = append(m.Highscores, row)
	return nil
}

func (m *MockMirror) InsertSummary(ctx context.Context, row SummaryRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.InsertSummaryFunc != nil {
		if err := m.InsertSummaryFunc(ctx, row); err != nil {
			return err
		}
	}
	m.Summaries = append(m.Summaries, row)
	return nil
}

// Counts returns how many rows of each kind were stored.
func (m *MockMirror) Counts() (int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Highscores), len(m.Summaries)
}
