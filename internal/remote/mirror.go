package remote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	supa "github.com/supabase-community/supabase-go"

	"github.com/jwebster45206/dilemma-engine/pkg/highscore"
)

const (
	HighscoresTable = "highscores"
	SummariesTable  = "run_summaries"
)

// ErrNotConfigured is returned by a mirror built without credentials.
var ErrNotConfigured = errors.New("remote mirror is not configured")

// HighscoreRow is a leaderboard entry as stored remotely.
type HighscoreRow struct {
	ID              int64     `json:"id,omitempty"`
	GameID          string    `json:"game_id"`
	UserID          string    `json:"user_id,omitempty"`
	Name            string    `json:"name"`
	About           string    `json:"about"`
	Democracy       string    `json:"democracy"`
	Autonomy        string    `json:"autonomy"`
	Values          string    `json:"values"`
	Score           int       `json:"score"`
	PoliticalSystem string    `json:"political_system"`
	AvatarURL       string    `json:"avatar_url,omitempty"`
	Role            string    `json:"role"`
	SubmittedAt     time.Time `json:"submitted_at"`
}

// NewHighscoreRow flattens an entry for the remote table.
func NewHighscoreRow(gameID, userID string, e highscore.Entry, at time.Time) HighscoreRow {
	return HighscoreRow{
		GameID:          gameID,
		UserID:          userID,
		Name:            e.Name,
		About:           e.About,
		Democracy:       e.Democracy,
		Autonomy:        e.Autonomy,
		Values:          e.Values,
		Score:           e.Score,
		PoliticalSystem: e.PoliticalSystem,
		AvatarURL:       e.AvatarURL,
		Role:            e.Role,
		SubmittedAt:     at.UTC(),
	}
}

// SummaryRow is an end-of-run summary as stored remotely.
type SummaryRow struct {
	ID        int64     `json:"id,omitempty"`
	GameID    string    `json:"game_id"`
	UserID    string    `json:"user_id,omitempty"`
	Role      string    `json:"role"`
	Score     int       `json:"score"`
	CreatedAt time.Time `json:"created_at"`
}

// Mirror copies accepted results to the remote leaderboard.
type Mirror interface {
	InsertHighscore(ctx context.Context, row HighscoreRow) error
	InsertSummary(ctx context.Context, row SummaryRow) error
}

// SupabaseMirror writes rows through the Supabase REST API.
type SupabaseMirror struct {
	client *supa.Client
	logger *slog.Logger
}

// NewSupabaseMirror connects to the project at url with key.
func NewSupabaseMirror(url, key string, logger *slog.Logger) (*SupabaseMirror, error) {
	if url == "" || key == "" {
		return nil, ErrNotConfigured
	}
	client, err := supa.NewClient(url, key, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to supabase: %w", err)
	}
	return &SupabaseMirror{client: client, logger: logger}, nil
}

func (m *SupabaseMirror) InsertHighscore(ctx context.Context, row HighscoreRow) error {
	var inserted []HighscoreRow
	return m.insert(ctx, HighscoresTable, row, &inserted, row.GameID)
}

func (m *SupabaseMirror) InsertSummary(ctx context.Context, row SummaryRow) error {
	var inserted []SummaryRow
	return m.insert(ctx, SummariesTable, row, &inserted, row.GameID)
}

// insert posts one row. The REST client has no context support, so ctx is
// only checked before the call.
func (m *SupabaseMirror) insert(ctx context.Context, table string, row, out any, gameID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := m.client.From(table).Insert(row, false, "", "", "").ExecuteTo(out)
	if err != nil {
		m.logger.Error("Remote insert failed", "table", table, "game_id", gameID, "error", err)
		return fmt.Errorf("insert into %s: %w", table, err)
	}
	m.logger.Debug("Remote row inserted", "table", table, "game_id", gameID)
	return nil
}
