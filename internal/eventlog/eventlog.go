// Package eventlog records in-game and end-of-run events in SQLite so they
// can be exported and analysed later.
package eventlog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/jwebster45206/dilemma-engine/internal/analytics"
)

var ErrMissingUser = errors.New("userId is required")

// timeLayout is fixed width so stored timestamps compare as strings.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Filter narrows a query. Zero fields match everything.
type Filter struct {
	UserID string
	Since  time.Time
	Until  time.Time
}

// Log is an append-only event store.
type Log struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (and if needed creates) the SQLite database at path. Use
// ":memory:" for a private in-memory database.
func Open(path string) (*Log, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps ":memory:" databases shared and serializes writes.
	db.SetMaxOpenConns(1)

	l := &Log{db: db, now: time.Now}
	if err := l.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return l, nil
}

func (l *Log) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS ingame_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL,
		game_id TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL DEFAULT '',
		day INTEGER NOT NULL DEFAULT 0,
		event TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_ingame_user ON ingame_logs(user_id);
	CREATE INDEX IF NOT EXISTS idx_ingame_created ON ingame_logs(created_at);

	CREATE TABLE IF NOT EXISTS summary_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL,
		game_id TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL DEFAULT '',
		score INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_summary_user ON summary_logs(user_id);
	`
	_, err := l.db.Exec(schema)
	return err
}

// Ping checks the database connection.
func (l *Log) Ping(ctx context.Context) error {
	return l.db.PingContext(ctx)
}

// Close closes the database.
func (l *Log) Close() error {
	return l.db.Close()
}

func (l *Log) stamp(t time.Time) string {
	if t.IsZero() {
		t = l.now()
	}
	return t.UTC().Format(timeLayout)
}

// AppendInGame records one in-game event. A zero timestamp is set to now.
func (l *Log) AppendInGame(ctx context.Context, row analytics.InGameRow) error {
	return l.ImportInGame(ctx, []analytics.InGameRow{row})
}

// AppendSummary records one end-of-run summary. A zero timestamp is set to now.
func (l *Log) AppendSummary(ctx context.Context, row analytics.SummaryRow) error {
	return l.ImportSummaries(ctx, []analytics.SummaryRow{row})
}

// ImportInGame inserts rows in one transaction. Rows without a user fail
// the whole batch.
func (l *Log) ImportInGame(ctx context.Context, rows []analytics.InGameRow) error {
	return l.inTx(ctx, `INSERT INTO ingame_logs (user_id, game_id, role, day, event, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`, len(rows), func(i int) ([]any, error) {
		r := rows[i]
		if strings.TrimSpace(r.UserID) == "" {
			return nil, fmt.Errorf("row %d: %w", i, ErrMissingUser)
		}
		return []any{r.UserID, r.GameID, r.Role, r.Day, r.Event, l.stamp(r.Timestamp)}, nil
	})
}

// ImportSummaries inserts rows in one transaction.
func (l *Log) ImportSummaries(ctx context.Context, rows []analytics.SummaryRow) error {
	return l.inTx(ctx, `INSERT INTO summary_logs (user_id, game_id, role, score, created_at)
		VALUES (?, ?, ?, ?, ?)`, len(rows), func(i int) ([]any, error) {
		r := rows[i]
		if strings.TrimSpace(r.UserID) == "" {
			return nil, fmt.Errorf("row %d: %w", i, ErrMissingUser)
		}
		return []any{r.UserID, r.GameID, r.Role, r.Score, l.stamp(r.Timestamp)}, nil
	})
}

func (l *Log) inTx(ctx context.Context, query string, n int, args func(int) ([]any, error)) error {
	if n == 0 {
		return nil
	}
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for i := 0; i < n; i++ {
		a, err := args(i)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, a...); err != nil {
			return fmt.Errorf("insert row %d: %w", i, err)
		}
	}
	return tx.Commit()
}

func (f Filter) where() (string, []any) {
	var clauses []string
	var args []any
	if f.UserID != "" {
		clauses = append(clauses, "user_id = ?")
		args = append(args, f.UserID)
	}
	if !f.Since.IsZero() {
		clauses = append(clauses, "created_at >= ?")
		args = append(args, f.Since.UTC().Format(timeLayout))
	}
	if !f.Until.IsZero() {
		clauses = append(clauses, "created_at < ?")
		args = append(args, f.Until.UTC().Format(timeLayout))
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// InGame returns matching in-game rows in insertion order.
func (l *Log) InGame(ctx context.Context, f Filter) ([]analytics.InGameRow, error) {
	where, args := f.where()
	rows, err := l.db.QueryContext(ctx,
		"SELECT user_id, game_id, role, day, event, created_at FROM ingame_logs"+where+" ORDER BY id", args...)
	if err != nil {
		return nil, fmt.Errorf("query ingame: %w", err)
	}
	defer rows.Close()

	var out []analytics.InGameRow
	for rows.Next() {
		var r analytics.InGameRow
		var ts string
		if err := rows.Scan(&r.UserID, &r.GameID, &r.Role, &r.Day, &r.Event, &ts); err != nil {
			return nil, fmt.Errorf("scan ingame: %w", err)
		}
		r.Timestamp = analytics.ParseTimestamp(ts)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Summaries returns matching summary rows in insertion order.
func (l *Log) Summaries(ctx context.Context, f Filter) ([]analytics.SummaryRow, error) {
	where, args := f.where()
	rows, err := l.db.QueryContext(ctx,
		"SELECT user_id, game_id, role, score, created_at FROM summary_logs"+where+" ORDER BY id", args...)
	if err != nil {
		return nil, fmt.Errorf("query summaries: %w", err)
	}
	defer rows.Close()

	var out []analytics.SummaryRow
	for rows.Next() {
		var r analytics.SummaryRow
		var ts string
		if err := rows.Scan(&r.UserID, &r.GameID, &r.Role, &r.Score, &ts); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		r.Timestamp = analytics.ParseTimestamp(ts)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Counts returns the number of in-game and summary rows.
func (l *Log) Counts(ctx context.Context) (ingame, summaries int, err error) {
	if err = l.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM ingame_logs").Scan(&ingame); err != nil {
		return 0, 0, err
	}
	if err = l.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM summary_logs").Scan(&summaries); err != nil {
		return 0, 0, err
	}
	return ingame, summaries, nil
}
