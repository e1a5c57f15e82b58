package analytics

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// InGameRow is one event logged while a run was in progress.
type InGameRow struct {
	UserID    string
	GameID    string
	Role      string
	Day       int
	Event     string
	Timestamp time.Time
}

// SummaryRow is one end-of-run record.
type SummaryRow struct {
	UserID    string
	GameID    string
	Role      string
	Score     int
	Timestamp time.Time
}

var (
	inGameHeader  = []string{"userId", "gameId", "role", "day", "event", "timestamp"}
	summaryHeader = []string{"userId", "gameId", "role", "score", "timestamp"}
)

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp accepts the ISO forms found in exported logs. Unparsable
// values return the zero time.
func ParseTimestamp(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// header maps column names to positions. userId and role are required.
func header(r *csv.Reader) (map[string]int, error) {
	cols, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("empty csv")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	idx := make(map[string]int, len(cols))
	for i, c := range cols {
		idx[strings.TrimSpace(strings.TrimPrefix(c, "\ufeff"))] = i
	}
	for _, need := range []string{"userId", "role"} {
		if _, ok := idx[need]; !ok {
			return nil, fmt.Errorf("missing %q column", need)
		}
	}
	return idx, nil
}

func field(rec []string, idx map[string]int, name string) string {
	i, ok := idx[name]
	if !ok || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

// ReadInGameCSV reads in-game rows by column name. A day that is not an
// integer is read as 0.
func ReadInGameCSV(r io.Reader) ([]InGameRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	idx, err := header(cr)
	if err != nil {
		return nil, err
	}

	var rows []InGameRow
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", len(rows)+2, err)
		}
		day, _ := strconv.Atoi(field(rec, idx, "day"))
		rows = append(rows, InGameRow{
			UserID:    field(rec, idx, "userId"),
			GameID:    field(rec, idx, "gameId"),
			Role:      field(rec, idx, "role"),
			Day:       day,
			Event:     field(rec, idx, "event"),
			Timestamp: ParseTimestamp(field(rec, idx, "timestamp")),
		})
	}
}

// ReadSummaryCSV reads summary rows by column name.
func ReadSummaryCSV(r io.Reader) ([]SummaryRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	idx, err := header(cr)
	if err != nil {
		return nil, err
	}

	var rows []SummaryRow
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", len(rows)+2, err)
		}
		score, _ := strconv.Atoi(field(rec, idx, "score"))
		rows = append(rows, SummaryRow{
			UserID:    field(rec, idx, "userId"),
			GameID:    field(rec, idx, "gameId"),
			Role:      field(rec, idx, "role"),
			Score:     score,
			Timestamp: ParseTimestamp(field(rec, idx, "timestamp")),
		})
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// WriteInGameCSV writes rows with a header.
func WriteInGameCSV(w io.Writer, rows []InGameRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(inGameHeader); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{r.UserID, r.GameID, r.Role, strconv.Itoa(r.Day), r.Event, formatTime(r.Timestamp)}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteSummaryCSV writes rows with a header.
func WriteSummaryCSV(w io.Writer, rows []SummaryRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(summaryHeader); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{r.UserID, r.GameID, r.Role, strconv.Itoa(r.Score), formatTime(r.Timestamp)}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
