package handlers

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jwebster45206/dilemma-engine/internal/analytics"
)

// flexInt accepts a JSON number or a numeric string. Anything else reads as 0.
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	s := string(bytes.Trim(data, `"`))
	if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
		*f = flexInt(n)
		return nil
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil && v == float64(int(v)) {
		*f = flexInt(int(v))
		return nil
	}
	*f = 0
	return nil
}

type InGameLogRequest struct {
	UserID    string  `json:"userId"`
	GameID    string  `json:"gameId"`
	Role      string  `json:"role"`
	Day       flexInt `json:"day"`
	Event     string  `json:"event"`
	Timestamp string  `json:"timestamp,omitempty"`
}

type SummaryLogRequest struct {
	UserID    string  `json:"userId"`
	GameID    string  `json:"gameId"`
	Role      string  `json:"role"`
	Score     flexInt `json:"score"`
	Timestamp string  `json:"timestamp,omitempty"`
}

type LogResponse struct {
	OK bool `json:"ok"`
}

// LogsHandler appends client-reported play events to the event log.
// Routes:
// POST /api/logs/ingame  - One in-game event
// POST /api/logs/summary - One end-of-run summary
type LogsHandler struct {
	sink   EventSink
	logger *slog.Logger
	now    func() time.Time
}

func NewLogsHandler(sink EventSink, logger *slog.Logger) *LogsHandler {
	return &LogsHandler{sink: sink, logger: logger, now: time.Now}
}

func (h *LogsHandler) timestamp(raw string) time.Time {
	if t := analytics.ParseTimestamp(raw); !t.IsZero() {
		return t
	}
	return h.now().UTC()
}

func (h *LogsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, h.logger, http.MethodPost) {
		return
	}

	var err error
	switch strings.TrimSuffix(r.URL.Path, "/") {
	case "/api/logs/ingame":
		var req InGameLogRequest
		if derr := decodeBody(w, r, &req); derr != nil {
			writeError(w, h.logger, http.StatusBadRequest, "Invalid JSON in request body")
			return
		}
		if strings.TrimSpace(req.UserID) == "" {
			writeError(w, h.logger, http.StatusBadRequest, "userId is required")
			return
		}
		err = h.sink.AppendInGame(r.Context(), analytics.InGameRow{
			UserID:    strings.TrimSpace(req.UserID),
			GameID:    strings.TrimSpace(req.GameID),
			Role:      strings.TrimSpace(req.Role),
			Day:       int(req.Day),
			Event:     strings.TrimSpace(req.Event),
			Timestamp: h.timestamp(req.Timestamp),
		})
	case "/api/logs/summary":
		var req SummaryLogRequest
		if derr := decodeBody(w, r, &req); derr != nil {
			writeError(w, h.logger, http.StatusBadRequest, "Invalid JSON in request body")
			return
		}
		if strings.TrimSpace(req.UserID) == "" {
			writeError(w, h.logger, http.StatusBadRequest, "userId is required")
			return
		}
		err = h.sink.AppendSummary(r.Context(), analytics.SummaryRow{
			UserID:    strings.TrimSpace(req.UserID),
			GameID:    strings.TrimSpace(req.GameID),
			Role:      strings.TrimSpace(req.Role),
			Score:     int(req.Score),
			Timestamp: h.timestamp(req.Timestamp),
		})
	default:
		writeError(w, h.logger, http.StatusNotFound, "Not found")
		return
	}

	if err != nil {
		h.logger.Error("Failed to append log row", "path", r.URL.Path, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to record log")
		return
	}
	writeJSON(w, h.logger, http.StatusCreated, LogResponse{OK: true})
}

var _ json.Unmarshaler = (*flexInt)(nil)
