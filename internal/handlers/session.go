package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jwebster45206/dilemma-engine/internal/storage"
	"github.com/jwebster45206/dilemma-engine/pkg/session"
)

const maxSessionIDLen = 128

type SnapshotResponse struct {
	*session.Snapshot
	ExpiresAt time.Time `json:"expiresAt"`
}

// SessionHandler stores client state snapshots for a browser session.
// Routes:
// PUT /api/session/{sid}/{key}    - Save the request body as the snapshot
// GET /api/session/{sid}/{key}    - Read a live snapshot
// DELETE /api/session/{sid}/{key} - Discard a snapshot
type SessionHandler struct {
	storage storage.Storage
	logger  *slog.Logger
	now     func() time.Time
}

func NewSessionHandler(storage storage.Storage, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{storage: storage, logger: logger, now: time.Now}
}

func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/session"), "/"), "/")
	if len(parts) != 2 || parts[0] == "" || len(parts[0]) > maxSessionIDLen {
		writeError(w, h.logger, http.StatusBadRequest, "Path must be /api/session/{sessionId}/{key}")
		return
	}
	sid, key := parts[0], parts[1]
	if !session.ValidKey(key) {
		writeError(w, h.logger, http.StatusBadRequest, "Unknown snapshot key")
		return
	}
	if !allowMethod(w, r, h.logger, http.MethodPut, http.MethodGet, http.MethodDelete) {
		return
	}

	switch r.Method {
	case http.MethodPut:
		h.handleSave(w, r, sid, key)
	case http.MethodGet:
		h.handleLoad(w, r, sid, key)
	case http.MethodDelete:
		if err := h.storage.DeleteSnapshot(r.Context(), sid, key); err != nil {
			h.logger.Error("Failed to delete snapshot", "session_id", sid, "key", key, "error", err)
			writeError(w, h.logger, http.StatusInternalServerError, "Failed to delete snapshot")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (h *SessionHandler) handleSave(w http.ResponseWriter, r *http.Request, sid, key string) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, h.logger, http.StatusRequestEntityTooLarge, "Snapshot too large")
		return
	}

	snap, err := session.New(sid, key, body, h.now())
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.storage.SaveSnapshot(r.Context(), snap); err != nil {
		h.logger.Error("Failed to save snapshot", "session_id", sid, "key", key, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to save snapshot")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, SnapshotResponse{
		Snapshot:  snap,
		ExpiresAt: snap.SavedAt.Add(session.TTL),
	})
}

func (h *SessionHandler) handleLoad(w http.ResponseWriter, r *http.Request, sid, key string) {
	snap, err := h.storage.LoadSnapshot(r.Context(), sid, key)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, h.logger, http.StatusNotFound, "Snapshot not found or expired")
		return
	}
	if err != nil {
		h.logger.Error("Failed to load snapshot", "session_id", sid, "key", key, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to load snapshot")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, SnapshotResponse{
		Snapshot:  snap,
		ExpiresAt: snap.SavedAt.Add(session.TTL),
	})
}
