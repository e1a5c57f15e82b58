package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	qr "github.com/skip2/go-qrcode"
)

const (
	defaultQRSize = 256
	minQRSize     = 128
	maxQRSize     = 1024
	maxGameIDLen  = 128
)

// ShareURL is the public page for a finished game.
func ShareURL(baseURL, gameID string) string {
	return fmt.Sprintf("%s/share/%s", strings.TrimRight(baseURL, "/"), url.PathEscape(gameID))
}

// ShareHandler renders a QR code that links to a game's share page.
// Routes:
// GET /api/share/qr?gameId={id}&size={px}
type ShareHandler struct {
	baseURL string
	logger  *slog.Logger
}

func NewShareHandler(baseURL string, logger *slog.Logger) *ShareHandler {
	return &ShareHandler{baseURL: baseURL, logger: logger}
}

func (h *ShareHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, h.logger, http.MethodGet) {
		return
	}

	gameID := strings.TrimSpace(r.URL.Query().Get("gameId"))
	if gameID == "" || len(gameID) > maxGameIDLen {
		writeError(w, h.logger, http.StatusBadRequest, "gameId is required")
		return
	}
	size := defaultQRSize
	if v := r.URL.Query().Get("size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, h.logger, http.StatusBadRequest, "size must be an integer")
			return
		}
		size = min(max(n, minQRSize), maxQRSize)
	}

	png, err := qr.Encode(ShareURL(h.baseURL, gameID), qr.Medium, size)
	if err != nil {
		h.logger.Error("QR generation failed", "game_id", gameID, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "QR generation failed")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(png); err != nil {
		h.logger.Warn("Failed to write QR code", "error", err)
	}
}
