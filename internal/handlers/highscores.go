package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/jwebster45206/dilemma-engine/internal/storage"
	"github.com/jwebster45206/dilemma-engine/pkg/highscore"
	"github.com/jwebster45206/dilemma-engine/pkg/queue"
	"github.com/jwebster45206/dilemma-engine/pkg/scoring"
	"github.com/jwebster45206/dilemma-engine/pkg/textfilter"
)

// Limits applied to free text before it reaches the Hall of Fame.
const (
	maxNameRunes   = 40
	maxAboutRunes  = 280
	maxValuesRunes = 280
	maxShortRunes  = 120
	maxHighscores  = 100
)

// RankPublisher announces highscore outcomes to listeners of a game.
type RankPublisher interface {
	PublishRankUpdated(ctx context.Context, gameID string, resp *highscore.SubmitResponse) error
	PublishSubmissionFailed(ctx context.Context, gameID, reason string) error
}

// JobEnqueuer hands work to the remote mirror worker.
type JobEnqueuer interface {
	Enqueue(ctx context.Context, job *queue.Job) error
}

// recorder cleans and stores highscore submissions. events and jobs may be nil.
type recorder struct {
	storage storage.Storage
	filter  *textfilter.ProfanityFilter
	events  RankPublisher
	jobs    JobEnqueuer
	logger  *slog.Logger
}

// clean makes the entry safe for public display.
func (rc *recorder) clean(e highscore.Entry) highscore.Entry {
	e.Name = rc.filter.CleanDisplayText(e.Name, maxNameRunes)
	if e.Name == "" {
		e.Name = "Anonymous"
	}
	e.About = rc.filter.CleanDisplayText(e.About, maxAboutRunes)
	e.Values = rc.filter.CleanDisplayText(e.Values, maxValuesRunes)
	e.Democracy = rc.filter.CleanDisplayText(e.Democracy, maxShortRunes)
	e.Autonomy = rc.filter.CleanDisplayText(e.Autonomy, maxShortRunes)
	e.PoliticalSystem = rc.filter.CleanDisplayText(e.PoliticalSystem, maxShortRunes)
	e.Role = rc.filter.CleanDisplayText(e.Role, maxShortRunes)
	e.Score = min(max(e.Score, 0), scoring.MaxFinalScore)
	if !validAvatarURL(e.AvatarURL) {
		e.AvatarURL = ""
	}
	return e
}

func validAvatarURL(u string) bool {
	return strings.HasPrefix(u, "data:image/") || strings.HasPrefix(u, "https://")
}

// submit stores the entry once per game, then announces the ranks and
// queues the remote copy. Announcing and queueing are best effort.
func (rc *recorder) submit(ctx context.Context, req highscore.SubmitRequest) (*highscore.SubmitResponse, error) {
	req.Entry = rc.clean(req.Entry)
	log := rc.logger.With("game_id", req.GameID)

	resp, err := rc.storage.SubmitHighscore(ctx, req)
	if err != nil {
		if rc.events != nil {
			if perr := rc.events.PublishSubmissionFailed(ctx, req.GameID, "storage error"); perr != nil {
				log.Warn("Failed to publish submission failure", "error", perr)
			}
		}
		return nil, err
	}

	if rc.events != nil {
		if err := rc.events.PublishRankUpdated(ctx, req.GameID, resp); err != nil {
			log.Warn("Failed to publish rank update", "error", err)
		}
	}
	if rc.jobs != nil {
		entry := req.Entry
		job := &queue.Job{Type: queue.JobTypeHighscore, GameID: req.GameID, UserID: req.UserID, Entry: &entry}
		if err := rc.jobs.Enqueue(ctx, job); err != nil {
			log.Warn("Failed to enqueue mirror job", "error", err)
		}
	}
	return resp, nil
}

type HighscoresResponse struct {
	Entries []highscore.Entry `json:"entries"`
}

// HighscoresHandler serves the Hall of Fame.
// Routes:
// POST /api/highscores/submit - Record a finished run
// GET /api/highscores         - Top entries, ?limit=N (default 20)
type HighscoresHandler struct {
	recorder *recorder
	logger   *slog.Logger
}

// NewHighscoresHandler creates the handler. events and jobs may be nil.
func NewHighscoresHandler(storage storage.Storage, filter *textfilter.ProfanityFilter, events RankPublisher, jobs JobEnqueuer, logger *slog.Logger) *HighscoresHandler {
	return &HighscoresHandler{
		recorder: &recorder{storage: storage, filter: filter, events: events, jobs: jobs, logger: logger},
		logger:   logger,
	}
}

func (h *HighscoresHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch strings.TrimSuffix(r.URL.Path, "/") {
	case "/api/highscores/submit":
		if allowMethod(w, r, h.logger, http.MethodPost) {
			h.handleSubmit(w, r)
		}
	case "/api/highscores":
		if allowMethod(w, r, h.logger, http.MethodGet) {
			h.handleList(w, r)
		}
	default:
		writeError(w, h.logger, http.StatusNotFound, "Not found")
	}
}

func (h *HighscoresHandler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req highscore.SubmitRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.logger.Warn("Invalid highscore submission", "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}
	req.GameID = strings.TrimSpace(req.GameID)
	if req.GameID == "" {
		writeError(w, h.logger, http.StatusBadRequest, "gameId is required")
		return
	}

	resp, err := h.recorder.submit(r.Context(), req)
	if errors.Is(err, storage.ErrMissingGameID) {
		writeError(w, h.logger, http.StatusBadRequest, "gameId is required")
		return
	}
	if err != nil {
		h.logger.Error("Highscore submission failed", "game_id", req.GameID, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to submit highscore")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, resp)
}

func (h *HighscoresHandler) handleList(w http.ResponseWriter, r *http.Request) {
	limit := highscore.HallOfFameSize
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, h.logger, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxHighscores)
	}

	entries, err := h.recorder.storage.TopHighscores(r.Context(), limit)
	if err != nil {
		h.logger.Error("Failed to load highscores", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to load highscores")
		return
	}
	if entries == nil {
		entries = []highscore.Entry{}
	}
	writeJSON(w, h.logger, http.StatusOK, HighscoresResponse{Entries: entries})
}
