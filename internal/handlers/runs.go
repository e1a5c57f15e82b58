package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/dilemma-engine/internal/analytics"
	"github.com/jwebster45206/dilemma-engine/internal/storage"
	"github.com/jwebster45206/dilemma-engine/pkg/highscore"
	"github.com/jwebster45206/dilemma-engine/pkg/queue"
	"github.com/jwebster45206/dilemma-engine/pkg/roles"
	"github.com/jwebster45206/dilemma-engine/pkg/run"
	"github.com/jwebster45206/dilemma-engine/pkg/scoring"
	"github.com/jwebster45206/dilemma-engine/pkg/textfilter"
)

// maxTotalDays bounds custom run lengths.
const maxTotalDays = 30

// RunPublisher announces run progress to listeners of a game.
type RunPublisher interface {
	PublishRunUpdated(ctx context.Context, gameID string, day int, phase string) error
	PublishScoreCalculated(ctx context.Context, gameID string, score int) error
}

// Publisher is everything the run endpoints announce.
type Publisher interface {
	RunPublisher
	RankPublisher
}

// EventSink records play events for later analysis.
type EventSink interface {
	AppendInGame(ctx context.Context, row analytics.InGameRow) error
	AppendSummary(ctx context.Context, row analytics.SummaryRow) error
}

type CreateRunRequest struct {
	UserID    string   `json:"userId,omitempty"`
	RoleKey   string   `json:"roleKey"`
	RoleTitle string   `json:"roleTitle,omitempty"`
	Setting   string   `json:"setting,omitempty"`
	Goals     []string `json:"goals,omitempty"`
	FreePlay  bool     `json:"freePlay,omitempty"`
	TotalDays int      `json:"totalDays,omitempty"`
}

type ProfileRequest struct {
	Character       *run.Character `json:"character,omitempty"`
	Ratings         *run.Ratings   `json:"ratings,omitempty"`
	ValuesSummary   string         `json:"valuesSummary,omitempty"`
	PoliticalSystem string         `json:"politicalSystem,omitempty"`
}

type ChoiceRequest struct {
	Title  string            `json:"title,omitempty"`
	Choice string            `json:"choice"`
	Deltas run.SupportDeltas `json:"deltas"`
}

type FinalizeRequest struct {
	SessionID string `json:"sessionId,omitempty"`
}

type FinalizeResponse struct {
	Run       *run.GameRunState         `json:"run"`
	Score     int                       `json:"score"`
	Breakdown scoring.ScoreBreakdown    `json:"breakdown"`
	Cached    bool                      `json:"cached"`
	Highscore *highscore.SubmitResponse `json:"highscore,omitempty"`
}

// RunsHandler keeps run state on the server. Every change goes through the
// run reducers inside a storage transaction.
// Routes:
// POST /api/runs                - Start a run
// GET /api/runs/{id}            - Read a run
// DELETE /api/runs/{id}         - Delete a run
// POST /api/runs/{id}/profile   - Set character and assessments
// POST /api/runs/{id}/choices   - Resolve the current day
// POST /api/runs/{id}/finalize  - Calculate and submit the final score once
// POST /api/runs/{id}/replay    - Clear the cached score so the reveal replays
// POST /api/runs/{id}/reset     - Play again
type RunsHandler struct {
	storage  storage.Storage
	recorder *recorder
	events   Publisher
	jobs     JobEnqueuer
	sink     EventSink
	logger   *slog.Logger
	now      func() time.Time
}

// NewRunsHandler creates the handler. events, jobs and sink may be nil.
func NewRunsHandler(storage storage.Storage, filter *textfilter.ProfanityFilter, events Publisher, jobs JobEnqueuer, sink EventSink, logger *slog.Logger) *RunsHandler {
	return &RunsHandler{
		storage:  storage,
		recorder: &recorder{storage: storage, filter: filter, events: events, jobs: jobs, logger: logger},
		events:   events,
		jobs:     jobs,
		sink:     sink,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (h *RunsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/runs"), "/")
	if path == "" {
		if allowMethod(w, r, h.logger, http.MethodPost) {
			h.handleCreate(w, r)
		}
		return
	}

	parts := strings.Split(path, "/")
	id, err := uuid.Parse(parts[0])
	if err != nil {
		h.logger.Warn("Invalid run ID", "id", parts[0], "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "Invalid run ID format")
		return
	}

	if len(parts) == 1 {
		if !allowMethod(w, r, h.logger, http.MethodGet, http.MethodDelete) {
			return
		}
		if r.Method == http.MethodGet {
			h.handleRead(w, r, id)
		} else {
			h.handleDelete(w, r, id)
		}
		return
	}
	if len(parts) > 2 {
		writeError(w, h.logger, http.StatusNotFound, "Not found")
		return
	}
	if !allowMethod(w, r, h.logger, http.MethodPost) {
		return
	}

	switch parts[1] {
	case "profile":
		h.handleProfile(w, r, id)
	case "choices":
		h.handleChoice(w, r, id)
	case "finalize":
		h.handleFinalize(w, r, id)
	case "replay":
		h.handleReplay(w, r, id)
	case "reset":
		h.handleReset(w, r, id)
	default:
		writeError(w, h.logger, http.StatusNotFound, "Not found")
	}
}

// writeRunError maps reducer and storage errors onto status codes.
func (h *RunsHandler) writeRunError(w http.ResponseWriter, id uuid.UUID, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, h.logger, http.StatusNotFound, "Run not found")
	case errors.Is(err, run.ErrMissingRole):
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
	case errors.Is(err, run.ErrRunNotActive),
		errors.Is(err, run.ErrRunNotOver),
		errors.Is(err, run.ErrAlreadyCalculated):
		writeError(w, h.logger, http.StatusConflict, err.Error())
	default:
		h.logger.Error("Run operation failed", "game_id", id, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to update run")
	}
}

func (h *RunsHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateRunRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}
	if req.TotalDays < 0 || req.TotalDays > maxTotalDays {
		writeError(w, h.logger, http.StatusBadRequest, "totalDays is out of range")
		return
	}

	s, err := run.Reduce(run.Default(), run.StartRun{
		ID:        uuid.New(),
		UserID:    strings.TrimSpace(req.UserID),
		RoleKey:   strings.TrimSpace(req.RoleKey),
		RoleTitle: strings.TrimSpace(req.RoleTitle),
		Setting:   strings.TrimSpace(req.Setting),
		Goals:     req.Goals,
		FreePlay:  req.FreePlay,
		TotalDays: req.TotalDays,
		Now:       h.now(),
	})
	if err != nil {
		h.writeRunError(w, uuid.Nil, err)
		return
	}
	if err := h.storage.SaveRun(r.Context(), &s); err != nil {
		h.writeRunError(w, s.ID, err)
		return
	}

	h.logger.Info("Run started", "game_id", s.ID, "role", s.RoleKey, "free_play", s.FreePlay)
	h.publishProgress(r.Context(), &s)
	writeJSON(w, h.logger, http.StatusCreated, s)
}

func (h *RunsHandler) handleRead(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	s, err := h.storage.LoadRun(r.Context(), id)
	if err != nil {
		h.writeRunError(w, id, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, s)
}

func (h *RunsHandler) handleDelete(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	if err := h.storage.DeleteRun(r.Context(), id); err != nil {
		h.writeRunError(w, id, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *RunsHandler) handleProfile(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	var req ProfileRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}
	system := strings.TrimSpace(req.PoliticalSystem)
	if system != "" {
		system = roles.CoerceSystemName(system)
	}

	s, err := h.storage.UpdateRun(r.Context(), id, func(cur run.GameRunState) (run.GameRunState, error) {
		return run.Reduce(cur, run.SetProfile{
			Character:       req.Character,
			Ratings:         req.Ratings,
			ValuesSummary:   strings.TrimSpace(req.ValuesSummary),
			PoliticalSystem: system,
			Now:             h.now(),
		})
	})
	if err != nil {
		h.writeRunError(w, id, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, s)
}

func (h *RunsHandler) handleChoice(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	var req ChoiceRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}

	var resolvedDay int
	s, err := h.storage.UpdateRun(r.Context(), id, func(cur run.GameRunState) (run.GameRunState, error) {
		resolvedDay = cur.Day
		return run.Reduce(cur, run.ResolveDay{
			Title:  strings.TrimSpace(req.Title),
			Choice: strings.TrimSpace(req.Choice),
			Deltas: req.Deltas,
			Now:    h.now(),
		})
	})
	if err != nil {
		h.writeRunError(w, id, err)
		return
	}

	h.record(r.Context(), s, resolvedDay, "choice")
	h.publishProgress(r.Context(), s)
	writeJSON(w, h.logger, http.StatusOK, s)
}

// handleFinalize freezes the breakdown the first time it is called and
// submits the highscore while the run is not marked submitted. Later calls
// return the cached breakdown without submitting again.
func (h *RunsHandler) handleFinalize(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	var req FinalizeRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}
	ctx := r.Context()
	log := h.logger.With("game_id", id)

	var cached, wasSubmitted bool
	s, err := h.storage.UpdateRun(ctx, id, func(cur run.GameRunState) (run.GameRunState, error) {
		cached = cur.FinalScoreCalculated && cur.FinalScoreBreakdown != nil
		wasSubmitted = cur.FinalScoreSubmitted
		if cached {
			return cur, nil
		}
		b := scoring.CalculateLiveScoreBreakdown(cur.SupportInput())
		return run.Reduce(cur, run.CalculateFinalScore{Breakdown: b, Now: h.now()})
	})
	if err != nil {
		h.writeRunError(w, id, err)
		return
	}

	b := *s.FinalScoreBreakdown
	score := scoring.CalculateFinalScore(b)
	resp := FinalizeResponse{Run: s, Score: score, Breakdown: b, Cached: cached}

	if !cached {
		log.Info("Final score calculated", "score", score)
		// A replayed reveal recalculates, but the run was summarized already.
		if !wasSubmitted {
			h.recordSummary(ctx, s, score)
		}
		if h.events != nil {
			if err := h.events.PublishScoreCalculated(ctx, id.String(), score); err != nil {
				log.Warn("Failed to publish score", "error", err)
			}
		}
	}

	if !s.FinalScoreSubmitted {
		hs, err := h.recorder.submit(ctx, highscore.SubmitRequest{
			UserID:    s.UserID,
			GameID:    id.String(),
			SessionID: strings.TrimSpace(req.SessionID),
			Entry:     highscore.BuildEntry(b, *s),
		})
		if err != nil {
			// The run stays unsubmitted so the next finalize retries.
			log.Error("Highscore submission failed", "error", err)
		} else {
			resp.Highscore = hs
			marked, err := h.storage.UpdateRun(ctx, id, func(cur run.GameRunState) (run.GameRunState, error) {
				return run.Reduce(cur, run.MarkSubmitted{Now: h.now()})
			})
			switch {
			case errors.Is(err, run.ErrAlreadySubmitted):
				// a concurrent finalize got there first
			case err != nil:
				log.Warn("Failed to mark run submitted", "error", err)
			default:
				resp.Run = marked
			}
		}
	}

	writeJSON(w, h.logger, http.StatusOK, resp)
}

func (h *RunsHandler) handleReplay(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	s, err := h.storage.UpdateRun(r.Context(), id, func(cur run.GameRunState) (run.GameRunState, error) {
		return run.Reduce(cur, run.ClearFinalScore{Now: h.now()})
	})
	if err != nil {
		h.writeRunError(w, id, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, s)
}

func (h *RunsHandler) handleReset(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	s, err := h.storage.UpdateRun(r.Context(), id, func(cur run.GameRunState) (run.GameRunState, error) {
		next, err := run.Reduce(cur, run.Reset{Now: h.now()})
		next.ID = cur.ID
		return next, err
	})
	if err != nil {
		h.writeRunError(w, id, err)
		return
	}
	h.publishProgress(r.Context(), s)
	writeJSON(w, h.logger, http.StatusOK, s)
}

func (h *RunsHandler) publishProgress(ctx context.Context, s *run.GameRunState) {
	if h.events == nil {
		return
	}
	if err := h.events.PublishRunUpdated(ctx, s.ID.String(), s.Day, string(s.Phase())); err != nil {
		h.logger.Warn("Failed to publish run update", "game_id", s.ID, "error", err)
	}
}

func roleName(s *run.GameRunState) string {
	if s.RoleTitle != "" {
		return s.RoleTitle
	}
	return s.RoleKey
}

func (h *RunsHandler) record(ctx context.Context, s *run.GameRunState, day int, event string) {
	if h.sink == nil || s.UserID == "" {
		return
	}
	err := h.sink.AppendInGame(ctx, analytics.InGameRow{
		UserID:    s.UserID,
		GameID:    s.ID.String(),
		Role:      roleName(s),
		Day:       day,
		Event:     event,
		Timestamp: h.now(),
	})
	if err != nil {
		h.logger.Warn("Failed to record in-game event", "game_id", s.ID, "error", err)
	}
}

func (h *RunsHandler) recordSummary(ctx context.Context, s *run.GameRunState, score int) {
	if h.sink != nil && s.UserID != "" {
		err := h.sink.AppendSummary(ctx, analytics.SummaryRow{
			UserID:    s.UserID,
			GameID:    s.ID.String(),
			Role:      roleName(s),
			Score:     score,
			Timestamp: h.now(),
		})
		if err != nil {
			h.logger.Warn("Failed to record summary", "game_id", s.ID, "error", err)
		}
	}
	if h.jobs != nil {
		job := &queue.Job{Type: queue.JobTypeSummary, GameID: s.ID.String(), UserID: s.UserID, Role: roleName(s), Score: score}
		if err := h.jobs.Enqueue(ctx, job); err != nil {
			h.logger.Warn("Failed to enqueue summary mirror job", "game_id", s.ID, "error", err)
		}
	}
}
