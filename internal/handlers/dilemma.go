package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/jwebster45206/dilemma-engine/internal/services"
	"github.com/jwebster45206/dilemma-engine/internal/storage"
	"github.com/jwebster45206/dilemma-engine/pkg/prompts"
	"github.com/jwebster45206/dilemma-engine/pkg/run"
)

// DilemmaRequest names a stored run by ID or carries the run inline.
type DilemmaRequest struct {
	RunID          string            `json:"runId,omitempty"`
	Run            *run.GameRunState `json:"run,omitempty"`
	Tone           string            `json:"tone,omitempty"`
	Language       string            `json:"language,omitempty"`
	PreviousChoice string            `json:"previousChoice,omitempty"`
	Topics         []string          `json:"topics,omitempty"`
}

// DilemmaHandler generates the dilemma (or aftermath monologue) for the
// run's current day. The model reply is untrusted: anything that fails
// validation is replaced by a fixed dilemma.
type DilemmaHandler struct {
	llmService services.LLMService
	storage    storage.Storage
	logger     *slog.Logger
}

func NewDilemmaHandler(llmService services.LLMService, storage storage.Storage, logger *slog.Logger) *DilemmaHandler {
	return &DilemmaHandler{llmService: llmService, storage: storage, logger: logger}
}

func (h *DilemmaHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, h.logger, http.MethodPost) {
		return
	}

	var req DilemmaRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}

	var s run.GameRunState
	switch {
	case req.RunID != "":
		id, err := uuid.Parse(req.RunID)
		if err != nil {
			writeError(w, h.logger, http.StatusBadRequest, "Invalid run ID format")
			return
		}
		loaded, err := h.storage.LoadRun(r.Context(), id)
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, h.logger, http.StatusNotFound, "Run not found")
			return
		}
		if err != nil {
			h.logger.Error("Failed to load run", "run_id", id, "error", err)
			writeError(w, h.logger, http.StatusInternalServerError, "Failed to load run")
			return
		}
		s = *loaded
	case req.Run != nil:
		s = *req.Run
	default:
		writeError(w, h.logger, http.StatusBadRequest, "runId or run is required")
		return
	}

	if s.Phase() == run.PhaseFinished {
		writeError(w, h.logger, http.StatusConflict, "Run is already finished")
		return
	}

	previous := strings.TrimSpace(req.PreviousChoice)
	if previous == "" && len(s.History) > 0 {
		previous = s.History[len(s.History)-1].Choice
	}

	messages, err := prompts.New().
		WithRun(s).
		WithTone(req.Tone).
		WithLanguage(req.Language).
		WithTopics(req.Topics).
		WithPreviousChoice(previous).
		Build()
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	log := h.logger.With("run_id", s.ID, "day", s.Day)

	raw, err := h.llmService.CompleteJSON(r.Context(), services.TextRequest{
		Messages:  messages,
		MaxTokens: 1200,
	})
	var reply *prompts.DilemmaReply
	if err == nil {
		reply, err = prompts.ParseDilemmaReply(raw, s.Day, s.TotalDays)
	}
	if err != nil {
		log.Warn("Dilemma generation failed, using fallback", "error", err)
		fallback := prompts.FallbackDilemma(s.Day, s.TotalDays)
		reply = &fallback
	}

	writeJSON(w, h.logger, http.StatusOK, reply)
}
