package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/jwebster45206/dilemma-engine/internal/services"
	"github.com/jwebster45206/dilemma-engine/pkg/prompts"
)

type MirrorSummaryRequest struct {
	TopWhat    []string `json:"topWhat"`
	TopWhence  []string `json:"topWhence"`
	TopOverall []string `json:"topOverall"`
}

type MirrorSummaryResponse struct {
	Summary string `json:"summary"`
}

// MirrorSummaryHandler reflects the player's strongest values back in two
// sentences.
type MirrorSummaryHandler struct {
	llmService services.LLMService
	logger     *slog.Logger
}

func NewMirrorSummaryHandler(llmService services.LLMService, logger *slog.Logger) *MirrorSummaryHandler {
	return &MirrorSummaryHandler{llmService: llmService, logger: logger}
}

func (h *MirrorSummaryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, h.logger, http.MethodPost) {
		return
	}

	var req MirrorSummaryRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}

	var reply MirrorSummaryResponse
	err := services.CompleteJSONInto(r.Context(), h.llmService, services.TextRequest{
		Messages:  prompts.MirrorSummary(req.TopWhat, req.TopWhence, req.TopOverall),
		Light:     true,
		MaxTokens: 200,
	}, &reply)
	reply.Summary = strings.TrimSpace(reply.Summary)
	if err != nil || reply.Summary == "" {
		h.logger.Warn("Mirror summary failed, using fallback", "error", err)
		reply.Summary = prompts.FallbackMirrorSummary(req.TopOverall)
	}

	writeJSON(w, h.logger, http.StatusOK, reply)
}
