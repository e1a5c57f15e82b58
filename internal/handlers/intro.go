package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/jwebster45206/dilemma-engine/internal/services"
	"github.com/jwebster45206/dilemma-engine/pkg/prompts"
)

type IntroRequest struct {
	Role   string `json:"role"`
	Gender string `json:"gender"`
}

type IntroResponse struct {
	Paragraph string `json:"paragraph"`
}

// IntroHandler writes the opening paragraph for a chosen role.
type IntroHandler struct {
	llmService services.LLMService
	logger     *slog.Logger
}

func NewIntroHandler(llmService services.LLMService, logger *slog.Logger) *IntroHandler {
	return &IntroHandler{llmService: llmService, logger: logger}
}

func (h *IntroHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, h.logger, http.MethodPost) {
		return
	}

	var req IntroRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.logger.Warn("Invalid intro request", "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}
	if strings.TrimSpace(req.Role) == "" {
		writeError(w, h.logger, http.StatusBadRequest, "role is required")
		return
	}

	var reply IntroResponse
	err := services.CompleteJSONInto(r.Context(), h.llmService, services.TextRequest{
		Messages:  prompts.IntroParagraph(req.Role, req.Gender),
		MaxTokens: 400,
	}, &reply)
	reply.Paragraph = strings.TrimSpace(reply.Paragraph)
	if err == nil && reply.Paragraph == "" {
		err = services.ErrEmptyReply
	}
	if err != nil {
		h.logger.Error("Intro paragraph generation failed", "role", req.Role, "error", err)
		writeError(w, h.logger, http.StatusBadGateway, "Failed to generate intro paragraph")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, reply)
}
