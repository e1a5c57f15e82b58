package handlers

import (
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/jwebster45206/dilemma-engine/internal/services"
	"github.com/jwebster45206/dilemma-engine/pkg/prompts"
	"github.com/jwebster45206/dilemma-engine/pkg/roles"
)

type RoleRequest struct {
	Role   string `json:"role"`
	Gender string `json:"gender,omitempty"`
}

// NameSuggestionsHandler proposes one name per gender option. Slots the
// model leaves empty are filled from fixed lists.
type NameSuggestionsHandler struct {
	llmService services.LLMService
	logger     *slog.Logger
}

func NewNameSuggestionsHandler(llmService services.LLMService, logger *slog.Logger) *NameSuggestionsHandler {
	return &NameSuggestionsHandler{llmService: llmService, logger: logger}
}

func (h *NameSuggestionsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, h.logger, http.MethodPost) {
		return
	}

	var req RoleRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}
	role := strings.TrimSpace(req.Role)
	if role == "" {
		writeError(w, h.logger, http.StatusBadRequest, "role is required")
		return
	}

	var names roles.NameSuggestions
	if err := services.CompleteJSONInto(r.Context(), h.llmService, services.TextRequest{
		Messages:  prompts.NameSuggestions(role),
		Light:     true,
		MaxTokens: 400,
	}, &names); err != nil {
		h.logger.Warn("Name suggestions failed, using fallback", "role", role, "error", err)
		names = roles.NameSuggestions{}
	}

	writeJSON(w, h.logger, http.StatusOK, roles.FallbackNames(role, names))
}

type BackgroundResponse struct {
	Object string `json:"object"`
}

// BackgroundHandler picks an object for the portrait backdrop.
type BackgroundHandler struct {
	llmService services.LLMService
	logger     *slog.Logger
}

func NewBackgroundHandler(llmService services.LLMService, logger *slog.Logger) *BackgroundHandler {
	return &BackgroundHandler{llmService: llmService, logger: logger}
}

func (h *BackgroundHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, h.logger, http.MethodPost) {
		return
	}

	var req RoleRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}
	role := strings.TrimSpace(req.Role)
	if role == "" {
		writeError(w, h.logger, http.StatusBadRequest, "role is required")
		return
	}

	var reply BackgroundResponse
	err := services.CompleteJSONInto(r.Context(), h.llmService, services.TextRequest{
		Messages:  prompts.BackgroundObject(role, req.Gender),
		Light:     true,
		MaxTokens: 60,
	}, &reply)
	reply.Object = strings.TrimSpace(reply.Object)
	if err != nil || reply.Object == "" {
		h.logger.Warn("Background suggestion failed, using heuristic", "role", role, "error", err)
		reply.Object = roles.BackgroundSuggestion(role)
	}

	writeJSON(w, h.logger, http.StatusOK, reply)
}

type AvatarRequest struct {
	Prompt string `json:"prompt"`
}

type AvatarResponse struct {
	DataURL string `json:"dataUrl"`
}

// AvatarHandler renders a portrait and returns it as a PNG data URL.
type AvatarHandler struct {
	llmService services.LLMService
	logger     *slog.Logger
}

func NewAvatarHandler(llmService services.LLMService, logger *slog.Logger) *AvatarHandler {
	return &AvatarHandler{llmService: llmService, logger: logger}
}

func (h *AvatarHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, h.logger, http.MethodPost) {
		return
	}

	var req AvatarRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		writeError(w, h.logger, http.StatusBadRequest, "prompt is required")
		return
	}

	png, err := h.llmService.GenerateImage(r.Context(), prompt)
	if err == nil && len(png) == 0 {
		err = services.ErrEmptyReply
	}
	if err != nil {
		h.logger.Error("Avatar generation failed", "error", err)
		status := http.StatusBadGateway
		if errors.Is(err, services.ErrUnsupported) {
			status = http.StatusNotImplemented
		}
		writeError(w, h.logger, status, "Failed to generate avatar")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, AvatarResponse{
		DataURL: "data:image/png;base64," + base64.StdEncoding.EncodeToString(png),
	})
}
