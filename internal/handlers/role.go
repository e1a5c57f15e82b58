package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/jwebster45206/dilemma-engine/internal/services"
	"github.com/jwebster45206/dilemma-engine/pkg/prompts"
	"github.com/jwebster45206/dilemma-engine/pkg/roles"
)

// ValidateRoleRequest accepts the role text under any of three names.
type ValidateRoleRequest struct {
	Text  string `json:"text"`
	Role  string `json:"role"`
	Input string `json:"input"`
}

func (r ValidateRoleRequest) value() string {
	for _, v := range []string{r.Text, r.Role, r.Input} {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

type ValidateRoleResponse struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason"`
}

// ValidateRoleHandler asks the model whether free text is a playable role.
// There is no sensible fallback, so an unusable verdict is a 503.
type ValidateRoleHandler struct {
	llmService services.LLMService
	logger     *slog.Logger
}

func NewValidateRoleHandler(llmService services.LLMService, logger *slog.Logger) *ValidateRoleHandler {
	return &ValidateRoleHandler{llmService: llmService, logger: logger}
}

func (h *ValidateRoleHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, h.logger, http.MethodPost) {
		return
	}

	var req ValidateRoleRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}
	text := req.value()
	if text == "" {
		writeError(w, h.logger, http.StatusBadRequest, "text is required")
		return
	}

	var verdict struct {
		Valid  *bool  `json:"valid"`
		Reason string `json:"reason"`
	}
	err := services.CompleteJSONInto(r.Context(), h.llmService, services.TextRequest{
		Messages:  prompts.ValidateRole(text),
		Light:     true,
		MaxTokens: 120,
	}, &verdict)
	if err == nil && verdict.Valid == nil {
		err = services.ErrMalformedReply
	}
	if err != nil {
		h.logger.Error("Role validation unavailable", "error", err)
		writeError(w, h.logger, http.StatusServiceUnavailable, "Role validator unavailable")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, ValidateRoleResponse{
		Valid:  *verdict.Valid,
		Reason: strings.TrimSpace(verdict.Reason),
	})
}

type AnalyzeRoleRequest struct {
	Role string `json:"role"`
}

type AnalyzeRoleResponse struct {
	SystemName  string         `json:"systemName"`
	SystemDesc  string         `json:"systemDesc"`
	Flavor      string         `json:"flavor"`
	Holders     []roles.Holder `json:"holders"`
	PlayerIndex int            `json:"playerIndex"`
}

var fallbackHolders = []roles.Holder{
	{Name: "The people", Percent: 40},
	{Name: "The ruling elite", Percent: 35},
	{Name: "The armed forces", Percent: 25},
}

// AnalyzeRoleHandler describes the political system around a role. The
// system name always comes from roles.SystemNames and holder percentages
// always sum to 100.
type AnalyzeRoleHandler struct {
	llmService services.LLMService
	logger     *slog.Logger
}

func NewAnalyzeRoleHandler(llmService services.LLMService, logger *slog.Logger) *AnalyzeRoleHandler {
	return &AnalyzeRoleHandler{llmService: llmService, logger: logger}
}

func (h *AnalyzeRoleHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, h.logger, http.MethodPost) {
		return
	}

	var req AnalyzeRoleRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}
	role := strings.TrimSpace(req.Role)
	if role == "" {
		writeError(w, h.logger, http.StatusBadRequest, "role is required")
		return
	}

	var reply AnalyzeRoleResponse
	if err := services.CompleteJSONInto(r.Context(), h.llmService, services.TextRequest{
		Messages:  prompts.AnalyzeRole(role),
		MaxTokens: 600,
	}, &reply); err != nil {
		h.logger.Warn("Role analysis failed, using fallback", "role", role, "error", err)
		reply = AnalyzeRoleResponse{}
	}

	reply.SystemName = roles.CoerceSystemName(reply.SystemName, role, reply.SystemDesc)
	reply.SystemDesc = strings.TrimSpace(reply.SystemDesc)
	reply.Flavor = strings.TrimSpace(reply.Flavor)
	if len(reply.Holders) == 0 {
		reply.Holders = fallbackHolders
	}
	reply.Holders = roles.NormalizeHolders(reply.Holders)
	reply.PlayerIndex = roles.ClampPlayerIndex(reply.PlayerIndex, len(reply.Holders))

	writeJSON(w, h.logger, http.StatusOK, reply)
}
