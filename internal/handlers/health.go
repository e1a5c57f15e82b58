package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/jwebster45206/dilemma-engine/internal/services"
)

// Pinger is anything whose connection can be checked.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthResponse struct {
	Status     string            `json:"status"`
	Timestamp  time.Time         `json:"timestamp"`
	Service    string            `json:"service"`
	Components map[string]string `json:"components"`
}

type HealthHandler struct {
	storage    Pinger
	llmService services.LLMService
	eventLog   Pinger
	logger     *slog.Logger
}

// NewHealthHandler checks storage and the model provider. eventLog may be nil.
func NewHealthHandler(storage Pinger, llmService services.LLMService, eventLog Pinger, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		storage:    storage,
		llmService: llmService,
		eventLog:   eventLog,
		logger:     logger,
	}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.logger.Debug("Health check requested",
		"method", r.Method,
		"path", r.URL.Path,
		"remote_addr", r.RemoteAddr)

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	components := make(map[string]string)
	overallStatus := "healthy"

	check := func(name string, p Pinger) {
		if err := p.Ping(ctx); err != nil {
			h.logger.Warn("Health check failed", "component", name, "error", err)
			components[name] = "unhealthy"
			overallStatus = "degraded"
			return
		}
		components[name] = "healthy"
	}

	check("storage", h.storage)
	check("llm", h.llmService)
	if h.eventLog != nil {
		check("eventlog", h.eventLog)
	}

	statusCode := http.StatusOK
	if overallStatus != "healthy" {
		statusCode = http.StatusServiceUnavailable
	}

	writeJSON(w, h.logger, statusCode, HealthResponse{
		Status:     overallStatus,
		Timestamp:  time.Now(),
		Service:    "dilemma-engine",
		Components: components,
	})
}

type PingResponse struct {
	OK     bool            `json:"ok"`
	Port   string          `json:"port"`
	Models services.Models `json:"models"`
}

// PingHandler echoes the listening port and configured models.
type PingHandler struct {
	port       string
	llmService services.LLMService
	logger     *slog.Logger
}

func NewPingHandler(port string, llmService services.LLMService, logger *slog.Logger) *PingHandler {
	return &PingHandler{port: port, llmService: llmService, logger: logger}
}

func (h *PingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, h.logger, http.MethodGet) {
		return
	}
	writeJSON(w, h.logger, http.StatusOK, PingResponse{
		OK:     true,
		Port:   h.port,
		Models: h.llmService.Models(),
	})
}
