package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jwebster45206/dilemma-engine/internal/config"
	"github.com/jwebster45206/dilemma-engine/internal/eventlog"
	"github.com/jwebster45206/dilemma-engine/internal/handlers"
	"github.com/jwebster45206/dilemma-engine/internal/logger"
	"github.com/jwebster45206/dilemma-engine/internal/middleware"
	"github.com/jwebster45206/dilemma-engine/internal/observability"
	"github.com/jwebster45206/dilemma-engine/internal/services"
	"github.com/jwebster45206/dilemma-engine/internal/services/events"
	"github.com/jwebster45206/dilemma-engine/internal/services/queue"
	"github.com/jwebster45206/dilemma-engine/internal/storage"
	"github.com/jwebster45206/dilemma-engine/pkg/textfilter"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	log := logger.Setup(cfg)

	log.Info("Starting Dilemma Engine API",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"llm_provider", cfg.LLMProvider,
		"text_model", cfg.TextModel)

	tp, err := observability.InitTracing(context.Background(), observability.FromAppConfig(cfg, version))
	if err != nil {
		log.Error("Failed to initialize tracing", "error", err)
		os.Exit(1)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.Error("Failed to flush traces", "error", err)
		}
	}()
	tracer := tp.Tracer(observability.ServiceName)

	models := services.Models{
		Text:  cfg.TextModel,
		Light: cfg.LightModel,
		Image: cfg.ImageModel,
		TTS:   cfg.TTSModel,
	}

	var llmService services.LLMService
	switch cfg.LLMProvider {
	case "openai":
		llmService = services.NewOpenAIService(cfg.OpenAIAPIKey, models, cfg.TTSVoice, tracer, log)
		log.Info("Using OpenAI LLM provider")
	case "gemini":
		gemini, err := services.NewGeminiService(context.Background(), cfg.GeminiAPIKey, models, tracer, log)
		if err != nil {
			log.Error("Failed to initialize Gemini", "error", err)
			os.Exit(1)
		}
		defer gemini.Close()
		llmService = gemini
		log.Info("Using Gemini LLM provider")
	case "anthropic":
		llmService = services.NewAnthropicService(cfg.AnthropicAPIKey, models, tracer, log)
		log.Info("Using Anthropic LLM provider")
	case "mock":
		llmService = services.NewMockLLMAPI()
		log.Warn("Using mock LLM provider")
	default:
		log.Error("Invalid LLM provider specified", "provider", cfg.LLMProvider, "supported", []string{"openai", "gemini", "anthropic", "mock"})
		os.Exit(1)
	}
	llmService = services.WithTimeout(llmService, cfg.LLMTimeout)

	store, err := storage.NewRedisStorage(cfg.RedisURL, log)
	if err != nil {
		log.Error("Invalid Redis URL", "error", err)
		os.Exit(1)
	}
	storageCtx, storageCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer storageCancel()
	if err := store.WaitForConnection(storageCtx); err != nil {
		log.Error("Failed to connect to storage", "error", err)
		os.Exit(1)
	}
	log.Info("Storage connection established successfully")

	broadcaster := events.NewBroadcaster(store.Client(), log)

	// Left as a nil interface when the mirror is off so handlers skip it.
	var jobs handlers.JobEnqueuer
	if cfg.MirrorQueueEnabled {
		jobs = queue.NewMirrorQueue(queue.NewClientFromRedis(store.Client(), log))
		log.Info("Mirror queue enabled")
	}

	eventLog, err := eventlog.Open(cfg.EventLogPath)
	if err != nil {
		log.Error("Failed to open event log", "path", cfg.EventLogPath, "error", err)
		os.Exit(1)
	}
	log.Info("Event log opened", "path", cfg.EventLogPath)

	filter := textfilter.NewProfanityFilter()

	mux := http.NewServeMux()
	registerRoutes(mux, cfg, llmService, store, broadcaster, jobs, eventLog, filter, log)

	handler := middleware.CORS(cfg.AllowedOrigins)(middleware.Logger(log)(mux))
	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: the websocket stream and speech synthesis run long.
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Server is shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}
	if err := eventLog.Close(); err != nil {
		log.Error("Error closing event log", "error", err)
	}
	if err := store.Close(); err != nil {
		log.Error("Error closing storage connection", "error", err)
	}

	log.Info("Server exited")
}

func registerRoutes(
	mux *http.ServeMux,
	cfg *config.Config,
	llmService services.LLMService,
	store *storage.RedisStorage,
	broadcaster *events.Broadcaster,
	jobs handlers.JobEnqueuer,
	eventLog *eventlog.Log,
	filter *textfilter.ProfanityFilter,
	log *slog.Logger,
) {
	mux.Handle("/health", handlers.NewHealthHandler(store, llmService, eventLog, log))
	mux.Handle("/api/_ping", handlers.NewPingHandler(cfg.Port, llmService, log))

	mux.Handle("/api/intro-paragraph", handlers.NewIntroHandler(llmService, log))
	mux.Handle("/api/validate-role", handlers.NewValidateRoleHandler(llmService, log))
	mux.Handle("/api/name-suggestions", handlers.NewNameSuggestionsHandler(llmService, log))
	mux.Handle("/api/bg-suggestion", handlers.NewBackgroundHandler(llmService, log))
	mux.Handle("/api/analyze-role", handlers.NewAnalyzeRoleHandler(llmService, log))
	mux.Handle("/api/generate-avatar", handlers.NewAvatarHandler(llmService, log))
	mux.Handle("/api/mirror-summary", handlers.NewMirrorSummaryHandler(llmService, log))
	mux.Handle("/api/tts", handlers.NewTTSHandler(llmService, cfg.TTSVoice, log))
	mux.Handle("/api/dilemma", handlers.NewDilemmaHandler(llmService, store, log))

	highscoresHandler := handlers.NewHighscoresHandler(store, filter, broadcaster, jobs, log)
	mux.Handle("/api/highscores", highscoresHandler)
	mux.Handle("/api/highscores/submit", highscoresHandler)

	runsHandler := handlers.NewRunsHandler(store, filter, broadcaster, jobs, eventLog, log)
	mux.Handle("/api/runs", runsHandler)
	mux.Handle("/api/runs/", runsHandler)

	mux.Handle("/api/session/", handlers.NewSessionHandler(store, log))
	mux.Handle("/api/share/qr", handlers.NewShareHandler(cfg.PublicBaseURL, log))
	mux.Handle("/api/events/", handlers.NewEventsHandler(broadcaster, cfg.AllowedOrigins, log))
	mux.Handle("/api/logs/", handlers.NewLogsHandler(eventLog, log))
}
