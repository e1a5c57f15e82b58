package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	Environment string
	LogLevel    slog.Level

	// Model providers
	LLMProvider     string // "openai", "gemini", "anthropic" or "mock"
	OpenAIAPIKey    string
	GeminiAPIKey    string
	AnthropicAPIKey string
	TextModel       string
	LightModel      string
	ImageModel      string
	TTSModel        string
	TTSVoice        string
	LLMTimeout      time.Duration

	// Storage
	RedisURL     string
	EventLogPath string

	// Remote leaderboard mirror
	SupabaseURL        string
	SupabaseKey        string
	MirrorQueueEnabled bool

	// Client-facing
	PublicBaseURL  string
	AllowedOrigins []string

	// Tracing
	TracingEnabled    bool
	LangfuseHost      string
	LangfusePublicKey string
	LangfuseSecretKey string
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:        getEnv("PORT", "3001"),
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    parseLogLevel(getEnv("LOG_LEVEL", "info")),

		LLMProvider:     strings.ToLower(getEnv("LLM_PROVIDER", "openai")),
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		TextModel:       getEnv("MODEL_TEXT", "gpt-4o"),
		LightModel:      getEnv("MODEL_LIGHT", "gpt-4o-mini"),
		ImageModel:      getEnv("MODEL_IMAGE", "dall-e-3"),
		TTSModel:        getEnv("MODEL_TTS", "tts-1"),
		TTSVoice:        getEnv("TTS_VOICE", "alloy"),
		LLMTimeout:      getDuration("LLM_TIMEOUT", 60*time.Second),

		RedisURL:     getEnv("REDIS_URL", "redis://localhost:6379/0"),
		EventLogPath: getEnv("EVENT_LOG_PATH", "./events.db"),

		SupabaseURL:        getEnv("SUPABASE_URL", ""),
		SupabaseKey:        getEnv("SUPABASE_KEY", ""),
		MirrorQueueEnabled: getBool("MIRROR_QUEUE_ENABLED", false),

		PublicBaseURL:  strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:5173"), "/"),
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "*")),

		TracingEnabled:    getBool("OTEL_TRACES_ENABLED", false),
		LangfuseHost:      getEnv("LANGFUSE_HOST", "https://cloud.langfuse.com"),
		LangfusePublicKey: getEnv("LANGFUSE_PUBLIC_KEY", ""),
		LangfuseSecretKey: getEnv("LANGFUSE_SECRET_KEY", ""),
	}

	if os.Getenv("MODEL_TEXT") == "" {
		switch cfg.LLMProvider {
		case "gemini":
			cfg.TextModel = "gemini-1.5-pro"
			cfg.LightModel = "gemini-1.5-flash"
		case "anthropic":
			cfg.TextModel = "claude-sonnet-4-20250514"
			cfg.LightModel = "claude-3-5-haiku-latest"
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the selected provider is known and has a key.
func (c *Config) Validate() error {
	switch c.LLMProvider {
	case "openai":
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required when LLM_PROVIDER=openai")
		}
	case "gemini":
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required when LLM_PROVIDER=gemini")
		}
	case "anthropic":
		if c.AnthropicAPIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY is required when LLM_PROVIDER=anthropic")
		}
	case "mock":
	default:
		return fmt.Errorf("unsupported LLM_PROVIDER %q", c.LLMProvider)
	}
	if c.TracingEnabled && (c.LangfusePublicKey == "" || c.LangfuseSecretKey == "") {
		return fmt.Errorf("LANGFUSE_PUBLIC_KEY and LANGFUSE_SECRET_KEY are required when tracing is enabled")
	}
	return nil
}

// MirrorEnabled reports whether the remote leaderboard mirror is configured.
func (c *Config) MirrorEnabled() bool {
	return c.SupabaseURL != "" && c.SupabaseKey != ""
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return v
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil || v <= 0 {
		return defaultValue
	}
	return v
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
