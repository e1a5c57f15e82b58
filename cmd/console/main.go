package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
)

type ConsoleConfig struct {
	APIBaseURL   string
	ShareBaseURL string
	UserID       string
	Tone         string
	Language     string
	FreePlay     bool
	Timeout      time.Duration
}

func main() {
	_ = godotenv.Load()

	cfg := &ConsoleConfig{
		APIBaseURL:   getEnv("API_BASE_URL", "http://localhost:8080"),
		ShareBaseURL: getEnv("PUBLIC_BASE_URL", "http://localhost:5173"),
		UserID:       getEnv("CONSOLE_USER_ID", ""),
		Timeout:      60 * time.Second,
	}
	flag.StringVar(&cfg.Tone, "tone", "serious", "narration tone: serious, dramatic or satirical")
	flag.StringVar(&cfg.Language, "lang", "en", "language code for generated text")
	flag.BoolVar(&cfg.FreePlay, "free-play", false, "play without the personal support track")
	flag.Parse()

	// The alt screen owns stdout, so logs go to a file when asked for.
	logger := slog.New(slog.DiscardHandler)
	if path := os.Getenv("CONSOLE_LOG_FILE"); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
			os.Exit(1)
		}
		defer func() {
			_ = f.Close()
		}()
		logger = slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	client := &http.Client{
		Timeout: cfg.Timeout,
	}
	api := newAPIClient(cfg, client)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	ok := api.testConnection(ctx)
	cancel()
	if !ok {
		fmt.Fprintf(os.Stderr, "Could not connect to API. Please ensure the API is running.\nTry: docker-compose up -d\n")
		os.Exit(1)
	}

	p := tea.NewProgram(NewConsoleUI(cfg, api, client, logger),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running program: %v\n", err)
		os.Exit(1)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
