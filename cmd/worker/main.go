package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jwebster45206/dilemma-engine/internal/config"
	"github.com/jwebster45206/dilemma-engine/internal/logger"
	"github.com/jwebster45206/dilemma-engine/internal/remote"
	"github.com/jwebster45206/dilemma-engine/internal/services/queue"
	"github.com/jwebster45206/dilemma-engine/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	log := logger.Setup(cfg)

	log.Info("Starting Dilemma Engine mirror worker",
		"environment", cfg.Environment,
		"mirror_enabled", cfg.MirrorEnabled())

	connectCtx, connectCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer connectCancel()
	queueClient, err := queue.NewClient(connectCtx, cfg.RedisURL, log)
	if err != nil {
		log.Error("Failed to create queue client", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := queueClient.Close(); err != nil {
			log.Error("Error closing queue client", "error", err)
		}
	}()

	mirrorQueue := queue.NewMirrorQueue(queueClient)
	log.Info("Queue service initialized successfully")

	var mirror remote.Mirror
	if cfg.MirrorEnabled() {
		supabase, err := remote.NewSupabaseMirror(cfg.SupabaseURL, cfg.SupabaseKey, log)
		if err != nil {
			log.Error("Failed to initialize remote mirror", "error", err)
			os.Exit(1)
		}
		mirror = supabase
	} else {
		// Jobs are still drained so the queue does not grow without bound.
		log.Warn("SUPABASE_URL or SUPABASE_KEY not set, mirroring to memory only")
		mirror = remote.NewMockMirror()
	}

	w := worker.New(mirrorQueue, mirror, queueClient.GetRedisClient(), log, os.Getenv("WORKER_ID"))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := w.Start(); err != nil {
			log.Error("Worker error", "error", err)
			os.Exit(1)
		}
	}()

	log.Info("Worker started, waiting for jobs...")

	<-quit
	log.Info("Worker shutdown signal received")

	w.Stop()

	// Give the worker time to finish the current job
	time.Sleep(2 * time.Second)

	log.Info("Worker exited")
}
