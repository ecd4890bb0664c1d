package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/anthropics/companion-backend/internal/api"
	"github.com/anthropics/companion-backend/internal/biz/domain"
	"github.com/anthropics/companion-backend/internal/biz/usecase"
	"github.com/anthropics/companion-backend/internal/conf"
	"github.com/anthropics/companion-backend/internal/data"
	"github.com/anthropics/companion-backend/internal/service"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Load configuration
	cfg, err := conf.LoadFromEnv()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	// Initialize repository layer
	repos, err := data.NewRepositories(cfg.DBPath, cfg.GeminiAPIKey, cfg.GeminiBaseURL, cfg.TextModel, cfg.VisionModel, cfg.SynthRPM)
	if err != nil {
		log.Fatalf("Failed to create repositories: %v", err)
	}

	fmt.Printf("[Companion] Message DB: %s\n", cfg.DBPath)

	// Initialize usecase layer
	mood := domain.NewMoodState()
	chatPrompts := cfg.Prompts.ToChatPrompts()
	proactivePrompts := cfg.Prompts.ToProactivePrompts()

	dispatcher := usecase.NewChatDispatcher(mood, repos.History, repos.Synth, chatPrompts)
	engine := usecase.NewProactiveEngine(mood, repos.History, repos.Synth, repos.Notifier, proactivePrompts)

	// Initialize service layer
	scheduler, err := service.NewScheduler(engine, repos.Notifier, cfg.Timezone, cfg.MorningHour, cfg.DeepTalkHour)
	if err != nil {
		log.Fatalf("Failed to create scheduler: %v", err)
	}
	scheduler.Start()
	fmt.Printf("[Companion] Scheduler started (timezone %s)\n", cfg.Timezone)

	// Initialize HTTP API server
	apiServer := api.NewServer(
		dispatcher, engine, repos.History, repos.Notifier, mood,
		cfg.SessionID, cfg.SecretName, cfg.JWTSecret, cfg.Port,
	)

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Println("\nShutting down...")
		scheduler.Stop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := apiServer.Stop(shutdownCtx); err != nil {
			fmt.Printf("[Companion] API server shutdown error: %v\n", err)
		}
		if err := repos.History.Close(); err != nil {
			fmt.Printf("[Companion] DB close error: %v\n", err)
		}
		os.Exit(0)
	}()

	fmt.Println("Starting Companion backend...")
	if err := apiServer.Start(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
}
