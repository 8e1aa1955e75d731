package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"intake-service/internal/batch"
	"intake-service/internal/classifier"
	"intake-service/internal/config"
	"intake-service/internal/dedup"
	"intake-service/internal/handler"
	"intake-service/internal/models"
	"intake-service/internal/prefilter"
	"intake-service/internal/prompt"
	"intake-service/internal/queue"
	"intake-service/internal/service"
	"intake-service/internal/slackack"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	// Initialize logger
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	logger.Info("Starting Intake Service...")

	// Load configuration
	cfg, err := config.LoadConfig("configs/config.yml")
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	ctx := context.Background()

	// Initialize the provider layer (multi-provider with rate limiting when
	// configured, single Gemini otherwise)
	var gen classifier.Generator

	if len(cfg.Providers) > 0 {
		multi, err := buildMultiGenerator(ctx, cfg, logger)
		if err != nil {
			logger.Warn("Failed to initialize multi-provider client, falling back to single provider",
				zap.Error(err))
		} else {
			gen = multi
			defer multi.Close()
			logger.Info("Multi-provider client initialized",
				zap.Int("provider_count", len(cfg.Providers)))
		}
	}

	if gen == nil {
		if cfg.Gemini.APIKey == "" || cfg.Gemini.APIKey == "YOUR_API_KEY_HERE" {
			logger.Fatal("Gemini API key not configured. Please set it in configs/config.yml or environment variable")
		}

		gemini, err := classifier.NewGemini(ctx, classifier.GeminiConfig{
			APIKey:    cfg.Gemini.APIKey,
			ModelName: cfg.Gemini.ModelName,
			Streaming: cfg.Gemini.Streaming,
		}, logger)
		if err != nil {
			logger.Fatal("Failed to initialize Gemini client", zap.Error(err))
		}
		defer gemini.Close()
		gen = gemini
	}

	// Wrap the provider layer with the retrying classifier client
	client := classifier.New(gen, classifier.Config{
		Timeout:     cfg.ClassifierTimeout(),
		MaxAttempts: cfg.Classifier.MaxAttempts,
		BaseDelay:   cfg.BackoffBase(),
	}, logger)

	// Initialize queue publisher
	publisher, err := queue.NewPublisher(queue.Config{
		URL:       cfg.Queue.URL,
		AuthToken: cfg.Queue.AuthToken,
		Timeout:   cfg.QueueTimeout(),
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize queue publisher", zap.Error(err))
	}

	// Acknowledgments are optional
	var ack service.Acknowledger
	if cfg.Slack.BotToken != "" {
		ack = slackack.New(cfg.Slack.BotToken, logger)
		logger.Info("Acknowledgments enabled")
	}

	// Assemble the pipeline
	pipeline := service.NewPipeline(
		dedup.New(cfg.DedupTTL(), cfg.Dedup.MaxEntries),
		prefilter.New(),
		prompt.NewBuilder(),
		client,
		service.NewGate(*cfg.Gate.ConfidenceThreshold),
		publisher,
		ack,
		logger,
	)

	// Batching is optional; window 0 keeps processing synchronous so the
	// platform's redelivery covers transient failures.
	var batcher *batch.Batcher
	if cfg.BatchWindow() > 0 {
		batcher = batch.New(cfg.BatchWindow(), cfg.Batch.MaxSize, func(events []*models.NormalizedEvent) {
			flushCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()
			if _, err := pipeline.Dispatch(flushCtx, events); err != nil {
				logger.Error("Async batch dispatch failed", zap.Error(err))
			}
		}, logger)
		defer batcher.Close()
		logger.Info("Batching enabled",
			zap.Duration("window", cfg.BatchWindow()),
			zap.Int("max_size", cfg.Batch.MaxSize))
	}

	// Initialize HTTP handler
	apiHandler := handler.NewHandler(pipeline, batcher, logger)

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.Default()

	// Register routes
	apiHandler.RegisterRoutes(router)

	// Start server
	serverAddr := fmt.Sprintf(":%s", cfg.Server.Port)
	logger.Info("Server starting", zap.String("address", serverAddr))

	// Graceful shutdown
	srv := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	logger.Info("Intake Service is running",
		zap.String("port", cfg.Server.Port),
		zap.String("model", cfg.Gemini.ModelName))

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

// buildMultiGenerator assembles rate-limited providers from config.
func buildMultiGenerator(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*classifier.MultiGenerator, error) {
	generators := make([]*classifier.RateLimitedGenerator, 0, len(cfg.Providers))

	for i, pc := range cfg.Providers {
		var gen classifier.Generator
		var err error

		switch pc.Type {
		case "gemini":
			gen, err = classifier.NewGemini(ctx, classifier.GeminiConfig{
				APIKey:    pc.APIKey,
				ModelName: pc.ModelName,
			}, logger)
		case "groq":
			baseURL := pc.BaseURL
			if baseURL == "" {
				baseURL = classifier.GroqBaseURL
			}
			gen, err = classifier.NewOpenAICompat(classifier.OpenAICompatConfig{
				APIKey:    pc.APIKey,
				BaseURL:   baseURL,
				ModelName: pc.ModelName,
			}, logger)
		case "openrouter":
			baseURL := pc.BaseURL
			if baseURL == "" {
				baseURL = classifier.OpenRouterBaseURL
			}
			gen, err = classifier.NewOpenAICompat(classifier.OpenAICompatConfig{
				APIKey:    pc.APIKey,
				BaseURL:   baseURL,
				ModelName: pc.ModelName,
			}, logger)
		default:
			logger.Warn("Unknown provider type, skipping",
				zap.String("type", pc.Type),
				zap.Int("index", i))
			continue
		}

		if err != nil {
			logger.Error("Failed to create provider",
				zap.String("type", pc.Type),
				zap.Int("index", i),
				zap.Error(err))
			continue
		}

		rateLimit := pc.RequestsPerMinute
		if rateLimit == 0 {
			rateLimit = 8 // Conservative default for free tier
		}
		generators = append(generators, classifier.NewRateLimitedGenerator(gen, rateLimit, pc.Type))

		logger.Info("Provider initialized",
			zap.String("type", pc.Type),
			zap.String("model", pc.ModelName),
			zap.Int("rate_limit", rateLimit))
	}

	return classifier.NewMultiGenerator(generators, cfg.MaxFailuresBeforeSwitch, logger)
}
