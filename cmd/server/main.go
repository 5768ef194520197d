package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/amber-aim/ad-placement-go/internal/config"
	"github.com/amber-aim/ad-placement-go/internal/handler"
	"github.com/amber-aim/ad-placement-go/internal/queue"
	"github.com/amber-aim/ad-placement-go/internal/repository"
	"github.com/amber-aim/ad-placement-go/internal/service"
	"github.com/amber-aim/ad-placement-go/internal/service/openai"
	"github.com/amber-aim/ad-placement-go/internal/service/twelvelabs"
	"github.com/amber-aim/ad-placement-go/internal/storage"
	"github.com/amber-aim/ad-placement-go/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.File); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx := context.Background()

	store, err := storage.New(ctx, cfg.S3.Bucket, cfg.S3.Region, cfg.S3.BasePath)
	if err != nil {
		logger.Log.Fatal("Failed to initialize storage", zap.Error(err))
	}

	videoClient, err := twelvelabs.NewClient(twelvelabs.Config{
		BaseURL:         cfg.TwelveLabs.BaseURL,
		APIKey:          cfg.TwelveLabs.APIKey,
		CreatorsIndexID: cfg.TwelveLabs.CreatorsIndexID,
		AdsIndexID:      cfg.TwelveLabs.AdsIndexID,
		Timeout:         cfg.TwelveLabs.Timeout,
	})
	if err != nil {
		logger.Log.Fatal("Failed to initialize TwelveLabs client", zap.Error(err))
	}

	llmClient, err := openai.NewClient(openai.Config{
		BaseURL: cfg.OpenAI.BaseURL,
		APIKey:  cfg.OpenAI.APIKey,
		Model:   cfg.OpenAI.Model,
		Timeout: cfg.OpenAI.Timeout,
	})
	if err != nil {
		logger.Log.Fatal("Failed to initialize OpenAI client", zap.Error(err))
	}

	// The pipeline-run store is optional; without a database the status
	// endpoint reports nothing but the pipeline still runs.
	var runs interface {
		queue.RunStore
		handler.RunReader
	} = repository.NoopRecorder{}

	if cfg.Database.URL != "" {
		pool, err := pgxpool.New(ctx, cfg.Database.URL)
		if err != nil {
			logger.Log.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer pool.Close()
		runs = repository.New(pool)
		logger.Log.Info("Database connection established")
	} else {
		logger.Log.Warn("No database configured, pipeline run tracking disabled")
	}

	if cfg.Redis.URL == "" {
		logger.Log.Fatal("redis.url is required (APP_REDIS_URL)")
	}
	queueClient, err := queue.NewClient(cfg.Redis.URL, runs, cfg.Pipeline.PollTimeout*2)
	if err != nil {
		logger.Log.Fatal("Failed to initialize queue client", zap.Error(err))
	}
	defer queueClient.Close()

	matcher := service.NewAdsMatcher(
		llmClient,
		videoClient.SearchAds,
		store,
		5,
		cfg.Pipeline.AgentMaxTurns,
	)

	h := handler.New(store, videoClient, queueClient, matcher, runs, cfg.S3.UploadURLExpiration)

	router := gin.New()
	router.Use(gin.Recovery())
	handler.Register(router, h)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Log.Info("Server starting", zap.Int("port", cfg.Server.Port))
		serverErrors <- server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Log.Fatal("Server error", zap.Error(err))
	case sig := <-shutdown:
		logger.Log.Info("Shutdown signal received", zap.String("signal", sig.String()))

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Log.Error("Graceful shutdown failed", zap.Error(err))
			if err := server.Close(); err != nil {
				logger.Log.Error("Failed to close server", zap.Error(err))
			}
			os.Exit(1)
		}

		logger.Log.Info("Server stopped gracefully")
	}
}
