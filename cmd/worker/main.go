package main

import (
	"context"
	"fmt"
	"os"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/amber-aim/ad-placement-go/internal/config"
	"github.com/amber-aim/ad-placement-go/internal/queue"
	"github.com/amber-aim/ad-placement-go/internal/repository"
	"github.com/amber-aim/ad-placement-go/internal/service"
	"github.com/amber-aim/ad-placement-go/internal/service/openai"
	"github.com/amber-aim/ad-placement-go/internal/service/twelvelabs"
	"github.com/amber-aim/ad-placement-go/internal/storage"
	"github.com/amber-aim/ad-placement-go/pkg/logger"
)

const workerConcurrency = 2

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

	var recorder service.RunRecorder
	if cfg.Database.URL != "" {
		pool, err := pgxpool.New(ctx, cfg.Database.URL)
		if err != nil {
			logger.Log.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer pool.Close()
		recorder = repository.New(pool)
		logger.Log.Info("Database connection established")
	} else {
		recorder = repository.NoopRecorder{}
		logger.Log.Warn("No database configured, pipeline run tracking disabled")
	}

	synthesizer := service.NewSynthesizer(llmClient, store, cfg.Pipeline.PromptsDir)
	analyzer := service.NewAnalyzer(videoClient, synthesizer, store, recorder, service.AnalyzerConfig{
		PromptsDir:   cfg.Pipeline.PromptsDir,
		PollInterval: cfg.Pipeline.PollInterval,
		PollTimeout:  cfg.Pipeline.PollTimeout,
	})

	if cfg.Redis.URL == "" {
		logger.Log.Fatal("redis.url is required (APP_REDIS_URL)")
	}
	redisOpt, err := queue.ParseRedisURL(cfg.Redis.URL)
	if err != nil {
		logger.Log.Fatal("Failed to parse redis URL", zap.Error(err))
	}

	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: workerConcurrency,
		Queues: map[string]int{
			"default": 1,
		},
	})

	mux := asynq.NewServeMux()
	mux.Handle(queue.TypeAnalyzeVideo, queue.NewAnalysisHandler(analyzer))

	logger.Log.Info("Worker starting",
		zap.Int("concurrency", workerConcurrency),
		zap.Duration("poll_timeout", cfg.Pipeline.PollTimeout),
	)

	if err := srv.Run(mux); err != nil {
		logger.Log.Fatal("Worker stopped", zap.Error(err))
	}
}
