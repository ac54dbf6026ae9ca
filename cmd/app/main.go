// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"studygen/internal/config"
	"studygen/internal/domain/ports/adapter"
	aiAdapters "studygen/internal/infra/adapters/ai"
	pg "studygen/internal/infra/db/postgres"
	"studygen/internal/infra/logging"
	"studygen/internal/infra/metrics"
	red "studygen/internal/infra/redis"
	"studygen/internal/infra/sched"
	"studygen/internal/infra/security"
	"studygen/internal/infra/web"
	"studygen/internal/infra/worker"
	"studygen/internal/pipeline"
	"studygen/internal/usecase"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (scripted AI, console logs)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("[DEV MODE] Enabled")
	}
	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 10)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()
	txManager := pg.NewTxManager(pool)

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()
	rateLimiter := red.NewRateLimiter(redisClient)
	locker := red.NewLocker(redisClient)

	// ---- Encryption ----
	encKey := cfg.Security.EncryptionKey
	if len(encKey) != 32 {
		logger.Warn().Msg("security.encryption_key not set or not 32 bytes; falling back to dev key (INSECURE)")
		encKey = "0123456789abcdef0123456789abcdef"
	}
	encSvc, err := security.NewEncryptionService(encKey)
	if err != nil {
		logger.Fatal().Err(err).Msg("encryption")
	}

	// ---- Repositories ----
	docRepo := pg.NewDocumentRepo(pool, encSvc)
	jobRepo := pg.NewGenerationJobRepo(pool)
	materialRepo := pg.NewMaterialRepo(pool)

	// ---- AI streamer (scripted in dev -> OpenAI -> Gemini) ----
	var streamer adapter.GenerationStreamer
	switch {
	case cfg.Runtime.Dev && cfg.AI.OpenAIKey == "" && cfg.AI.GeminiKey == "":
		streamer = aiAdapters.NewScriptedStreamer()
		logger.Info().Msg("AI streamer: scripted (dev)")
	case cfg.AI.OpenAIKey != "":
		streamer, err = aiAdapters.NewOpenAIStreamer(cfg.AI.OpenAIKey, cfg.AI.DefaultModel)
		if err != nil {
			logger.Fatal().Err(err).Msg("openai streamer")
		}
		logger.Info().Str("model", cfg.AI.DefaultModel).Msg("AI streamer: OpenAI")
	case cfg.AI.GeminiKey != "":
		streamer, err = aiAdapters.NewGeminiStreamer(ctx, cfg.AI.GeminiKey, cfg.AI.GeminiURL, cfg.AI.DefaultModel)
		if err != nil {
			logger.Fatal().Err(err).Msg("gemini streamer")
		}
		logger.Info().Str("model", cfg.AI.DefaultModel).Msg("AI streamer: Gemini")
	default:
		logger.Fatal().Msgf("no AI provider configured: set ai.openai_key or ai.gemini_key in %s", *cfgPath)
	}
	if cfg.AI.ConcurrentLimit > 0 {
		streamer = aiAdapters.NewLimitedStreamer(streamer, cfg.AI.ConcurrentLimit)
	}

	// ---- Pipeline ----
	policy := pipeline.RetryPolicy{
		MaxAttempts:    cfg.Pipeline.MaxAttempts,
		BackoffBase:    cfg.Pipeline.BackoffBase,
		BackoffCap:     cfg.Pipeline.BackoffCap,
		RateLimitFloor: cfg.Pipeline.RateLimitFloor,
		StallRetryWait: cfg.Pipeline.StallRetryWait,
	}
	executor := pipeline.NewStreamExecutor(streamer, policy, pipeline.ExecutorConfig{
		OverallTimeout: cfg.Pipeline.OverallTimeout,
		StallTimeout:   cfg.Pipeline.StallTimeout,
		ReportChars:    cfg.Pipeline.ReportChars,
	}, logger)
	orchestrator := pipeline.NewOrchestrator(docRepo, jobRepo, materialRepo, txManager, executor, cfg.Pipeline, cfg.AI.MaxOutputTokens, logger)

	// ---- Worker pool ----
	jobPool := worker.NewPool(cfg.Pipeline.Workers, logger)
	jobPool.Start(ctx)

	// ---- Use cases ----
	docUC := usecase.NewDocumentUseCase(docRepo, materialRepo)
	genUC := usecase.NewGenerateUseCase(docRepo, jobRepo, orchestrator, jobPool, rateLimiter, locker, cfg.Limits, cfg.Pipeline.Heartbeat, cfg.AI.DefaultModel, logger)

	// ---- Janitor ----
	janitor := sched.NewJanitor(cfg.Janitor, jobRepo, logger)
	go func() { _ = janitor.Run(ctx) }()

	// ---- HTTP server ----
	server := web.NewServer(cfg.Server.Port, docUC, genUC, logger)
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server stopped")
			cancel()
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigc:
		logger.Info().Msg("shutdown requested")
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	cancel()
	jobPool.Stop()
}
