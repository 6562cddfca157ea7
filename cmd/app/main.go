package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"face-insight-backend/internal/config"
	"face-insight-backend/internal/domain/ports/adapter"
	aiAdapters "face-insight-backend/internal/infra/adapters/ai"
	visionAdapters "face-insight-backend/internal/infra/adapters/vision"
	pg "face-insight-backend/internal/infra/db/postgres"
	"face-insight-backend/internal/infra/logging"
	"face-insight-backend/internal/infra/metrics"
	red "face-insight-backend/internal/infra/redis"
	"face-insight-backend/internal/infra/storage"
	"face-insight-backend/internal/infra/web"
	"face-insight-backend/internal/infra/worker"
	"face-insight-backend/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()

	// ---- Redis (optional result cache) ----
	var cache *red.ResultCache
	if cfg.Redis.URL != "" {
		redisClient, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis")
		}
		defer redisClient.Close()
		cache = red.NewResultCache(redisClient, cfg.Redis.TTL)
	} else {
		logger.Warn().Msg("redis.url not set; result cache disabled")
	}

	// ---- Repositories ----
	jobRepo := pg.NewAnalysisJobRepo(pool, cache)
	chatLogRepo := pg.NewChatLogRepo(pool)

	// ---- Vision engine ----
	var vision adapter.VisionEngine
	switch cfg.Vision.Engine {
	case "gcv":
		vision = visionAdapters.NewGCVEngine(cfg.Vision.MaxFaces, logger)
		logger.Info().Msg("vision engine: Google Cloud Vision (detection only)")
	default:
		vision, err = visionAdapters.NewSidecarEngine(cfg.Vision.SidecarURL, cfg.Vision.WarmupTimeout, cfg.Vision.InferTimeout, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("vision sidecar")
		}
		logger.Info().Str("base", cfg.Vision.SidecarURL).Msg("vision engine: inference sidecar")
	}

	// ---- Answer service (OpenAI -> Gemini) ----
	var answerer adapter.AnswerService
	if cfg.AI.OpenAIKey != "" {
		answerer, err = aiAdapters.NewOpenAIAnswerer(cfg.AI.OpenAIKey, cfg.AI.Model, cfg.AI.MaxAnswerTokens, cfg.AI.MaxPromptTokens)
		if err != nil {
			logger.Fatal().Err(err).Msg("openai answerer")
		}
		logger.Info().Str("model", cfg.AI.Model).Msg("answer service: OpenAI")
	} else if cfg.AI.GeminiKey != "" {
		answerer, err = aiAdapters.NewGeminiAnswerer(ctx, cfg.AI.GeminiKey, cfg.AI.GeminiURL, cfg.AI.Model, cfg.AI.MaxAnswerTokens)
		if err != nil {
			logger.Fatal().Err(err).Msg("gemini answerer")
		}
		logger.Info().Str("model", cfg.AI.Model).Msg("answer service: Gemini")
	} else {
		logger.Fatal().Msg("no answer provider configured: set ai.openai_key or ai.gemini_key")
	}

	// ---- Worker pool ----
	pipelinePool := worker.NewPool(cfg.Worker.Workers, logger)
	pipelinePool.Start(ctx)
	defer pipelinePool.Stop()

	// ---- Upload store ----
	files, err := storage.NewFileStore(cfg.Upload.Dir)
	if err != nil {
		logger.Fatal().Err(err).Msg("upload store")
	}

	// ---- Use cases ----
	analysisUC := usecase.NewAnalysisUseCase(jobRepo, vision, pipelinePool, logger)
	chatUC := usecase.NewChatUseCase(jobRepo, chatLogRepo, answerer, logger)

	// ---- HTTP server ----
	srv := web.NewServer(analysisUC, chatUC, files, cfg.Upload.MaxSizeMB<<20, logger)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: srv.Routes(),
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server error")
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = server.Shutdown(shutdownCtx)
	cancel()
}
