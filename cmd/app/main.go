package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"ai-content-orchestrator/internal/config"
	"ai-content-orchestrator/internal/domain/ports/adapter"
	provider "ai-content-orchestrator/internal/infra/adapters/provider"
	pg "ai-content-orchestrator/internal/infra/db/postgres"
	"ai-content-orchestrator/internal/infra/logging"
	"ai-content-orchestrator/internal/infra/metrics"
	"ai-content-orchestrator/internal/infra/ratelimit"
	red "ai-content-orchestrator/internal/infra/redis"
	"ai-content-orchestrator/internal/infra/sched"
	"ai-content-orchestrator/internal/infra/web"
	"ai-content-orchestrator/internal/infra/worker"
	"ai-content-orchestrator/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, noop provider)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 10)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()
	tm := pg.NewTxManager(pool)

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()
	locker := red.NewLocker(redisClient)

	// ---- Repositories ----
	jobRepo := red.NewJobSnapshotCache(pg.NewGenerationJobRepo(pool, tm), redisClient, cfg.Redis.TTL)
	articleRepo := pg.NewArticleRepo(pool)

	// ---- Providers ----
	providers, err := buildProviders(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("providers")
	}
	caller := provider.NewResilientCaller(provider.RetryPolicy{
		MaxRetries: cfg.Retry.MaxRetries,
		Base:       cfg.Retry.BackoffBase,
		MaxDelay:   cfg.Retry.BackoffLimit,
	}, logger)
	engine := provider.NewFallbackEngine(providers, cfg.Providers.Priority, caller, logger)

	// ---- Use cases ----
	genUC := usecase.NewGenerationUseCase(jobRepo, articleRepo, tm, cfg.Jobs.MaxAttempts, cfg.Jobs.RetentionAge, logger)

	// ---- Pipeline workers ----
	pipelinePool := worker.NewPool(cfg.Jobs.Workers, logger)
	pipelinePool.Start(ctx)
	defer pipelinePool.Stop()

	pipeline := worker.NewPipelineWorker(jobRepo, articleRepo, engine, tm, adapter.GenerateOptions{
		MaxTokens:   cfg.Providers.MaxTokens,
		Temperature: 0.7,
	}, cfg.Providers.Default, cfg.Jobs.PollInterval, logger)
	go pipeline.Start(ctx, pipelinePool)

	// ---- Retention sweep ----
	cleanup := sched.NewCleanupWorker(cfg.Jobs.CleanupInterval, genUC, locker, logger)
	go func() { _ = cleanup.Run(ctx) }()

	// ---- HTTP API ----
	limiter := ratelimit.NewLimiter(cfg.RateLimit.Window)
	srv := web.NewServer(genUC, limiter, cfg.RateLimit.Limit, cfg.Server.AdminKey, logger)
	server := &http.Server{Addr: fmt.Sprintf(":%d", cfg.Server.Port), Handler: srv.Router()}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http api listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server error")
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
}

// buildProviders instantiates every configured provider in priority order.
// In dev mode the noop provider is always available as a last resort.
func buildProviders(ctx context.Context, cfg *config.Config) ([]adapter.ContentProvider, error) {
	var out []adapter.ContentProvider
	wrap := func(p adapter.ContentProvider) adapter.ContentProvider {
		return provider.NewLimitedProvider(p, cfg.Providers.ConcurrentLimit)
	}

	for _, name := range cfg.Providers.Priority {
		switch strings.ToLower(name) {
		case "openai":
			if cfg.Providers.OpenAIKey == "" {
				continue
			}
			p, err := provider.NewOpenAIProvider(cfg.Providers.OpenAIKey, cfg.Providers.OpenAIModel)
			if err != nil {
				return nil, fmt.Errorf("openai provider: %w", err)
			}
			out = append(out, wrap(p))
		case "gemini":
			if cfg.Providers.GeminiKey == "" {
				continue
			}
			p, err := provider.NewGeminiProvider(ctx, cfg.Providers.GeminiKey, cfg.Providers.GeminiURL, cfg.Providers.GeminiModel, cfg.Providers.MaxTokens)
			if err != nil {
				return nil, fmt.Errorf("gemini provider: %w", err)
			}
			out = append(out, wrap(p))
		case "anthropic":
			if cfg.Providers.AnthropicKey == "" {
				continue
			}
			p, err := provider.NewAnthropicProvider(cfg.Providers.AnthropicKey, cfg.Providers.AnthropicModel, cfg.Providers.MaxTokens)
			if err != nil {
				return nil, fmt.Errorf("anthropic provider: %w", err)
			}
			out = append(out, wrap(p))
		case "noop":
			out = append(out, provider.NewNoopProvider())
		}
	}
	if cfg.Runtime.Dev {
		out = append(out, provider.NewNoopProvider())
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no content providers configured")
	}
	return out, nil
}
