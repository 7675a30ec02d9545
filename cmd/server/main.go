package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/randcorp/docscope/internal/appctx"
	"github.com/randcorp/docscope/internal/catalog"
	"github.com/randcorp/docscope/internal/config"
	delivery "github.com/randcorp/docscope/internal/delivery/http"
	"github.com/randcorp/docscope/internal/domain"
	"github.com/randcorp/docscope/internal/executor"
	"github.com/randcorp/docscope/internal/ingest"
	"github.com/randcorp/docscope/internal/middleware"
	"github.com/randcorp/docscope/internal/planner"
	"github.com/randcorp/docscope/internal/repository/postgres"
	"github.com/randcorp/docscope/pkg/arxiv"
	"github.com/randcorp/docscope/pkg/oaipmh"
	"github.com/randcorp/docscope/pkg/openalex"
	"github.com/randcorp/docscope/pkg/semanticscholar"
)

func main() {
	log := zerolog.New(zerolog.NewConsoleWriter()).With().Timestamp().Logger()
	log.Info().Msg("docscope query engine starting")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	level, err := zerolog.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		log.Fatal().Err(err).Str("log_level", cfg.Server.LogLevel).Msg("invalid LOG_LEVEL")
	}
	log = log.Level(level)

	poolCfg, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to parse DATABASE_URL")
	}
	poolCfg.MaxConns = cfg.Database.MaxConns

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		cancel()
		log.Fatal().Err(err).Msg("failed to create database pool")
	}
	if err := pool.Ping(ctx); err != nil {
		cancel()
		log.Fatal().Err(err).Msg("failed to reach database")
	}
	cancel()
	defer pool.Close()
	log.Info().Msg("connected to postgres")

	if err := postgres.EnsureSchema(context.Background(), pool, cfg.Embedding.Dim); err != nil {
		log.Fatal().Err(err).Msg("failed to ensure schema")
	}

	cat := catalog.New()

	embedder := executor.NewEmbeddingClient(
		cfg.Embedding.ServiceURL, cfg.Embedding.APIKey, cfg.Embedding.Model, cfg.Embedding.Dim,
		cfg.Embedding.RequestTimeout, cfg.Embedding.CacheTTL, cfg.Embedding.CacheMaxItems,
	)

	// appCtx collects the process-wide dependencies built above into one
	// bundle; downstream construction below reads from it rather than from
	// the loose local variables directly, so the bundle stays the single
	// source of truth for what main wires together.
	appCtx := appctx.New(cfg, pool, cat, log, embedder)

	plannerCfg := planner.Config{
		EnabledSources:             appCtx.Config.Planner.EnabledSources,
		DefaultSimilarityThreshold: appCtx.Config.Planner.DefaultSimilarityThreshold,
		DefaultLimit:               appCtx.Config.Planner.DefaultLimit,
		MaxLimit:                   appCtx.Config.Planner.MaxLimit,
		CTECapDefault:              appCtx.Config.Planner.CTECapDefault,
		CTECapMax:                  appCtx.Config.Planner.CTECapMax,
	}

	exec := executor.New(
		appCtx.Pool, appCtx.Catalog, appCtx.Embedder, plannerCfg,
		appCtx.Config.Database.StatementTimeout.Milliseconds(),
		appCtx.Config.Database.CountStatementTimeout.Milliseconds(),
	)

	paperRepo := postgres.NewPaperRepository(appCtx.Pool)
	enrichmentRepo := postgres.NewEnrichmentRepository(appCtx.Pool)

	ingestPipeline := ingest.New(paperRepo, enrichmentRepo, appCtx.Embedder, 500, appCtx.Log)
	ingestionTrigger := delivery.NewIngestionTrigger(
		ingestPipeline,
		arxiv.NewClient(),
		openalex.NewClient(os.Getenv("OPENALEX_POLITE_EMAIL")),
		oaipmh.NewClient(),
		semanticscholar.NewClient(),
	)

	adminAuth := middleware.NewAdminAuth(appCtx.Config.Admin.JWTSecret, appCtx.Config.Admin.PasswordHash)

	handler := delivery.NewHandler(exec, paperRepo, appCtx.Catalog, adminAuth, ingestionTrigger, appCtx.Log, enabledSources(appCtx.Config))
	router := delivery.NewRouter(handler, adminAuth, appCtx.Config.CORS.AllowedOrigins)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}
	log.Info().Msg("stopped gracefully")
}

// enabledSources converts cfg.Planner.EnabledSources (ENABLED_SOURCES, a
// comma list) into the domain.Source values GET /stats iterates over.
func enabledSources(cfg *config.Config) []domain.Source {
	out := make([]domain.Source, 0, len(cfg.Planner.EnabledSources))
	for _, s := range cfg.Planner.EnabledSources {
		out = append(out, domain.Source(s))
	}
	return out
}
