package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/boddenberg/doc-import-bfa-go/internal/config"
	"github.com/boddenberg/doc-import-bfa-go/internal/domain"
	"github.com/boddenberg/doc-import-bfa-go/internal/handler"
	"github.com/boddenberg/doc-import-bfa-go/internal/heuristic"
	"github.com/boddenberg/doc-import-bfa-go/internal/infra/cache"
	"github.com/boddenberg/doc-import-bfa-go/internal/infra/extractor"
	"github.com/boddenberg/doc-import-bfa-go/internal/infra/observability"
	"github.com/boddenberg/doc-import-bfa-go/internal/infra/postgres"
	"github.com/boddenberg/doc-import-bfa-go/internal/infra/resilience"
	"github.com/boddenberg/doc-import-bfa-go/internal/infra/supabase"
	"github.com/boddenberg/doc-import-bfa-go/internal/port"
	"github.com/boddenberg/doc-import-bfa-go/internal/service"

	"go.uber.org/zap"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("gemini_model", cfg.GeminiModel),
		zap.Bool("use_postgres", cfg.UsePostgres),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Duration("session_ttl", cfg.SessionTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
		zap.Int("ano_minimo", cfg.AnoMinimo),
		zap.Int("ano_maximo", cfg.AnoMaximo),
	)

	ctx := context.Background()

	// --- Tracing ---
	shutdownTracer := observability.InitTracer(ctx, cfg.OTLPEndpoint, "doc-import-bfa", logger)
	defer shutdownTracer(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Resilience ---
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}

	// --- Data backend: Supabase (default) ou Postgres direto ---
	var refSource port.ReferenceDataSource
	var ledgerStore port.LedgerStore

	if cfg.UsePostgres && cfg.DatabaseURL != "" {
		logger.Info("using Postgres as data backend")
		pgStore, err := postgres.NewStore(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			logger.Fatal("failed to connect to Postgres", zap.Error(err))
		}
		defer pgStore.Close()
		refSource = pgStore
		ledgerStore = pgStore
	} else {
		if cfg.SupabaseURL == "" {
			logger.Fatal("no data backend configured: set SUPABASE_URL or USE_POSTGRES with DATABASE_URL")
		}
		logger.Info("using Supabase as data backend",
			zap.String("supabase_url", cfg.SupabaseURL),
		)
		httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
		supabaseClient := supabase.NewClient(
			httpClient,
			cfg.SupabaseURL,
			cfg.SupabaseAnonKey,
			cfg.SupabaseServiceKey,
			resilience.NewCircuitBreaker("supabase"),
			resilienceCfg,
			logger,
		)
		refSource = supabaseClient
		ledgerStore = supabaseClient
	}

	// --- Extractor ---
	gemini, err := extractor.NewGemini(ctx, cfg.GeminiModel,
		resilience.NewCircuitBreaker("gemini"), resilienceCfg, logger)
	if err != nil {
		logger.Fatal("failed to create document extractor", zap.Error(err))
	}

	// --- Services ---
	refCache := cache.New[domain.ReferenceData](cfg.CacheTTL)
	loader := service.NewReferenceLoader(refSource, refCache, metrics, logger)

	window := heuristic.YearWindow{Min: cfg.AnoMinimo, Max: cfg.AnoMaximo}
	mgr := service.NewManager(loader, gemini, ledgerStore, window, cfg.SessionTTL, metrics, logger)

	// --- Router ---
	router := handler.NewRouter(mgr, metrics, handler.RouterConfig{
		JWTSecret: cfg.JWTSecret,
		DevAuth:   cfg.DevAuth,
	}, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second, // extração multimodal pode passar de 30s
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
