package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/evolutiehub/hub-api/internal/config"
	"github.com/evolutiehub/hub-api/internal/domain"
	"github.com/evolutiehub/hub-api/internal/handler"
	"github.com/evolutiehub/hub-api/internal/infra/cache"
	"github.com/evolutiehub/hub-api/internal/infra/observability"
	"github.com/evolutiehub/hub-api/internal/infra/receita"
	"github.com/evolutiehub/hub-api/internal/infra/resilience"
	"github.com/evolutiehub/hub-api/internal/infra/supabase"
	"github.com/evolutiehub/hub-api/internal/service"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = godotenv.Load()

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
		zap.Strings("allowed_origins", cfg.AllowedOrigins),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "evolutie-hub-api")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Resilience ---
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}
	cb := resilience.NewCircuitBreaker("supabase")
	registryCB := resilience.NewCircuitBreaker("receita")

	// --- Clients ---
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	if cfg.SupabaseURL == "" || cfg.SupabaseServiceKey == "" || cfg.SupabaseJWTSecret == "" {
		logger.Fatal("Supabase is not configured; set SUPABASE_URL, SUPABASE_SERVICE_ROLE_KEY and SUPABASE_JWT_SECRET")
	}

	supabaseClient := supabase.NewClient(
		httpClient,
		cfg.SupabaseURL,
		cfg.SupabaseAnonKey,
		cfg.SupabaseServiceKey,
		cb,
		resilienceCfg,
		logger,
	)
	authClient := supabase.NewAuthClient(httpClient, cfg.SupabaseURL, cfg.SupabaseAnonKey, logger)
	registryClient := receita.NewClient(httpClient, cfg.RegistryAPIURL, registryCB, resilienceCfg)

	// --- Services ---
	portfolioSvc := service.NewPortfolioService(supabaseClient, metrics, logger)
	portfolioSvc.Subscribe(func(userID string, companies []domain.Company) {
		logger.Debug("portfolio replaced",
			zap.String("user_id", userID),
			zap.Int("companies", len(companies)),
		)
	})

	sessionSvc := service.NewSessionService(authClient, portfolioSvc, cfg.SupabaseJWTSecret, logger)

	registryCache := cache.New[*domain.RegistryCompany](cfg.CacheTTL)
	registrySvc := service.NewRegistryService(registryClient, registryCache, metrics, logger)

	// --- Router ---
	router := handler.NewRouter(portfolioSvc, sessionSvc, registrySvc, metrics, cfg.AllowedOrigins, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
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
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
