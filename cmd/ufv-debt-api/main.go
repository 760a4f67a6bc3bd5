package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/boddenberg/ufv-debt-calculator-go/internal/config"
	"github.com/boddenberg/ufv-debt-calculator-go/internal/handler"
	"github.com/boddenberg/ufv-debt-calculator-go/internal/infra/client"
	"github.com/boddenberg/ufv-debt-calculator-go/internal/infra/observability"
	"github.com/boddenberg/ufv-debt-calculator-go/internal/service"

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
		zap.Bool("ufv_offline", cfg.UFVOffline),
		zap.Duration("ufv_timeout", cfg.UFVTimeout),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
		zap.Int("max_concurrency", cfg.MaxConcurrency),
		zap.Bool("auth_enabled", cfg.APIJWTSecret != ""),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "ufv-debt-api")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- UFV source ---
	provider, err := client.NewProvider(cfg, logger)
	if err != nil {
		logger.Fatal("failed to build UFV source", zap.Error(err))
	}
	probe, err := client.NewHealthProbe(cfg, logger)
	if err != nil {
		logger.Fatal("failed to build UFV health probe", zap.Error(err))
	}

	// --- Services ---
	debtSvc := service.NewDebtService(provider, cfg.UFVTimeout, cfg.MaxConcurrency, metrics, logger).
		WithHealthProbe(probe)

	// --- Router ---
	router := handler.NewRouter(debtSvc, metrics, cfg.APIJWTSecret, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 2*cfg.UFVTimeout + 10*time.Second,
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
