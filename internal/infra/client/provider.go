package client

import (
	"fmt"
	"net/http"

	"github.com/boddenberg/ufv-debt-calculator-go/internal/config"
	"github.com/boddenberg/ufv-debt-calculator-go/internal/infra/resilience"
	"github.com/boddenberg/ufv-debt-calculator-go/internal/port"

	"go.uber.org/zap"
)

// NewProvider picks the UFV source described by cfg: the fixed offline pair
// when UFV_OFFLINE is set, the BCB feed behind a circuit breaker otherwise.
func NewProvider(cfg *config.Config, logger *zap.Logger) (port.UFVProvider, error) {
	if cfg.UFVOffline {
		logger.Info("using offline UFV source",
			zap.Float64("start", cfg.UFVOfflineStart),
			zap.Float64("end", cfg.UFVOfflineEnd),
		)
		src, err := NewStaticSource(cfg.UFVOfflineStart, cfg.UFVOfflineEnd)
		if err != nil {
			return nil, fmt.Errorf("offline UFV pair: %w", err)
		}
		return src, nil
	}

	logger.Info("using BCB UFV source", zap.String("url", cfg.UFVAPIURL))
	return newBCBClient(cfg, "bcb-ufv", cfg.MaxRetries, logger), nil
}

// NewHealthProbe builds the source behind /healthz. Online it is a BCB client
// with its own breaker and no retries, so failing probes never open the
// breaker that calculations go through.
func NewHealthProbe(cfg *config.Config, logger *zap.Logger) (port.UFVSeriesFetcher, error) {
	if cfg.UFVOffline {
		src, err := NewStaticSource(cfg.UFVOfflineStart, cfg.UFVOfflineEnd)
		if err != nil {
			return nil, fmt.Errorf("offline UFV pair: %w", err)
		}
		return src, nil
	}
	return newBCBClient(cfg, "bcb-ufv-health", 0, logger), nil
}

func newBCBClient(cfg *config.Config, breaker string, retries int, logger *zap.Logger) *UFVClient {
	resilienceCfg := resilience.Config{
		MaxRetries:     retries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}
	cb := resilience.NewCircuitBreaker(breaker, logger)
	httpClient := &http.Client{Timeout: cfg.UFVTimeout}

	return NewUFVClient(httpClient, cfg.UFVAPIURL, cfg.UFVTimeout, cb, resilienceCfg, logger)
}
