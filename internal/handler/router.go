package handler

import (
	"net/http"
	"time"

	"github.com/boddenberg/ufv-debt-calculator-go/internal/domain"
	"github.com/boddenberg/ufv-debt-calculator-go/internal/infra/observability"
	"github.com/boddenberg/ufv-debt-calculator-go/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// slowRequest is well above a healthy BCB round trip.
const slowRequest = 3 * time.Second

// NewRouter creates the HTTP router with all routes and middleware.
// When jwtSecret is non-empty every /v1 route requires an HS256 bearer token.
func NewRouter(svc *service.DebtService, metrics *observability.Metrics, jwtSecret string, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.TracingMiddleware)
	r.Use(observability.RequestLogger(logger, slowRequest))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(svc, logger))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", metricsHandler(metrics))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {
		if jwtSecret != "" {
			r.Use(BearerAuthMiddleware(jwtSecret, logger))
		}

		r.Post("/debt/calculate", calculateDebtHandler(svc, logger))
		r.Post("/debt/batch", calculateBatchHandler(svc, logger))
		r.Get("/ufv", ufvSeriesHandler(svc, logger))
		r.Get("/metrics/calculator", calculatorMetricsHandler(metrics))
	})

	return r
}

func metricsHandler(metrics *observability.Metrics) http.Handler {
	if metrics == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})
}

func healthzHandler(svc *service.DebtService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now().Format(time.RFC3339)

		services := []domain.ServiceHealth{
			{Name: "ufv-debt-api", Status: "healthy", LatencyMs: 0, LastChecked: now},
		}

		if svc != nil {
			start := time.Now()
			err := svc.CheckIndexSource(r.Context())
			status := "healthy"
			if err != nil {
				logger.Warn("ufv source probe failed", zap.Error(err))
				status = "degraded"
			}
			services = append(services, domain.ServiceHealth{
				Name: "ufv-source", Status: status,
				LatencyMs: time.Since(start).Milliseconds(), LastChecked: now,
			})
		}

		overallStatus := "healthy"
		for _, s := range services {
			if s.Status == "unhealthy" {
				overallStatus = "unhealthy"
				break
			}
			if s.Status == "degraded" {
				overallStatus = "degraded"
			}
		}

		writeJSON(w, http.StatusOK, domain.HealthStatus{
			Status:   overallStatus,
			Services: services,
		})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}
