package handler

import (
	"net/http"

	"github.com/boddenberg/ufv-debt-calculator-go/internal/domain"
	"github.com/boddenberg/ufv-debt-calculator-go/internal/infra/observability"
	"github.com/boddenberg/ufv-debt-calculator-go/internal/service"

	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// maxBodyBytes bounds request bodies; a batch of a few thousand tributes fits.
const maxBodyBytes = 1 << 20

func calculateDebtHandler(svc *service.DebtService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/debt/calculate")
		defer span.End()
		span.SetAttributes(
			attribute.String("request.id", middleware.GetReqID(ctx)),
			attribute.String("auth.subject", SubjectFromContext(ctx)),
		)

		var in domain.DebtRequestInput
		if err := decodeJSON(w, r, &in); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		result, err := svc.Calculate(ctx, in)
		if err != nil {
			span.RecordError(err)
			handleServiceError(w, err, logger)
			return
		}

		span.SetAttributes(attribute.String("calculation.id", result.CalculationID))
		writeJSON(w, http.StatusOK, result)
	}
}

func calculateBatchHandler(svc *service.DebtService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/debt/batch")
		defer span.End()

		var batch domain.BatchRequest
		if err := decodeJSON(w, r, &batch); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		span.SetAttributes(attribute.Int("batch.contributors", len(batch.Contributors)))

		result, err := svc.CalculateBatch(ctx, batch)
		if err != nil {
			span.RecordError(err)
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, result)
	}
}

func ufvSeriesHandler(svc *service.DebtService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/ufv")
		defer span.End()

		start := r.URL.Query().Get("start")
		end := r.URL.Query().Get("end")
		span.SetAttributes(attribute.String("ufv.start", start), attribute.String("ufv.end", end))

		series, err := svc.FetchUFV(ctx, start, end)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, series)
	}
}

func calculatorMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.GetCalculatorSnapshot())
	}
}
