package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/boddenberg/ufv-debt-calculator-go/internal/domain"
	"github.com/boddenberg/ufv-debt-calculator-go/internal/infra/observability"
	"github.com/boddenberg/ufv-debt-calculator-go/internal/port"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("service/debt")

// DebtService exposes debt calculations to the HTTP layer and the batch CLI.
// Every calculation runs on a fresh DebtCalculator, so requests share no state.
type DebtService struct {
	provider       port.UFVProvider
	probe          port.UFVSeriesFetcher
	indexTimeout   time.Duration
	maxConcurrency int
	metrics        *observability.Metrics
	logger         *zap.Logger
}

// NewDebtService creates the debt service with all dependencies injected.
func NewDebtService(
	provider port.UFVProvider,
	indexTimeout time.Duration,
	maxConcurrency int,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *DebtService {
	return &DebtService{
		provider:       provider,
		indexTimeout:   indexTimeout,
		maxConcurrency: maxConcurrency,
		metrics:        metrics,
		logger:         logger,
	}
}

// WithHealthProbe routes CheckIndexSource to p instead of the provider.
func (s *DebtService) WithHealthProbe(p port.UFVSeriesFetcher) *DebtService {
	s.probe = p
	return s
}

// Calculate validates the input and computes one debt report.
func (s *DebtService) Calculate(ctx context.Context, in domain.DebtRequestInput) (*domain.CalculationResult, error) {
	ctx, span := tracer.Start(ctx, "DebtService.Calculate")
	defer span.End()

	start := time.Now()
	defer func() {
		s.metrics.RecordCalculationDuration("calculate", time.Since(start))
	}()

	req, err := in.ToRequest()
	if err != nil {
		s.metrics.IncrCalculation(observability.OutcomeInvalid)
		return nil, err
	}
	span.SetAttributes(
		attribute.String("debt.start_date", in.StartDate),
		attribute.String("debt.end_date", in.EndDate),
	)

	calc, err := NewDebtCalculator(req, s.provider, s.indexTimeout, s.logger)
	if err != nil {
		s.metrics.IncrCalculation(observability.OutcomeInvalid)
		return nil, err
	}

	report, err := calc.Calculate(ctx)
	if err != nil {
		s.recordFailure(err)
		span.RecordError(err)
		return nil, err
	}
	s.metrics.IncrCalculation(observability.OutcomeSuccess)

	result := &domain.CalculationResult{
		CalculationID: uuid.New().String(),
		Report:        report,
		Index:         calc.Index(),
		History:       calc.History(),
	}

	s.logger.Info("debt calculated",
		zap.String("calculation_id", result.CalculationID),
		zap.Float64("DT", report.DT),
		zap.Duration("latency", time.Since(start)),
		traceField(ctx),
	)
	return result, nil
}

// FetchUFV returns the raw UFV series between two YYYY-MM-DD dates.
// An empty end date means a single-day query.
func (s *DebtService) FetchUFV(ctx context.Context, startDate, endDate string) (*domain.UFVSeries, error) {
	ctx, span := tracer.Start(ctx, "DebtService.FetchUFV")
	defer span.End()

	start, err := time.Parse(domain.DateLayout, startDate)
	if err != nil {
		return nil, &domain.ErrValidation{Field: "start", Message: "must be a YYYY-MM-DD date"}
	}
	end := start
	if endDate != "" {
		if end, err = time.Parse(domain.DateLayout, endDate); err != nil {
			return nil, &domain.ErrValidation{Field: "end", Message: "must be a YYYY-MM-DD date"}
		}
		if end.Before(start) {
			return nil, &domain.ErrValidation{Field: "end", Message: "must not be before start"}
		}
	}

	records, err := s.provider.FetchRecords(ctx, start, end)
	if err != nil {
		s.metrics.IncrIndexFetchError(fetchErrorReason(err))
		return nil, err
	}

	return &domain.UFVSeries{
		StartDate: start.Format(domain.DateLayout),
		EndDate:   end.Format(domain.DateLayout),
		Records:   records,
	}, nil
}

// CheckIndexSource runs a single-day query against the health probe, or the
// provider when no probe is set.
func (s *DebtService) CheckIndexSource(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.indexTimeout)
	defer cancel()

	var src port.UFVSeriesFetcher = s.provider
	if s.probe != nil {
		src = s.probe
	}
	today := time.Now().UTC().Truncate(24 * time.Hour)
	if _, err := src.FetchRecords(ctx, today, today); err != nil {
		return fmt.Errorf("ufv probe: %w", err)
	}
	return nil
}

// traceField ties a log line to the active span, if any.
func traceField(ctx context.Context) zap.Field {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.HasTraceID() {
		return zap.Skip()
	}
	return zap.String("trace_id", sc.TraceID().String())
}

func (s *DebtService) recordFailure(err error) {
	var validation *domain.ErrValidation
	if errors.As(err, &validation) {
		s.metrics.IncrCalculation(observability.OutcomeInvalid)
		return
	}
	s.metrics.IncrCalculation(observability.OutcomeIndexUnavailable)
	s.metrics.IncrIndexFetchError(fetchErrorReason(err))
}

// fetchErrorReason maps an index error to a bounded metric label.
func fetchErrorReason(err error) string {
	var circuitOpen *domain.ErrCircuitOpen
	var timeout *domain.ErrTimeout
	var external *domain.ErrExternalService

	switch {
	case errors.As(err, &circuitOpen):
		return "circuit_open"
	case errors.As(err, &timeout):
		return "timeout"
	case errors.As(err, &external):
		return "external"
	default:
		return "invalid_data"
	}
}
