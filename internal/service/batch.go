package service

import (
	"context"
	"fmt"
	"time"

	"github.com/boddenberg/ufv-debt-calculator-go/internal/domain"
	"github.com/boddenberg/ufv-debt-calculator-go/internal/infra/observability"
	"github.com/boddenberg/ufv-debt-calculator-go/internal/infra/resilience"
	"github.com/boddenberg/ufv-debt-calculator-go/internal/structures"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// CalculateBatch computes the debts of many contributors.
//
// Contributors are queued in arrival order, filed into a tree keyed by
// (paternal surname, maternal surname, name) and reported in pre-order.
// Each tribute runs on its own calculator; contributors are computed
// concurrently behind a bulkhead. A failing tribute only marks that tribute.
func (s *DebtService) CalculateBatch(ctx context.Context, batch domain.BatchRequest) (*domain.BatchResult, error) {
	ctx, span := tracer.Start(ctx, "DebtService.CalculateBatch")
	defer span.End()
	span.SetAttributes(attribute.Int("batch.contributors", len(batch.Contributors)))

	start := time.Now()
	defer func() {
		s.metrics.RecordCalculationDuration("batch", time.Since(start))
	}()

	if err := validateBatch(batch); err != nil {
		return nil, err
	}

	var intake structures.Queue[domain.Contributor]
	for _, c := range batch.Contributors {
		intake.Enqueue(c)
	}

	tree := structures.NewTree(domain.CompareContributors)
	for !intake.IsEmpty() {
		c, _ := intake.Dequeue()
		tree.Insert(c)
	}
	order := tree.PreOrder()

	results := make([]domain.ContributorResult, len(order))
	bulkhead := resilience.NewBulkhead(s.maxConcurrency)
	g, gCtx := errgroup.WithContext(ctx)
	for i, c := range order {
		i, c := i, c
		g.Go(func() error {
			if err := bulkhead.Acquire(gCtx); err != nil {
				return err
			}
			defer bulkhead.Release()

			results[i] = s.processContributor(gCtx, c)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("batch aborted: %w", err)
	}
	s.metrics.AddBatchContributors(len(order))

	var history structures.Stack[string]
	for _, r := range results {
		history.Push(fmt.Sprintf("%s processed at %s - DT: %.2f (%d failed)",
			r.Name, time.Now().UTC().Format(time.RFC3339), r.Total.DT, r.Failed))
	}

	result := &domain.BatchResult{
		BatchID:      uuid.New().String(),
		Contributors: results,
		Tree:         tree.Render(domain.Contributor.FullName),
		History:      history.Items(),
	}

	s.logger.Info("batch processed",
		zap.String("batch_id", result.BatchID),
		zap.Int("contributors", len(results)),
		zap.Duration("latency", time.Since(start)),
		traceField(ctx),
	)
	return result, nil
}

func validateBatch(batch domain.BatchRequest) error {
	if len(batch.Contributors) == 0 {
		return &domain.ErrValidation{Field: "contributors", Message: "at least one contributor is required"}
	}
	for i, c := range batch.Contributors {
		if c.Name == "" {
			return &domain.ErrValidation{Field: fmt.Sprintf("contributors[%d].name", i), Message: "is required"}
		}
		if len(c.Tributes) == 0 {
			return &domain.ErrValidation{Field: fmt.Sprintf("contributors[%d].tributes", i), Message: "at least one tribute is required"}
		}
	}
	return nil
}

func (s *DebtService) processContributor(ctx context.Context, c domain.Contributor) domain.ContributorResult {
	res := domain.ContributorResult{
		Name:     c.FullName(),
		Tributes: make([]domain.TributeResult, 0, len(c.Tributes)),
	}

	var to, mv, interest, penalty float64
	for i, in := range c.Tributes {
		label := in.Label
		if label == "" {
			label = fmt.Sprintf("Tributo %d", i+1)
		}

		tr, report := s.processTribute(ctx, label, in)
		if report != nil && !finite(to+report.TO+mv+report.MV+interest+report.I+penalty+report.S) {
			err := &domain.ErrValidation{Field: "tributes", Message: "contributor total out of range"}
			tr, report = domain.TributeResult{Label: label, Error: err.Error()}, nil
		}
		if report == nil {
			res.Failed++
		} else {
			to += report.TO
			mv += report.MV
			interest += report.I
			penalty += report.S
		}
		res.Tributes = append(res.Tributes, tr)
	}
	res.Total = domain.NewDebtReport(to, mv, interest, penalty)
	return res
}

func (s *DebtService) processTribute(ctx context.Context, label string, in domain.DebtRequestInput) (domain.TributeResult, *domain.DebtReport) {
	req, err := in.ToRequest()
	if err != nil {
		s.metrics.IncrCalculation(observability.OutcomeInvalid)
		return domain.TributeResult{Label: label, Error: err.Error()}, nil
	}

	calc, err := NewDebtCalculator(req, s.provider, s.indexTimeout, s.logger)
	if err != nil {
		s.metrics.IncrCalculation(observability.OutcomeInvalid)
		return domain.TributeResult{Label: label, Error: err.Error()}, nil
	}

	report, err := calc.Calculate(ctx)
	if err != nil {
		s.recordFailure(err)
		return domain.TributeResult{Label: label, Error: err.Error()}, nil
	}
	s.metrics.IncrCalculation(observability.OutcomeSuccess)

	index := calc.Index()
	return domain.TributeResult{Label: label, Report: &report, Index: &index}, &report
}
