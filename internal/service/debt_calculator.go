package service

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/boddenberg/ufv-debt-calculator-go/internal/domain"
	"github.com/boddenberg/ufv-debt-calculator-go/internal/port"
	"github.com/boddenberg/ufv-debt-calculator-go/internal/structures"

	"go.uber.org/zap"
)

// DefaultIndexTimeout bounds one UFV fetch when no timeout is configured.
const DefaultIndexTimeout = 10 * time.Second

// CalcState is the position of a DebtCalculator in its state machine.
type CalcState string

const (
	StateInitialized      CalcState = "initialized"
	StateIndexFetched     CalcState = "index_fetched"
	StateComputed         CalcState = "computed"
	StateIndexFetchFailed CalcState = "index_fetch_failed"
	StateComputeFailed    CalcState = "compute_failed"
)

// Labels of the debt breakdown, as they appear in the breakdown tree.
const (
	LabelTotal            = "Deuda Total"
	LabelValueMaintenance = "Mantenimiento de Valor"
	LabelInterest         = "Interés"
	LabelPenalty          = "Sanción"
)

// DebtCalculator computes the debt of one request:
//
//	initialized → index_fetched → computed
//	initialized → index_fetch_failed
//
// Each instance owns its history, pending queue and breakdown state; it is
// not safe for concurrent use. Reusing an instance accumulates history.
type DebtCalculator struct {
	req     domain.DebtRequest
	source  port.IndexSource
	timeout time.Duration
	logger  *zap.Logger

	state   CalcState
	index   domain.IndexPair
	report  *domain.DebtReport
	history structures.Stack[string]
	pending structures.Queue[string]
}

// NewDebtCalculator creates a calculator for req. The request must come from
// domain.NewDebtRequest; a zero request or nil source is a construction error.
// timeout <= 0 selects DefaultIndexTimeout.
func NewDebtCalculator(req domain.DebtRequest, source port.IndexSource, timeout time.Duration, logger *zap.Logger) (*DebtCalculator, error) {
	if req.IsZero() {
		return nil, &domain.ErrValidation{Field: "request", Message: "must be built with NewDebtRequest"}
	}
	if source == nil {
		return nil, &domain.ErrValidation{Field: "index_source", Message: "must not be nil"}
	}
	if timeout <= 0 {
		timeout = DefaultIndexTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DebtCalculator{
		req:     req,
		source:  source,
		timeout: timeout,
		logger:  logger,
		state:   StateInitialized,
	}, nil
}

// Calculate fetches the UFV pair and computes MV, then I, then S, and their
// total. Index failures come back as *domain.ErrIndexUnavailable together
// with a zero report, components that overflow float64 as
// *domain.ErrValidation. Calculate never panics on a misbehaving source.
func (c *DebtCalculator) Calculate(ctx context.Context) (domain.DebtReport, error) {
	c.state = StateInitialized
	c.report = nil

	pair, err := c.fetchIndex(ctx)
	if err != nil {
		c.state = StateIndexFetchFailed
		c.record(fmt.Sprintf("UFV fetch failed: %v", err))
		c.logger.Warn("debt calculation aborted: UFV unavailable",
			zap.String("start_date", c.req.StartDate().Format(domain.DateLayout)),
			zap.String("end_date", c.req.EndDate().Format(domain.DateLayout)),
			zap.Error(err),
		)
		return domain.DebtReport{}, err
	}
	c.state = StateIndexFetched
	c.index = pair
	c.record(fmt.Sprintf("UFV obtained: start=%g end=%g", pair.Start, pair.End))

	p := c.req.Principal()

	mv := ValueMaintenance(p, pair.Start, pair.End)
	c.record(fmt.Sprintf("%s calculated: %.2f", LabelValueMaintenance, mv))

	interest := Interest(p, mv, c.req.AnnualRate(), c.req.ElapsedDays())
	c.record(fmt.Sprintf("%s calculated: %.2f", LabelInterest, interest))

	penalty := Penalty(p, c.req.PenaltyPercent())
	c.record(fmt.Sprintf("%s calculated: %.2f", LabelPenalty, penalty))

	if !finite(mv, interest, penalty, p+mv+interest+penalty) {
		err := &domain.ErrValidation{Field: "principal", Message: "result out of range"}
		c.state = StateComputeFailed
		c.record(fmt.Sprintf("calculation failed: %v", err))
		c.logger.Warn("debt calculation overflowed",
			zap.Float64("principal", p),
			zap.Float64("annual_rate", c.req.AnnualRate()),
			zap.Int("elapsed_days", c.req.ElapsedDays()),
		)
		return domain.DebtReport{}, err
	}

	report := domain.NewDebtReport(p, mv, interest, penalty)
	c.record(fmt.Sprintf("%s calculated: %.2f", LabelTotal, report.DT))

	c.state = StateComputed
	c.report = &report

	c.logger.Debug("debt calculated",
		zap.Float64("TO", report.TO),
		zap.Float64("MV", report.MV),
		zap.Float64("I", report.I),
		zap.Float64("S", report.S),
		zap.Float64("DT", report.DT),
	)
	return report, nil
}

type fetchResult struct {
	pair domain.IndexPair
	err  error
}

// fetchIndex calls the source under the calculator timeout. The call runs in
// its own goroutine so a source that ignores ctx still cannot block past the
// deadline.
func (c *DebtCalculator) fetchIndex(ctx context.Context) (domain.IndexPair, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	done := make(chan fetchResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fetchResult{err: fmt.Errorf("index source panicked: %v", r)}
			}
		}()
		pair, err := c.source.FetchIndexPair(ctx, c.req.StartDate(), c.req.EndDate())
		done <- fetchResult{pair: pair, err: err}
	}()

	var res fetchResult
	select {
	case res = <-done:
	case <-ctx.Done():
		res = fetchResult{err: ctx.Err()}
	}

	if res.err != nil {
		return domain.IndexPair{}, asIndexUnavailable(res.err)
	}

	// A zero index-at-start would divide by zero in ValueMaintenance.
	pair, err := domain.NewIndexPair(res.pair.Start, res.pair.End)
	if err != nil {
		return domain.IndexPair{}, err
	}
	return pair, nil
}

func finite(values ...float64) bool {
	for _, v := range values {
		if math.IsInf(v, 0) || math.IsNaN(v) {
			return false
		}
	}
	return true
}

func asIndexUnavailable(err error) error {
	var iu *domain.ErrIndexUnavailable
	if errors.As(err, &iu) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &domain.ErrIndexUnavailable{Reason: "timeout", Err: &domain.ErrTimeout{Operation: "ufv fetch"}}
	}
	return &domain.ErrIndexUnavailable{Reason: "source error", Err: err}
}

func (c *DebtCalculator) record(entry string) {
	c.history.Push(entry)
	c.logger.Debug("calculation step", zap.String("step", entry))
}

// State returns the state reached by the last Calculate call.
func (c *DebtCalculator) State() CalcState { return c.state }

// Index returns the UFV pair of the last successful fetch.
func (c *DebtCalculator) Index() domain.IndexPair { return c.index }

// Request returns the validated request.
func (c *DebtCalculator) Request() domain.DebtRequest { return c.req }

// History returns every recorded step, most recent first.
func (c *DebtCalculator) History() []string { return c.history.Items() }

// Enqueue adds a pending task label (e.g. a review to run later).
func (c *DebtCalculator) Enqueue(task string) {
	c.pending.Enqueue(task)
}

// Pending returns queued tasks, oldest first.
func (c *DebtCalculator) Pending() []string { return c.pending.Items() }

// ProcessQueue drains pending tasks in FIFO order, recording each in the
// history, and returns them in processing order.
func (c *DebtCalculator) ProcessQueue() []string {
	processed := make([]string, 0, c.pending.Len())
	for {
		task, ok := c.pending.Dequeue()
		if !ok {
			return processed
		}
		c.record("processed: " + task)
		processed = append(processed, task)
	}
}

type breakdownItem struct {
	label  string
	amount float64
}

// BreakdownTree renders the last report as a tree keyed by component label.
// It returns "" when the last Calculate did not reach the computed state.
func (c *DebtCalculator) BreakdownTree() string {
	if c.state != StateComputed || c.report == nil {
		return ""
	}
	r := c.report

	tree := structures.NewTree(func(a, b breakdownItem) int { return cmp.Compare(a.label, b.label) })
	for _, item := range []breakdownItem{
		{LabelTotal, r.DT},
		{LabelValueMaintenance, r.MV},
		{LabelInterest, r.I},
		{LabelPenalty, r.S},
	} {
		tree.Insert(item)
	}
	return tree.Render(func(i breakdownItem) string {
		return fmt.Sprintf("%s: %.2f", i.label, i.amount)
	})
}
