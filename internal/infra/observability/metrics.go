package observability

import (
	"time"

	"github.com/boddenberg/ufv-debt-calculator-go/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Calculation outcomes used as the "outcome" label.
const (
	OutcomeSuccess          = "success"
	OutcomeIndexUnavailable = "index_unavailable"
	OutcomeInvalid          = "invalid"
)

// Metrics holds all Prometheus metrics for the calculator.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	calculationDuration *prometheus.HistogramVec
	calculationsTotal   *prometheus.CounterVec
	indexFetchErrors    *prometheus.CounterVec
	batchContributors   prometheus.Counter
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// calculator metrics in it. A private registry lets tests call NewMetrics
// repeatedly without duplicate-collector panics.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		calculationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ufvdebt_calculation_duration_seconds",
				Help:    "Duration of debt calculations, UFV fetch included.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		calculationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ufvdebt_calculations_total",
				Help: "Total debt calculations by outcome.",
			},
			[]string{"outcome"},
		),
		indexFetchErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ufvdebt_index_fetch_errors_total",
				Help: "Total UFV fetch failures by reason.",
			},
			[]string{"reason"},
		),
		batchContributors: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "ufvdebt_batch_contributors_total",
				Help: "Total contributors processed in batches.",
			},
		),
	}
}

// RecordCalculationDuration records the duration of an operation.
func (m *Metrics) RecordCalculationDuration(operation string, d time.Duration) {
	m.calculationDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrCalculation increments the calculation counter for an outcome.
func (m *Metrics) IncrCalculation(outcome string) {
	m.calculationsTotal.WithLabelValues(outcome).Inc()
}

// IncrIndexFetchError increments the UFV fetch error counter.
func (m *Metrics) IncrIndexFetchError(reason string) {
	m.indexFetchErrors.WithLabelValues(reason).Inc()
}

// AddBatchContributors counts contributors handled by a batch.
func (m *Metrics) AddBatchContributors(n int) {
	m.batchContributors.Add(float64(n))
}

// GetCalculatorSnapshot returns the cumulative counters for
// GET /v1/metrics/calculator.
func (m *Metrics) GetCalculatorSnapshot() *domain.CalculatorMetrics {
	succeeded := getCounterValue(m.calculationsTotal, OutcomeSuccess)
	unavailable := getCounterValue(m.calculationsTotal, OutcomeIndexUnavailable)
	invalid := getCounterValue(m.calculationsTotal, OutcomeInvalid)
	total := succeeded + unavailable + invalid

	errorRate := float64(0)
	if total > 0 {
		errorRate = (unavailable + invalid) / total
	}

	return &domain.CalculatorMetrics{
		TotalCalculations: int64(total),
		Succeeded:         int64(succeeded),
		IndexUnavailable:  int64(unavailable),
		Invalid:           int64(invalid),
		ErrorRate:         errorRate,
		IndexFetchErrors:  int64(sumCounterVec(m.indexFetchErrors)),
		Period:            "all_time",
	}
}

// getCounterValue extracts the current float64 value from a CounterVec for a given label.
func getCounterValue(cv *prometheus.CounterVec, label string) float64 {
	counter := cv.WithLabelValues(label)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}

// sumCounterVec adds up every label combination of a CounterVec.
func sumCounterVec(cv *prometheus.CounterVec) float64 {
	ch := make(chan prometheus.Metric, 16)
	go func() {
		cv.Collect(ch)
		close(ch)
	}()

	var total float64
	for metric := range ch {
		m := &dto.Metric{}
		if err := metric.Write(m); err != nil {
			continue
		}
		if m.Counter != nil {
			total += m.Counter.GetValue()
		}
	}
	return total
}
