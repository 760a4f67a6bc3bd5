package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/boddenberg/ufv-debt-calculator-go/internal/domain"
	"github.com/boddenberg/ufv-debt-calculator-go/internal/infra/resilience"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("client")

// DefaultUFVURL is the public BCB endpoint serving the daily UFV series.
const DefaultUFVURL = "https://www.bcb.gob.bo/librerias/charts/ufv.php"

const ufvService = "bcb-ufv"

// UFVClient fetches UFV values from the Banco Central de Bolivia feed.
type UFVClient struct {
	httpClient *http.Client
	baseURL    string
	timeout    time.Duration
	cb         *gobreaker.CircuitBreaker
	cfg        resilience.Config
	logger     *zap.Logger
}

// NewUFVClient creates a new UFVClient. timeout bounds one fetch, retries
// included; zero means no bound beyond the caller's context.
func NewUFVClient(httpClient *http.Client, baseURL string, timeout time.Duration, cb *gobreaker.CircuitBreaker, cfg resilience.Config, logger *zap.Logger) *UFVClient {
	return &UFVClient{
		httpClient: httpClient,
		baseURL:    baseURL,
		timeout:    timeout,
		cb:         cb,
		cfg:        cfg,
		logger:     logger,
	}
}

// FetchIndexPair returns the first and last UFV of the series for [start, end].
// It makes a single request per call: a calculation never retries the feed,
// so a failure surfaces as soon as the breaker or the server reports it.
func (c *UFVClient) FetchIndexPair(ctx context.Context, start, end time.Time) (domain.IndexPair, error) {
	once := c.cfg
	once.MaxRetries = 0
	records, err := c.fetch(ctx, start, end, once)
	if err != nil {
		return domain.IndexPair{}, err
	}
	return domain.IndexPairFromRecords(records)
}

// FetchRecords returns the raw UFV series for [start, end] with retry,
// circuit breaker, and tracing. A zero end date means a single-day query.
// Every failure is reported as *domain.ErrIndexUnavailable.
func (c *UFVClient) FetchRecords(ctx context.Context, start, end time.Time) ([]domain.UFVRecord, error) {
	return c.fetch(ctx, start, end, c.cfg)
}

func (c *UFVClient) fetch(ctx context.Context, start, end time.Time, retry resilience.Config) ([]domain.UFVRecord, error) {
	if end.IsZero() {
		end = start
	}
	from, to := start.Format(domain.DateLayout), end.Format(domain.DateLayout)

	ctx, span := tracer.Start(ctx, "UFVClient.FetchRecords")
	defer span.End()
	span.SetAttributes(
		attribute.String("ufv.start", from),
		attribute.String("ufv.end", to),
	)

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	result, err := c.cb.Execute(func() (any, error) {
		var records []domain.UFVRecord
		innerErr := resilience.RetryWithBackoff(ctx, retry, func() error {
			var err error
			records, err = c.get(ctx, from, to)
			return err
		})
		if innerErr != nil {
			return nil, innerErr
		}
		return records, nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "ufv fetch failed")
		c.logger.Warn("ufv fetch failed",
			zap.String("start", from),
			zap.String("end", to),
			zap.Error(err),
		)
		return nil, c.mapError(ctx, err)
	}

	records := result.([]domain.UFVRecord)
	span.SetAttributes(attribute.Int("ufv.records", len(records)))
	return records, nil
}

func (c *UFVClient) get(ctx context.Context, from, to string) ([]domain.UFVRecord, error) {
	q := url.Values{}
	q.Set("cFecIni", from)
	q.Set("cFecFin", to)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, resilience.Permanent(err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		statusErr := &statusError{code: resp.StatusCode}
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return nil, resilience.Permanent(statusErr)
		}
		return nil, statusErr
	}

	var records []domain.UFVRecord
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, resilience.Permanent(&decodeError{err: err})
	}
	return records, nil
}

func (c *UFVClient) mapError(ctx context.Context, err error) error {
	switch {
	case resilience.IsOpen(err):
		return &domain.ErrIndexUnavailable{Reason: "circuit open", Err: &domain.ErrCircuitOpen{Service: ufvService}}
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return &domain.ErrIndexUnavailable{Reason: "timeout", Err: &domain.ErrTimeout{Operation: "ufv fetch"}}
	}

	var se *statusError
	if errors.As(err, &se) {
		return &domain.ErrIndexUnavailable{Reason: "status", Err: &domain.ErrExternalService{Service: ufvService, Err: err}}
	}
	var de *decodeError
	if errors.As(err, &de) {
		return &domain.ErrIndexUnavailable{Reason: "decode", Err: &domain.ErrExternalService{Service: ufvService, Err: err}}
	}
	return &domain.ErrIndexUnavailable{Reason: "transport", Err: &domain.ErrExternalService{Service: ufvService, Err: err}}
}

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("UFV API returned status %d", e.code)
}

type decodeError struct {
	err error
}

func (e *decodeError) Error() string {
	return fmt.Sprintf("malformed UFV payload: %v", e.err)
}

func (e *decodeError) Unwrap() error { return e.err }
