package client_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/boddenberg/ufv-debt-calculator-go/internal/domain"
	"github.com/boddenberg/ufv-debt-calculator-go/internal/infra/client"
	"github.com/boddenberg/ufv-debt-calculator-go/internal/infra/resilience"

	"go.uber.org/zap"
)

func newTestClient(url string, timeout time.Duration, retries int) *client.UFVClient {
	return client.NewUFVClient(
		&http.Client{Timeout: 5 * time.Second},
		url,
		timeout,
		resilience.NewCircuitBreaker("ufv-test", zap.NewNop()),
		resilience.Config{MaxRetries: retries, InitialBackoff: 5 * time.Millisecond},
		zap.NewNop(),
	)
}

func date(s string) time.Time {
	t, _ := time.Parse(domain.DateLayout, s)
	return t
}

func TestUFVClient_FetchIndexPair(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("cFecIni"); got != "2025-06-23" {
			t.Errorf("expected cFecIni=2025-06-23, got %s", got)
		}
		if got := r.URL.Query().Get("cFecFin"); got != "2025-11-10" {
			t.Errorf("expected cFecFin=2025-11-10, got %s", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"fecha":"2025-06-23","val_ufv":"2.73596"},
			{"fecha":"2025-09-01","val_ufv":"2.85000"},
			{"fecha":"2025-11-10","val_ufv":"2.96361"}
		]`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, time.Second, 0)
	pair, err := c.FetchIndexPair(context.Background(), date("2025-06-23"), date("2025-11-10"))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if pair.Start != 2.73596 || pair.End != 2.96361 {
		t.Errorf("expected endpoints 2.73596/2.96361, got %+v", pair)
	}
}

func TestUFVClient_FetchRecords_SingleDay(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("cFecFin") != r.URL.Query().Get("cFecIni") {
			t.Errorf("expected end date to default to start date, got %s", r.URL.RawQuery)
		}
		w.Write([]byte(`[{"fecha":"2025-01-02","valor":2.5}]`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, time.Second, 0)
	records, err := c.FetchRecords(context.Background(), date("2025-01-02"), time.Time{})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(records) != 1 || records[0].Value != "2.5" {
		t.Errorf("unexpected records %+v", records)
	}
}

func TestUFVClient_ServerErrorIsRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, time.Second, 1)
	_, err := c.FetchRecords(context.Background(), date("2025-01-01"), date("2025-06-01"))

	var iu *domain.ErrIndexUnavailable
	if !errors.As(err, &iu) {
		t.Fatalf("expected ErrIndexUnavailable, got %v", err)
	}
	var ext *domain.ErrExternalService
	if !errors.As(err, &ext) {
		t.Errorf("expected wrapped ErrExternalService, got %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("expected 2 calls, got %d", calls.Load())
	}
}

func TestUFVClient_FetchIndexPair_SingleRequest(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, time.Second, 3)
	_, err := c.FetchIndexPair(context.Background(), date("2025-01-01"), date("2025-06-01"))

	var iu *domain.ErrIndexUnavailable
	if !errors.As(err, &iu) {
		t.Fatalf("expected ErrIndexUnavailable, got %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("expected one request per calculation fetch, got %d", calls.Load())
	}
}

func TestUFVClient_ClientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, time.Second, 3)
	_, err := c.FetchIndexPair(context.Background(), date("2025-01-01"), date("2025-06-01"))

	var iu *domain.ErrIndexUnavailable
	if !errors.As(err, &iu) {
		t.Fatalf("expected ErrIndexUnavailable, got %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("expected 1 call, got %d", calls.Load())
	}
}

func TestUFVClient_MalformedPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>mantenimiento</html>`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, time.Second, 2)
	_, err := c.FetchIndexPair(context.Background(), date("2025-01-01"), date("2025-06-01"))

	var iu *domain.ErrIndexUnavailable
	if !errors.As(err, &iu) {
		t.Fatalf("expected ErrIndexUnavailable, got %v", err)
	}
	if iu.Reason != "decode" {
		t.Errorf("expected decode reason, got %q", iu.Reason)
	}
}

func TestUFVClient_EmptySeries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, time.Second, 0)
	_, err := c.FetchIndexPair(context.Background(), date("2025-01-01"), date("2025-06-01"))

	var iu *domain.ErrIndexUnavailable
	if !errors.As(err, &iu) {
		t.Fatalf("expected ErrIndexUnavailable, got %v", err)
	}
}

func TestUFVClient_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, 50*time.Millisecond, 0)
	start := time.Now()
	_, err := c.FetchIndexPair(context.Background(), date("2025-01-01"), date("2025-06-01"))

	var to *domain.ErrTimeout
	if !errors.As(err, &to) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("expected fetch to be bounded by timeout, took %s", elapsed)
	}
}

func TestUFVClient_CircuitOpens(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, time.Second, 0)
	for i := 0; i < 5; i++ {
		_, _ = c.FetchIndexPair(context.Background(), date("2025-01-01"), date("2025-06-01"))
	}

	_, err := c.FetchIndexPair(context.Background(), date("2025-01-01"), date("2025-06-01"))
	var open *domain.ErrCircuitOpen
	if !errors.As(err, &open) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
	if calls.Load() != 5 {
		t.Errorf("expected the open breaker to skip the request, got %d calls", calls.Load())
	}
}

func TestStaticSource(t *testing.T) {
	src, err := client.NewStaticSource(2.73596, 2.96361)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	pair, err := src.FetchIndexPair(context.Background(), date("2025-01-01"), date("2025-06-01"))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if pair.Start != 2.73596 || pair.End != 2.96361 {
		t.Errorf("unexpected pair %+v", pair)
	}

	records, err := src.FetchRecords(context.Background(), date("2025-01-01"), date("2025-06-01"))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(records) != 2 || records[0].Value != "2.73596" || records[1].Date != "2025-06-01" {
		t.Errorf("unexpected records %+v", records)
	}

	if _, err := client.NewStaticSource(0, 2.9); err == nil {
		t.Error("expected zero start index to be rejected")
	}
}
