package integration_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/boddenberg/ufv-debt-calculator-go/internal/config"
	"github.com/boddenberg/ufv-debt-calculator-go/internal/domain"
	"github.com/boddenberg/ufv-debt-calculator-go/internal/handler"
	"github.com/boddenberg/ufv-debt-calculator-go/internal/infra/client"
	"github.com/boddenberg/ufv-debt-calculator-go/internal/infra/observability"
	"github.com/boddenberg/ufv-debt-calculator-go/internal/service"

	"go.uber.org/zap"
)

// bcbSeries answers like the BCB chart endpoint for any range in the fixture.
func bcbSeries(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch r.URL.Query().Get("cFecIni") {
	case "2025-06-23":
		w.Write([]byte(`[
			{"fecha":"2025-06-23","val_ufv":"2.73596"},
			{"fecha":"2025-08-15","val_ufv":"2.81002"},
			{"fecha":"2025-11-10","val_ufv":"2.96361"}
		]`))
	default:
		w.Write([]byte(`[]`))
	}
}

func newRouter(t *testing.T, bcbURL string) (http.Handler, *observability.Metrics) {
	t.Helper()
	logger := zap.NewNop()
	cfg := &config.Config{
		UFVAPIURL:      bcbURL,
		UFVTimeout:     2 * time.Second,
		MaxRetries:     0,
		InitialBackoff: 5 * time.Millisecond,
		MaxConcurrency: 4,
	}

	provider, err := client.NewProvider(cfg, logger)
	if err != nil {
		t.Fatalf("building provider: %v", err)
	}
	metrics := observability.NewMetrics()
	svc := service.NewDebtService(provider, cfg.UFVTimeout, cfg.MaxConcurrency, metrics, logger)
	return handler.NewRouter(svc, metrics, "", logger), metrics
}

func post(router http.Handler, target string, payload any) *httptest.ResponseRecorder {
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(http.MethodPost, target, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

var fixture = domain.DebtRequestInput{
	Principal:      500,
	StartDate:      "2025-06-23",
	EndDate:        "2025-11-10",
	AnnualRate:     6,
	ElapsedDays:    140,
	PenaltyPercent: 12,
}

// TestIntegration_FullFlow runs a calculation against a fake BCB feed.
func TestIntegration_FullFlow(t *testing.T) {
	bcb := httptest.NewServer(http.HandlerFunc(bcbSeries))
	defer bcb.Close()

	router, metrics := newRouter(t, bcb.URL)

	rec := post(router, "/v1/debt/calculate", fixture)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d. Body: %s", rec.Code, rec.Body.String())
	}

	var result domain.CalculationResult
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	expected := domain.DebtReport{TO: 500, MV: 41.6, I: 1263.74, S: 60, DT: 1865.34}
	if result.Report != expected {
		t.Errorf("expected %+v, got %+v", expected, result.Report)
	}
	if result.Index != (domain.IndexPair{Start: 2.73596, End: 2.96361}) {
		t.Errorf("expected first and last UFV of the series, got %+v", result.Index)
	}
	if s := metrics.GetCalculatorSnapshot(); s.Succeeded != 1 {
		t.Errorf("expected 1 success, got %+v", s)
	}
}

// TestIntegration_EmptySeries reports an unavailable index when the feed has no data.
func TestIntegration_EmptySeries(t *testing.T) {
	bcb := httptest.NewServer(http.HandlerFunc(bcbSeries))
	defer bcb.Close()

	router, metrics := newRouter(t, bcb.URL)

	in := fixture
	in.StartDate = "2030-01-01"
	in.EndDate = "2030-02-01"

	rec := post(router, "/v1/debt/calculate", in)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d. Body: %s", rec.Code, rec.Body.String())
	}

	var body map[string]any
	json.NewDecoder(rec.Body).Decode(&body)
	if _, ok := body["report"]; ok {
		t.Error("expected no report for an unavailable index")
	}
	if s := metrics.GetCalculatorSnapshot(); s.IndexUnavailable != 1 {
		t.Errorf("expected 1 index failure, got %+v", s)
	}
}

// TestIntegration_CircuitOpens checks that a failing feed trips the breaker.
func TestIntegration_CircuitOpens(t *testing.T) {
	var calls atomic.Int32
	bcb := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer bcb.Close()

	router, _ := newRouter(t, bcb.URL)

	for i := 0; i < 5; i++ {
		if rec := post(router, "/v1/debt/calculate", fixture); rec.Code != http.StatusBadGateway {
			t.Fatalf("request %d: expected 502, got %d", i, rec.Code)
		}
	}

	rec := post(router, "/v1/debt/calculate", fixture)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 once the circuit is open, got %d", rec.Code)
	}
	if got := calls.Load(); got != 5 {
		t.Errorf("expected the open circuit to stop upstream calls at 5, got %d", got)
	}
}

// TestIntegration_Batch processes contributors through the HTTP API.
func TestIntegration_Batch(t *testing.T) {
	bcb := httptest.NewServer(http.HandlerFunc(bcbSeries))
	defer bcb.Close()

	router, _ := newRouter(t, bcb.URL)

	rec := post(router, "/v1/debt/batch", domain.BatchRequest{Contributors: []domain.Contributor{
		{Name: "Rosa", PaternalSurname: "Mamani", Tributes: []domain.DebtRequestInput{fixture}},
		{Name: "Pedro", PaternalSurname: "Alanoca", Tributes: []domain.DebtRequestInput{fixture}},
		{Name: "Eva", PaternalSurname: "Torrez", Tributes: []domain.DebtRequestInput{fixture}},
	}})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d. Body: %s", rec.Code, rec.Body.String())
	}

	var result domain.BatchResult
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	want := "Rosa Mamani\n" +
		"├── Pedro Alanoca\n" +
		"└── Eva Torrez\n"
	if result.Tree != want {
		t.Errorf("unexpected tree:\n%s\nwant:\n%s", result.Tree, want)
	}
	for _, c := range result.Contributors {
		if c.Total.DT != 1865.34 || c.Failed != 0 {
			t.Errorf("unexpected result for %s: %+v", c.Name, c)
		}
	}
}
