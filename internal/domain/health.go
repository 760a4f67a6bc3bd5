package domain

// ============================================================
// Health & Metrics API Responses
// ============================================================

// HealthStatus is returned by GET /healthz.
type HealthStatus struct {
	Status   string          `json:"status"` // healthy, degraded, unhealthy
	Services []ServiceHealth `json:"services"`
}

// ServiceHealth represents the health of an individual service.
type ServiceHealth struct {
	Name        string `json:"name"`
	Status      string `json:"status"`
	LatencyMs   int64  `json:"latencyMs"`
	LastChecked string `json:"lastChecked"`
}

// CalculatorMetrics is returned by GET /v1/metrics/calculator.
type CalculatorMetrics struct {
	TotalCalculations int64   `json:"totalCalculations"`
	Succeeded         int64   `json:"succeeded"`
	IndexUnavailable  int64   `json:"indexUnavailable"`
	Invalid           int64   `json:"invalid"`
	ErrorRate         float64 `json:"errorRate"`
	IndexFetchErrors  int64   `json:"indexFetchErrors"`
	Period            string  `json:"period"`
}

// UFVSeries is returned by GET /v1/ufv.
type UFVSeries struct {
	StartDate string      `json:"start_date"`
	EndDate   string      `json:"end_date"`
	Records   []UFVRecord `json:"records"`
}
