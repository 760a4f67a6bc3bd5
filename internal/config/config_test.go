package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/boddenberg/ufv-debt-calculator-go/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"PORT", "LOG_LEVEL", "UFV_TIMEOUT", "MAX_RETRIES", "UFV_OFFLINE", "UFV_OFFLINE_START", "API_JWT_SECRET", "OTEL_EXPORTER_OTLP_ENDPOINT"} {
		t.Setenv(k, "")
	}

	cfg := config.Load()

	if cfg.Port != 8080 {
		t.Errorf("expected port 8080, got %d", cfg.Port)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("expected log level info, got %q", cfg.LogLevel)
	}
	if cfg.UFVTimeout != 10*time.Second {
		t.Errorf("expected 10s UFV timeout, got %s", cfg.UFVTimeout)
	}
	if cfg.MaxRetries != 2 {
		t.Errorf("expected 2 retries, got %d", cfg.MaxRetries)
	}
	if cfg.UFVOffline {
		t.Error("expected offline mode disabled by default")
	}
	if cfg.UFVOfflineStart != 2.73596 || cfg.UFVOfflineEnd != 2.96361 {
		t.Errorf("unexpected offline pair %v/%v", cfg.UFVOfflineStart, cfg.UFVOfflineEnd)
	}
	if cfg.OTLPEndpoint != "" || cfg.APIJWTSecret != "" {
		t.Error("expected tracing and auth disabled by default")
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("UFV_TIMEOUT", "3s")
	t.Setenv("UFV_OFFLINE", "true")
	t.Setenv("UFV_OFFLINE_END", "3.1")
	t.Setenv("MAX_CONCURRENCY", "not-a-number")

	cfg := config.Load()

	if cfg.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Port)
	}
	if cfg.UFVTimeout != 3*time.Second {
		t.Errorf("expected 3s, got %s", cfg.UFVTimeout)
	}
	if !cfg.UFVOffline || cfg.UFVOfflineEnd != 3.1 {
		t.Errorf("expected offline overrides, got %v/%v", cfg.UFVOffline, cfg.UFVOfflineEnd)
	}
	if cfg.MaxConcurrency != 4 {
		t.Errorf("expected fallback concurrency 4 for a bad value, got %d", cfg.MaxConcurrency)
	}
}

func TestLoadDotEnv_DoesNotOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "# local\nLOG_LEVEL=debug\nUFV_API_URL=\"http://localhost:9999/ufv\"\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("UFV_API_URL", "")
	os.Unsetenv("UFV_API_URL")

	if err := config.LoadDotEnv(path); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	cfg := config.Load()
	if cfg.LogLevel != "warn" {
		t.Errorf("expected existing env to win, got %q", cfg.LogLevel)
	}
	if cfg.UFVAPIURL != "http://localhost:9999/ufv" {
		t.Errorf("expected .env value, got %q", cfg.UFVAPIURL)
	}
}

func TestLoadDotEnv_MissingFile(t *testing.T) {
	if err := config.LoadDotEnv(filepath.Join(t.TempDir(), "absent.env")); err == nil {
		t.Error("expected an error for a missing file")
	}
}
