// Command ufv-debt-batch computes the omitted-tax debts of every contributor
// listed in a YAML file and prints the contributor tree plus a JSON report.
//
//	ufv-debt-batch -file contributors.yaml [-out report.json]
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/boddenberg/ufv-debt-calculator-go/internal/config"
	"github.com/boddenberg/ufv-debt-calculator-go/internal/domain"
	"github.com/boddenberg/ufv-debt-calculator-go/internal/infra/client"
	"github.com/boddenberg/ufv-debt-calculator-go/internal/infra/observability"
	"github.com/boddenberg/ufv-debt-calculator-go/internal/service"

	"go.uber.org/zap"
	"gopkg.in/yaml.v2"
)

func main() {
	file := flag.String("file", "contributors.yaml", "YAML file with the contributors to process")
	out := flag.String("out", "", "write the JSON report here instead of stdout")
	flag.Parse()

	_ = config.LoadDotEnv(".env")
	cfg := config.Load()

	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	batch, err := loadBatch(*file)
	if err != nil {
		logger.Fatal("failed to read batch file", zap.String("file", *file), zap.Error(err))
	}

	provider, err := client.NewProvider(cfg, logger)
	if err != nil {
		logger.Fatal("failed to build UFV source", zap.Error(err))
	}
	svc := service.NewDebtService(provider, cfg.UFVTimeout, cfg.MaxConcurrency, observability.NewMetrics(), logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result, err := svc.CalculateBatch(ctx, batch)
	if err != nil {
		logger.Fatal("batch failed", zap.Error(err))
	}

	fmt.Fprint(os.Stderr, result.Tree)

	if *out == "" {
		err = writeReport(os.Stdout, result)
	} else {
		err = writeReportFile(*out, result)
	}
	if err != nil {
		logger.Fatal("failed to write report", zap.String("out", *out), zap.Error(err))
	}
}

func loadBatch(path string) (domain.BatchRequest, error) {
	var batch domain.BatchRequest
	data, err := os.ReadFile(path)
	if err != nil {
		return batch, err
	}
	if err := yaml.UnmarshalStrict(data, &batch); err != nil {
		return batch, fmt.Errorf("parsing %s: %w", path, err)
	}
	return batch, nil
}

// writeReportFile creates path and writes the report; a failed close is
// reported like a failed write since it may lose buffered data.
func writeReportFile(path string, result *domain.BatchResult) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := writeReport(f, result); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeReport(w io.Writer, result *domain.BatchResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
