// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the calculator
// from the concrete UFV source.
package port

import (
	"context"
	"time"

	"github.com/boddenberg/ufv-debt-calculator-go/internal/domain"
)

// IndexSource supplies the UFV pair for a date range.
// Implementations return *domain.ErrIndexUnavailable (possibly wrapping a
// transport error) when the pair cannot be obtained.
type IndexSource interface {
	FetchIndexPair(ctx context.Context, start, end time.Time) (domain.IndexPair, error)
}

// UFVSeriesFetcher exposes the raw UFV series for a date range.
type UFVSeriesFetcher interface {
	FetchRecords(ctx context.Context, start, end time.Time) ([]domain.UFVRecord, error)
}

// UFVProvider is a source that can serve both the pair and the raw series.
type UFVProvider interface {
	IndexSource
	UFVSeriesFetcher
}
