package client

import (
	"context"
	"strconv"
	"time"

	"github.com/boddenberg/ufv-debt-calculator-go/internal/domain"
)

// StaticSource serves a fixed UFV pair for every date range.
// Used when the BCB feed is unreachable (offline mode).
type StaticSource struct {
	pair domain.IndexPair
}

// NewStaticSource validates the pair once so every fetch can succeed.
func NewStaticSource(start, end float64) (*StaticSource, error) {
	pair, err := domain.NewIndexPair(start, end)
	if err != nil {
		return nil, err
	}
	return &StaticSource{pair: pair}, nil
}

func (s *StaticSource) FetchIndexPair(ctx context.Context, _, _ time.Time) (domain.IndexPair, error) {
	if err := ctx.Err(); err != nil {
		return domain.IndexPair{}, &domain.ErrIndexUnavailable{Reason: "cancelled", Err: err}
	}
	return s.pair, nil
}

// FetchRecords returns the pair as a two-record series dated start and end.
func (s *StaticSource) FetchRecords(ctx context.Context, start, end time.Time) ([]domain.UFVRecord, error) {
	pair, err := s.FetchIndexPair(ctx, start, end)
	if err != nil {
		return nil, err
	}
	if end.IsZero() {
		end = start
	}
	return []domain.UFVRecord{
		{Date: start.Format(domain.DateLayout), Value: formatUFV(pair.Start)},
		{Date: end.Format(domain.DateLayout), Value: formatUFV(pair.End)},
	}, nil
}

func formatUFV(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
