// Package gateway defines the market-data collaborators the engine consumes and
// provides HTTP-backed implementations of them.
package gateway

import (
	"context"
	"errors"
	"time"

	"portpulse/internal/models"
)

var ErrNoData = errors.New("no market data")

// QuoteGateway returns the current price and one-day change percent of a symbol.
type QuoteGateway interface {
	Quote(ctx context.Context, symbol string) (models.Quote, error)
}

// HistoryGateway returns daily bars for symbol between from and to, both inclusive.
type HistoryGateway interface {
	History(ctx context.Context, symbol string, from, to time.Time) ([]models.PriceBar, error)
}

// BenchmarkGateway prices a reference index on an explicit list of days.
type BenchmarkGateway interface {
	Benchmark(ctx context.Context, dates []time.Time) (models.BenchmarkSeries, error)
}
