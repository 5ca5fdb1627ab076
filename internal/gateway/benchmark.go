package gateway

import (
	"context"
	"fmt"
	"strings"
	"time"

	"portpulse/internal/models"
)

const DefaultBenchmarkSymbol = "SPY"

// IndexBenchmark prices a single index on requested days using any history gateway.
// A day the index did not trade comes back as a nil price.
type IndexBenchmark struct {
	symbol  string
	history HistoryGateway
}

func NewIndexBenchmark(symbol string, history HistoryGateway) *IndexBenchmark {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		symbol = DefaultBenchmarkSymbol
	}
	return &IndexBenchmark{symbol: symbol, history: history}
}

var _ BenchmarkGateway = (*IndexBenchmark)(nil)

func (b *IndexBenchmark) Symbol() string { return b.symbol }

// Benchmark returns one price per requested day, in request order. The daily price is
// the close, falling back to the open.
func (b *IndexBenchmark) Benchmark(ctx context.Context, dates []time.Time) (models.BenchmarkSeries, error) {
	out := models.BenchmarkSeries{
		Dates:  make([]time.Time, len(dates)),
		Prices: make([]*float64, len(dates)),
	}
	if len(dates) == 0 {
		return out, nil
	}
	from, to := dates[0], dates[0]
	for i, d := range dates {
		out.Dates[i] = models.Day(d)
		if d.Before(from) {
			from = d
		}
		if d.After(to) {
			to = d
		}
	}

	bars, err := b.history.History(ctx, b.symbol, from, to)
	if err != nil {
		return models.BenchmarkSeries{}, fmt.Errorf("benchmark %s: %w", b.symbol, err)
	}

	byDay := make(map[string]float64, len(bars))
	for _, bar := range bars {
		switch {
		case bar.Close != nil:
			byDay[bar.Date.Format(models.DateFormat)] = bar.Close.InexactFloat64()
		case bar.Open != nil:
			byDay[bar.Date.Format(models.DateFormat)] = bar.Open.InexactFloat64()
		}
	}
	for i, d := range out.Dates {
		if p, ok := byDay[d.Format(models.DateFormat)]; ok {
			p := p
			out.Prices[i] = &p
		}
	}
	return out, nil
}
