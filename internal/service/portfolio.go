package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"portpulse/internal/engine"
	"portpulse/internal/gateway"
	"portpulse/internal/ledger"
	"portpulse/internal/models"

	"github.com/sirupsen/logrus"
)

// DefaultWindowDays is the trailing number of business days valued per request.
const DefaultWindowDays = 90

var (
	// ErrDataUnavailable marks request-level failures where no result can be produced.
	ErrDataUnavailable      = errors.New("data unavailable")
	ErrAllQuotesFailed      = fmt.Errorf("%w: every quote fetch failed", ErrDataUnavailable)
	ErrBenchmarkUnavailable = fmt.Errorf("%w: benchmark fetch failed", ErrDataUnavailable)
	ErrInvalidDates         = errors.New("invalid date list")
)

// Snapshot is everything computed for one request.
type Snapshot struct {
	AsOf            time.Time
	BenchmarkSymbol string
	ChangePercent   float64
	Weights         []engine.WeightedPosition
	Holdings        []engine.Holding
	Timeline        engine.Series
	Aligned         engine.Aligned
	Performance     engine.Performance
}

type PortfolioService struct {
	ledger          *ledger.Ledger
	quotes          gateway.QuoteGateway
	history         gateway.HistoryGateway
	benchmark       gateway.BenchmarkGateway
	benchmarkSymbol string
	windowDays      int
	log             *logrus.Logger
}

func NewPortfolioService(lg *ledger.Ledger, quotes gateway.QuoteGateway, history gateway.HistoryGateway, bench gateway.BenchmarkGateway, windowDays int, log *logrus.Logger) *PortfolioService {
	if windowDays <= 0 {
		windowDays = DefaultWindowDays
	}
	s := &PortfolioService{
		ledger:     lg,
		quotes:     quotes,
		history:    history,
		benchmark:  bench,
		windowDays: windowDays,
		log:        log,
	}
	if named, ok := bench.(interface{ Symbol() string }); ok {
		s.benchmarkSymbol = named.Symbol()
	}
	return s
}

func (s *PortfolioService) Lots() []models.Lot { return s.ledger.Lots() }

// Snapshot values the portfolio over the trailing window ending today (UTC).
func (s *PortfolioService) Snapshot(ctx context.Context) (Snapshot, error) {
	return s.SnapshotAt(ctx, time.Now().UTC())
}

type fetched struct {
	quotes    map[string]models.Quote
	history   map[string]engine.PriceHistory
	benchmark models.BenchmarkSeries
	benchErr  error
}

// SnapshotAt values the portfolio over the window ending at asOf.
func (s *PortfolioService) SnapshotAt(ctx context.Context, asOf time.Time) (Snapshot, error) {
	window := engine.BusinessDays(asOf, s.windowDays)
	symbols := s.ledger.Symbols()

	f := s.fetch(ctx, symbols, window)
	if len(symbols) > 0 && len(f.quotes) == 0 {
		return Snapshot{}, ErrAllQuotesFailed
	}
	if f.benchErr != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrBenchmarkUnavailable, f.benchErr)
	}

	positions := s.ledger.Aggregate()
	weights := engine.Weights(positions, f.quotes)

	timeline := engine.Timeline(s.ledger.Lots(), window, f.history)
	aligned, err := engine.Align(timeline, f.benchmark)
	if err != nil {
		return Snapshot{}, fmt.Errorf("align benchmark: %w", err)
	}

	snap := Snapshot{
		AsOf:            models.Day(asOf),
		BenchmarkSymbol: s.benchmarkSymbol,
		ChangePercent:   engine.OneDayReturn(weights, f.quotes),
		Weights:         weights,
		Holdings:        engine.Holdings(positions, f.quotes, weights),
		Timeline:        timeline,
		Aligned:         aligned,
		Performance:     engine.Compare(aligned),
	}
	s.log.WithFields(logrus.Fields{
		"symbols":      len(symbols),
		"quoted":       len(f.quotes),
		"window_days":  len(window),
		"aligned_days": len(aligned.Dates),
	}).Debug("portfolio snapshot computed")
	return snap, nil
}

// fetch runs one quote and one history call per symbol plus the benchmark call
// concurrently and waits for all of them. Each goroutine owns one result slot.
// Per-symbol failures are logged and leave the slot empty.
func (s *PortfolioService) fetch(ctx context.Context, symbols []string, window []time.Time) fetched {
	quotes := make([]*models.Quote, len(symbols))
	bars := make([][]models.PriceBar, len(symbols))
	var (
		bench    models.BenchmarkSeries
		benchErr error
		wg       sync.WaitGroup
	)

	for i, sym := range symbols {
		i, sym := i, sym
		wg.Add(2)
		go func() {
			defer wg.Done()
			q, err := s.quotes.Quote(ctx, sym)
			if err != nil {
				s.log.WithField("symbol", sym).Warnf("quote unavailable: %v", err)
				return
			}
			quotes[i] = &q
		}()
		go func() {
			defer wg.Done()
			from, to := s.historySpan(sym, window)
			b, err := s.history.History(ctx, sym, from, to)
			if err != nil {
				s.log.WithField("symbol", sym).Warnf("history unavailable: %v", err)
				return
			}
			bars[i] = b
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		bench, benchErr = s.benchmark.Benchmark(ctx, window)
	}()
	wg.Wait()

	out := fetched{
		quotes:    make(map[string]models.Quote, len(symbols)),
		history:   make(map[string]engine.PriceHistory, len(symbols)),
		benchmark: bench,
		benchErr:  benchErr,
	}
	for i, sym := range symbols {
		if quotes[i] != nil {
			out.quotes[sym] = *quotes[i]
		}
		out.history[sym] = engine.NewPriceHistory(bars[i])
	}
	return out
}

// historySpan covers the window, reaching back to the symbol's first purchase when
// that is earlier.
func (s *PortfolioService) historySpan(symbol string, window []time.Time) (time.Time, time.Time) {
	from, to := window[0], window[len(window)-1]
	if first, ok := s.ledger.Earliest(symbol); ok && first.Before(from) {
		from = first
	}
	return from, to
}

// BenchmarkPrices prices the benchmark on an explicit list of ISO days.
func (s *PortfolioService) BenchmarkPrices(ctx context.Context, dayISO []string) (models.BenchmarkSeries, error) {
	if len(dayISO) == 0 {
		return models.BenchmarkSeries{}, fmt.Errorf("%w: no dates", ErrInvalidDates)
	}
	days := make([]time.Time, len(dayISO))
	for i, iso := range dayISO {
		d, err := models.ParseDay(iso)
		if err != nil {
			return models.BenchmarkSeries{}, fmt.Errorf("%w: %q", ErrInvalidDates, iso)
		}
		days[i] = d
	}
	series, err := s.benchmark.Benchmark(ctx, days)
	if err != nil {
		return models.BenchmarkSeries{}, fmt.Errorf("%w: %v", ErrBenchmarkUnavailable, err)
	}
	return series, nil
}

func (s *PortfolioService) BenchmarkSymbol() string { return s.benchmarkSymbol }
