package service

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"portpulse/internal/engine"
	"portpulse/internal/gateway"
	"portpulse/internal/ledger"
	"portpulse/internal/models"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// asOf is a Friday; a 5-day window runs Mon 2025-07-07 .. Fri 2025-07-11.
var asOf = time.Date(2025, 7, 11, 20, 0, 0, 0, time.UTC)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func day(s string) time.Time {
	d, _ := models.ParseDay(s)
	return d
}

type fakeQuotes struct {
	mu     sync.Mutex
	calls  map[string]int
	quotes map[string]models.Quote
}

func (f *fakeQuotes) Quote(_ context.Context, symbol string) (models.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[symbol]++
	q, ok := f.quotes[symbol]
	if !ok {
		return models.Quote{}, errors.New("gateway down")
	}
	return q, nil
}

// fakeHistory serves a constant open price per symbol on every weekday.
type fakeHistory struct {
	mu     sync.Mutex
	prices map[string]float64
	spans  map[string][2]time.Time
}

func (f *fakeHistory) History(_ context.Context, symbol string, from, to time.Time) ([]models.PriceBar, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.spans == nil {
		f.spans = map[string][2]time.Time{}
	}
	f.spans[symbol] = [2]time.Time{from, to}
	p, ok := f.prices[symbol]
	if !ok {
		return nil, errors.New("no history")
	}
	bars := []models.PriceBar{}
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		if !engine.IsBusinessDay(d) {
			continue
		}
		v := decimal.NewFromFloat(p)
		bars = append(bars, models.PriceBar{Date: d, Open: &v})
	}
	return bars, nil
}

func quote(sym string, price, chg float64) models.Quote {
	return models.Quote{Symbol: sym, Price: decimal.NewFromFloat(price), ChangePercent: chg}
}

func newLedger(t *testing.T, lots ...models.Lot) *ledger.Ledger {
	lg, err := ledger.New(lots)
	require.NoError(t, err)
	return lg
}

func lot(sym string, shares, price float64, on string) models.Lot {
	return models.Lot{Symbol: sym, Shares: decimal.NewFromFloat(shares), BuyPrice: decimal.NewFromFloat(price), PurchaseDate: day(on)}
}

func benchHistory(prices map[string]float64) *fakeHistory { return &fakeHistory{prices: prices} }

func TestSnapshot_ScenarioA(t *testing.T) {
	lg := newLedger(t, lot("AAPL", 2, 200, "2025-07-07"))
	q := &fakeQuotes{quotes: map[string]models.Quote{"AAPL": quote("AAPL", 210, 1.25)}}
	h := &fakeHistory{prices: map[string]float64{"AAPL": 210}}
	b := gateway.NewIndexBenchmark("SPY", benchHistory(map[string]float64{"SPY": 600}))

	svc := NewPortfolioService(lg, q, h, b, 5, quietLogger())
	snap, err := svc.SnapshotAt(context.Background(), asOf)
	require.NoError(t, err)

	require.Len(t, snap.Aligned.Portfolio, 5)
	for _, v := range snap.Aligned.Portfolio {
		assert.Equal(t, "420.00", v.StringFixed(2))
	}
	assert.Equal(t, 1.25, snap.ChangePercent)
	assert.Equal(t, 0.0, snap.Performance.PortfolioReturn)
	assert.Equal(t, 0.0, snap.Performance.Alpha)
	assert.Equal(t, "SPY", snap.BenchmarkSymbol)
	require.Len(t, snap.Holdings, 1)
	assert.InDelta(t, 5.0, snap.Holdings[0].TotalReturn, 1e-9)
}

func TestSnapshot_FansOutOncePerSymbol(t *testing.T) {
	lg := newLedger(t,
		lot("AAPL", 2, 207, "2025-04-14"),
		lot("AAPL", 4, 176, "2025-04-07"),
		lot("NVDA", 7, 88, "2025-07-09"),
	)
	q := &fakeQuotes{quotes: map[string]models.Quote{
		"AAPL": quote("AAPL", 210, 1),
		"NVDA": quote("NVDA", 100, 3),
	}}
	h := &fakeHistory{prices: map[string]float64{"AAPL": 200, "NVDA": 90}}
	b := gateway.NewIndexBenchmark("SPY", benchHistory(map[string]float64{"SPY": 600}))

	svc := NewPortfolioService(lg, q, h, b, 5, quietLogger())
	snap, err := svc.SnapshotAt(context.Background(), asOf)
	require.NoError(t, err)

	assert.Equal(t, map[string]int{"AAPL": 1, "NVDA": 1}, q.calls)
	// AAPL history reaches back to its first lot; NVDA only needs the window.
	assert.Equal(t, day("2025-04-07"), h.spans["AAPL"][0])
	assert.Equal(t, day("2025-07-07"), h.spans["NVDA"][0])
	assert.Equal(t, day("2025-07-11"), h.spans["NVDA"][1])

	sum := 0.0
	for _, w := range snap.Weights {
		sum += w.Weight
	}
	assert.InDelta(t, 1.0, sum, 1e-6)
	assert.InDelta(t, (1260.0*1+700.0*3)/1960.0, snap.ChangePercent, 1e-9)

	// NVDA bought Wed 07-09: 616 of reserved cash before, 7*90 of stock after.
	got := make([]string, len(snap.Aligned.Portfolio))
	for i, v := range snap.Aligned.Portfolio {
		got[i] = v.StringFixed(2)
	}
	assert.Equal(t, []string{"1816.00", "1816.00", "1830.00", "1830.00", "1830.00"}, got)
}

func TestSnapshot_OneSymbolFailingDegrades(t *testing.T) {
	lg := newLedger(t, lot("AAPL", 1, 100, "2025-01-02"), lot("DEAD", 10, 5, "2025-01-02"))
	q := &fakeQuotes{quotes: map[string]models.Quote{"AAPL": quote("AAPL", 110, 2)}}
	h := &fakeHistory{prices: map[string]float64{"AAPL": 110}}
	b := gateway.NewIndexBenchmark("SPY", benchHistory(map[string]float64{"SPY": 600}))

	snap, err := NewPortfolioService(lg, q, h, b, 5, quietLogger()).SnapshotAt(context.Background(), asOf)
	require.NoError(t, err)

	require.Len(t, snap.Weights, 2)
	assert.Equal(t, 1.0, snap.Weights[0].Weight)
	assert.Equal(t, 0.0, snap.Weights[1].Weight)
	assert.Equal(t, 2.0, snap.ChangePercent)
	for _, v := range snap.Aligned.Portfolio {
		assert.Equal(t, "110.00", v.StringFixed(2))
	}
}

// Scenario E.
func TestSnapshot_AllQuotesFail(t *testing.T) {
	lg := newLedger(t, lot("AAPL", 1, 100, "2025-01-02"), lot("NVDA", 1, 100, "2025-01-02"))
	q := &fakeQuotes{}
	h := &fakeHistory{prices: map[string]float64{"AAPL": 110}}
	b := gateway.NewIndexBenchmark("SPY", benchHistory(map[string]float64{"SPY": 600}))

	_, err := NewPortfolioService(lg, q, h, b, 5, quietLogger()).SnapshotAt(context.Background(), asOf)
	assert.ErrorIs(t, err, ErrAllQuotesFailed)
	assert.ErrorIs(t, err, ErrDataUnavailable)
}

func TestSnapshot_BenchmarkFailure(t *testing.T) {
	lg := newLedger(t, lot("AAPL", 1, 100, "2025-01-02"))
	q := &fakeQuotes{quotes: map[string]models.Quote{"AAPL": quote("AAPL", 110, 2)}}
	h := &fakeHistory{prices: map[string]float64{"AAPL": 110}}
	b := gateway.NewIndexBenchmark("SPY", benchHistory(nil))

	_, err := NewPortfolioService(lg, q, h, b, 5, quietLogger()).SnapshotAt(context.Background(), asOf)
	assert.ErrorIs(t, err, ErrBenchmarkUnavailable)
	assert.ErrorIs(t, err, ErrDataUnavailable)
}

type holidayBenchmark struct{ holiday time.Time }

func (h holidayBenchmark) Benchmark(_ context.Context, dates []time.Time) (models.BenchmarkSeries, error) {
	out := models.BenchmarkSeries{Dates: dates, Prices: make([]*float64, len(dates))}
	for i, d := range dates {
		if d.Equal(h.holiday) {
			continue
		}
		p := 500.0 + float64(i)
		out.Prices[i] = &p
	}
	return out, nil
}

// Scenario C.
func TestSnapshot_HolidayDroppedFromBothSeries(t *testing.T) {
	lg := newLedger(t, lot("AAPL", 1, 100, "2025-01-02"))
	q := &fakeQuotes{quotes: map[string]models.Quote{"AAPL": quote("AAPL", 110, 2)}}
	h := &fakeHistory{prices: map[string]float64{"AAPL": 110}}

	svc := NewPortfolioService(lg, q, h, holidayBenchmark{holiday: day("2025-07-09")}, 5, quietLogger())
	snap, err := svc.SnapshotAt(context.Background(), asOf)
	require.NoError(t, err)

	assert.Len(t, snap.Timeline.Values, 5)
	assert.Len(t, snap.Aligned.Portfolio, 4)
	assert.Len(t, snap.Aligned.Benchmark, 4)
	assert.Equal(t, []string{"2025-07-07", "2025-07-08", "2025-07-10", "2025-07-11"}, engine.ISODates(snap.Aligned.Dates))
	assert.Equal(t, []float64{500, 501, 503, 504}, snap.Aligned.Benchmark)
	first, last := 500.0, 504.0
	assert.InDelta(t, last/first-1, snap.Performance.BenchmarkReturn, 1e-12)
	assert.Equal(t, snap.Performance.PortfolioReturn-snap.Performance.BenchmarkReturn, snap.Performance.Alpha)
	assert.Equal(t, 0.0, snap.Performance.PortfolioReturn)
	assert.Empty(t, svc.BenchmarkSymbol())
}

func TestSnapshot_EmptyLedger(t *testing.T) {
	b := gateway.NewIndexBenchmark("SPY", benchHistory(map[string]float64{"SPY": 600}))
	snap, err := NewPortfolioService(newLedger(t), &fakeQuotes{}, &fakeHistory{}, b, 0, quietLogger()).SnapshotAt(context.Background(), asOf)
	require.NoError(t, err)
	assert.Len(t, snap.Timeline.Values, DefaultWindowDays)
	assert.Empty(t, snap.Holdings)
	assert.Equal(t, 0.0, snap.ChangePercent)
}

func TestBenchmarkPrices(t *testing.T) {
	b := gateway.NewIndexBenchmark("SPY", benchHistory(map[string]float64{"SPY": 600}))
	svc := NewPortfolioService(newLedger(t), &fakeQuotes{}, &fakeHistory{}, b, 5, quietLogger())

	s, err := svc.BenchmarkPrices(context.Background(), []string{"2025-07-04", "2025-07-05", "2025-07-07"})
	require.NoError(t, err)
	require.Len(t, s.Prices, 3)
	assert.Equal(t, 600.0, *s.Prices[0])
	assert.Nil(t, s.Prices[1])

	_, err = svc.BenchmarkPrices(context.Background(), []string{"07/04/2025"})
	assert.ErrorIs(t, err, ErrInvalidDates)
	_, err = svc.BenchmarkPrices(context.Background(), nil)
	assert.ErrorIs(t, err, ErrInvalidDates)
}
