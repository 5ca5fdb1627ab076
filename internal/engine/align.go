package engine

import (
	"errors"
	"fmt"
	"time"

	"portpulse/internal/models"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat"
)

var ErrMisaligned = errors.New("portfolio and benchmark series are not on the same dates")

// Aligned holds the two series restricted to days on which the benchmark traded.
// All three slices always have the same length.
type Aligned struct {
	Dates     []time.Time
	Portfolio []decimal.Decimal
	Benchmark []float64
}

// Align drops every index where the benchmark has no price from both series.
// The inputs must share the same date index.
func Align(portfolio Series, benchmark models.BenchmarkSeries) (Aligned, error) {
	n := len(portfolio.Dates)
	if len(portfolio.Values) != n || len(benchmark.Dates) != n || len(benchmark.Prices) != n {
		return Aligned{}, fmt.Errorf("%w: %d portfolio days, %d benchmark days", ErrMisaligned, n, len(benchmark.Dates))
	}
	out := Aligned{
		Dates:     make([]time.Time, 0, n),
		Portfolio: make([]decimal.Decimal, 0, n),
		Benchmark: make([]float64, 0, n),
	}
	for i := 0; i < n; i++ {
		if !models.Day(portfolio.Dates[i]).Equal(models.Day(benchmark.Dates[i])) {
			return Aligned{}, fmt.Errorf("%w: index %d is %s vs %s", ErrMisaligned, i,
				portfolio.Dates[i].Format(models.DateFormat), benchmark.Dates[i].Format(models.DateFormat))
		}
		if benchmark.Prices[i] == nil {
			continue
		}
		out.Dates = append(out.Dates, portfolio.Dates[i])
		out.Portfolio = append(out.Portfolio, portfolio.Values[i])
		out.Benchmark = append(out.Benchmark, *benchmark.Prices[i])
	}
	return out, nil
}

// PortfolioFloats returns the aligned portfolio values as float64.
func (a Aligned) PortfolioFloats() []float64 { return Floats(a.Portfolio) }

// Floats converts decimals to float64.
func Floats(ds []decimal.Decimal) []float64 {
	out := make([]float64, len(ds))
	for i, d := range ds {
		out[i] = d.InexactFloat64()
	}
	return out
}

// WindowReturn is last/first - 1, or 0 when the series is empty or starts at or below zero.
func WindowReturn(values []float64) float64 {
	if len(values) == 0 || values[0] <= 0 {
		return 0
	}
	return values[len(values)-1]/values[0] - 1
}

// DailyReturns returns the day-over-day fractional change; a non-positive prior day yields 0.
func DailyReturns(values []float64) []float64 {
	if len(values) < 2 {
		return []float64{}
	}
	out := make([]float64, len(values)-1)
	for i := 1; i < len(values); i++ {
		if values[i-1] > 0 {
			out[i-1] = values[i]/values[i-1] - 1
		}
	}
	return out
}

// Volatility is the sample standard deviation of the daily returns of values.
func Volatility(values []float64) float64 {
	r := DailyReturns(values)
	if len(r) < 2 {
		return 0
	}
	return stat.StdDev(r, nil)
}

// Performance compares the aligned portfolio against its benchmark over the window.
type Performance struct {
	PortfolioReturn     float64 `json:"portfolioReturn"`
	BenchmarkReturn     float64 `json:"benchmarkReturn"`
	Alpha               float64 `json:"alpha"`
	PortfolioVolatility float64 `json:"portfolioVolatility"`
	BenchmarkVolatility float64 `json:"benchmarkVolatility"`
}

func Compare(a Aligned) Performance {
	pf := a.PortfolioFloats()
	p := Performance{
		PortfolioReturn:     WindowReturn(pf),
		BenchmarkReturn:     WindowReturn(a.Benchmark),
		PortfolioVolatility: Volatility(pf),
		BenchmarkVolatility: Volatility(a.Benchmark),
	}
	p.Alpha = p.PortfolioReturn - p.BenchmarkReturn
	return p
}
