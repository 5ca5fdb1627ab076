package engine

import (
	"math"
	"sort"

	"portpulse/internal/ledger"
	"portpulse/internal/models"

	"gonum.org/v1/gonum/floats"
)

// weightFloor keeps the weight denominator away from zero when no quote is valid.
const weightFloor = 1e-9

type WeightedPosition struct {
	Symbol string  `json:"symbol"`
	Weight float64 `json:"weight"`
}

// Weights converts aggregated share counts and current quotes into portfolio weights.
// A symbol missing from quotes is valued at zero. The result is sorted by symbol.
func Weights(positions map[string]ledger.AggregatedPosition, quotes map[string]models.Quote) []WeightedPosition {
	symbols := sortedSymbols(positions)
	values := make([]float64, len(symbols))
	for i, s := range symbols {
		q, ok := quotes[s]
		if !ok {
			continue
		}
		values[i] = q.Price.Mul(positions[s].Shares).InexactFloat64()
	}

	total := math.Max(floats.Sum(values), weightFloor)
	out := make([]WeightedPosition, len(symbols))
	for i, s := range symbols {
		out[i] = WeightedPosition{Symbol: s, Weight: values[i] / total}
	}
	return out
}

func sortedSymbols(positions map[string]ledger.AggregatedPosition) []string {
	out := make([]string, 0, len(positions))
	for s := range positions {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
