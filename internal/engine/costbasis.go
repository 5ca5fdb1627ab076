package engine

import (
	"portpulse/internal/ledger"
	"portpulse/internal/models"

	"github.com/shopspring/decimal"
)

// TotalReturn is the percent gain of the position at price against its blended cost basis.
func TotalReturn(pos ledger.AggregatedPosition, price decimal.Decimal) float64 {
	if pos.CostBasis.IsZero() {
		return 0
	}
	current := price.Mul(pos.Shares)
	return current.Sub(pos.CostBasis).Div(pos.CostBasis).InexactFloat64() * 100
}

// Holding is one display row per symbol.
type Holding struct {
	Symbol      string
	Price       decimal.Decimal
	DayReturn   float64
	TotalReturn float64
	Weight      float64 // 0–1
	Reason      string
	Shares      decimal.Decimal
	CostBasis   decimal.Decimal
}

// Holdings joins aggregated positions, quotes and weights into display rows sorted by symbol.
func Holdings(positions map[string]ledger.AggregatedPosition, quotes map[string]models.Quote, weights []WeightedPosition) []Holding {
	w := make(map[string]float64, len(weights))
	for _, wp := range weights {
		w[wp.Symbol] = wp.Weight
	}
	out := make([]Holding, 0, len(positions))
	for _, s := range sortedSymbols(positions) {
		pos := positions[s]
		q := quotes[s]
		h := Holding{
			Symbol:    s,
			Price:     q.Price,
			DayReturn: q.ChangePercent,
			Weight:    w[s],
			Reason:    pos.ReasonString(),
			Shares:    pos.Shares,
			CostBasis: pos.CostBasis,
		}
		if _, ok := quotes[s]; ok {
			h.TotalReturn = TotalReturn(pos, q.Price)
		}
		out = append(out, h)
	}
	return out
}
