package engine

import (
	"portpulse/internal/models"

	"gonum.org/v1/gonum/floats"
)

// OneDayReturn is the weight-averaged one-day change percent reported by the quote
// gateway. Symbols without a quote contribute nothing.
func OneDayReturn(weights []WeightedPosition, quotes map[string]models.Quote) float64 {
	w := make([]float64, len(weights))
	chg := make([]float64, len(weights))
	for i, wp := range weights {
		w[i] = wp.Weight
		if q, ok := quotes[wp.Symbol]; ok {
			chg[i] = q.ChangePercent
		}
	}
	return floats.Dot(w, chg)
}
