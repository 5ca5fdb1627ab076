package engine

import (
	"time"

	"portpulse/internal/models"

	"github.com/shopspring/decimal"
)

// valuePlaces is the rounding applied to every timeline value.
const valuePlaces = 2

// PriceHistory is a symbol's daily price keyed by ISO day.
type PriceHistory struct {
	byDay map[string]decimal.Decimal
}

// NewPriceHistory indexes bars by day, valuing each day at its open and falling back
// to the close. Bars with neither are dropped.
func NewPriceHistory(bars []models.PriceBar) PriceHistory {
	h := PriceHistory{byDay: make(map[string]decimal.Decimal, len(bars))}
	for _, b := range bars {
		var p *decimal.Decimal
		switch {
		case b.Open != nil:
			p = b.Open
		case b.Close != nil:
			p = b.Close
		default:
			continue
		}
		h.byDay[b.Date.UTC().Format(models.DateFormat)] = *p
	}
	return h
}

// PriceOn returns the price for day d. There is no carry-forward: a gap is a miss.
func (h PriceHistory) PriceOn(d time.Time) (decimal.Decimal, bool) {
	p, ok := h.byDay[d.Format(models.DateFormat)]
	return p, ok
}

// Series is an ordered business-day series of portfolio values.
type Series struct {
	Dates  []time.Time
	Values []decimal.Decimal
}

// BuildTimeline values the lots on every day of window (oldest first).
//
// On day d a lot counts toward holdings at that day's price only once d reaches its
// purchase date; a lot without a price for d is skipped for that day. Lots bought after
// the window's first day are carried as reserved cash until their purchase date, so
// onboarding a position does not move the series by itself.
//
// A price missing on the first day understates that day's holdings. This is kept
// as observed rather than patched with a carried-forward price.
func BuildTimeline(lots []models.Lot, window []time.Time, history map[string]PriceHistory) []decimal.Decimal {
	out := make([]decimal.Decimal, len(window))
	if len(window) == 0 {
		return out
	}
	first := window[0]

	cashStart := decimal.Zero
	for _, l := range lots {
		if l.PurchaseDate.After(first) {
			cashStart = cashStart.Add(l.Cost())
		}
	}

	for i, d := range window {
		holdings := decimal.Zero
		spent := decimal.Zero
		for _, l := range lots {
			if !l.OwnedOn(d) {
				continue
			}
			if l.PurchaseDate.After(first) {
				spent = spent.Add(l.Cost())
			}
			price, ok := history[l.Symbol].PriceOn(d)
			if !ok {
				continue
			}
			holdings = holdings.Add(price.Mul(l.Shares))
		}
		out[i] = holdings.Add(cashStart).Sub(spent).Round(valuePlaces)
	}
	return out
}

// Timeline builds the valuation series for window.
func Timeline(lots []models.Lot, window []time.Time, history map[string]PriceHistory) Series {
	dates := make([]time.Time, len(window))
	copy(dates, window)
	return Series{Dates: dates, Values: BuildTimeline(lots, window, history)}
}
