// Package ledger holds the immutable set of purchase lots a portfolio is built from.
package ledger

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"portpulse/internal/models"

	"github.com/shopspring/decimal"
)

var ErrInvalidLot = errors.New("invalid lot")

// ReasonSeparator joins the distinct reasons of an aggregated position.
const ReasonSeparator = " / "

// Ledger is a read-only list of lots. The zero value is an empty ledger.
type Ledger struct {
	lots []models.Lot
}

// New validates lots and returns a ledger holding its own copy of them.
func New(lots []models.Lot) (*Ledger, error) {
	cp := make([]models.Lot, 0, len(lots))
	keys := map[string]int{}
	for i, l := range lots {
		l.ImportKey = strings.TrimSpace(l.ImportKey)
		l.Symbol = strings.ToUpper(strings.TrimSpace(l.Symbol))
		l.Reason = strings.TrimSpace(l.Reason)
		if l.Reason == "" {
			l.Reason = models.NoReason
		}
		if err := validate(l); err != nil {
			return nil, fmt.Errorf("lot %d: %w", i, err)
		}
		if l.ImportKey != "" {
			if prev, ok := keys[l.ImportKey]; ok {
				return nil, fmt.Errorf("lot %d: %w: import key %q already used by lot %d", i, ErrInvalidLot, l.ImportKey, prev)
			}
			keys[l.ImportKey] = i
		}
		l.PurchaseDate = models.Day(l.PurchaseDate)
		cp = append(cp, l)
	}
	return &Ledger{lots: cp}, nil
}

func validate(l models.Lot) error {
	switch {
	case l.Symbol == "":
		return fmt.Errorf("%w: empty symbol", ErrInvalidLot)
	case !l.Shares.IsPositive():
		return fmt.Errorf("%w: %s shares must be positive, got %s", ErrInvalidLot, l.Symbol, l.Shares)
	case !l.BuyPrice.IsPositive():
		return fmt.Errorf("%w: %s buy price must be positive, got %s", ErrInvalidLot, l.Symbol, l.BuyPrice)
	case l.PurchaseDate.IsZero():
		return fmt.Errorf("%w: %s purchase date missing", ErrInvalidLot, l.Symbol)
	}
	return nil
}

// Lots returns a copy of the ledger's lots in load order.
func (lg *Ledger) Lots() []models.Lot {
	out := make([]models.Lot, len(lg.lots))
	copy(out, lg.lots)
	return out
}

func (lg *Ledger) Len() int { return len(lg.lots) }

// Symbols returns the distinct symbols, sorted.
func (lg *Ledger) Symbols() []string {
	seen := map[string]struct{}{}
	out := []string{}
	for _, l := range lg.lots {
		if _, ok := seen[l.Symbol]; ok {
			continue
		}
		seen[l.Symbol] = struct{}{}
		out = append(out, l.Symbol)
	}
	sort.Strings(out)
	return out
}

// Earliest returns the first purchase date of symbol, false if the ledger has no such lot.
func (lg *Ledger) Earliest(symbol string) (time.Time, bool) {
	var first time.Time
	found := false
	for _, l := range lg.lots {
		if l.Symbol != symbol {
			continue
		}
		if !found || l.PurchaseDate.Before(first) {
			first = l.PurchaseDate
			found = true
		}
	}
	return first, found
}

// AggregatedPosition is the sum of every lot of one symbol.
type AggregatedPosition struct {
	Symbol    string
	Shares    decimal.Decimal
	CostBasis decimal.Decimal
	Reasons   map[string]struct{}
}

// ReasonString joins the distinct reasons in sorted order, or returns "NA" when none.
func (p AggregatedPosition) ReasonString() string {
	if len(p.Reasons) == 0 {
		return models.NoReason
	}
	rs := make([]string, 0, len(p.Reasons))
	for r := range p.Reasons {
		rs = append(rs, r)
	}
	sort.Strings(rs)
	return strings.Join(rs, ReasonSeparator)
}

// Aggregate merges lots per symbol: shares and cost basis are summed, reasons unioned.
func Aggregate(lots []models.Lot) map[string]AggregatedPosition {
	out := map[string]AggregatedPosition{}
	for _, l := range lots {
		p, ok := out[l.Symbol]
		if !ok {
			p = AggregatedPosition{Symbol: l.Symbol, Reasons: map[string]struct{}{}}
		}
		p.Shares = p.Shares.Add(l.Shares)
		p.CostBasis = p.CostBasis.Add(l.Cost())
		for _, r := range strings.Split(l.Reason, ReasonSeparator) {
			r = strings.TrimSpace(r)
			if r == "" || r == models.NoReason {
				continue
			}
			p.Reasons[r] = struct{}{}
		}
		out[l.Symbol] = p
	}
	return out
}

// Aggregate merges the ledger's lots per symbol.
func (lg *Ledger) Aggregate() map[string]AggregatedPosition { return Aggregate(lg.lots) }
