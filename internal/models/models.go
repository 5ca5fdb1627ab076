package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateFormat is the ISO day layout used for purchase dates and series indexes.
const DateFormat = "2006-01-02"

// NoReason marks a lot that was bought without a recorded reason.
const NoReason = "NA"

// Lot is one purchase. Identical lots are distinct purchases; ImportKey is the
// only identity a lot has when it is persisted.
type Lot struct {
	ImportKey    string          `db:"import_key" json:"importKey,omitempty"`
	Symbol       string          `db:"symbol" json:"symbol"`
	Shares       decimal.Decimal `db:"shares" json:"shares"`
	BuyPrice     decimal.Decimal `db:"buy_price" json:"buyPrice"`
	PurchaseDate time.Time       `db:"purchase_date" json:"purchaseDate"`
	Reason       string          `db:"reason" json:"reason"`
}

// Cost is the cash spent on the lot.
func (l Lot) Cost() decimal.Decimal { return l.BuyPrice.Mul(l.Shares) }

// OwnedOn reports whether the lot is held at the end of day d.
func (l Lot) OwnedOn(d time.Time) bool { return !l.PurchaseDate.After(d) }

type Quote struct {
	Symbol        string          `json:"symbol"`
	Price         decimal.Decimal `json:"price"`
	ChangePercent float64         `json:"changePercent"`
}

// PriceBar is one daily bar from a history gateway. Open and Close are nil when
// the provider had no value for them.
type PriceBar struct {
	Date  time.Time        `json:"date"`
	Open  *decimal.Decimal `json:"open"`
	Close *decimal.Decimal `json:"close"`
}

// BenchmarkSeries holds one price per requested day, nil where the index did not trade.
type BenchmarkSeries struct {
	Dates  []time.Time
	Prices []*float64
}

// Day truncates t to midnight UTC of its calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDay parses an ISO date into a UTC day.
func ParseDay(s string) (time.Time, error) {
	return time.ParseInLocation(DateFormat, s, time.UTC)
}
