package ledger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"portpulse/internal/models"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

type lotFile struct {
	Lots []lotEntry `yaml:"lots"`
}

// Numbers are kept as strings so fractional shares and prices reach decimal unrounded.
type lotEntry struct {
	ID           string `yaml:"lot_id"`
	Symbol       string `yaml:"symbol"`
	Shares       string `yaml:"shares"`
	BuyPrice     string `yaml:"buy_price"`
	PurchaseDate string `yaml:"purchase_date"`
	Reason       string `yaml:"reason"`
}

// LoadFile reads a YAML lot list from path. Lots without a lot_id are keyed by
// the file name and their position in it.
func LoadFile(path string) (*Ledger, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open lot file: %w", err)
	}
	defer f.Close()
	return decode(filepath.Base(path), f)
}

// Decode parses a YAML document of the form
// `lots: [{lot_id, symbol, shares, buy_price, purchase_date, reason}]`.
func Decode(r io.Reader) (*Ledger, error) {
	return decode("inline", r)
}

func decode(source string, r io.Reader) (*Ledger, error) {
	var doc lotFile
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode lot file: %w", err)
	}
	lots := make([]models.Lot, 0, len(doc.Lots))
	for i, e := range doc.Lots {
		shares, err := decimal.NewFromString(e.Shares)
		if err != nil {
			return nil, fmt.Errorf("lot %d (%s): shares: %w", i, e.Symbol, err)
		}
		price, err := decimal.NewFromString(e.BuyPrice)
		if err != nil {
			return nil, fmt.Errorf("lot %d (%s): buy_price: %w", i, e.Symbol, err)
		}
		day, err := models.ParseDay(e.PurchaseDate)
		if err != nil {
			return nil, fmt.Errorf("lot %d (%s): purchase_date: %w", i, e.Symbol, err)
		}
		key := e.ID
		if key == "" {
			key = fmt.Sprintf("%s#%d", source, i+1)
		}
		lots = append(lots, models.Lot{
			ImportKey:    key,
			Symbol:       e.Symbol,
			Shares:       shares,
			BuyPrice:     price,
			PurchaseDate: day,
			Reason:       e.Reason,
		})
	}
	return New(lots)
}
