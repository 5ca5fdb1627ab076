package database

import (
	"context"
	"errors"
	"fmt"

	"portpulse/internal/ledger"
	"portpulse/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

// ErrNoImportKey is returned when a lot without an import key is written.
var ErrNoImportKey = errors.New("lot has no import key")

type Repo struct {
	db  *sqlx.DB
	log *logrus.Logger
}

func New(db *sqlx.DB, log *logrus.Logger) *Repo {
	return &Repo{db: db, log: log}
}

// ListLots returns every stored lot ordered by purchase date.
func (r *Repo) ListLots(ctx context.Context) ([]models.Lot, error) {
	rows, err := r.db.QueryxContext(ctx, `SELECT import_key, symbol, shares, buy_price, purchase_date, COALESCE(NULLIF(reason, ''), 'NA') AS reason FROM lots ORDER BY purchase_date ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanLots(rows)
}

// lotRows is the part of *sqlx.Rows that scanLots reads.
type lotRows interface {
	Next() bool
	StructScan(dest interface{}) error
	Err() error
}

// scanLots fails on the first unreadable row; a ledger missing a lot would
// understate every aggregate built from it.
func scanLots(rows lotRows) ([]models.Lot, error) {
	res := []models.Lot{}
	for rows.Next() {
		var l models.Lot
		if err := rows.StructScan(&l); err != nil {
			return nil, fmt.Errorf("scan lot %d: %w", len(res), err)
		}
		res = append(res, l)
	}
	return res, rows.Err()
}

// LoadLedger reads all lots into an immutable ledger.
func (r *Repo) LoadLedger(ctx context.Context) (*ledger.Ledger, error) {
	lots, err := r.ListLots(ctx)
	if err != nil {
		return nil, fmt.Errorf("list lots: %w", err)
	}
	return ledger.New(lots)
}

// InsertLot stores a lot. It returns false without error when a lot with the same
// import key already exists. Lots with equal fields but different keys are both kept.
func (r *Repo) InsertLot(ctx context.Context, l models.Lot) (bool, error) {
	return insertLot(ctx, r.db, l)
}

func insertLot(ctx context.Context, ex sqlx.ExecerContext, l models.Lot) (bool, error) {
	if l.ImportKey == "" {
		return false, fmt.Errorf("%w: %s lot of %s", ErrNoImportKey, l.Symbol, l.PurchaseDate.Format(models.DateFormat))
	}
	q := `INSERT INTO lots (import_key, symbol, shares, buy_price, purchase_date, reason) VALUES ($1, $2, $3::numeric, $4::numeric, $5, $6) ON CONFLICT ON CONSTRAINT lots_import_key_unique DO NOTHING`
	out, err := ex.ExecContext(ctx, q, l.ImportKey, l.Symbol, l.Shares.String(), l.BuyPrice.String(), l.PurchaseDate.Format(models.DateFormat), l.Reason)
	if err != nil {
		return false, fmt.Errorf("insert lot %s: %w", l.ImportKey, err)
	}
	n, err := out.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ImportLedger inserts every lot of lg inside one transaction, skipping keys that
// are already stored.
func (r *Repo) ImportLedger(ctx context.Context, lg *ledger.Ledger) (ImportResult, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return ImportResult{}, err
	}
	defer tx.Rollback()

	res := ImportResult{}
	for _, l := range lg.Lots() {
		created, err := insertLot(ctx, tx, l)
		if err != nil {
			return ImportResult{}, err
		}
		if created {
			res.Inserted++
		} else {
			res.Skipped++
		}
	}
	if err := tx.Commit(); err != nil {
		return ImportResult{}, err
	}
	r.log.Infof("imported lots: %d inserted, %d already present", res.Inserted, res.Skipped)
	return res, nil
}
