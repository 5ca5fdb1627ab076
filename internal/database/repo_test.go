package database

import (
	"context"
	"os"
	"testing"

	"portpulse/internal/ledger"
	"portpulse/internal/models"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupDB(t *testing.T) *sqlx.DB {
	url := os.Getenv("POSTGRES_URL")
	if url == "" {
		t.Skip("POSTGRES_URL is not set; skipping integration tests")
	}
	db, err := sqlx.Open("postgres", url)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	b, err := os.ReadFile("../../migrations/0001_init.up.sql")
	require.NoError(t, err)
	if _, err := db.Exec(string(b)); err != nil {
		t.Logf("exec migration: %v", err)
	}
	return db
}

func testLot(t *testing.T, key, sym, shares, price, day, reason string) models.Lot {
	d, err := models.ParseDay(day)
	require.NoError(t, err)
	return models.Lot{
		ImportKey:    key,
		Symbol:       sym,
		Shares:       decimal.RequireFromString(shares),
		BuyPrice:     decimal.RequireFromString(price),
		PurchaseDate: d,
		Reason:       reason,
	}
}

func TestInsertLot_SameKeyIsSkipped(t *testing.T) {
	db := setupDB(t)
	r := New(db, logrus.New())
	ctx := context.Background()

	_, _ = db.Exec(`DELETE FROM lots WHERE symbol = 'ZZTEST'`)
	l := testLot(t, "zztest-1", "ZZTEST", "1.5", "12.34", "2025-04-07", "integration")

	created, err := r.InsertLot(ctx, l)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = r.InsertLot(ctx, l)
	require.NoError(t, err)
	assert.False(t, created, "expected the same import key to be skipped")

	l.ImportKey = "zztest-2"
	created, err = r.InsertLot(ctx, l)
	require.NoError(t, err)
	assert.True(t, created, "expected an identical fill under a new key to be stored")
}

func TestImportLedgerAndLoad(t *testing.T) {
	db := setupDB(t)
	r := New(db, logrus.New())
	ctx := context.Background()

	_, _ = db.Exec(`DELETE FROM lots WHERE symbol IN ('ZZA', 'ZZB')`)
	lg, err := ledger.New([]models.Lot{
		testLot(t, "zz-1", "ZZA", "2", "207", "2025-04-14", "an apple a day"),
		testLot(t, "zz-2", "ZZA", "4", "176", "2025-04-07", ""),
		testLot(t, "zz-3", "ZZB", "0.25", "1000.5", "2025-05-01", "fractional"),
		testLot(t, "zz-4", "ZZB", "0.25", "1000.5", "2025-05-01", "fractional"),
	})
	require.NoError(t, err)

	res, err := r.ImportLedger(ctx, lg)
	require.NoError(t, err)
	assert.Equal(t, ImportResult{Inserted: 4}, res)

	res, err = r.ImportLedger(ctx, lg)
	require.NoError(t, err)
	assert.Equal(t, ImportResult{Skipped: 4}, res)

	loaded, err := r.LoadLedger(ctx)
	require.NoError(t, err)
	agg := loaded.Aggregate()
	require.Contains(t, agg, "ZZA")
	assert.True(t, agg["ZZA"].Shares.Equal(decimal.NewFromInt(6)))
	assert.True(t, agg["ZZA"].CostBasis.Equal(decimal.NewFromInt(1118)))
	// Both identical ZZB fills survive the round trip.
	assert.True(t, agg["ZZB"].Shares.Equal(decimal.RequireFromString("0.5")))
	assert.True(t, agg["ZZB"].CostBasis.Equal(decimal.RequireFromString("500.25")))
	assert.Equal(t, "fractional", agg["ZZB"].ReasonString())
}
