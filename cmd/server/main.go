package main

import (
	"context"
	"fmt"
	"time"

	"portpulse/internal/config"
	"portpulse/internal/database"
	"portpulse/internal/gateway"
	"portpulse/internal/handlers"
	"portpulse/internal/ledger"
	"portpulse/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

func main() {
	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("invalid configuration: %v", err)
	}
	logger.SetLevel(cfg.LogLevel)

	lg, err := loadLedger(cfg, logger)
	if err != nil {
		logger.Fatalf("load lots failed: %v", err)
	}
	logger.Infof("loaded %d lots across %d symbols from %s", lg.Len(), len(lg.Symbols()), cfg.LotSource)

	yahoo := gateway.NewYahooClient(cfg.YahooBaseURL, cfg.GatewayTimeout, logger)
	bench := gateway.NewIndexBenchmark(cfg.BenchmarkSymbol, yahoo)
	svc := service.NewPortfolioService(lg, yahoo, yahoo, bench, cfg.WindowDays, logger)

	h := handlers.NewHandler(svc, logger)

	rg := gin.Default()
	h.Routes(rg)

	logger.Infof("server starting on :%s", cfg.Port)
	if err := rg.Run(fmt.Sprintf(":%s", cfg.Port)); err != nil {
		logger.Fatalf("server stopped: %v", err)
	}
}

// loadLedger reads the lot set once at startup; it is never modified afterwards.
func loadLedger(cfg config.Config, logger *logrus.Logger) (*ledger.Ledger, error) {
	if cfg.LotSource != config.LotSourcePostgres {
		return ledger.LoadFile(cfg.LotsFile)
	}
	db, err := initDB(cfg.PostgresURL)
	if err != nil {
		return nil, fmt.Errorf("db connect failed: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return database.New(db, logger).LoadLedger(ctx)
}

func initDB(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	return db, nil
}
