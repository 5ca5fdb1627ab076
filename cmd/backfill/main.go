package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"portpulse/internal/database"
	"portpulse/internal/ledger"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

func main() {
	godotenv.Load()
	file := flag.String("file", "config/lots.yaml", "YAML lot file to import")
	migration := flag.String("migration", "migrations/0001_init.up.sql", "schema to apply before importing; empty to skip")
	flag.Parse()

	dbURL := os.Getenv("POSTGRES_URL")
	if dbURL == "" {
		log.Fatal("POSTGRES_URL is required")
	}

	lg, err := ledger.LoadFile(*file)
	if err != nil {
		log.Fatalf("failed to read lots: %v", err)
	}

	db, err := sqlx.Connect("postgres", dbURL)
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if *migration != "" {
		b, err := os.ReadFile(*migration)
		if err != nil {
			log.Fatalf("failed to read migration: %v", err)
		}
		if _, err := db.ExecContext(ctx, string(b)); err != nil {
			log.Fatalf("failed to apply migration: %v", err)
		}
	}

	fmt.Printf("Importing %d lots from %s...\n", lg.Len(), *file)
	res, err := database.New(db, logrus.New()).ImportLedger(ctx, lg)
	if err != nil {
		log.Fatalf("import failed: %v", err)
	}
	fmt.Printf("Done: %d inserted, %d already present.\n", res.Inserted, res.Skipped)
	fmt.Println("Start the server with LOT_SOURCE=postgres to serve these lots.")
}
