// kamlimport imports a legacy raw_results.csv (the original bot's
// append-only log, header "timestamp,id,winner,loser") into the SQLite
// store. Records already present are left alone, so re-running an import is
// harmless.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/dzonimn/Kaml/internal/store"
)

func main() {
	_ = godotenv.Load()

	log := logrus.New()

	csvPath := flag.String("csv", "raw_results.csv", "path to the legacy results CSV")
	dbPath := flag.String("db", getEnv("DATABASE_PATH", "./data/kaml.db"), "path to the SQLite database")
	flag.Parse()

	f, err := os.Open(*csvPath)
	if err != nil {
		log.Fatalf("Failed to open %s: %v", *csvPath, err)
	}
	defer f.Close()

	results, skipped, err := store.ReadLegacyCSV(f)
	if err != nil {
		log.Fatalf("Failed to parse %s: %v", *csvPath, err)
	}
	if skipped > 0 {
		log.Warnf("Skipped %d unparseable rows", skipped)
	}

	db, err := store.NewSQLiteStore(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	inserted, err := db.AppendResults(context.Background(), results)
	if err != nil {
		log.Fatalf("Failed to append results: %v", err)
	}

	log.Infof("Imported %d of %d records (%d already present)",
		inserted, len(results), len(results)-inserted)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
