// Command export materializes the normalized dataset as a SQLite file for
// ad-hoc analysis. It runs the same fetch-read-normalize pipeline as the
// service, so exported rows match what the API serves.
//
// Usage:
//
//	go run ./cmd/export -data-dir data -out covid.db
//	go run ./cmd/export -data-dir /tmp/fresh -url https://example.com/dataset.zip -out covid.db
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"time"

	"github.com/joho/godotenv"

	"github.com/couchcryptid/covid-data-service/internal/adapter/sqlite"
	"github.com/couchcryptid/covid-data-service/internal/dataset"
	"github.com/couchcryptid/covid-data-service/internal/domain"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	_ = godotenv.Load()

	dataDir := flag.String("data-dir", "data", "working directory holding the CSV corpus")
	url := flag.String("url", "", "dataset URL to fetch when the data dir is empty (optional)")
	out := flag.String("out", "covid.db", "output SQLite file")
	timeout := flag.Duration("timeout", 60*time.Second, "fetch timeout")
	flag.Parse()

	logger := slog.Default()
	ctx := context.Background()

	if *url != "" {
		fetcher := dataset.NewFetcher(*url, *timeout, logger)
		if err := fetcher.EnsureData(ctx, *dataDir); err != nil {
			return fmt.Errorf("ensure data: %w", err)
		}
	}

	raw, stats, err := dataset.NewReader(logger).ReadAll(*dataDir)
	if err != nil {
		return fmt.Errorf("read csv corpus: %w", err)
	}
	log.Printf("read %d rows from %d files (%d skipped)", stats.Rows, stats.FilesParsed, stats.FilesSkipped)

	tbl, normStats := domain.Normalize(raw)
	log.Printf("normalized %d observations (count defaults: %d, date fallbacks: %d, geo dropped: %d)",
		len(tbl.Observations), normStats.CountDefaults, normStats.DateFallbacks, normStats.GeoDropped)

	exp, err := sqlite.Open(*out)
	if err != nil {
		return err
	}
	defer exp.Close()

	if err := exp.WriteTable(ctx, tbl); err != nil {
		return fmt.Errorf("write sqlite export: %w", err)
	}

	n, err := exp.Count(ctx)
	if err != nil {
		return err
	}
	log.Printf("exported %d observations to %s", n, *out)
	return nil
}
