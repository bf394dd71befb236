package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/couchcryptid/covid-data-service/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/covid-data-service/internal/adapter/kafka"
	"github.com/couchcryptid/covid-data-service/internal/config"
	"github.com/couchcryptid/covid-data-service/internal/dataset"
	"github.com/couchcryptid/covid-data-service/internal/observability"
	"github.com/couchcryptid/covid-data-service/internal/pipeline"
	"github.com/couchcryptid/covid-data-service/internal/store"
)

func main() {
	_ = godotenv.Load() // optional .env for local development

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	fetcher := dataset.NewFetcher(cfg.DatasetURL, cfg.FetchTimeout, logger)
	reader := dataset.NewReader(logger)

	// Observation export is feature-flagged via KAFKA_ENABLED / KAFKA_BROKERS.
	var exporter pipeline.Exporter
	var kafkaWriter *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		kafkaWriter = kafkaadapter.NewWriter(cfg, logger)
		exporter = kafkaWriter
		logger.Info("kafka observation export enabled", "topic", cfg.KafkaTopic, "brokers", cfg.KafkaBrokers)
	} else {
		logger.Info("kafka observation export disabled")
	}

	p := pipeline.New(fetcher, reader, store.New(), exporter, logger, metrics, pipeline.Options{
		DataDir:       cfg.DataDir,
		TopN:          cfg.TopN,
		GeoPointLimit: cfg.GeoPointLimit,
	})

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Warm the dataset cache in the background; requests arriving earlier
	// trigger the same lazy load.
	go func() {
		if err := p.Warm(ctx); err != nil {
			logger.Error("dataset warm-up failed", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if kafkaWriter != nil {
		if err := kafkaWriter.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
