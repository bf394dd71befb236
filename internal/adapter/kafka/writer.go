// Package kafka publishes normalized observations to a sink topic so
// downstream consumers (dashboards, warehouses) can subscribe to dataset
// loads without polling the API.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/covid-data-service/internal/config"
	"github.com/couchcryptid/covid-data-service/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Writer produces observation messages to a Kafka topic.
// It implements pipeline.Exporter.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// ExportObservations serializes and publishes the observations in a single
// WriteMessages call for efficiency.
func (w *Writer) ExportObservations(ctx context.Context, obs []domain.Observation) error {
	if len(obs) == 0 {
		return nil
	}
	exportedAt := domain.Now()
	msgs := make([]kafkago.Message, len(obs))
	for i := range obs {
		msg, err := serializeToMessage(obs[i], exportedAt)
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	return w.writer.WriteMessages(ctx, msgs...)
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals an Observation into a Kafka message keyed by
// country so per-country ordering survives partitioning.
func serializeToMessage(o domain.Observation, exportedAt time.Time) (kafkago.Message, error) {
	data, err := json.Marshal(o)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize observation: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(o.Country),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "country", Value: []byte(o.Country)},
			{Key: "exported_at", Value: []byte(exportedAt.Format(time.RFC3339))},
		},
	}, nil
}
