// Package kafka publishes completed-run events for downstream consumers
// (dashboards, archival, alerting). Publishing is feature-flagged by
// configuration and always best-effort from the service's point of view.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/oceanbound/floodline/internal/config"
	"github.com/oceanbound/floodline/internal/store"
)

// Publisher produces run-completed messages to a Kafka topic.
// It implements service.Publisher.
type Publisher struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for the configured run-event topic.
func NewPublisher(cfg *config.Config, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Publisher{writer: w, logger: logger}
}

// PublishRun serializes one completed run and writes it to the topic.
func (p *Publisher) PublishRun(ctx context.Context, run store.Run) error {
	msg, err := serializeToMessage(run)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, msg)
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeToMessage marshals a Run into a Kafka message keyed by run id.
func serializeToMessage(run store.Run) (kafkago.Message, error) {
	data, err := json.Marshal(run)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize run: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(run.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "mode", Value: []byte(run.Mode)},
			{Key: "completed_at", Value: []byte(run.CreatedAt.Format(time.RFC3339))},
		},
	}, nil
}
