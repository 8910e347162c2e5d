// Package kafka publishes per-basin processing status events to a Kafka
// topic, so downstream consumers can audit coverage without scraping logs.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/hydroflux/basin-rain-etl/internal/pipeline"
)

// Publisher produces status events to a Kafka topic.
// It implements pipeline.StatusPublisher.
type Publisher struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for the status topic.
func NewPublisher(brokers []string, topic string, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Publisher{writer: w, logger: logger}
}

// statusEvent is the wire form of a basin's terminal processing state.
type statusEvent struct {
	BasinID     string    `json:"basin_id"`
	Status      string    `json:"status"`
	Reason      string    `json:"reason,omitempty"`
	Stations    int       `json:"stations"`
	Rows        int       `json:"rows"`
	PublishedAt time.Time `json:"published_at"`
}

// PublishStatus serializes and publishes one basin result.
func (p *Publisher) PublishStatus(ctx context.Context, res pipeline.BasinResult) error {
	msg, err := serializeToMessage(res)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, msg)
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeToMessage marshals a BasinResult into a Kafka message keyed by
// basin ID so all of a basin's events land on one partition.
func serializeToMessage(res pipeline.BasinResult) (kafkago.Message, error) {
	event := statusEvent{
		BasinID:     res.BasinID,
		Status:      string(res.Status),
		Reason:      res.Reason,
		Stations:    len(res.Stations),
		Rows:        res.Rows,
		PublishedAt: time.Now().UTC(),
	}
	data, err := json.Marshal(event)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize status event: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(res.BasinID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "status", Value: []byte(res.Status)},
			{Key: "published_at", Value: []byte(event.PublishedAt.Format(time.RFC3339))},
		},
	}, nil
}
