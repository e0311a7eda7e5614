package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/phrazzld/taskd/internal/events"
	kafkago "github.com/segmentio/kafka-go"
)

// MessageReader is the subset of *kafka.Reader Consume needs.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafkago.Message, error)
	Close() error
}

// NewReader creates a reader for topic. An empty groupID reads partition 0
// from the latest offset without committing.
func NewReader(brokers []string, topic, groupID string) *kafkago.Reader {
	cfg := kafkago.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	}
	if groupID == "" {
		cfg.StartOffset = kafkago.LastOffset
	}
	return kafkago.NewReader(cfg)
}

// Consume reads task events until ctx is done, passing each to fn.
// Undecodable messages are logged and skipped; an error from fn stops consumption.
func Consume(ctx context.Context, r MessageReader, logger *slog.Logger, fn func(*events.TaskEvent) error) error {
	if logger == nil {
		logger = slog.Default()
	}
	for {
		msg, err := r.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("read task event: %w", err)
		}

		event, err := Decode(msg)
		if err != nil {
			logger.Warn("skipping undecodable message",
				slog.String("topic", msg.Topic),
				slog.Int64("offset", msg.Offset),
				slog.String("error", err.Error()))
			continue
		}
		if err := fn(event); err != nil {
			return err
		}
	}
}
