package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/taskd/internal/events"
	kafkago "github.com/segmentio/kafka-go"
)

// EventTypeHeader carries the event type so consumers can route without
// decoding the payload.
const EventTypeHeader = "event_type"

// DefaultWriteTimeout bounds a single publish.
const DefaultWriteTimeout = 5 * time.Second

// MessageWriter is the subset of *kafka.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// NewWriter creates a synchronous writer for topic. Messages are hashed by
// key so events for one task stay ordered within a partition.
func NewWriter(brokers []string, topic string) *kafkago.Writer {
	return &kafkago.Writer{
		Addr:                   kafkago.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireOne,
		WriteTimeout:           DefaultWriteTimeout,
		AllowAutoTopicCreation: true,
	}
}

// Publisher forwards task lifecycle events to Kafka as JSON.
// It implements events.EventHandler.
type Publisher struct {
	writer  MessageWriter
	timeout time.Duration
	logger  *slog.Logger
}

// NewPublisher creates a Publisher writing through writer.
func NewPublisher(writer MessageWriter, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		writer:  writer,
		timeout: DefaultWriteTimeout,
		logger:  logger.With(slog.String("component", "kafka_publisher")),
	}
}

var _ events.EventHandler = (*Publisher)(nil)

// HandleEvent publishes event keyed by its task id.
func (p *Publisher) HandleEvent(ctx context.Context, event *events.TaskEvent) error {
	msg, err := Encode(event)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("failed to publish task event",
			slog.String("event_id", event.ID.String()),
			slog.String("event_type", string(event.Type)),
			slog.String("task_id", event.TaskID.String()),
			slog.String("error", err.Error()))
		return fmt.Errorf("publish %s event for task %s: %w", event.Type, event.TaskID, err)
	}

	p.logger.Debug("published task event",
		slog.String("event_id", event.ID.String()),
		slog.String("event_type", string(event.Type)),
		slog.String("task_id", event.TaskID.String()))
	return nil
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

// Encode converts event into a Kafka message.
func Encode(event *events.TaskEvent) (kafkago.Message, error) {
	if event == nil {
		return kafkago.Message{}, fmt.Errorf("nil task event")
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("encode task event: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(event.TaskID.String()),
		Value: payload,
		Time:  event.OccurredAt,
		Headers: []kafkago.Header{
			{Key: EventTypeHeader, Value: []byte(event.Type)},
		},
	}, nil
}

// Decode parses a message produced by Encode.
func Decode(msg kafkago.Message) (*events.TaskEvent, error) {
	var event events.TaskEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return nil, fmt.Errorf("decode task event: %w", err)
	}
	return &event, nil
}
