// Package kafka wraps the notification topic producer.
package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/segmentio/kafka-go"

	"github.com/Ramsey-B/trellis/pkg/tracing"
)

// NotificationEvent is the wire schema for a party notification.
type NotificationEvent struct {
	EventType string    `json:"event_type"` // request.matched, interest.registered
	Recipient string    `json:"recipient"`  // phone number of the notified party
	Sender    string    `json:"sender"`     // phone number of the counterpart
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// Producer handles Kafka event emission
type Producer struct {
	writer *kafka.Writer
	logger ectologger.Logger
	topic  string
}

// ProducerConfig holds Kafka producer configuration
type ProducerConfig struct {
	Brokers      []string
	Topic        string
	BatchSize    int
	BatchTimeout time.Duration
	RequiredAcks int
	Compression  string
}

// NewProducer creates a new Kafka producer
func NewProducer(cfg ProducerConfig, logger ectologger.Logger) *Producer {
	compression := kafka.Snappy
	switch cfg.Compression {
	case "gzip":
		compression = kafka.Gzip
	case "lz4":
		compression = kafka.Lz4
	case "zstd":
		compression = kafka.Zstd
	case "none":
		compression = 0
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.LeastBytes{},
		BatchSize:              cfg.BatchSize,
		BatchTimeout:           cfg.BatchTimeout,
		RequiredAcks:           kafka.RequiredAcks(cfg.RequiredAcks),
		Compression:            compression,
		AllowAutoTopicCreation: true,
	}

	return &Producer{
		writer: writer,
		logger: logger,
		topic:  cfg.Topic,
	}
}

// Close closes the producer
func (p *Producer) Close() error {
	return p.writer.Close()
}

// PublishNotification publishes a single notification event, keyed by
// recipient so one subscriber's notifications stay ordered.
func (p *Producer) PublishNotification(ctx context.Context, event *NotificationEvent) error {
	ctx, span := tracing.StartSpan(ctx, "kafka.Producer.PublishNotification")
	defer span.End()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Topic: p.topic,
		Key:   []byte(event.Recipient),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.WithContext(ctx).WithError(err).Error("Failed to publish notification event")
		return err
	}

	p.logger.WithContext(ctx).WithFields(map[string]any{
		"event_type": event.EventType,
		"recipient":  event.Recipient,
	}).Debug("Published notification event")

	return nil
}

// PublishNotifications publishes a batch of notification events in one write.
func (p *Producer) PublishNotifications(ctx context.Context, events []*NotificationEvent) error {
	ctx, span := tracing.StartSpan(ctx, "kafka.Producer.PublishNotifications")
	defer span.End()

	if len(events) == 0 {
		return nil
	}

	now := time.Now().UTC()
	msgs := make([]kafka.Message, 0, len(events))
	for _, event := range events {
		if event.CreatedAt.IsZero() {
			event.CreatedAt = now
		}
		data, err := json.Marshal(event)
		if err != nil {
			return err
		}
		msgs = append(msgs, kafka.Message{
			Topic: p.topic,
			Key:   []byte(event.Recipient),
			Value: data,
			Headers: []kafka.Header{
				{Key: "event_type", Value: []byte(event.EventType)},
			},
		})
	}

	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		p.logger.WithContext(ctx).WithError(err).Error("Failed to publish notification events")
		return err
	}

	p.logger.WithContext(ctx).WithFields(map[string]any{"count": len(msgs)}).Debug("Published notification events")
	return nil
}
