package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// KafkaSinkConfig configures a KafkaSink.
type KafkaSinkConfig struct {
	// Brokers is the list of Kafka broker addresses.
	Brokers []string

	// Topic is the Kafka topic audit events are written to.
	Topic string

	// BatchTimeout is the maximum time to wait before flushing a batch.
	// Default: 1 second.
	BatchTimeout time.Duration

	// WriteTimeout is the timeout for writing messages.
	// Default: 10 seconds.
	WriteTimeout time.Duration

	// Async enables fire-and-forget writes.
	Async bool
}

// KafkaSink publishes audit events to a Kafka topic, keyed by event type so
// events of one kind stay ordered within a partition.
type KafkaSink struct {
	writer *kafka.Writer
	topic  string
	logger *zap.Logger
}

// NewKafkaSink creates a KafkaSink from the given configuration.
func NewKafkaSink(cfg KafkaSinkConfig, logger *zap.Logger) (*KafkaSink, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka sink requires at least one broker")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("kafka sink requires a topic")
	}
	if cfg.BatchTimeout == 0 {
		cfg.BatchTimeout = time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 10 * time.Second
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: cfg.BatchTimeout,
		WriteTimeout: cfg.WriteTimeout,
		Async:        cfg.Async,
		RequiredAcks: kafka.RequireAll,
		Compression:  kafka.Snappy,
	}

	return &KafkaSink{
		writer: writer,
		topic:  cfg.Topic,
		logger: logger.Named("audit-kafka"),
	}, nil
}

// Write marshals the event and publishes it.
func (s *KafkaSink) Write(ctx context.Context, event *Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling audit event %s: %w", event.ID, err)
	}

	msg := kafka.Message{
		Key:   []byte(event.Type),
		Value: payload,
		Time:  event.Timestamp,
	}
	if err := s.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("writing audit event to kafka topic %s: %w", s.topic, err)
	}
	return nil
}

// Close flushes and closes the underlying writer.
func (s *KafkaSink) Close() error {
	return s.writer.Close()
}

// Name returns the sink identifier.
func (s *KafkaSink) Name() string {
	return "kafka"
}
