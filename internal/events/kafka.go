package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaRecorderConfig configures the Kafka sink.
type KafkaRecorderConfig struct {
	// Brokers is the list of Kafka broker addresses (host:port).
	Brokers []string

	// Topic to publish cycle records to.
	Topic string

	// MaxAttempts is how many times a publish is retried on transient error.
	// Defaults to 3 if <= 0.
	MaxAttempts int

	// WriteTimeout is the per-attempt timeout. Defaults to 10s if zero.
	WriteTimeout time.Duration
}

// KafkaRecorder publishes cycle records keyed by cycle ID, so all records of
// one cycle land on the same partition in order.
type KafkaRecorder struct {
	writer      *kafka.Writer
	maxAttempts int
}

func NewKafkaRecorder(cfg KafkaRecorderConfig) (*KafkaRecorder, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka: at least one broker required")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("kafka: topic required")
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 10 * time.Second
	}

	w := kafka.NewWriter(kafka.WriterConfig{
		Brokers:      cfg.Brokers,
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: cfg.WriteTimeout,
		Async:        false,
	})

	return &KafkaRecorder{writer: w, maxAttempts: cfg.MaxAttempts}, nil
}

func (k *KafkaRecorder) Record(ctx context.Context, cycleID, stage string, payload interface{}) error {
	value, err := json.Marshal(Envelope{
		CycleID: cycleID,
		Stage:   stage,
		Ts:      time.Now().UTC(),
		Payload: payload,
	})
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}

	msg := kafka.Message{Key: []byte(cycleID), Value: value}
	var lastErr error
	for attempt := 1; attempt <= k.maxAttempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if lastErr = k.writer.WriteMessages(ctx, msg); lastErr == nil {
			return nil
		}
		if attempt < k.maxAttempts {
			time.Sleep(time.Duration(attempt) * 100 * time.Millisecond)
		}
	}
	return fmt.Errorf("kafka publish %s/%s: %w", cycleID, stage, lastErr)
}

func (k *KafkaRecorder) Close() error {
	return k.writer.Close()
}
