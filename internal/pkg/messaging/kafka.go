package messaging

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// ErrKafkaBrokersRequired is returned when no Kafka brokers are configured.
var ErrKafkaBrokersRequired = errors.New("messaging: kafka brokers are required")

// KafkaConfig configures the Kafka driver.
type KafkaConfig struct {
	Brokers  []string
	ClientID string

	// DialTimeout defaults to 5s.
	DialTimeout time.Duration
	// BatchTimeout bounds how long a write waits for a batch to fill. Defaults to 10ms.
	BatchTimeout time.Duration
	// AutoCreateTopics lets the writer create missing topics.
	AutoCreateTopics bool
}

// Kafka publishes through a single kafka-go writer; the topic travels on
// each message so one writer serves every destination.
type Kafka struct {
	guard
	writer *kafka.Writer
}

// NewKafka builds the writer. Connections are opened lazily on first publish.
func NewKafka(cfg KafkaConfig) (*Kafka, error) {
	if len(cfg.Brokers) == 0 {
		return nil, ErrKafkaBrokersRequired
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 5 * time.Second
	}
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = 10 * time.Millisecond
	}

	return &Kafka{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(cfg.Brokers...),
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireOne,
			BatchTimeout:           cfg.BatchTimeout,
			AllowAutoTopicCreation: cfg.AutoCreateTopics,
			Transport: &kafka.Transport{
				ClientID:    cfg.ClientID,
				DialTimeout: cfg.DialTimeout,
			},
		},
	}, nil
}

func (k *Kafka) Publish(ctx context.Context, destination string, msg OutgoingMessage) (PublishResult, error) {
	if err := k.admit(ctx, destination, msg, false); err != nil {
		return PublishResult{}, err
	}

	out := kafka.Message{Topic: destination, Key: msg.Key, Value: msg.Body, Time: time.Now()}
	msg.eachHeader(func(key string, value []byte) {
		out.Headers = append(out.Headers, kafka.Header{Key: key, Value: value})
	})

	if err := k.writer.WriteMessages(ctx, out); err != nil {
		return PublishResult{}, fmt.Errorf("messaging: kafka publish to %s: %w", destination, err)
	}
	return PublishResult{Topic: destination, Timestamp: out.Time}, nil
}

// Close flushes buffered messages and releases broker connections.
func (k *Kafka) Close() error {
	if !k.shut() {
		return nil
	}
	return k.writer.Close()
}
