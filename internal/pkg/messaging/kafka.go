package messaging

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// ErrKafkaBrokersRequired is returned when no brokers are configured.
var ErrKafkaBrokersRequired = errors.New("messaging: kafka brokers are required")

// KafkaConfig configures the Kafka implementation.
type KafkaConfig struct {
	Brokers []string
	Dialer  *kafka.Dialer
}

// Kafka is a publisher backed by kafka-go writers, one per topic.
type Kafka struct {
	brokers []string
	dialer  *kafka.Dialer

	mu      sync.Mutex
	writers map[string]*kafka.Writer
	closed  bool
}

// NewKafka constructs a Kafka publisher. Writers are created lazily.
func NewKafka(cfg KafkaConfig) (*Kafka, error) {
	if len(cfg.Brokers) == 0 {
		return nil, ErrKafkaBrokersRequired
	}

	return &Kafka{
		brokers: append([]string{}, cfg.Brokers...),
		dialer:  cfg.Dialer,
		writers: map[string]*kafka.Writer{},
	}, nil
}

// Close flushes and closes every writer.
func (k *Kafka) Close() error {
	k.mu.Lock()
	if k.closed {
		k.mu.Unlock()
		return nil
	}
	k.closed = true
	writers := make([]*kafka.Writer, 0, len(k.writers))
	for _, w := range k.writers {
		writers = append(writers, w)
	}
	k.writers = nil
	k.mu.Unlock()

	var closeErr error
	for _, w := range writers {
		closeErr = errors.Join(closeErr, w.Close())
	}
	return closeErr
}

// Publish sends a message to a Kafka topic.
func (k *Kafka) Publish(ctx context.Context, destination string, msg OutgoingMessage) (PublishResult, error) {
	if err := ctx.Err(); err != nil {
		return PublishResult{}, err
	}
	if destination == "" {
		return PublishResult{}, ErrDestinationRequired
	}
	if msg.Delay > 0 {
		return PublishResult{}, ErrUnsupported
	}

	writer, err := k.writer(destination)
	if err != nil {
		return PublishResult{}, err
	}

	kmsg := kafka.Message{
		Key:   msg.Key,
		Value: msg.Body,
		Time:  time.Now(),
	}
	for _, h := range msg.Headers {
		if h.Key == "" {
			continue
		}
		kmsg.Headers = append(kmsg.Headers, kafka.Header{Key: h.Key, Value: h.Value})
	}

	if err := writer.WriteMessages(ctx, kmsg); err != nil {
		return PublishResult{}, fmt.Errorf("messaging: kafka publish: %w", err)
	}

	return PublishResult{Topic: destination, Timestamp: kmsg.Time}, nil
}

func (k *Kafka) writer(topic string) (*kafka.Writer, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.closed {
		return nil, ErrClosed
	}
	if w, ok := k.writers[topic]; ok {
		return w, nil
	}

	w := kafka.NewWriter(kafka.WriterConfig{
		Brokers:  k.brokers,
		Topic:    topic,
		Balancer: &kafka.Hash{},
		Dialer:   k.dialer,
	})
	k.writers[topic] = w
	return w, nil
}
