package messaging

import (
	"context"
	"errors"
	"io"
	"time"
)

var (
	// ErrUnsupported is returned when a feature is not supported by the selected broker.
	ErrUnsupported = errors.New("messaging: unsupported operation")
	// ErrClosed is returned when publishing through a closed client.
	ErrClosed = errors.New("messaging: client closed")
	// ErrDestinationRequired is returned when the topic or subject is empty.
	ErrDestinationRequired = errors.New("messaging: destination is required")
)

// Messaging is a broker client that can publish messages and must be closed.
type Messaging interface {
	io.Closer
	Publisher
}

// Publisher publishes messages to a destination (topic or subject).
type Publisher interface {
	Publish(ctx context.Context, destination string, msg OutgoingMessage) (PublishResult, error)
}

// OutgoingMessage represents a broker-agnostic message to be published.
type OutgoingMessage struct {
	// Body is the message payload.
	Body []byte

	// Key is used by Kafka for partitioning.
	Key []byte

	// Headers support arbitrary binary values and duplicate keys.
	Headers []Header

	// Attributes is used by brokers that model string attributes (Pub/Sub).
	// Headers are copied into it when the broker has no header concept.
	Attributes map[string]string

	// OrderingKey is used by Google Pub/Sub.
	OrderingKey string

	// Delay is used for deferred delivery when supported.
	Delay time.Duration
}

// Header is a key/value pair used for message headers.
type Header struct {
	Key   string
	Value []byte
}

// PublishResult carries optional broker-specific publish metadata.
type PublishResult struct {
	MessageID string
	Topic     string
	Timestamp time.Time
}

// HeaderValue returns the first header value with the given key.
func (m OutgoingMessage) HeaderValue(key string) (string, bool) {
	for _, h := range m.Headers {
		if h.Key == key {
			return string(h.Value), true
		}
	}
	return "", false
}

func attributesOf(msg OutgoingMessage) map[string]string {
	if len(msg.Headers) == 0 {
		return msg.Attributes
	}

	attrs := make(map[string]string, len(msg.Attributes)+len(msg.Headers))
	for k, v := range msg.Attributes {
		attrs[k] = v
	}
	for _, h := range msg.Headers {
		if h.Key == "" {
			continue
		}
		if _, ok := attrs[h.Key]; !ok {
			attrs[h.Key] = string(h.Value)
		}
	}
	return attrs
}
