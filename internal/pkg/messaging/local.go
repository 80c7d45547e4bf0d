package messaging

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"
)

// Log is a publisher that writes every message to a structured logger.
// It is the default driver for local development.
type Log struct {
	logger *slog.Logger
}

// NewLog returns a Log publisher. A nil logger falls back to slog.Default.
func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{logger: logger}
}

// Close is a no-op.
func (l *Log) Close() error { return nil }

// Publish logs the message at info level.
func (l *Log) Publish(ctx context.Context, destination string, msg OutgoingMessage) (PublishResult, error) {
	if err := ctx.Err(); err != nil {
		return PublishResult{}, err
	}
	if destination == "" {
		return PublishResult{}, ErrDestinationRequired
	}

	l.logger.InfoContext(ctx, "message published",
		"destination", destination,
		"attributes", attributesOf(msg),
		"body", string(msg.Body),
	)

	return PublishResult{Topic: destination, Timestamp: time.Now()}, nil
}

// Published is a message captured by Memory.
type Published struct {
	Destination string
	Message     OutgoingMessage
}

// Memory records published messages in process. Tests use it to assert on
// emitted events.
type Memory struct {
	mu       sync.Mutex
	messages []Published
	seq      int
	closed   bool
	err      error
}

// NewMemory returns an empty Memory publisher.
func NewMemory() *Memory {
	return &Memory{}
}

// Close marks the publisher closed.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// FailWith makes subsequent publishes return err until it is reset with nil.
func (m *Memory) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Publish records the message.
func (m *Memory) Publish(ctx context.Context, destination string, msg OutgoingMessage) (PublishResult, error) {
	if err := ctx.Err(); err != nil {
		return PublishResult{}, err
	}
	if destination == "" {
		return PublishResult{}, ErrDestinationRequired
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return PublishResult{}, ErrClosed
	}
	if m.err != nil {
		return PublishResult{}, m.err
	}

	m.seq++
	m.messages = append(m.messages, Published{Destination: destination, Message: msg})
	return PublishResult{
		MessageID: strconv.Itoa(m.seq),
		Topic:     destination,
		Timestamp: time.Now(),
	}, nil
}

// Messages returns a copy of everything published so far.
func (m *Memory) Messages() []Published {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Published(nil), m.messages...)
}
