package messaging

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

// ErrNATSURLRequired is returned when the NATS server URL is missing.
var ErrNATSURLRequired = errors.New("messaging: nats url is required")

// NATSConfig configures the NATS implementation.
type NATSConfig struct {
	URL     string
	Options []nats.Option
}

// NATS is a publisher backed by a core NATS connection.
type NATS struct {
	conn *nats.Conn

	mu     sync.Mutex
	closed bool
}

// NewNATS connects to the configured NATS server.
func NewNATS(cfg NATSConfig) (*NATS, error) {
	if cfg.URL == "" {
		return nil, ErrNATSURLRequired
	}

	conn, err := nats.Connect(cfg.URL, cfg.Options...)
	if err != nil {
		return nil, fmt.Errorf("messaging: nats connect: %w", err)
	}

	return &NATS{conn: conn}, nil
}

// Close drains pending publishes and closes the connection.
func (n *NATS) Close() error {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return nil
	}
	n.closed = true
	n.mu.Unlock()

	err := n.conn.Drain()
	n.conn.Close()
	return err
}

// Publish sends a message to a NATS subject and flushes it to the server.
func (n *NATS) Publish(ctx context.Context, destination string, msg OutgoingMessage) (PublishResult, error) {
	if err := ctx.Err(); err != nil {
		return PublishResult{}, err
	}
	if destination == "" {
		return PublishResult{}, ErrDestinationRequired
	}
	if msg.Delay > 0 {
		return PublishResult{}, ErrUnsupported
	}

	n.mu.Lock()
	closed := n.closed
	n.mu.Unlock()
	if closed {
		return PublishResult{}, ErrClosed
	}

	nmsg := nats.NewMsg(destination)
	nmsg.Data = msg.Body
	for _, h := range msg.Headers {
		if h.Key == "" {
			continue
		}
		nmsg.Header.Add(h.Key, string(h.Value))
	}

	if err := n.conn.PublishMsg(nmsg); err != nil {
		return PublishResult{}, fmt.Errorf("messaging: nats publish: %w", err)
	}
	if err := n.flush(ctx); err != nil {
		return PublishResult{}, fmt.Errorf("messaging: nats flush: %w", err)
	}

	return PublishResult{Topic: destination, Timestamp: time.Now()}, nil
}

// FlushWithContext refuses contexts without a deadline.
func (n *NATS) flush(ctx context.Context) error {
	if _, ok := ctx.Deadline(); ok {
		return n.conn.FlushWithContext(ctx)
	}
	return n.conn.Flush()
}
