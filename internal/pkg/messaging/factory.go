package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Supported audit transport drivers.
const (
	DriverNSQ          = "nsq"
	DriverNATS         = "nats"
	DriverKafka        = "kafka"
	DriverGooglePubSub = "google-pubsub"
	DriverLog          = "log"
	DriverMemory       = "memory"
)

var ErrUnknownDriver = errors.New("messaging: unknown driver")

// FactoryOptions carries the settings of every backend; only the selected one is read.
type FactoryOptions struct {
	NSQ    NSQConfig
	Kafka  KafkaConfig
	NATS   NATSConfig
	PubSub PubSubConfig
	Logger *slog.Logger
}

type constructor func(context.Context, FactoryOptions) (Messaging, error)

var drivers = map[string]constructor{
	DriverNSQ:          func(_ context.Context, o FactoryOptions) (Messaging, error) { return NewNSQ(o.NSQ) },
	DriverKafka:        func(_ context.Context, o FactoryOptions) (Messaging, error) { return NewKafka(o.Kafka) },
	DriverNATS:         func(_ context.Context, o FactoryOptions) (Messaging, error) { return NewNATS(o.NATS) },
	DriverGooglePubSub: func(ctx context.Context, o FactoryOptions) (Messaging, error) { return NewPubSub(ctx, o.PubSub) },
	DriverLog:          func(_ context.Context, o FactoryOptions) (Messaging, error) { return NewLog(o.Logger), nil },
	DriverMemory:       func(context.Context, FactoryOptions) (Messaging, error) { return NewMemory(), nil },
}

// NewFromDriver builds the backend named by driver. An empty name selects the log driver.
func NewFromDriver(ctx context.Context, driver string, opts FactoryOptions) (Messaging, error) {
	name := strings.ToLower(strings.TrimSpace(driver))
	if name == "" {
		name = DriverLog
	}

	build, ok := drivers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
	return build(ctx, opts)
}
