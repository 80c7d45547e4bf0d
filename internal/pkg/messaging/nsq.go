package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nsqio/go-nsq"
)

// ErrNSQProducerAddrRequired is returned when the producer address is missing.
var ErrNSQProducerAddrRequired = errors.New("messaging: nsq producer address is required")

// NSQConfig configures the NSQ implementation.
type NSQConfig struct {
	ProducerAddr   string
	ProducerConfig *nsq.Config
}

// NSQ is a publisher backed by a single nsqd producer.
//
// NSQ has no message headers, so headers and attributes travel in an
// envelope together with the body.
type NSQ struct {
	producer *nsq.Producer
}

type nsqEnvelope struct {
	Attributes map[string]string `json:"attributes,omitempty"`
	Body       json.RawMessage   `json:"body"`
}

// NewNSQ constructs an NSQ publisher.
func NewNSQ(cfg NSQConfig) (*NSQ, error) {
	if cfg.ProducerAddr == "" {
		return nil, ErrNSQProducerAddrRequired
	}

	pcfg := cfg.ProducerConfig
	if pcfg == nil {
		pcfg = nsq.NewConfig()
	}

	p, err := nsq.NewProducer(cfg.ProducerAddr, pcfg)
	if err != nil {
		return nil, fmt.Errorf("messaging: nsq new producer: %w", err)
	}
	p.SetLoggerLevel(nsq.LogLevelError)

	return &NSQ{producer: p}, nil
}

// Close stops the producer.
func (n *NSQ) Close() error {
	n.producer.Stop()
	return nil
}

// Publish sends a message to an NSQ topic, deferred when msg.Delay is set.
func (n *NSQ) Publish(ctx context.Context, destination string, msg OutgoingMessage) (PublishResult, error) {
	if err := ctx.Err(); err != nil {
		return PublishResult{}, err
	}
	if destination == "" {
		return PublishResult{}, ErrDestinationRequired
	}

	body, err := nsqBody(msg)
	if err != nil {
		return PublishResult{}, err
	}

	if msg.Delay > 0 {
		err = n.producer.DeferredPublish(destination, msg.Delay, body)
	} else {
		err = n.producer.Publish(destination, body)
	}
	if err != nil {
		return PublishResult{}, fmt.Errorf("messaging: nsq publish: %w", err)
	}

	return PublishResult{Topic: destination, Timestamp: time.Now()}, nil
}

func nsqBody(msg OutgoingMessage) ([]byte, error) {
	attrs := attributesOf(msg)
	if len(attrs) == 0 {
		return msg.Body, nil
	}
	if !json.Valid(msg.Body) {
		return nil, fmt.Errorf("messaging: nsq envelope requires a json body: %w", ErrUnsupported)
	}

	b, err := json.Marshal(nsqEnvelope{Attributes: attrs, Body: msg.Body})
	if err != nil {
		return nil, fmt.Errorf("messaging: nsq envelope: %w", err)
	}
	return b, nil
}
