package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestNewFromDriver(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		driver  string
		wantErr error
	}{
		{name: "log", driver: "log"},
		{name: "empty falls back to log", driver: ""},
		{name: "memory", driver: " Memory "},
		{name: "unknown", driver: "rabbit", wantErr: ErrUnknownDriver},
		{name: "kafka without brokers", driver: DriverKafka, wantErr: ErrKafkaBrokersRequired},
		{name: "nats without url", driver: DriverNATS, wantErr: ErrNATSURLRequired},
		{name: "nsq without addr", driver: DriverNSQ, wantErr: ErrNSQProducerAddrRequired},
		{name: "pubsub without project", driver: DriverGooglePubSub, wantErr: ErrPubSubProjectIDRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m, err := NewFromDriver(context.Background(), tt.driver, FactoryOptions{})
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if err := m.Close(); err != nil {
				t.Fatalf("close: %v", err)
			}
		})
	}
}

func TestMemory_Publish(t *testing.T) {
	t.Parallel()

	// Arrange
	m := NewMemory()
	msg := OutgoingMessage{
		Body:    []byte(`{"ok":true}`),
		Headers: []Header{{Key: "cID", Value: []byte("corr-1")}},
	}

	// Act
	res, err := m.Publish(context.Background(), "custody.challenge.audit", msg)

	// Assert
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if res.MessageID != "1" || res.Topic != "custody.challenge.audit" {
		t.Fatalf("unexpected result: %+v", res)
	}
	got := m.Messages()
	if len(got) != 1 {
		t.Fatalf("expected 1 message, got %d", len(got))
	}
	if v, ok := got[0].Message.HeaderValue("cID"); !ok || v != "corr-1" {
		t.Fatalf("expected header cID=corr-1, got %q", v)
	}
}

func TestMemory_FailAndClose(t *testing.T) {
	t.Parallel()

	m := NewMemory()
	boom := errors.New("boom")
	m.FailWith(boom)
	if _, err := m.Publish(context.Background(), "t", OutgoingMessage{}); !errors.Is(err, boom) {
		t.Fatalf("expected injected error, got %v", err)
	}

	m.FailWith(nil)
	if _, err := m.Publish(context.Background(), "", OutgoingMessage{}); !errors.Is(err, ErrDestinationRequired) {
		t.Fatalf("expected ErrDestinationRequired, got %v", err)
	}

	_ = m.Close()
	if _, err := m.Publish(context.Background(), "t", OutgoingMessage{}); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestLog_Publish(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := NewLog(slog.New(slog.NewJSONHandler(&buf, nil)))

	_, err := l.Publish(context.Background(), "audit", OutgoingMessage{
		Body:       []byte(`{"a":1}`),
		Attributes: map[string]string{"type": "issued"},
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if !strings.Contains(buf.String(), `"destination":"audit"`) {
		t.Fatalf("expected destination in log, got %s", buf.String())
	}
}

func TestNSQBody(t *testing.T) {
	t.Parallel()

	// Arrange
	msg := OutgoingMessage{
		Body:    []byte(`{"a":1}`),
		Headers: []Header{{Key: "cID", Value: []byte("x")}},
	}

	// Act
	b, err := nsqBody(msg)

	// Assert
	if err != nil {
		t.Fatalf("nsqBody: %v", err)
	}
	var env nsqEnvelope
	if err := json.Unmarshal(b, &env); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if env.Attributes["cID"] != "x" || string(env.Body) != `{"a":1}` {
		t.Fatalf("unexpected envelope: %+v", env)
	}

	plain, err := nsqBody(OutgoingMessage{Body: []byte("raw")})
	if err != nil || string(plain) != "raw" {
		t.Fatalf("expected raw passthrough, got %q, %v", plain, err)
	}

	if _, err := nsqBody(OutgoingMessage{Body: []byte("raw"), Attributes: map[string]string{"k": "v"}}); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
}
