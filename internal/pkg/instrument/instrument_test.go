package instrument

import (
	"context"
	"errors"
	"testing"
)

func TestNew_Disabled(t *testing.T) {
	for name, cfg := range map[string]*Config{
		"Nil":      nil,
		"Disabled": {ServiceName: "gocustody", LogLevel: "warn", MaskFields: []string{"response"}},
	} {
		t.Run(name, func(t *testing.T) {
			ins, err := New(context.Background(), cfg)
			if err != nil {
				t.Fatalf("New: %v", err)
			}

			_, span := ins.Tracer("challenge.usecase").Start(context.Background(), "Validate")
			span.End()
			if _, err := ins.Meter("challenge.usecase").Int64Counter("custody.challenge.issued"); err != nil {
				t.Fatalf("counter: %v", err)
			}
			if err := ins.Shutdown(context.Background()); err != nil {
				t.Fatalf("Shutdown: %v", err)
			}
		})
	}
}

func TestProviders_ShutdownJoinsErrors(t *testing.T) {
	errTrace := errors.New("trace exporter")
	errLog := errors.New("log exporter")
	var order []string

	p := &providers{shutdown: []func(context.Context) error{
		func(context.Context) error { order = append(order, "trace"); return errTrace },
		func(context.Context) error { order = append(order, "metric"); return nil },
		func(context.Context) error { order = append(order, "log"); return errLog },
	}}

	err := p.Shutdown(context.Background())

	if !errors.Is(err, errTrace) || !errors.Is(err, errLog) {
		t.Fatalf("err = %v, want both exporter errors", err)
	}
	if len(order) != 3 || order[0] != "trace" || order[2] != "log" {
		t.Fatalf("order = %v", order)
	}
}
