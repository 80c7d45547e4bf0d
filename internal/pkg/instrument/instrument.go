package instrument

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/samber/lo"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

const defaultMetricsInterval = 30 * time.Second

// Instrumentation exposes tracing and metrics providers for dependency injection.
type Instrumentation interface {
	Tracer(name string) trace.Tracer
	Meter(name string) metric.Meter
	Shutdown(ctx context.Context) error
}

// Config drives OpenTelemetry initialization.
type Config struct {
	// Enabled exports traces, metrics and logs over OTLP. When false only
	// the JSON log handler is installed.
	Enabled          bool
	ServiceName      string
	ServiceVersion   string
	Environment      string
	OTLPEndpoint     string
	OTLPSecure       bool
	TraceSampleRatio float64
	MetricsInterval  time.Duration
	// MaskFields lists log attribute names whose values are masked, at any
	// depth of a JSON or map value.
	MaskFields []string
	// LogLevel is debug, info, warn or error.
	LogLevel string
}

// providers backs both the exporting and the noop instrumentation.
type providers struct {
	tracer   trace.TracerProvider
	meter    metric.MeterProvider
	shutdown []func(context.Context) error
}

func (p *providers) Tracer(name string) trace.Tracer { return p.tracer.Tracer(name) }

func (p *providers) Meter(name string) metric.Meter { return p.meter.Meter(name) }

// Shutdown flushes and stops every exporter, in creation order.
func (p *providers) Shutdown(ctx context.Context) error {
	errs := lo.Map(p.shutdown, func(fn func(context.Context) error, _ int) error {
		return fn(ctx)
	})
	return errors.Join(errs...)
}

// New installs the JSON slog handler and returns an OTLP backed
// Instrumentation, or a noop one when cfg is nil or disabled.
func New(ctx context.Context, cfg *Config) (Instrumentation, error) {
	if cfg == nil {
		return NewNoop(), nil
	}
	if !cfg.Enabled {
		initLogging(cfg.ServiceName, parseLevel(cfg.LogLevel), nil, cfg.MaskFields)
		return NewNoop(), nil
	}

	res, err := newResource(ctx, cfg)
	if err != nil {
		return nil, err
	}

	p := &providers{}
	fail := func(err error) (Instrumentation, error) {
		return nil, errors.Join(err, p.Shutdown(ctx))
	}

	traceExporter, err := otlptracegrpc.New(ctx, lo.Ternary(cfg.OTLPSecure,
		[]otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint)},
		[]otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint), otlptracegrpc.WithInsecure()},
	)...)
	if err != nil {
		return fail(err)
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(lo.Clamp(cfg.TraceSampleRatio, 0, 1)))),
		sdktrace.WithBatcher(traceExporter),
	)
	p.tracer = tp
	p.shutdown = append(p.shutdown, tp.Shutdown)

	metricExporter, err := otlpmetricgrpc.New(ctx, lo.Ternary(cfg.OTLPSecure,
		[]otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.OTLPEndpoint)},
		[]otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.OTLPEndpoint), otlpmetricgrpc.WithInsecure()},
	)...)
	if err != nil {
		return fail(err)
	}
	interval := lo.Ternary(cfg.MetricsInterval > 0, cfg.MetricsInterval, defaultMetricsInterval)
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter, sdkmetric.WithInterval(interval))),
	)
	p.meter = mp
	p.shutdown = append(p.shutdown, mp.Shutdown)

	logExporter, err := otlploggrpc.New(ctx, lo.Ternary(cfg.OTLPSecure,
		[]otlploggrpc.Option{otlploggrpc.WithEndpoint(cfg.OTLPEndpoint)},
		[]otlploggrpc.Option{otlploggrpc.WithEndpoint(cfg.OTLPEndpoint), otlploggrpc.WithInsecure()},
	)...)
	if err != nil {
		return fail(err)
	}
	lp := sdklog.NewLoggerProvider(
		sdklog.WithResource(res),
		sdklog.WithProcessor(sdklog.NewBatchProcessor(logExporter)),
	)
	p.shutdown = append(p.shutdown, lp.Shutdown)

	initLogging(cfg.ServiceName, parseLevel(cfg.LogLevel), lp, cfg.MaskFields)

	return p, nil
}

func newResource(ctx context.Context, cfg *Config) (*resource.Resource, error) {
	attrs := []resource.Option{
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
			semconv.DeploymentEnvironment(cfg.Environment),
		),
	}
	if host, err := os.Hostname(); err == nil {
		attrs = append(attrs, resource.WithAttributes(semconv.ServiceInstanceID(host)))
	}
	return resource.New(ctx, attrs...)
}

// NewNoop returns an Instrumentation that records nothing.
func NewNoop() Instrumentation {
	return &providers{
		tracer: tracenoop.NewTracerProvider(),
		meter:  metricnoop.NewMeterProvider(),
	}
}
