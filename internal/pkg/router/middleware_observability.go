package router

import (
	"bufio"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/shandysiswandi/gocustody/internal/pkg/instrument"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

var errHijackUnsupported = errors.New("router: response writer cannot be hijacked")

// recorder captures the status and size of a response. Bodies are never kept:
// verify requests carry challenge responses.
type recorder struct {
	http.ResponseWriter
	status int
	size   int
	err    error
}

func (w *recorder) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *recorder) Write(p []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(p)
	w.size += n
	return n, err
}

// SetError lets the endpoint adapter attach the handler error to the span.
func (w *recorder) SetError(err error) { w.err = err }

func (w *recorder) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *recorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := w.ResponseWriter.(http.Hijacker); ok {
		return h.Hijack()
	}
	return nil, nil, errHijackUnsupported
}

func (w *recorder) code() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

// matchedRoutePath returns the route template (for example
// /api/v1/custody/challenges/:challenge_id/verify) so ids stay out of span names.
func matchedRoutePath(r *http.Request) string {
	if p := httprouter.ParamsFromContext(r.Context()).MatchedRoutePath(); p != "" {
		return p
	}
	return r.URL.Path
}

type httpMetrics struct {
	requests metric.Int64Counter
	duration metric.Float64Histogram
}

func newHTTPMetrics(meter metric.Meter) httpMetrics {
	var m httpMetrics
	var err error

	m.requests, err = meter.Int64Counter("http.server.requests", metric.WithDescription("HTTP requests served"))
	if err != nil {
		slog.Error("failed to create http request counter", "error", err)
	}
	m.duration, err = meter.Float64Histogram("http.server.request.duration",
		metric.WithUnit("s"), metric.WithDescription("HTTP request duration"))
	if err != nil {
		slog.Error("failed to create http duration histogram", "error", err)
	}
	return m
}

func (m httpMetrics) record(r *http.Request, elapsed time.Duration, attrs []attribute.KeyValue) {
	opt := metric.WithAttributes(attrs...)
	if m.requests != nil {
		m.requests.Add(r.Context(), 1, opt)
	}
	if m.duration != nil {
		m.duration.Record(r.Context(), elapsed.Seconds(), opt)
	}
}

func middlewareObservability(ins instrument.Instrumentation) Middleware {
	tracer := ins.Tracer("http.server")
	metrics := newHTTPMetrics(ins.Meter("http.server"))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route := matchedRoutePath(r)
			start := time.Now()

			ctx, span := tracer.Start(r.Context(), r.Method+" "+route,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					semconv.HTTPRequestMethodKey.String(r.Method),
					semconv.HTTPRouteKey.String(route),
					semconv.ClientAddress(clientIP(r).String()),
				),
			)
			defer span.End()

			r = r.WithContext(ctx)
			rec := &recorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)

			status := rec.code()
			elapsed := time.Since(start)
			attrs := []attribute.KeyValue{
				semconv.HTTPRequestMethodKey.String(r.Method),
				semconv.HTTPRouteKey.String(route),
				semconv.HTTPResponseStatusCodeKey.Int(status),
			}

			span.SetAttributes(attrs[2], semconv.HTTPResponseBodySize(rec.size))
			if rec.err != nil {
				span.RecordError(rec.err)
			}
			if status >= http.StatusInternalServerError {
				span.SetStatus(codes.Error, http.StatusText(status))
			}
			metrics.record(r, elapsed, attrs)

			level := slog.LevelInfo
			if status >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			slog.Log(ctx, level, "http request",
				"method", r.Method,
				"route", route,
				"status", status,
				"bytes", rec.size,
				"latency_ms", elapsed.Milliseconds(),
			)
		})
	}
}
