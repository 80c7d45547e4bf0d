package instrument

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// parseLevel accepts slog level names ("debug", "WARN", "info+2") and falls back to info.
func parseLevel(s string) slog.Level {
	var lvl slog.Level
	if lvl.UnmarshalText([]byte(strings.TrimSpace(s))) != nil {
		return slog.LevelInfo
	}
	return lvl
}

func initLogging(serviceName string, level slog.Level, lp *sdklog.LoggerProvider, maskFields []string) {
	slog.SetDefault(slog.New(newHandler(os.Stdout, serviceName, level, lp, maskFields)))
}

// newHandler writes JSON to w and, when lp is set, mirrors records to the OTel log pipeline.
func newHandler(w io.Writer, serviceName string, level slog.Level, lp *sdklog.LoggerProvider, maskFields []string) slog.Handler {
	var sink slog.Handler = slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       level,
		AddSource:   true,
		ReplaceAttr: renameAttr,
	})
	if lp != nil {
		sink = fanout{sink, otelslog.NewHandler(serviceName, otelslog.WithLoggerProvider(lp))}
	}

	return &contextHandler{
		Handler: &maskHandler{next: sink, keys: newMasker(maskFields)},
		service: serviceName,
	}
}

func renameAttr(_ []string, a slog.Attr) slog.Attr {
	switch a.Key {
	case slog.TimeKey:
		return slog.Attr{Key: "ts", Value: a.Value}
	case slog.LevelKey:
		return slog.Attr{Key: "severity", Value: a.Value}
	case slog.SourceKey:
		src, ok := a.Value.Any().(*slog.Source)
		if !ok {
			return a
		}
		i := strings.LastIndex(src.File, "/internal/")
		if i < 0 {
			return slog.Attr{}
		}
		return slog.String("file", src.File[i+1:]+":"+strconv.Itoa(src.Line))
	}
	return a
}

// contextHandler adds the request correlation id and the service name.
type contextHandler struct {
	slog.Handler
	service string
}

func (h *contextHandler) Handle(ctx context.Context, r slog.Record) error {
	if id := GetCorrelationID(ctx); id != "" {
		r.AddAttrs(slog.String("_cID", id))
	}
	r.AddAttrs(slog.String("service", h.service))
	return h.Handler.Handle(ctx, r)
}

func (h *contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &contextHandler{Handler: h.Handler.WithAttrs(attrs), service: h.service}
}

func (h *contextHandler) WithGroup(name string) slog.Handler {
	return &contextHandler{Handler: h.Handler.WithGroup(name), service: h.service}
}

// fanout sends each record to every enabled handler.
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, l slog.Level) bool {
	return lo.SomeBy(f, func(h slog.Handler) bool { return h.Enabled(ctx, l) })
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f {
		if h.Enabled(ctx, r.Level) {
			errs = append(errs, h.Handle(ctx, r.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	return fanout(lo.Map(f, func(h slog.Handler, _ int) slog.Handler { return h.WithAttrs(attrs) }))
}

func (f fanout) WithGroup(name string) slog.Handler {
	return fanout(lo.Map(f, func(h slog.Handler, _ int) slog.Handler { return h.WithGroup(name) }))
}
