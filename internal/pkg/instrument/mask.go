package instrument

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/samber/lo"
)

const masked = "***"

// masker is the case-insensitive set of attribute keys whose values never reach a log sink.
type masker map[string]struct{}

func newMasker(fields []string) masker {
	m := masker{}
	for _, f := range fields {
		if f = strings.ToLower(strings.TrimSpace(f)); f != "" {
			m[f] = struct{}{}
		}
	}
	return m
}

func (m masker) hides(key string) bool {
	_, ok := m[strings.ToLower(key)]
	return ok
}

func (m masker) attr(a slog.Attr) slog.Attr {
	if m.hides(a.Key) {
		return slog.String(a.Key, masked)
	}

	switch a.Value.Kind() {
	case slog.KindGroup:
		a.Value = slog.GroupValue(lo.Map(a.Value.Group(), func(ga slog.Attr, _ int) slog.Attr { return m.attr(ga) })...)
	case slog.KindString:
		if s, ok := m.jsonText([]byte(a.Value.String())); ok {
			a.Value = slog.StringValue(s)
		}
	case slog.KindAny:
		switch v := a.Value.Any().(type) {
		case map[string]any, []any:
			a.Value = slog.AnyValue(m.value(v))
		case map[string]string:
			a.Value = slog.AnyValue(m.value(lo.MapValues(v, func(s string, _ string) any { return s })))
		case []byte:
			if s, ok := m.jsonText(v); ok {
				a.Value = slog.StringValue(s)
			}
		}
	}
	return a
}

// jsonText masks a JSON object or array encoded as text; other text is left alone.
func (m masker) jsonText(raw []byte) (string, bool) {
	if len(raw) == 0 || (raw[0] != '{' && raw[0] != '[') {
		return "", false
	}

	var doc any
	if json.Unmarshal(raw, &doc) != nil {
		return "", false
	}
	out, err := json.Marshal(m.value(doc))
	if err != nil {
		return "", false
	}
	return string(out), true
}

func (m masker) value(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return lo.MapEntries(t, func(k string, inner any) (string, any) {
			if m.hides(k) {
				return k, masked
			}
			return k, m.value(inner)
		})
	case []any:
		return lo.Map(t, func(inner any, _ int) any { return m.value(inner) })
	default:
		return v
	}
}

type maskHandler struct {
	next slog.Handler
	keys masker
}

func (h *maskHandler) Enabled(ctx context.Context, l slog.Level) bool {
	return h.next.Enabled(ctx, l)
}

func (h *maskHandler) Handle(ctx context.Context, r slog.Record) error {
	if len(h.keys) == 0 {
		return h.next.Handle(ctx, r)
	}

	clean := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		clean.AddAttrs(h.keys.attr(a))
		return true
	})
	return h.next.Handle(ctx, clean)
}

func (h *maskHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &maskHandler{next: h.next.WithAttrs(lo.Map(attrs, func(a slog.Attr, _ int) slog.Attr { return h.keys.attr(a) })), keys: h.keys}
}

func (h *maskHandler) WithGroup(name string) slog.Handler {
	return &maskHandler{next: h.next.WithGroup(name), keys: h.keys}
}
