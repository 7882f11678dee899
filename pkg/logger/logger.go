package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"go.opentelemetry.io/otel/trace"
)

type (
	correlationIDKey struct{}
	accountIDKey     struct{}
	loggerKey        struct{}
)

// Options configures New.
type Options struct {
	// Level is debug, info, warn or error. Unknown values mean info.
	Level string
	// Format is "text" for human-readable output; anything else is JSON.
	Format string
	// Writer defaults to os.Stdout.
	Writer io.Writer
}

// New creates a logger tagged with the given service name. Records logged
// with a context pick up correlation_id, account_id, trace_id and span_id
// from it unless the call already sets those keys.
func New(service string, opts Options) *slog.Logger {
	w := opts.Writer
	if w == nil {
		w = os.Stdout
	}

	lvl := ParseLevel(opts.Level)
	ho := &slog.HandlerOptions{Level: lvl, AddSource: lvl == slog.LevelDebug}

	var h slog.Handler
	if strings.EqualFold(opts.Format, "text") {
		h = slog.NewTextHandler(w, ho)
	} else {
		h = slog.NewJSONHandler(w, ho)
	}

	return slog.New(contextHandler{Handler: h}).With(slog.String("service", service))
}

// ParseLevel maps a textual level to a slog.Level, defaulting to info.
// Offsets such as "warn+2" are accepted.
func ParseLevel(level string) slog.Level {
	if strings.EqualFold(level, "warning") {
		return slog.LevelWarn
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

type contextHandler struct {
	slog.Handler
}

func (h contextHandler) Handle(ctx context.Context, r slog.Record) error {
	fields := contextFields(ctx)
	if len(fields) == 0 {
		return h.Handler.Handle(ctx, r)
	}

	set := make(map[string]struct{}, r.NumAttrs())
	r.Attrs(func(a slog.Attr) bool {
		set[a.Key] = struct{}{}
		return true
	})
	for _, f := range fields {
		if _, ok := set[f.Key]; !ok {
			r.AddAttrs(f)
		}
	}
	return h.Handler.Handle(ctx, r)
}

func (h contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return contextHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h contextHandler) WithGroup(name string) slog.Handler {
	return contextHandler{Handler: h.Handler.WithGroup(name)}
}

func contextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	var fields []slog.Attr
	if id := CorrelationIDFromContext(ctx); id != "" {
		fields = append(fields, slog.String("correlation_id", id))
	}
	if id := AccountIDFromContext(ctx); id != "" {
		fields = append(fields, slog.String("account_id", id))
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields,
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}
	return fields
}

// WithCorrelationID returns a new context with the correlation ID set.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey{}, id)
}

// CorrelationIDFromContext extracts the correlation ID from the context.
func CorrelationIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(correlationIDKey{}).(string)
	return id
}

// WithAccountID returns a new context carrying the authenticated account id.
func WithAccountID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, accountIDKey{}, id)
}

// AccountIDFromContext extracts the account id stored by WithAccountID.
func AccountIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(accountIDKey{}).(string)
	return id
}

// NewContext stores l as the request-scoped logger.
func NewContext(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

// FromContext returns the logger stored by NewContext, or slog.Default().
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}
