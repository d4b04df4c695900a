package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type contextKey string

const (
	loggerKey    contextKey = "logger"
	requestIDKey contextKey = "request_id"
	actorIDKey   contextKey = "actor_id"
	importIDKey  contextKey = "import_id"
)

// WithContext returns a new context with the logger attached
func WithContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext retrieves the logger from context, or a no-op logger
func FromContext(ctx context.Context) *zap.Logger {
	if logger, ok := ctx.Value(loggerKey).(*zap.Logger); ok {
		return logger
	}
	return zap.NewNop()
}

// WithRequestID tags ctx with the HTTP request id
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// WithActorID tags ctx with the user or operator performing the change
func WithActorID(ctx context.Context, actorID string) context.Context {
	return context.WithValue(ctx, actorIDKey, actorID)
}

// WithImportID tags ctx with the import log being written
func WithImportID(ctx context.Context, importID string) context.Context {
	return context.WithValue(ctx, importIDKey, importID)
}

// GetRequestID retrieves request ID from context
func GetRequestID(ctx context.Context) string {
	return stringValue(ctx, requestIDKey)
}

// GetActorID retrieves actor ID from context
func GetActorID(ctx context.Context) string {
	return stringValue(ctx, actorIDKey)
}

// GetImportID retrieves import ID from context
func GetImportID(ctx context.Context) string {
	return stringValue(ctx, importIDKey)
}

func stringValue(ctx context.Context, key contextKey) string {
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

// ContextFields returns the correlation fields carried by ctx: trace and span
// ids of the active span plus any request, actor and import ids.
func ContextFields(ctx context.Context) []zap.Field {
	var fields []zap.Field
	if spanCtx := trace.SpanFromContext(ctx).SpanContext(); spanCtx.IsValid() {
		fields = append(fields,
			zap.String("trace_id", spanCtx.TraceID().String()),
			zap.String("span_id", spanCtx.SpanID().String()),
		)
	}
	for _, kv := range []struct {
		key   contextKey
		field string
	}{
		{requestIDKey, "request_id"},
		{actorIDKey, "actor_id"},
		{importIDKey, "import_id"},
	} {
		if v := stringValue(ctx, kv.key); v != "" {
			fields = append(fields, zap.String(kv.field, v))
		}
	}
	return fields
}

// L returns the logger stored in ctx enriched with its correlation fields.
//
//	logger.L(ctx).Info("import finished", zap.Int("rows", n))
func L(ctx context.Context) *zap.Logger {
	return Enrich(ctx, FromContext(ctx))
}

// Enrich adds the correlation fields of ctx to logger
func Enrich(ctx context.Context, logger *zap.Logger) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	if fields := ContextFields(ctx); len(fields) > 0 {
		return logger.With(fields...)
	}
	return logger
}
