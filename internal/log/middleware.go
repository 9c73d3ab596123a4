package log

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"spese-analytics/internal/core"
)

type ContextKey string

const LoggerContextKey ContextKey = "logger"

// NewContext returns a copy of ctx carrying logger.
func NewContext(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, LoggerContextKey, logger)
}

// FromContext returns the request logger, or one backed by slog.Default.
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(LoggerContextKey).(*Logger); ok {
		return logger
	}
	return &Logger{
		Logger:    slog.Default(),
		component: "unknown",
	}
}

// StructuredLogger bundles the log lines emitted at fixed points of a
// request or refresh cycle.
type StructuredLogger struct {
	logger *Logger
}

func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{logger: logger}
}

// LogHTTPEnd logs a completed request; 4xx at warn, 5xx at error.
func (sl *StructuredLogger) LogHTTPEnd(ctx context.Context, r *http.Request, statusCode int, durationMs int64, clientIP string) {
	level := slog.LevelInfo
	if statusCode >= 400 && statusCode < 500 {
		level = slog.LevelWarn
	} else if statusCode >= 500 {
		level = slog.LevelError
	}

	fields := NewFields().WithHTTPResponse(statusCode, durationMs)
	fields[FieldMethod] = r.Method
	fields[FieldPath] = r.URL.Path
	fields[FieldQuery] = r.URL.RawQuery
	fields[FieldClientIP] = clientIP

	sl.logger.Logger.Log(ctx, level, "HTTP request completed", append([]any{FieldComponent, ComponentHTTP}, fields.ToSlice()...)...)
}

// LogUpstreamFetch logs one upstream read for a window.
func (sl *StructuredLogger) LogUpstreamFetch(ctx context.Context, op string, r core.ResolvedRange, upstream string, d time.Duration, cacheHit bool) {
	fields := NewFields().
		WithOperation(op).
		WithRange(r).
		WithUpstream(upstream, d)
	fields[FieldCacheHit] = cacheHit

	sl.logger.DebugContext(ctx, "upstream fetch", fields.ToSlice()...)
}

// LogExpenseSaved logs a created or updated record.
func (sl *StructuredLogger) LogExpenseSaved(ctx context.Context, op string, e core.Expense) {
	sl.logger.InfoContext(ctx, "expense saved", NewFields().WithExpense(e).WithOperation(op).ToSlice()...)
}

// LogError logs an error with structured context.
func (sl *StructuredLogger) LogError(ctx context.Context, msg string, err error, operation string, fields LogFields) {
	if fields == nil {
		fields = NewFields()
	}
	sl.logger.ErrorContext(ctx, msg, fields.WithError(err).WithOperation(operation).ToSlice()...)
}
