package log

import (
	"context"
	"log/slog"
	"net/http"
)

type ContextKey string

const LoggerContextKey ContextKey = "logger"

// WithLogger stores a request-scoped logger in ctx.
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, LoggerContextKey, logger)
}

// FromContext returns the request logger, or one backed by slog.Default.
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(LoggerContextKey).(*Logger); ok {
		return logger
	}
	return &Logger{Logger: slog.Default(), component: "unknown"}
}

// StructuredLogger emits the handful of well-known events with fixed field sets.
type StructuredLogger struct {
	logger *Logger
}

func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{logger: logger}
}

// LogHTTPEnd logs a completed request at a level derived from the status code.
func (sl *StructuredLogger) LogHTTPEnd(ctx context.Context, r *http.Request, statusCode int, durationMs int64, clientIP string) {
	level := slog.LevelInfo
	if statusCode >= 500 {
		level = slog.LevelError
	} else if statusCode >= 400 {
		level = slog.LevelWarn
	}
	fields := NewFields().
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.Header.Get("User-Agent"), "").
		WithHTTPResponse(statusCode, durationMs, statusCode < 400).
		WithClientIP(clientIP)
	sl.logger.Fields(ctx, level, "HTTP request completed", fields)
}

// LogActivityChanged logs a successful ledger mutation.
func (sl *StructuredLogger) LogActivityChanged(ctx context.Context, op, userID, date, id, name, category string, minutes, total int) {
	fields := NewFields().
		WithOperation(op).
		WithScope(userID, date).
		WithActivity(id, name, category, minutes)
	fields[FieldTotal] = total
	sl.logger.Fields(ctx, slog.LevelInfo, "Activity changed", fields)
}

// LogError logs err with component and operation context.
func (sl *StructuredLogger) LogError(ctx context.Context, msg string, err error, operation string, fields LogFields) {
	if fields == nil {
		fields = NewFields()
	}
	sl.logger.Fields(ctx, slog.LevelError, msg, fields.WithError(err).WithOperation(operation))
}
