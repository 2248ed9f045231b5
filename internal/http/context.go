package http

import (
	"context"
	"log/slog"

	"github.com/example/club-scheduler/internal/logging"
)

type contextKey string

const (
	sessionIDContextKey      contextKey = "session_id"
	cancellationIDContextKey contextKey = "cancellation_id"
	alertIDContextKey        contextKey = "alert_id"
)

// ContextWithSessionID injects the session identifier resolved from the request path.
func ContextWithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionIDContextKey, id)
}

// SessionIDFromContext extracts a session identifier previously associated with the context.
func SessionIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(sessionIDContextKey).(string)
	return id, ok
}

// ContextWithCancellationID injects the cancellation identifier resolved from the request path.
func ContextWithCancellationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, cancellationIDContextKey, id)
}

// CancellationIDFromContext extracts a cancellation identifier previously associated with the context.
func CancellationIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(cancellationIDContextKey).(string)
	return id, ok
}

// ContextWithAlertID injects the alert identifier resolved from the request path.
func ContextWithAlertID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, alertIDContextKey, id)
}

// AlertIDFromContext extracts an alert identifier previously associated with the context.
func AlertIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(alertIDContextKey).(string)
	return id, ok
}

// ContextWithLogger attaches a request-scoped logger to the context.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return logging.ContextWithLogger(ctx, logger)
}

// LoggerFromContext extracts the request-scoped logger, if any.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx)
}
