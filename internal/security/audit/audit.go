package audit

import (
	"context"
	"log/slog"
	"time"
)

type Logger struct {
	logger *slog.Logger
}

func NewLogger(logger *slog.Logger) *Logger {
	return &Logger{logger: logger}
}

type requestIDKey struct{}

// WithRequestID stores the request ID so audit entries can be correlated
// with the request log.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFrom returns the stored request ID, or empty.
func RequestIDFrom(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

func (al *Logger) LogAction(ctx context.Context, accountID, role, action, resource, resourceID, status, details string) {
	requestID := RequestIDFrom(ctx)

	al.logger.Info("audit",
		slog.String("action", action),
		slog.String("resource", resource),
		slog.String("resource_id", resourceID),
		slog.String("account_id", accountID),
		slog.String("role", role),
		slog.String("status", status),
		slog.String("details", details),
		slog.String("request_id", requestID),
		slog.Time("timestamp", time.Now()),
	)
}

func (al *Logger) LogLogin(ctx context.Context, accountID, role, status string) {
	al.LogAction(ctx, accountID, role, "login", "session", "", status, "")
}

func (al *Logger) LogMark(ctx context.Context, accountID, role, recordID, status, details string) {
	al.LogAction(ctx, accountID, role, "mark", "attendance", recordID, status, details)
}

func (al *Logger) LogBulkMark(ctx context.Context, accountID, role, details string) {
	al.LogAction(ctx, accountID, role, "bulk_mark", "attendance", "", "completed", details)
}

func (al *Logger) LogDenied(ctx context.Context, accountID, role, reason string) {
	al.LogAction(ctx, accountID, role, "access_denied", "api", "", "denied", reason)
}
