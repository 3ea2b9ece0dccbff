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
	if logger == nil {
		logger = slog.Default()
	}
	return &Logger{logger: logger}
}

type requestIDKey struct{}

// WithRequestID returns a context carrying the request's correlation ID.
// The server attaches it once per request so audit entries line up with
// the access log.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the request's correlation ID, or "" when
// none was attached.
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

func (al *Logger) LogAction(ctx context.Context, employeeID, action, resource, resourceID, status, details string) {
	requestID := RequestIDFromContext(ctx)

	al.logger.Info("audit",
		slog.String("action", action),
		slog.String("resource", resource),
		slog.String("resource_id", resourceID),
		slog.String("employee_id", employeeID),
		slog.String("status", status),
		slog.String("details", details),
		slog.String("request_id", requestID),
		slog.Time("timestamp", time.Now()),
	)
}

func (al *Logger) LogLogin(ctx context.Context, employeeID, status, details string) {
	al.LogAction(ctx, employeeID, "login", "session", "", status, details)
}

func (al *Logger) LogComplaintUpdate(ctx context.Context, employeeID, complaintID, status, details string) {
	al.LogAction(ctx, employeeID, "update", "complaint", complaintID, status, details)
}

func (al *Logger) LogProgressPhoto(ctx context.Context, employeeID, complaintID, status string) {
	al.LogAction(ctx, employeeID, "progress_photo", "complaint", complaintID, status, "")
}

func (al *Logger) LogDenied(ctx context.Context, employeeID, reason string) {
	al.LogAction(ctx, employeeID, "access_denied", "api", "", "denied", reason)
}
