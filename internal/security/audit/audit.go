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

func (al *Logger) LogAction(ctx context.Context, tenantID, accountID, action, resource, resourceID, status, details string) {
	requestID := ""
	if reqID := ctx.Value("request_id"); reqID != nil {
		requestID = reqID.(string)
	}

	al.logger.Info("audit",
		slog.String("action", action),
		slog.String("resource", resource),
		slog.String("resource_id", resourceID),
		slog.String("tenant_id", tenantID),
		slog.String("account_id", accountID),
		slog.String("status", status),
		slog.String("details", details),
		slog.String("request_id", requestID),
		slog.Time("timestamp", time.Now()),
	)
}

func (al *Logger) LogSignup(ctx context.Context, tenantID, accountID, status, details string) {
	al.LogAction(ctx, tenantID, accountID, "signup", "account", accountID, status, details)
}

func (al *Logger) LogLogin(ctx context.Context, tenantID, accountID, status, details string) {
	al.LogAction(ctx, tenantID, accountID, "login", "account", accountID, status, details)
}

func (al *Logger) LogRosterQuery(ctx context.Context, tenantID, accountID, status, details string) {
	al.LogAction(ctx, tenantID, accountID, "roster_query", "roster", tenantID, status, details)
}

func (al *Logger) LogDenied(ctx context.Context, tenantID, accountID, reason string) {
	al.LogAction(ctx, tenantID, accountID, "access_denied", "api", "", "denied", reason)
}
