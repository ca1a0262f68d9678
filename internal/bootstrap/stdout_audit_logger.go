package bootstrap

import (
	"context"
	"time"

	"leave-expiry/internal/shared/contextutil"

	"go.uber.org/zap"
)

// AuditLog is a process level event worth keeping apart from request logs.
type AuditLog struct {
	Action  string
	Message string
	Meta    map[string]any
}

type AuditLogger interface {
	Log(ctx context.Context, entry AuditLog)
}

// StdoutAuditLogger writes audit entries through the global zap logger.
type StdoutAuditLogger struct {
	now func() time.Time
}

func NewStdoutAuditLogger() *StdoutAuditLogger {
	return &StdoutAuditLogger{now: time.Now}
}

func (l *StdoutAuditLogger) Log(ctx context.Context, entry AuditLog) {
	log := contextutil.Logger(ctx, zap.L()).Named("audit")
	log.Info("audit event",
		zap.String("timestamp", l.now().UTC().Format(time.RFC3339)),
		zap.String("action", entry.Action),
		zap.String("message", entry.Message),
		zap.Any("meta", entry.Meta),
	)
}
