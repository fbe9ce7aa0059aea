package logger

import (
	"context"
	"log/slog"
	"strconv"
	"time"
)

// Audit event types
const (
	EventPinVerify         = "pin_verify"
	EventIPLocked          = "ip_locked"
	EventAdminStats        = "admin_stats"
	EventAdminResetBlocked = "admin_reset_blocked"
)

// AuditEvent represents a security audit event
type AuditEvent struct {
	EventType     string
	IPAddress     string
	Success       bool
	FailureReason string
	Metadata      map[string]string
}

// AuditLogger provides audit logging functionality
type AuditLogger struct {
	logger *slog.Logger
	now    func() time.Time
}

// NewAuditLogger creates a new audit logger
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return &AuditLogger{
		logger: logger,
		now:    time.Now,
	}
}

// LogPinAttempt logs one PIN comparison. The PIN itself is never logged.
func (al *AuditLogger) LogPinAttempt(event AuditEvent) {
	if event.EventType == "" {
		event.EventType = EventPinVerify
	}
	al.log("pin", event)
}

// LogLockout logs a newly applied lock on an IP.
func (al *AuditLogger) LogLockout(ipAddress string, lockCount, lockMinutes int) {
	al.log("lockout", AuditEvent{
		EventType:     EventIPLocked,
		IPAddress:     ipAddress,
		Success:       false,
		FailureReason: "too_many_failed_attempts",
		Metadata: map[string]string{
			"lock_count":   strconv.Itoa(lockCount),
			"lock_minutes": strconv.Itoa(lockMinutes),
		},
	})
}

// LogAdminAction logs reads and resets of the blocked counter.
func (al *AuditLogger) LogAdminAction(eventType, ipAddress string, success bool, failureReason string) {
	al.log("admin", AuditEvent{
		EventType:     eventType,
		IPAddress:     ipAddress,
		Success:       success,
		FailureReason: failureReason,
	})
}

func (al *AuditLogger) log(auditType string, event AuditEvent) {
	attrs := []slog.Attr{
		slog.String("audit_type", auditType),
		slog.String("event_type", event.EventType),
		slog.Bool("success", event.Success),
		slog.String("timestamp", al.now().UTC().Format(time.RFC3339)),
	}

	if event.IPAddress != "" {
		attrs = append(attrs, slog.String("ip_address", event.IPAddress))
	}
	if event.FailureReason != "" {
		attrs = append(attrs, slog.String("failure_reason", event.FailureReason))
	}
	for key, val := range event.Metadata {
		attrs = append(attrs, slog.String(key, val))
	}

	level := slog.LevelInfo
	if !event.Success {
		level = slog.LevelWarn
	}
	al.logger.LogAttrs(context.Background(), level, "audit", attrs...)
}
