package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCapturingAuditLogger(buf *bytes.Buffer) *AuditLogger {
	al := NewAuditLogger(slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	al.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	return al
}

func decodeRecord(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	return rec
}

func TestLogPinAttempt_Failure(t *testing.T) {
	var buf bytes.Buffer
	al := newCapturingAuditLogger(&buf)

	al.LogPinAttempt(AuditEvent{IPAddress: "1.2.3.4", FailureReason: "incorrect_pin"})

	rec := decodeRecord(t, &buf)
	assert.Equal(t, "WARN", rec["level"])
	assert.Equal(t, "audit", rec["msg"])
	assert.Equal(t, "pin", rec["audit_type"])
	assert.Equal(t, EventPinVerify, rec["event_type"])
	assert.Equal(t, "1.2.3.4", rec["ip_address"])
	assert.Equal(t, "incorrect_pin", rec["failure_reason"])
	assert.Equal(t, "2026-01-02T03:04:05Z", rec["timestamp"])
}

func TestLogPinAttempt_SuccessIsInfo(t *testing.T) {
	var buf bytes.Buffer
	al := newCapturingAuditLogger(&buf)

	al.LogPinAttempt(AuditEvent{IPAddress: "1.2.3.4", Success: true})

	rec := decodeRecord(t, &buf)
	assert.Equal(t, "INFO", rec["level"])
	assert.NotContains(t, rec, "failure_reason")
}

func TestLogLockout(t *testing.T) {
	var buf bytes.Buffer
	al := newCapturingAuditLogger(&buf)

	al.LogLockout("1.2.3.4", 2, 30)

	rec := decodeRecord(t, &buf)
	assert.Equal(t, "lockout", rec["audit_type"])
	assert.Equal(t, EventIPLocked, rec["event_type"])
	assert.Equal(t, "2", rec["lock_count"])
	assert.Equal(t, "30", rec["lock_minutes"])
}

func TestLogAdminAction(t *testing.T) {
	var buf bytes.Buffer
	al := newCapturingAuditLogger(&buf)

	al.LogAdminAction(EventAdminResetBlocked, "5.6.7.8", false, "invalid_bearer")

	rec := decodeRecord(t, &buf)
	assert.Equal(t, "admin", rec["audit_type"])
	assert.Equal(t, EventAdminResetBlocked, rec["event_type"])
	assert.Equal(t, false, rec["success"])
}

func TestSanitizedEmail(t *testing.T) {
	tests := []struct {
		email string
		want  string
	}{
		{"app@internal.local", "a**@i*******.local"},
		{"x@y.z", "x@y.z"},
		{"not-an-email", "[invalid-email]"},
		{"@missing.user", "[invalid-email]"},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizedEmail(tt.email))
		})
	}
}

func TestSanitizeQueryString(t *testing.T) {
	tests := []struct {
		query string
		want  bool
	}{
		{"", false},
		{"page=2", false},
		{"pin=1234", true},
		{"PIN=1234", true},
		{"a=1&access_token=abc", true},
		{"%zz", true},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeQueryString(tt.query))
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"verbose", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestNew_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, slog.LevelWarn)

	l.Info("dropped")
	assert.Zero(t, buf.Len())

	l.Warn("kept")
	assert.Contains(t, buf.String(), `"msg":"kept"`)
}
