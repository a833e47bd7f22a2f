package authcore

import (
	"context"
	"io"
	"strconv"
	"time"

	"github.com/avirel-labs/authcore/internal/audit"
)

// Audit event types emitted by the engine. One login attempt produces
// exactly one login.* event.
const (
	auditLoginSuccess = "login.success"
	auditLoginFailure = "login.failure"
	auditLockSet      = "account.lock"
	auditLockCleared  = "account.unlock"
	auditNotifySent   = "notify.sent"
	auditNotifyFailed = "notify.failed"
)

// Sink re-exports the audit consumer boundary so embedders implement it
// without importing the internal package.
type Sink = audit.Sink

// AuditEvent is the record handed to audit sinks.
type AuditEvent = audit.Event

// NewChannelSink returns a sink backed by a buffered channel, mainly for
// tests and in-process consumers.
func NewChannelSink(buffer int) *audit.ChannelSink {
	return audit.NewChannelSink(buffer)
}

// NewJSONWriterSink returns a sink writing one JSON object per line.
func NewJSONWriterSink(w io.Writer) *audit.JSONWriterSink {
	return audit.NewJSONWriterSink(w)
}

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	uid string,
	failure *Error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := audit.Event{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		UID:       uid,
		Success:   success,
		Metadata:  metadata,
	}
	if failure != nil {
		event.Errno = int(failure.Errno)
		event.Error = failure.Message
	}

	e.audit.Emit(ctx, event)
}

func loginMetadata(service, reason string) func() map[string]string {
	return func() map[string]string {
		m := make(map[string]string, 2)
		if service != "" {
			m["service"] = service
		}
		if reason != "" {
			m["reason"] = reason
		}
		return m
	}
}

func keysMetadata(service, reason string, keys bool) func() map[string]string {
	base := loginMetadata(service, reason)
	return func() map[string]string {
		m := base()
		m["keys"] = strconv.FormatBool(keys)
		return m
	}
}
