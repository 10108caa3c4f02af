package lockbox

import (
	"context"
	"time"
)

const (
	auditEventIssueSuccess    = "issue_success"
	auditEventIssueRejected   = "issue_rejected"
	auditEventRefreshSuccess  = "refresh_success"
	auditEventRefreshRejected = "refresh_rejected"
	auditEventRefreshReplay   = "refresh_replay"
	auditEventVerifyRejected  = "verify_rejected"
)

func (e *Engine) emitAudit(ctx context.Context, eventType string, success bool, userID string, cause error, metaFn func() map[string]string) {
	if e == nil || e.audit == nil {
		return
	}

	event := AuditEvent{
		Timestamp:  time.Now(),
		EventType:  eventType,
		UserID:     userID,
		IP:         clientIPFromContext(ctx),
		SessionRef: sessionRefFromContext(ctx),
		Success:    success,
	}
	if cause != nil {
		event.Error = cause.Error()
	}
	if metaFn != nil {
		event.Metadata = metaFn()
	}

	e.audit.Emit(ctx, event)
}
