package authkit

import (
	"context"
	"time"

	"github.com/taskhive/authkit/internal/audit"
)

// AuditSink receives security events emitted by the engine.
type AuditSink = audit.Sink

// AuditEvent is one emitted security event.
type AuditEvent = audit.Event

// NewAuditChannelSink returns a sink backed by a buffered channel.
func NewAuditChannelSink(buffer int) *audit.ChannelSink {
	return audit.NewChannelSink(buffer)
}

const (
	auditLogin         = "login"
	auditLogout        = "logout"
	auditTokenRefresh  = "token_refresh"
	auditPasswordReset = "password_reset"
	auditEmailVerified = "email_verified"
	auditTwoFactor     = "two_factor"
	auditAuthzDenied   = "authz_denied"
)

func (e *Engine) emitAudit(ctx context.Context, eventType, userID string, tokenType TokenType, success bool, cause error) {
	if e == nil || e.audit == nil {
		return
	}

	event := audit.Event{
		Timestamp: time.Now(),
		EventType: eventType,
		UserID:    userID,
		TokenType: string(tokenType),
		IP:        clientIPFromContext(ctx),
		Success:   success,
	}
	if cause != nil {
		event.Error = cause.Error()
	}

	e.audit.Emit(ctx, event)
}
