package authkit

import (
	"context"
	"fmt"

	"github.com/taskhive/authkit/internal/metrics"
)

// GenerateVerifyEmailToken issues a one-time verification code for the
// user and mails it to their address.
func (e *Engine) GenerateVerifyEmailToken(ctx context.Context, userID string) (*OTPDetail, error) {
	if e == nil || e.userProvider == nil {
		return nil, ErrEngineNotReady
	}

	user, err := e.userProvider.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	otp, err := e.issueStoredOTP(ctx, user.ID, TokenVerifyEmail, e.config.Token.VerifyEmailTTL)
	if err != nil {
		return nil, err
	}

	e.sendMail(user.Email, "Verify your email",
		fmt.Sprintf("Your email verification code is %s. It expires in %s.",
			otp.Code, e.config.Token.VerifyEmailTTL))

	return otp, nil
}

// VerifyEmail consumes a verification code and marks the owning
// account's address as verified. Sibling codes are invalidated.
// Every failure collapses to ErrAuthenticationFailed.
func (e *Engine) VerifyEmail(ctx context.Context, code string) error {
	if e == nil || e.userProvider == nil {
		return ErrEngineNotReady
	}

	record, err := e.tokenStore.ConsumeActive(ctx, code, string(TokenVerifyEmail), "")
	if err != nil {
		e.emitAudit(ctx, auditEmailVerified, "", TokenVerifyEmail, false, ErrAuthenticationFailed)
		return ErrAuthenticationFailed
	}

	if err := e.tokenStore.DeleteAllForOwner(ctx, record.OwnerID, string(TokenVerifyEmail)); err != nil {
		logf("verify: sibling token sweep failed: %v", err)
	}

	if err := e.userProvider.MarkEmailVerified(ctx, record.OwnerID); err != nil {
		e.emitAudit(ctx, auditEmailVerified, record.OwnerID, TokenVerifyEmail, false, ErrAuthenticationFailed)
		return ErrAuthenticationFailed
	}

	e.metricInc(metrics.EmailVerified)
	e.emitAudit(ctx, auditEmailVerified, record.OwnerID, TokenVerifyEmail, true, nil)

	return nil
}
