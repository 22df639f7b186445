package authkit

import (
	"context"
	"fmt"

	"github.com/taskhive/authkit/internal/metrics"
)

// GenerateResetPasswordToken issues a one-time reset code for the
// account behind the email and mails it to the user.
//
// Unlike the other flows, an unknown address surfaces ErrUserNotFound:
// the reset form is expected to tell the user their email was wrong,
// at the accepted cost of account enumeration.
func (e *Engine) GenerateResetPasswordToken(ctx context.Context, email string) (*OTPDetail, error) {
	if e == nil || e.userProvider == nil {
		return nil, ErrEngineNotReady
	}

	user, err := e.userProvider.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	otp, err := e.issueStoredOTP(ctx, user.ID, TokenResetPassword, e.config.Token.ResetPasswordTTL)
	if err != nil {
		return nil, err
	}

	e.sendMail(user.Email, "Reset password",
		fmt.Sprintf("Your password reset code is %s. It expires in %s.",
			otp.Code, e.config.Token.ResetPasswordTTL))

	return otp, nil
}

// ResetPassword consumes a reset code and replaces the user's
// password. The consumed code and every other outstanding reset code
// for the user are invalidated, and the new hash is handed to the
// user provider. Every failure collapses to ErrAuthenticationFailed.
func (e *Engine) ResetPassword(ctx context.Context, code, newPassword string) error {
	if e == nil || e.userProvider == nil {
		return ErrEngineNotReady
	}

	record, err := e.tokenStore.ConsumeActive(ctx, code, string(TokenResetPassword), "")
	if err != nil {
		e.emitAudit(ctx, auditPasswordReset, "", TokenResetPassword, false, ErrAuthenticationFailed)
		return ErrAuthenticationFailed
	}

	user, err := e.userProvider.GetUserByID(ctx, record.OwnerID)
	if err != nil || user == nil {
		e.emitAudit(ctx, auditPasswordReset, record.OwnerID, TokenResetPassword, false, ErrAuthenticationFailed)
		return ErrAuthenticationFailed
	}

	hash, err := e.passwordHash.Hash(newPassword)
	if err != nil {
		return ErrAuthenticationFailed
	}

	if err := e.userProvider.UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		e.emitAudit(ctx, auditPasswordReset, user.ID, TokenResetPassword, false, ErrAuthenticationFailed)
		return ErrAuthenticationFailed
	}

	// Sibling codes die with the consumed one. Live sessions are left
	// alone: only the reset codes are swept.
	if err := e.tokenStore.DeleteAllForOwner(ctx, user.ID, string(TokenResetPassword)); err != nil {
		logf("reset: sibling token sweep failed: %v", err)
	}

	e.metricInc(metrics.PasswordReset)
	e.emitAudit(ctx, auditPasswordReset, user.ID, TokenResetPassword, true, nil)

	return nil
}
