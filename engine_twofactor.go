package authkit

import (
	"context"
	"fmt"

	"github.com/taskhive/authkit/internal/metrics"
)

// GenerateTwoFactorCode issues a short-lived second-factor code for
// the user and mails it to their address.
func (e *Engine) GenerateTwoFactorCode(ctx context.Context, userID string) (*OTPDetail, error) {
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

	otp, err := e.issueStoredOTP(ctx, user.ID, TokenTwoFactor, e.config.Token.TwoFactorTTL)
	if err != nil {
		return nil, err
	}

	e.sendMail(user.Email, "Your login code",
		fmt.Sprintf("Your one-time login code is %s. It expires in %s.",
			otp.Code, e.config.Token.TwoFactorTTL))

	return otp, nil
}

// VerifyTwoFactorCode consumes a second-factor code. The code must
// belong to the given user; codes issued to someone else do not match.
// Sibling codes are invalidated on success.
func (e *Engine) VerifyTwoFactorCode(ctx context.Context, userID, code string) error {
	if e == nil || e.userProvider == nil {
		return ErrEngineNotReady
	}

	if _, err := e.tokenStore.ConsumeActive(ctx, code, string(TokenTwoFactor), userID); err != nil {
		e.emitAudit(ctx, auditTwoFactor, userID, TokenTwoFactor, false, ErrInvalidCode)
		return ErrInvalidCode
	}

	if err := e.tokenStore.DeleteAllForOwner(ctx, userID, string(TokenTwoFactor)); err != nil {
		logf("twofactor: sibling token sweep failed: %v", err)
	}

	if err := e.userProvider.MarkTwoFactorVerified(ctx, userID); err != nil {
		return err
	}

	e.metricInc(metrics.TwoFactorVerified)
	e.emitAudit(ctx, auditTwoFactor, userID, TokenTwoFactor, true, nil)

	return nil
}
