package authkit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/taskhive/authkit/internal"
	"github.com/taskhive/authkit/internal/audit"
	"github.com/taskhive/authkit/internal/metrics"
	"github.com/taskhive/authkit/internal/rate"
	"github.com/taskhive/authkit/internal/stores"
	"github.com/taskhive/authkit/jwt"
	"github.com/taskhive/authkit/mail"
	"github.com/taskhive/authkit/password"
	"github.com/taskhive/authkit/permission"
)

// Engine is the authentication and authorization core. Build one
// through the Builder at startup and share it; all methods are safe
// for concurrent use.
type Engine struct {
	config       Config
	registry     *permission.Registry
	roleManager  *permission.RoleManager
	tokenStore   *stores.SecurityTokenStore
	rateLimiter  *rate.Limiter
	audit        *audit.Dispatcher
	metrics      *metrics.Set
	passwordHash *password.Hasher
	jwtManager   *jwt.Manager
	mailer       mail.Sender
	userProvider UserProvider
}

// Close flushes the audit dispatcher. The Redis client is owned by the
// caller and is not closed here.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.audit.Close()
}

// VerifiedToken is the outcome of VerifyToken: who the token belongs
// to and when it stops being valid.
type VerifiedToken struct {
	Type      TokenType
	UserID    string
	ExpiresAt time.Time
}

// Login checks the credentials and, on success, issues a fresh
// access/refresh pair. Unknown email and wrong password are
// indistinguishable to the caller.
func (e *Engine) Login(ctx context.Context, email, plainPassword string) (*UserRecord, *TokenPair, error) {
	if e == nil || e.userProvider == nil {
		return nil, nil, ErrEngineNotReady
	}

	ip := clientIPFromContext(ctx)

	if err := e.rateLimiter.CheckLogin(ctx, email, ip); err != nil {
		if errors.Is(err, rate.ErrRateLimited) {
			return nil, nil, ErrLoginRateLimited
		}
		return nil, nil, err
	}

	user, err := e.userProvider.GetUserByEmail(ctx, email)
	if err != nil || user == nil {
		e.loginFailed(ctx, email, ip, "")
		return nil, nil, ErrInvalidCredentials
	}

	ok, err := e.passwordHash.Verify(plainPassword, user.PasswordHash)
	if err != nil || !ok {
		e.loginFailed(ctx, email, ip, user.ID)
		return nil, nil, ErrInvalidCredentials
	}

	if e.config.RequireVerifiedEmail && !user.EmailVerified {
		e.emitAudit(ctx, auditLogin, user.ID, "", false, ErrEmailUnverified)
		return nil, nil, ErrEmailUnverified
	}

	if err := e.rateLimiter.Reset(ctx, email, ip); err != nil {
		// best effort: a stale counter only shortens the budget
		logf("login: rate counter reset failed: %v", err)
	}

	pair, err := e.GenerateAuthTokens(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}

	e.metricInc(metrics.LoginSuccess)
	e.emitAudit(ctx, auditLogin, user.ID, "", true, nil)

	return user, pair, nil
}

// loginFailed counts the attempt against the email key, which is also
// what CheckLogin inspects. The audit event carries the resolved user
// ID when the account exists.
func (e *Engine) loginFailed(ctx context.Context, email, ip, userID string) {
	e.metricInc(metrics.LoginFailure)
	e.emitAudit(ctx, auditLogin, userID, "", false, ErrInvalidCredentials)
	if err := e.rateLimiter.RecordFailure(ctx, email, ip); err != nil && !errors.Is(err, rate.ErrRateLimited) {
		logf("login: rate counter update failed: %v", err)
	}
}

// GenerateAuthTokens issues an access/refresh pair for the user. The
// access token is stateless and never persisted; the refresh token is
// signed and additionally recorded in the token store so it can be
// revoked and rotated.
func (e *Engine) GenerateAuthTokens(ctx context.Context, userID string) (*TokenPair, error) {
	if e == nil || e.jwtManager == nil {
		return nil, ErrEngineNotReady
	}

	now := time.Now()
	accessExpires := now.Add(e.config.JWT.AccessTTL)
	refreshExpires := now.Add(e.config.JWT.RefreshTTL)

	accessToken, err := e.jwtManager.Issue(userID, accessExpires, string(TokenAccess))
	if err != nil {
		return nil, err
	}

	refreshToken, err := e.jwtManager.Issue(userID, refreshExpires, string(TokenRefresh))
	if err != nil {
		return nil, err
	}

	err = e.tokenStore.Save(ctx, &stores.SecurityToken{
		ID:        uuid.NewString(),
		ValueHash: stores.HashValue(refreshToken),
		Type:      string(TokenRefresh),
		OwnerID:   userID,
		ExpiresAt: refreshExpires.Unix(),
	})
	if err != nil {
		return nil, err
	}

	e.metricInc(metrics.TokenIssued)

	return &TokenPair{
		Access:  TokenDetail{Token: accessToken, ExpiresAt: accessExpires},
		Refresh: TokenDetail{Token: refreshToken, ExpiresAt: refreshExpires},
	}, nil
}

// VerifyToken validates a token according to the rules of its type.
//
// Access and refresh tokens must carry a valid signature and the
// expected type claim; refresh tokens must additionally have a live
// record in the token store. Single-purpose codes (reset, verify,
// two-factor) are pure store lookups with no signature at all.
// Every failure collapses to ErrInvalidOrExpiredToken.
func (e *Engine) VerifyToken(ctx context.Context, token string, typ TokenType) (*VerifiedToken, error) {
	if e == nil || e.jwtManager == nil {
		return nil, ErrEngineNotReady
	}

	switch typ {
	case TokenAccess:
		claims, err := e.jwtManager.Verify(token)
		if err != nil || claims.Type != string(TokenAccess) {
			e.metricInc(metrics.TokenRejected)
			return nil, ErrInvalidOrExpiredToken
		}
		e.metricInc(metrics.TokenVerified)
		return &VerifiedToken{
			Type:      TokenAccess,
			UserID:    claims.Subject,
			ExpiresAt: claims.ExpiresAt.Time,
		}, nil

	case TokenRefresh:
		claims, err := e.jwtManager.Verify(token)
		if err != nil || claims.Type != string(TokenRefresh) {
			e.metricInc(metrics.TokenRejected)
			return nil, ErrInvalidOrExpiredToken
		}
		record, err := e.tokenStore.FindActive(ctx, token, string(TokenRefresh), claims.Subject)
		if err != nil {
			e.metricInc(metrics.TokenRejected)
			return nil, ErrInvalidOrExpiredToken
		}
		e.metricInc(metrics.TokenVerified)
		return &VerifiedToken{
			Type:      TokenRefresh,
			UserID:    record.OwnerID,
			ExpiresAt: time.Unix(record.ExpiresAt, 0),
		}, nil

	case TokenResetPassword, TokenVerifyEmail, TokenTwoFactor:
		record, err := e.tokenStore.FindActive(ctx, token, string(typ), "")
		if err != nil {
			e.metricInc(metrics.TokenRejected)
			return nil, ErrInvalidOrExpiredToken
		}
		e.metricInc(metrics.TokenVerified)
		return &VerifiedToken{
			Type:      typ,
			UserID:    record.OwnerID,
			ExpiresAt: time.Unix(record.ExpiresAt, 0),
		}, nil
	}

	return nil, ErrInvalidOrExpiredToken
}

// RefreshAuth rotates a refresh token: the presented token is
// atomically consumed and a fresh pair is issued. Only the consumed
// record is touched; the user's other sessions keep their tokens.
// A replayed token fails here even if two calls race, because only one
// consumer can win the store's transaction. All failures collapse to
// ErrAuthenticationFailed.
func (e *Engine) RefreshAuth(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if e == nil || e.jwtManager == nil {
		return nil, ErrEngineNotReady
	}

	claims, err := e.jwtManager.Verify(refreshToken)
	if err != nil || claims.Type != string(TokenRefresh) {
		e.emitAudit(ctx, auditTokenRefresh, "", TokenRefresh, false, ErrAuthenticationFailed)
		return nil, ErrAuthenticationFailed
	}

	record, err := e.tokenStore.ConsumeActive(ctx, refreshToken, string(TokenRefresh), claims.Subject)
	if err != nil {
		if errors.Is(err, stores.ErrNotFound) {
			e.metricInc(metrics.RefreshReplayBlocked)
		}
		e.emitAudit(ctx, auditTokenRefresh, claims.Subject, TokenRefresh, false, ErrAuthenticationFailed)
		return nil, ErrAuthenticationFailed
	}

	user, err := e.userProvider.GetUserByID(ctx, record.OwnerID)
	if err != nil || user == nil {
		e.emitAudit(ctx, auditTokenRefresh, record.OwnerID, TokenRefresh, false, ErrAuthenticationFailed)
		return nil, ErrAuthenticationFailed
	}

	pair, err := e.GenerateAuthTokens(ctx, user.ID)
	if err != nil {
		return nil, ErrAuthenticationFailed
	}

	e.metricInc(metrics.RefreshRotated)
	e.emitAudit(ctx, auditTokenRefresh, user.ID, TokenRefresh, true, nil)

	return pair, nil
}

// Logout revokes the refresh token's stored record. The caller is
// expected to discard the access token; it stays valid until expiry.
func (e *Engine) Logout(ctx context.Context, refreshToken string) error {
	if e == nil || e.tokenStore == nil {
		return ErrEngineNotReady
	}

	err := e.tokenStore.Delete(ctx, refreshToken, string(TokenRefresh))
	if err != nil {
		if errors.Is(err, stores.ErrNotFound) {
			return ErrTokenNotFound
		}
		return err
	}

	e.emitAudit(ctx, auditLogout, "", TokenRefresh, true, nil)
	return nil
}

// issueStoredOTP generates a numeric code of the configured length and
// persists it as a single-purpose token for the user.
func (e *Engine) issueStoredOTP(ctx context.Context, userID string, typ TokenType, ttl time.Duration) (*OTPDetail, error) {
	code, err := internal.NewOTP(e.config.Token.OTPDigits)
	if err != nil {
		return nil, err
	}

	expiresAt := time.Now().Add(ttl)
	err = e.tokenStore.Save(ctx, &stores.SecurityToken{
		ID:        uuid.NewString(),
		ValueHash: stores.HashValue(code),
		Type:      string(typ),
		OwnerID:   userID,
		ExpiresAt: expiresAt.Unix(),
	})
	if err != nil {
		return nil, err
	}

	e.metricInc(metrics.TokenIssued)

	return &OTPDetail{Code: code, ExpiresAt: expiresAt}, nil
}

// sendMail delivers asynchronously; the issuing flow has already
// succeeded by the time delivery starts, so failures are only logged.
func (e *Engine) sendMail(to, subject, body string) {
	if e == nil || e.mailer == nil {
		return
	}

	go func() {
		if err := e.mailer.Send(to, subject, body); err != nil {
			logf("mail: delivery to %s failed: %v", to, err)
		}
	}()
}
