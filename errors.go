package authkit

import (
	"errors"

	"github.com/taskhive/authkit/permission"
)

var (
	// ErrUnauthenticated means no valid identity could be established
	// from the presented credentials or token.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrPermissionDenied means the caller is authenticated but lacks
	// the required permissions for the operation.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrAuthenticationFailed is the deliberately opaque failure for
	// refresh, password reset, and email verification. Expired token,
	// unknown token, wrong owner, and missing user all collapse into it
	// so callers cannot probe which condition occurred.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrInvalidOrExpiredToken is returned by VerifyToken when the
	// presented token fails signature, lookup, or expiry checks.
	ErrInvalidOrExpiredToken = errors.New("invalid or expired token")

	// ErrInvalidCredentials covers a wrong email/password combination.
	ErrInvalidCredentials = errors.New("incorrect email or password")

	// ErrEmailUnverified blocks login until the address is verified.
	ErrEmailUnverified = errors.New("email address not verified")

	// ErrUserNotFound is surfaced only where enumeration is an accepted
	// trade-off, such as forgot-password for an unknown address.
	ErrUserNotFound = errors.New("user not found")

	// ErrTokenNotFound is returned by Logout when no matching refresh
	// record exists.
	ErrTokenNotFound = errors.New("token not found")

	// ErrInvalidCode means a two-factor code did not match an active
	// challenge.
	ErrInvalidCode = errors.New("invalid code")

	// ErrLoginRateLimited means the failed-login budget for this
	// email or IP is exhausted.
	ErrLoginRateLimited = errors.New("too many login attempts")

	// ErrEngineNotReady is returned when a method is called on an
	// engine that was not built through the Builder.
	ErrEngineNotReady = errors.New("engine not ready")
)

// Role and permission registration failures from the permission
// package, re-exported so callers only import authkit.
var (
	ErrDuplicateRole       = permission.ErrDuplicateRole
	ErrDuplicatePermission = permission.ErrDuplicatePermission
	ErrUnknownRole         = permission.ErrUnknownRole
	ErrUnknownPermission   = permission.ErrUnknownPermission
)
