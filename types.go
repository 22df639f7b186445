package authkit

import (
	"context"
	"time"

	"github.com/taskhive/authkit/permission"
)

// TokenType tags every token the engine issues. The tag travels inside
// signed tokens as the "type" claim and is part of the storage key for
// persisted records.
type TokenType string

const (
	// TokenAccess is the short-lived stateless bearer token. Never persisted.
	TokenAccess TokenType = "access"
	// TokenRefresh is the long-lived signed token backing session renewal.
	TokenRefresh TokenType = "refresh"
	// TokenResetPassword is the emailed one-time password-reset code.
	TokenResetPassword TokenType = "resetPassword"
	// TokenVerifyEmail is the emailed one-time address-verification code.
	TokenVerifyEmail TokenType = "verifyEmail"
	// TokenTwoFactor is the short-lived second-factor login code.
	TokenTwoFactor TokenType = "otp"
)

// TokenDetail is one issued token with its expiry.
type TokenDetail struct {
	Token     string
	ExpiresAt time.Time
}

// TokenPair is the access/refresh pair returned by Login and
// RefreshAuth.
type TokenPair struct {
	Access  TokenDetail
	Refresh TokenDetail
}

// OTPDetail is one issued numeric code with its expiry.
type OTPDetail struct {
	Code      string
	ExpiresAt time.Time
}

// UserRecord is the engine's view of a stored user. The host
// application owns user storage; the engine only reads these fields
// and requests targeted updates through UserProvider.
type UserRecord struct {
	ID            string
	Email         string
	Name          string
	PasswordHash  string
	EmailVerified bool
	Roles         []string
}

// UserProvider is the host application's user storage, as seen by the
// engine. Implementations must be safe for concurrent use.
type UserProvider interface {
	GetUserByEmail(ctx context.Context, email string) (*UserRecord, error)
	GetUserByID(ctx context.Context, id string) (*UserRecord, error)
	UpdatePasswordHash(ctx context.Context, id, passwordHash string) error
	MarkEmailVerified(ctx context.Context, id string) error
	MarkTwoFactorVerified(ctx context.Context, id string) error
}

// Principal is an authenticated caller: identity plus the flattened
// union of every permission granted by any of their roles.
type Principal struct {
	ID    string
	Email string
	Roles []string

	permissions permission.Mask
}

// Relation names a structural relationship between a principal and a
// resource.
type Relation string

const (
	RelationCreator      Relation = "creator"
	RelationCollaborator Relation = "collaborator"
)

// Resource is the minimal shape needed for relation checks. Hosts map
// their own entities (projects, documents, boards) onto it.
type Resource struct {
	CreatorID       string
	CollaboratorIDs []string
}
