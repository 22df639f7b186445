package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrExpired is returned by [Manager.Verify] when the token's expiry is in
// the past.
var ErrExpired = errors.New("token expired")

// ErrInvalidSignature is returned by [Manager.Verify] when the token is
// malformed or its signature does not match the shared secret.
var ErrInvalidSignature = errors.New("invalid token signature")

// Config holds the shared signing secret and optional parser settings.
// It is loaded once at startup and never mutated afterwards.
type Config struct {
	Secret []byte
	Issuer string
	Leeway time.Duration
}

// Claims is the signed payload carried by every token the codec issues:
// subject, issue time, expiry, and a type tag distinguishing access,
// refresh, and single-purpose tokens.
type Claims struct {
	Type string `json:"type"`
	jwt.RegisteredClaims
}

// Manager signs and verifies compact HS256 tokens with a single
// process-wide secret.
type Manager struct {
	config Config
}

// NewManager validates cfg and returns a ready codec.
func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("signing secret required")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	return &Manager{config: cfg}, nil
}

// Issue signs a token for subject expiring at expiresAt, tagged with typ.
func (m *Manager) Issue(subject string, expiresAt time.Time, typ string) (string, error) {
	if subject == "" {
		return "", errors.New("subject required")
	}
	if typ == "" {
		return "", errors.New("token type required")
	}

	claims := Claims{
		Type: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			Issuer:    m.config.Issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.config.Secret)
}

// Verify checks signature and expiry and returns the decoded claims.
// It deliberately does not compare the type tag against any expectation;
// the caller decides which types are acceptable in its context.
func (m *Manager) Verify(tokenStr string) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return m.config.Secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, ErrInvalidSignature
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidSignature
	}
	if claims.ExpiresAt != nil && !claims.ExpiresAt.Time.After(time.Now()) {
		// exp == now counts as already expired.
		return nil, ErrExpired
	}

	return claims, nil
}
