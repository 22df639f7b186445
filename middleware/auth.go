// Package middleware adapts the engine to net/http. Authenticate
// resolves the bearer token to a Principal and stores it in the
// request context; RequirePermissions layers the authorization check
// on top.
package middleware

import (
	"context"
	"net/http"
	"strings"

	authkit "github.com/taskhive/authkit"
)

type principalContextKey struct{}

// PrincipalFromContext returns the authenticated principal stored by
// Authenticate, if any.
func PrincipalFromContext(ctx context.Context) (*authkit.Principal, bool) {
	p, ok := ctx.Value(principalContextKey{}).(*authkit.Principal)
	return p, ok
}

// Authenticate rejects requests without a valid bearer access token
// and stores the resolved principal in the request context.
func Authenticate(engine *authkit.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := authkit.WithClientIP(r.Context(), remoteIP(r))
			principal, err := engine.Authenticate(ctx, token)
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx = context.WithValue(ctx, principalContextKey{}, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequirePermissions authorizes the request's principal against the
// required permissions. targetUserID, when non-nil, extracts the user
// the operation acts on so self-service requests pass without the
// permission grant.
func RequirePermissions(engine *authkit.Engine, required []string, targetUserID func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFromContext(r.Context())
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			var target string
			if targetUserID != nil {
				target = targetUserID(r)
			}

			if err := engine.Authorize(r.Context(), principal, required, target); err != nil {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}

func remoteIP(r *http.Request) string {
	host := r.RemoteAddr
	if i := strings.LastIndexByte(host, ':'); i >= 0 {
		host = host[:i]
	}
	return strings.Trim(host, "[]")
}
