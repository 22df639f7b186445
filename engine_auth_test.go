package authkit

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestLoginIssuesTokenPair(t *testing.T) {
	provider := newMockUserProvider()
	user := provider.addUser(t, "jane@example.com", "str0ng-password", true, "user")
	engine := newTestEngine(t, provider)

	got, pair, err := engine.Login(context.Background(), user.Email, "str0ng-password")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if got.ID != user.ID {
		t.Fatalf("expected user %s, got %s", user.ID, got.ID)
	}
	if pair.Access.Token == "" || pair.Refresh.Token == "" {
		t.Fatal("expected both tokens to be issued")
	}
	if !pair.Refresh.ExpiresAt.After(pair.Access.ExpiresAt) {
		t.Fatal("refresh token should outlive access token")
	}

	verified, err := engine.VerifyToken(context.Background(), pair.Access.Token, TokenAccess)
	if err != nil {
		t.Fatalf("access VerifyToken failed: %v", err)
	}
	if verified.UserID != user.ID {
		t.Fatalf("expected subject %s, got %s", user.ID, verified.UserID)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	provider := newMockUserProvider()
	user := provider.addUser(t, "jane@example.com", "str0ng-password", true, "user")
	engine := newTestEngine(t, provider)

	_, _, err := engine.Login(context.Background(), user.Email, "not-the-password")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLoginUnknownEmailMatchesWrongPassword(t *testing.T) {
	provider := newMockUserProvider()
	provider.addUser(t, "jane@example.com", "str0ng-password", true, "user")
	engine := newTestEngine(t, provider)

	_, _, errUnknown := engine.Login(context.Background(), "ghost@example.com", "whatever-pass")
	_, _, errWrong := engine.Login(context.Background(), "jane@example.com", "whatever-pass")

	// No oracle: both failures look identical.
	if !errors.Is(errUnknown, ErrInvalidCredentials) || !errors.Is(errWrong, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for both, got %v / %v", errUnknown, errWrong)
	}
}

func TestLoginRequiresVerifiedEmail(t *testing.T) {
	provider := newMockUserProvider()
	user := provider.addUser(t, "jane@example.com", "str0ng-password", false, "user")
	engine := newTestEngine(t, provider)

	_, _, err := engine.Login(context.Background(), user.Email, "str0ng-password")
	if !errors.Is(err, ErrEmailUnverified) {
		t.Fatalf("expected ErrEmailUnverified, got %v", err)
	}
}

func TestLoginRateLimited(t *testing.T) {
	provider := newMockUserProvider()
	user := provider.addUser(t, "jane@example.com", "str0ng-password", true, "user")

	cfg := testConfig()
	cfg.RateLimit.MaxLoginAttempts = 2
	engine, err := New().
		WithConfig(cfg).
		WithRedis(newTestRedis(t)).
		WithPermissions([]string{"getUsers"}).
		WithRoles(map[string][]string{"user": {}}).
		WithUserProvider(provider).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, _, _ = engine.Login(ctx, user.Email, "wrong-password")
	}

	_, _, err = engine.Login(ctx, user.Email, "str0ng-password")
	if !errors.Is(err, ErrLoginRateLimited) {
		t.Fatalf("expected ErrLoginRateLimited, got %v", err)
	}
}

func TestVerifyTokenRejectsTypeConfusion(t *testing.T) {
	provider := newMockUserProvider()
	user := provider.addUser(t, "jane@example.com", "str0ng-password", true, "user")
	engine := newTestEngine(t, provider)

	_, pair, err := engine.Login(context.Background(), user.Email, "str0ng-password")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	// An access token is not acceptable where a refresh token is
	// expected, and vice versa.
	if _, err := engine.VerifyToken(context.Background(), pair.Access.Token, TokenRefresh); !errors.Is(err, ErrInvalidOrExpiredToken) {
		t.Fatalf("expected ErrInvalidOrExpiredToken, got %v", err)
	}
	if _, err := engine.VerifyToken(context.Background(), pair.Refresh.Token, TokenAccess); !errors.Is(err, ErrInvalidOrExpiredToken) {
		t.Fatalf("expected ErrInvalidOrExpiredToken, got %v", err)
	}
}

func TestVerifyTokenAccessIsStateless(t *testing.T) {
	provider := newMockUserProvider()
	user := provider.addUser(t, "jane@example.com", "str0ng-password", true, "user")
	engine := newTestEngine(t, provider)

	_, pair, err := engine.Login(context.Background(), user.Email, "str0ng-password")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	// Logout revokes the refresh record, but the access token keeps
	// validating until its expiry: it has no server-side state.
	if err := engine.Logout(context.Background(), pair.Refresh.Token); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	if _, err := engine.VerifyToken(context.Background(), pair.Access.Token, TokenAccess); err != nil {
		t.Fatalf("access token should survive logout, got %v", err)
	}
	if _, err := engine.VerifyToken(context.Background(), pair.Refresh.Token, TokenRefresh); !errors.Is(err, ErrInvalidOrExpiredToken) {
		t.Fatalf("expected revoked refresh token to fail, got %v", err)
	}
}

func TestRefreshAuthRotates(t *testing.T) {
	provider := newMockUserProvider()
	user := provider.addUser(t, "jane@example.com", "str0ng-password", true, "user")
	engine := newTestEngine(t, provider)

	_, pair, err := engine.Login(context.Background(), user.Email, "str0ng-password")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	rotated, err := engine.RefreshAuth(context.Background(), pair.Refresh.Token)
	if err != nil {
		t.Fatalf("RefreshAuth failed: %v", err)
	}
	if rotated.Refresh.Token == pair.Refresh.Token {
		t.Fatal("rotation must issue a new refresh token")
	}

	// Replaying the consumed token fails.
	if _, err := engine.RefreshAuth(context.Background(), pair.Refresh.Token); !errors.Is(err, ErrAuthenticationFailed) {
		t.Fatalf("expected ErrAuthenticationFailed on replay, got %v", err)
	}

	// The rotated token works.
	if _, err := engine.RefreshAuth(context.Background(), rotated.Refresh.Token); err != nil {
		t.Fatalf("rotated token should refresh, got %v", err)
	}
}

func TestRefreshAuthConsumesOnlyPresentedToken(t *testing.T) {
	provider := newMockUserProvider()
	user := provider.addUser(t, "jane@example.com", "str0ng-password", true, "user")
	engine := newTestEngine(t, provider)

	_, first, err := engine.Login(context.Background(), user.Email, "str0ng-password")
	if err != nil {
		t.Fatalf("first Login failed: %v", err)
	}
	_, second, err := engine.Login(context.Background(), user.Email, "str0ng-password")
	if err != nil {
		t.Fatalf("second Login failed: %v", err)
	}

	if _, err := engine.RefreshAuth(context.Background(), first.Refresh.Token); err != nil {
		t.Fatalf("RefreshAuth failed: %v", err)
	}

	// Rotation deletes only the consumed record; the other session's
	// refresh token stays live.
	if _, err := engine.RefreshAuth(context.Background(), second.Refresh.Token); err != nil {
		t.Fatalf("other session's token should still refresh, got %v", err)
	}

	// The consumed token itself is dead.
	if _, err := engine.RefreshAuth(context.Background(), first.Refresh.Token); !errors.Is(err, ErrAuthenticationFailed) {
		t.Fatalf("expected consumed token to be rejected, got %v", err)
	}
}

func TestRefreshAuthRejectsGarbage(t *testing.T) {
	provider := newMockUserProvider()
	provider.addUser(t, "jane@example.com", "str0ng-password", true, "user")
	engine := newTestEngine(t, provider)

	for _, token := range []string{"", "not-a-token", "aaaa.bbbb.cccc"} {
		if _, err := engine.RefreshAuth(context.Background(), token); !errors.Is(err, ErrAuthenticationFailed) {
			t.Fatalf("expected ErrAuthenticationFailed for %q, got %v", token, err)
		}
	}
}

func TestRefreshAuthExpiredToken(t *testing.T) {
	provider := newMockUserProvider()
	user := provider.addUser(t, "jane@example.com", "str0ng-password", true, "user")

	cfg := testConfig()
	cfg.JWT.RefreshTTL = time.Second
	engine, err := New().
		WithConfig(cfg).
		WithRedis(newTestRedis(t)).
		WithPermissions([]string{"getUsers"}).
		WithRoles(map[string][]string{"user": {}}).
		WithUserProvider(provider).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	_, pair, err := engine.Login(context.Background(), user.Email, "str0ng-password")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	time.Sleep(1100 * time.Millisecond)

	if _, err := engine.RefreshAuth(context.Background(), pair.Refresh.Token); !errors.Is(err, ErrAuthenticationFailed) {
		t.Fatalf("expected ErrAuthenticationFailed for expired token, got %v", err)
	}
}

func TestLogoutUnknownToken(t *testing.T) {
	provider := newMockUserProvider()
	user := provider.addUser(t, "jane@example.com", "str0ng-password", true, "user")
	engine := newTestEngine(t, provider)

	_, pair, err := engine.Login(context.Background(), user.Email, "str0ng-password")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	if err := engine.Logout(context.Background(), "no-such-token"); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("expected ErrTokenNotFound, got %v", err)
	}

	if err := engine.Logout(context.Background(), pair.Refresh.Token); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	// Second logout of the same token: the record is gone.
	if err := engine.Logout(context.Background(), pair.Refresh.Token); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("expected ErrTokenNotFound on repeat logout, got %v", err)
	}

	if _, err := engine.RefreshAuth(context.Background(), pair.Refresh.Token); !errors.Is(err, ErrAuthenticationFailed) {
		t.Fatalf("expected refresh after logout to fail, got %v", err)
	}
}
