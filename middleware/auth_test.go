package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	authkit "github.com/taskhive/authkit"
	"github.com/taskhive/authkit/password"
)

type staticUsers struct {
	byID map[string]*authkit.UserRecord
}

func (s *staticUsers) GetUserByEmail(_ context.Context, email string) (*authkit.UserRecord, error) {
	for _, u := range s.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (s *staticUsers) GetUserByID(_ context.Context, id string) (*authkit.UserRecord, error) {
	return s.byID[id], nil
}

func (s *staticUsers) UpdatePasswordHash(context.Context, string, string) error { return nil }
func (s *staticUsers) MarkEmailVerified(context.Context, string) error          { return nil }
func (s *staticUsers) MarkTwoFactorVerified(context.Context, string) error      { return nil }

func newTestEngine(t *testing.T) (*authkit.Engine, *staticUsers) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	hasher, err := password.NewHasher(password.Config{
		Memory: 8 * 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 16,
	})
	if err != nil {
		t.Fatalf("NewHasher failed: %v", err)
	}
	hash, err := hasher.Hash("str0ng-password")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}

	users := &staticUsers{byID: map[string]*authkit.UserRecord{}}
	admin := &authkit.UserRecord{
		ID: uuid.NewString(), Email: "admin@example.com",
		PasswordHash: hash, EmailVerified: true, Roles: []string{"admin"},
	}
	plain := &authkit.UserRecord{
		ID: uuid.NewString(), Email: "plain@example.com",
		PasswordHash: hash, EmailVerified: true, Roles: []string{"user"},
	}
	users.byID[admin.ID] = admin
	users.byID[plain.ID] = plain

	cfg, err := authkit.LoadEnv("")
	if err != nil {
		t.Fatalf("LoadEnv failed: %v", err)
	}
	cfg.JWT.Secret = []byte("0123456789abcdef0123456789abcdef")
	cfg.Password = authkit.PasswordConfig{
		Memory: 8 * 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 16,
	}

	engine, err := authkit.New().
		WithConfig(cfg).
		WithRedis(client).
		WithPermissions([]string{"getUsers"}).
		WithRoles(map[string][]string{"user": {}, "admin": {"getUsers"}}).
		WithUserProvider(users).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	return engine, users
}

func accessTokenFor(t *testing.T, engine *authkit.Engine, email string) string {
	t.Helper()

	_, pair, err := engine.Login(context.Background(), email, "str0ng-password")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	return pair.Access.Token
}

func okHandler(t *testing.T) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := PrincipalFromContext(r.Context()); !ok {
			t.Error("expected principal in context")
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthenticateMiddleware(t *testing.T) {
	engine, _ := newTestEngine(t)
	handler := Authenticate(engine)(okHandler(t))

	token := accessTokenFor(t, engine, "admin@example.com")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	for _, header := range []string{"", "Bearer ", "Basic abc", "Bearer garbage"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("header %q: expected 401, got %d", header, rec.Code)
		}
	}
}

func TestRequirePermissionsMiddleware(t *testing.T) {
	engine, users := newTestEngine(t)

	var plainID string
	for id, u := range users.byID {
		if u.Email == "plain@example.com" {
			plainID = id
		}
	}

	target := func(r *http.Request) string { return r.URL.Query().Get("user") }
	handler := Authenticate(engine)(
		RequirePermissions(engine, []string{"getUsers"}, target)(
			http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			})))

	adminToken := accessTokenFor(t, engine, "admin@example.com")
	plainToken := accessTokenFor(t, engine, "plain@example.com")

	cases := []struct {
		name   string
		token  string
		target string
		want   int
	}{
		{"admin any target", adminToken, "someone-else", http.StatusOK},
		{"plain other target", plainToken, "someone-else", http.StatusForbidden},
		{"plain self target", plainToken, plainID, http.StatusOK},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/?user="+tc.target, nil)
			req.Header.Set("Authorization", "Bearer "+tc.token)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, rec.Code)
			}
		})
	}
}
