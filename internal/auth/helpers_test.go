package auth

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/kallkeyy/storefront-api/internal/domain"
	"github.com/kallkeyy/storefront-api/internal/repository"
)

const (
	testUserSecret  = "user-secret"
	testAdminSecret = "admin-secret"
	testUserCookie  = "auth_token"
	testAdminCookie = "admin_token"
	allowedOrigin   = "https://kallkeyy.vercel.app"
	evilOrigin      = "https://evil.example.com"
)

type fakeUsers struct {
	mu    sync.Mutex
	users map[string]*domain.User
	err   error
	calls int
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	user, ok := f.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *user
	return &copied, nil
}

func (f *fakeUsers) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeAdmins struct {
	mu     sync.Mutex
	admins map[string]*domain.Admin
	err    error
}

func (f *fakeAdmins) GetByID(_ context.Context, id string) (*domain.Admin, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	admin, ok := f.admins[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *admin
	return &copied, nil
}

type fakeRevocations struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	err     error
}

func newFakeRevocations() *fakeRevocations {
	return &fakeRevocations{revoked: map[string]time.Time{}}
}

func (f *fakeRevocations) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	_, ok := f.revoked[tokenID]
	return ok, nil
}

func (f *fakeRevocations) Revoke(_ context.Context, tokenID string, until time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked[tokenID] = until
	return nil
}

type rejectionCounter struct {
	mu     sync.Mutex
	counts map[string]int
}

func (r *rejectionCounter) RecordAuthRejection(d, kind string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.counts == nil {
		r.counts = map[string]int{}
	}
	r.counts[d+"/"+kind]++
}

func (r *rejectionCounter) count(key string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[key]
}

type testEnv struct {
	app         *fiber.App
	users       *fakeUsers
	admins      *fakeAdmins
	revocations *fakeRevocations
	rejections  *rejectionCounter
	userSigner  *Signer
	adminSigner *Signer
}

func newTestEnv(t *testing.T, userSecret, adminSecret string) *testEnv {
	t.Helper()

	cors, err := NewCORSResolver(DefaultOriginPolicy())
	if err != nil {
		t.Fatalf("NewCORSResolver() error = %v", err)
	}

	env := &testEnv{
		users: &fakeUsers{users: map[string]*domain.User{
			"u1": {ID: "u1", Name: "Asha", Email: "asha@example.com"},
			"u2": {ID: "u2", Name: "Ravi", Email: "ravi@example.com"},
		}},
		admins: &fakeAdmins{admins: map[string]*domain.Admin{
			"a-super":   {ID: "a-super", Role: domain.AdminRoleSuperAdmin, Active: true},
			"a-support": {ID: "a-support", Role: domain.AdminRoleSupport, Active: true},
			"a-off":     {ID: "a-off", Role: domain.AdminRoleSuperAdmin, Active: false},
		}},
		revocations: newFakeRevocations(),
		rejections:  &rejectionCounter{},
		userSigner:  NewSigner(userSecret, time.Hour),
		adminSigner: NewSigner(adminSecret, time.Hour),
	}

	userAuth := NewUserAuth(Dependencies{
		Verifier:    NewVerifier(userSecret, WithRevocations(env.revocations)),
		CORS:        cors,
		Cookie:      CookieConfig{Name: testUserCookie},
		Revocations: env.revocations,
		Metrics:     env.rejections,
	}, NewUserResolver(env.users))

	adminAuth := NewAdminAuth(Dependencies{
		Verifier: NewAdminVerifier(adminSecret),
		CORS:     cors,
		Cookie:   CookieConfig{Name: testAdminCookie},
		Metrics:  env.rejections,
	}, NewAdminResolver(env.admins))

	app := fiber.New()
	app.Get("/me", userAuth.Handle, func(c *fiber.Ctx) error {
		p, _ := FromContext(c.UserContext())
		return c.JSON(fiber.Map{"id": UserIDFromContext(c), "ctxID": p.ID})
	})
	app.Post("/logout", userAuth.Handle, userAuth.Logout)
	app.Get("/admin/me", adminAuth.Handle, func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"id": AdminIDFromContext(c)})
	})
	app.Get("/admin/orders", adminAuth.Handle,
		adminAuth.Require(RolesOf(domain.AdminRoleSuperAdmin, domain.AdminRoleAdmin)),
		func(c *fiber.Ctx) error {
			return c.JSON(fiber.Map{"id": AdminIDFromContext(c)})
		})
	env.app = app
	return env
}

func (e *testEnv) userToken(t *testing.T, id string) string {
	t.Helper()
	tok, _, err := e.userSigner.SignUser(id)
	if err != nil {
		t.Fatal(err)
	}
	return tok
}

func (e *testEnv) adminToken(t *testing.T, id string) string {
	t.Helper()
	tok, _, err := e.adminSigner.SignAdmin(id)
	if err != nil {
		t.Fatal(err)
	}
	return tok
}

func expiredToken(t *testing.T, secret, id string, isAdmin bool) string {
	t.Helper()
	past := time.Now().Add(-time.Hour)
	tok, err := NewSigner(secret, time.Hour).SignClaims(&Claims{
		SubjectID: id,
		IsAdmin:   isAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(past),
			IssuedAt:  jwt.NewNumericDate(past.Add(-time.Hour)),
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	return tok
}

type requestOpt func(*http.Request)

func withBearer(tok string) requestOpt {
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+tok) }
}

func withCookie(name, value string) requestOpt {
	return func(r *http.Request) { r.AddCookie(&http.Cookie{Name: name, Value: value}) }
}

func withOrigin(origin string) requestOpt {
	return func(r *http.Request) { r.Header.Set("Origin", origin) }
}

type result struct {
	status int
	header http.Header
	body   map[string]any
}

func (e *testEnv) do(t *testing.T, method, path string, opts ...requestOpt) result {
	t.Helper()
	req, err := http.NewRequest(method, "http://api.test"+path, nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, opt := range opts {
		opt(req)
	}
	resp, err := e.app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	res := result{status: resp.StatusCode, header: resp.Header}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &res.body); err != nil {
			t.Fatalf("decode body %q: %v", raw, err)
		}
	}
	return res
}

func (r result) message() string {
	msg, _ := r.body["message"].(string)
	return msg
}

// clearedCookie reports whether the response expires the named cookie.
func (r result) clearedCookie(name string) bool {
	for _, line := range r.header.Values("Set-Cookie") {
		lower := strings.ToLower(line)
		if strings.HasPrefix(line, name+"=;") && strings.Contains(lower, "expires=thu, 01 jan 1970") {
			return true
		}
	}
	return false
}

var errStoreDown = errors.New("connection refused")
