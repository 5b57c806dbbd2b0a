package auth

import (
	"net/http"
	"sync"
	"testing"
)

func TestUserAuthMissingToken(t *testing.T) {
	env := newTestEnv(t, testUserSecret, testAdminSecret)

	for _, path := range []string{"/me", "/logout"} {
		method := http.MethodGet
		if path == "/logout" {
			method = http.MethodPost
		}
		res := env.do(t, method, path)
		if res.status != http.StatusUnauthorized {
			t.Fatalf("%s: status = %d, want 401", path, res.status)
		}
		if res.message() != "No authentication token, access denied" {
			t.Fatalf("%s: message = %q", path, res.message())
		}
		if _, ok := res.body["success"]; ok {
			t.Fatalf("%s: user bodies carry no success field", path)
		}
	}
	if got := env.rejections.count("user/missing"); got != 2 {
		t.Fatalf("user/missing rejections = %d, want 2", got)
	}
}

func TestUserAuthBearerBindsIdentity(t *testing.T) {
	env := newTestEnv(t, testUserSecret, testAdminSecret)

	res := env.do(t, http.MethodGet, "/me", withBearer(env.userToken(t, "u1")))
	if res.status != http.StatusOK {
		t.Fatalf("status = %d, want 200 (%v)", res.status, res.body)
	}
	if res.body["id"] != "u1" || res.body["ctxID"] != "u1" {
		t.Fatalf("bound identity = %v", res.body)
	}
}

func TestUserAuthHeaderWinsOverCookie(t *testing.T) {
	env := newTestEnv(t, testUserSecret, testAdminSecret)

	res := env.do(t, http.MethodGet, "/me",
		withBearer(env.userToken(t, "u1")),
		withCookie(testUserCookie, env.userToken(t, "u2")),
	)
	if res.status != http.StatusOK || res.body["id"] != "u1" {
		t.Fatalf("status = %d body = %v, want u1 from header", res.status, res.body)
	}
}

func TestUserAuthExpiredCookieIsCleared(t *testing.T) {
	env := newTestEnv(t, testUserSecret, testAdminSecret)

	res := env.do(t, http.MethodGet, "/me", withCookie(testUserCookie, expiredToken(t, testUserSecret, "u1", false)))
	if res.status != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", res.status)
	}
	if res.message() != "Session expired. Please login again." {
		t.Fatalf("message = %q", res.message())
	}
	if !res.clearedCookie(testUserCookie) {
		t.Fatalf("expected %s to be cleared, Set-Cookie = %v", testUserCookie, res.header.Values("Set-Cookie"))
	}
}

func TestUserAuthExpiredHeaderDoesNotTouchCookies(t *testing.T) {
	env := newTestEnv(t, testUserSecret, testAdminSecret)

	res := env.do(t, http.MethodGet, "/me", withBearer(expiredToken(t, testUserSecret, "u1", false)))
	if res.status != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", res.status)
	}
	if len(res.header.Values("Set-Cookie")) != 0 {
		t.Fatalf("unexpected Set-Cookie %v", res.header.Values("Set-Cookie"))
	}
}

func TestUserAuthForeignSecretIsInvalid(t *testing.T) {
	env := newTestEnv(t, testUserSecret, testAdminSecret)
	foreign := NewSigner("someone-else", 0)
	tok, _, err := foreign.SignUser("u1")
	if err != nil {
		t.Fatal(err)
	}

	res := env.do(t, http.MethodGet, "/me", withCookie(testUserCookie, tok))
	if res.status != http.StatusUnauthorized || res.message() != "Token is not valid" {
		t.Fatalf("status = %d message = %q", res.status, res.message())
	}
	if !res.clearedCookie(testUserCookie) {
		t.Fatal("expected invalid cookie to be cleared")
	}

	expired := env.do(t, http.MethodGet, "/me", withBearer(expiredToken(t, "someone-else", "u1", false)))
	if expired.message() != "Token is not valid" {
		t.Fatalf("expired token with foreign secret: message = %q, want invalid", expired.message())
	}
}

func TestUserAuthUnknownUser(t *testing.T) {
	env := newTestEnv(t, testUserSecret, testAdminSecret)

	res := env.do(t, http.MethodGet, "/me", withBearer(env.userToken(t, "deleted")))
	if res.status != http.StatusUnauthorized || res.message() != "User not found" {
		t.Fatalf("status = %d message = %q", res.status, res.message())
	}
}

func TestUserAuthStoreFailureDegradesToInvalid(t *testing.T) {
	env := newTestEnv(t, testUserSecret, testAdminSecret)
	env.users.err = errStoreDown

	res := env.do(t, http.MethodGet, "/me", withCookie(testUserCookie, env.userToken(t, "u1")), withOrigin(allowedOrigin))
	if res.status != http.StatusUnauthorized || res.message() != "Token is not valid" {
		t.Fatalf("status = %d message = %q", res.status, res.message())
	}
	if res.clearedCookie(testUserCookie) {
		t.Fatal("store outages must not clear a valid session cookie")
	}
	if res.header.Get("Access-Control-Allow-Origin") != allowedOrigin {
		t.Fatal("expected CORS headers on internal failure")
	}
	if got := env.rejections.count("user/internal"); got != 1 {
		t.Fatalf("user/internal rejections = %d, want 1", got)
	}
}

func TestUserAuthRevokedToken(t *testing.T) {
	env := newTestEnv(t, testUserSecret, testAdminSecret)
	tok := env.userToken(t, "u1")

	res := env.do(t, http.MethodPost, "/logout", withCookie(testUserCookie, tok))
	if res.status != http.StatusOK || res.message() != "Logged out successfully" {
		t.Fatalf("logout status = %d message = %q", res.status, res.message())
	}
	if !res.clearedCookie(testUserCookie) {
		t.Fatal("expected logout to clear the cookie")
	}

	again := env.do(t, http.MethodGet, "/me", withBearer(tok))
	if again.status != http.StatusUnauthorized || again.message() != "Token is not valid" {
		t.Fatalf("revoked token: status = %d message = %q", again.status, again.message())
	}
}

func TestUserAuthRevocationOutage(t *testing.T) {
	env := newTestEnv(t, testUserSecret, testAdminSecret)
	env.revocations.err = errStoreDown

	res := env.do(t, http.MethodGet, "/me", withBearer(env.userToken(t, "u1")))
	if res.status != http.StatusUnauthorized || res.message() != "Token is not valid" {
		t.Fatalf("status = %d message = %q", res.status, res.message())
	}
	if env.users.callCount() != 0 {
		t.Fatal("identity store must not be consulted after a verification failure")
	}
}

func TestUserAuthIsIdempotentAndUncached(t *testing.T) {
	env := newTestEnv(t, testUserSecret, testAdminSecret)
	tok := env.userToken(t, "u1")

	first := env.do(t, http.MethodGet, "/me", withBearer(tok))
	second := env.do(t, http.MethodGet, "/me", withBearer(tok))
	if first.status != second.status || first.body["id"] != second.body["id"] {
		t.Fatalf("decisions differ: %d/%v vs %d/%v", first.status, first.body, second.status, second.body)
	}
	if env.users.callCount() != 2 {
		t.Fatalf("store calls = %d, want one per request", env.users.callCount())
	}
}

func TestUserAuthConcurrentRequestsKeepTheirOwnIdentity(t *testing.T) {
	env := newTestEnv(t, testUserSecret, testAdminSecret)
	tokens := map[string]string{"u1": env.userToken(t, "u1"), "u2": env.userToken(t, "u2")}

	var wg sync.WaitGroup
	errs := make(chan string, 20)
	for i := 0; i < 10; i++ {
		for id, tok := range tokens {
			wg.Add(1)
			go func(id, tok string) {
				defer wg.Done()
				res := env.do(t, http.MethodGet, "/me", withBearer(tok))
				if res.body["id"] != id {
					errs <- id
				}
			}(id, tok)
		}
	}
	wg.Wait()
	close(errs)
	for id := range errs {
		t.Errorf("request for %s saw another identity", id)
	}
}

func TestAdminAuthMessages(t *testing.T) {
	env := newTestEnv(t, testUserSecret, testAdminSecret)

	tests := []struct {
		name       string
		path       string
		opts       []requestOpt
		wantStatus int
		wantMsg    string
		clears     bool
	}{
		{
			name:       "missing",
			path:       "/admin/me",
			wantStatus: http.StatusUnauthorized,
			wantMsg:    "Access denied. Admin authentication required.",
		},
		{
			name:       "user cookie is not an admin cookie",
			path:       "/admin/me",
			opts:       []requestOpt{withCookie(testUserCookie, env.adminToken(t, "a-super"))},
			wantStatus: http.StatusUnauthorized,
			wantMsg:    "Access denied. Admin authentication required.",
		},
		{
			name:       "expired",
			path:       "/admin/me",
			opts:       []requestOpt{withCookie(testAdminCookie, expiredToken(t, testAdminSecret, "a-super", true))},
			wantStatus: http.StatusUnauthorized,
			wantMsg:    "Session expired. Please login again.",
			clears:     true,
		},
		{
			name:       "user token signed with the user secret",
			path:       "/admin/me",
			opts:       []requestOpt{withBearer(env.userToken(t, "u1"))},
			wantStatus: http.StatusUnauthorized,
			wantMsg:    "Invalid authentication token.",
		},
		{
			name:       "unknown admin",
			path:       "/admin/me",
			opts:       []requestOpt{withBearer(env.adminToken(t, "gone"))},
			wantStatus: http.StatusUnauthorized,
			wantMsg:    "Admin not found. Please login again.",
		},
		{
			name:       "deactivated before role gate",
			path:       "/admin/orders",
			opts:       []requestOpt{withBearer(env.adminToken(t, "a-off"))},
			wantStatus: http.StatusForbidden,
			wantMsg:    "Your admin account has been deactivated.",
		},
		{
			name:       "insufficient role",
			path:       "/admin/orders",
			opts:       []requestOpt{withBearer(env.adminToken(t, "a-support"))},
			wantStatus: http.StatusForbidden,
			wantMsg:    "Access denied. Required role: super_admin or admin",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := env.do(t, http.MethodGet, tt.path, tt.opts...)
			if res.status != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%v)", res.status, tt.wantStatus, res.body)
			}
			if res.message() != tt.wantMsg {
				t.Fatalf("message = %q, want %q", res.message(), tt.wantMsg)
			}
			if res.body["success"] != false {
				t.Fatalf("admin rejections carry success=false, got %v", res.body)
			}
			if tt.clears != res.clearedCookie(testAdminCookie) {
				t.Fatalf("cookie cleared = %v, want %v", !tt.clears, tt.clears)
			}
		})
	}
}

func TestAdminAuthRequiresAdminClaim(t *testing.T) {
	// Shared secret: a user token verifies but lacks isAdmin.
	env := newTestEnv(t, "shared", "shared")

	res := env.do(t, http.MethodGet, "/admin/me", withCookie(testAdminCookie, env.userToken(t, "a-super")))
	if res.status != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", res.status)
	}
	if res.message() != "Access denied. Admin privileges required." {
		t.Fatalf("message = %q", res.message())
	}
	if !res.clearedCookie(testAdminCookie) {
		t.Fatal("expected admin cookie to be cleared")
	}
}

func TestAdminAuthAllowsPermittedRole(t *testing.T) {
	env := newTestEnv(t, testUserSecret, testAdminSecret)

	res := env.do(t, http.MethodGet, "/admin/orders", withCookie(testAdminCookie, env.adminToken(t, "a-super")))
	if res.status != http.StatusOK || res.body["id"] != "a-super" {
		t.Fatalf("status = %d body = %v", res.status, res.body)
	}
}

func TestRejectionsCarryCORSOnlyForAllowedOrigins(t *testing.T) {
	env := newTestEnv(t, testUserSecret, testAdminSecret)

	paths := []string{"/me", "/admin/me", "/admin/orders"}
	for _, path := range paths {
		ok := env.do(t, http.MethodGet, path, withOrigin(allowedOrigin))
		if ok.status != http.StatusUnauthorized {
			t.Fatalf("%s: status = %d, want 401", path, ok.status)
		}
		if ok.header.Get("Access-Control-Allow-Origin") != allowedOrigin {
			t.Fatalf("%s: allow-origin = %q", path, ok.header.Get("Access-Control-Allow-Origin"))
		}
		if ok.header.Get("Access-Control-Allow-Credentials") != "true" {
			t.Fatalf("%s: expected credentials header", path)
		}

		evil := env.do(t, http.MethodGet, path, withOrigin(evilOrigin))
		for _, h := range []string{
			"Access-Control-Allow-Origin",
			"Access-Control-Allow-Credentials",
			"Access-Control-Allow-Methods",
			"Access-Control-Allow-Headers",
		} {
			if evil.header.Get(h) != "" {
				t.Fatalf("%s: %s present for untrusted origin", path, h)
			}
		}
	}

	forbidden := env.do(t, http.MethodGet, "/admin/orders",
		withOrigin(allowedOrigin), withBearer(env.adminToken(t, "a-support")))
	if forbidden.status != http.StatusForbidden || forbidden.header.Get("Access-Control-Allow-Origin") != allowedOrigin {
		t.Fatalf("role rejection: status = %d allow-origin = %q", forbidden.status, forbidden.header.Get("Access-Control-Allow-Origin"))
	}
}
