package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
)

var testSecret = []byte("test-secret")

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func newTestMiddleware(basic BasicCredentials) *Middleware {
	policy := NewDefaultPolicy([]string{"/healthz", "/metrics"}, nil)
	return NewMiddleware(testSecret, basic, policy, zerolog.Nop())
}

func serve(h http.Handler, method, target, token string) int {
	req := httptest.NewRequest(method, target, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	return resp.Code
}

func TestAuthMiddleware_NoToken(t *testing.T) {
	handler := newTestMiddleware(BasicCredentials{}).Wrap(okHandler())
	if code := serve(handler, http.MethodGet, "/api/v1/status", ""); code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", code)
	}
	if code := serve(handler, http.MethodGet, "/healthz", ""); code != http.StatusOK {
		t.Fatalf("expected exempt health check, got %d", code)
	}
}

func TestAuthMiddleware_ViewerForbiddenRefresh(t *testing.T) {
	handler := newTestMiddleware(BasicCredentials{}).Wrap(okHandler())
	token := mustToken(t, "viewer", time.Hour)

	if code := serve(handler, http.MethodGet, "/api/v1/summary/frame", token); code != http.StatusOK {
		t.Fatalf("expected viewer read, got %d", code)
	}
	if code := serve(handler, http.MethodPost, "/api/v1/summary/detail", token); code != http.StatusOK {
		t.Fatalf("expected viewer detail, got %d", code)
	}
	if code := serve(handler, http.MethodPost, "/api/v1/status/refresh", token); code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", code)
	}
}

func TestAuthMiddleware_OperatorRefresh(t *testing.T) {
	handler := newTestMiddleware(BasicCredentials{}).Wrap(okHandler())
	token := mustToken(t, "operator", time.Hour)
	if code := serve(handler, http.MethodPost, "/api/v1/pv/refresh", token); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
}

func TestAuthMiddleware_ExpiredAndQueryToken(t *testing.T) {
	handler := newTestMiddleware(BasicCredentials{}).Wrap(okHandler())
	expired := mustToken(t, "viewer", -time.Minute)
	if code := serve(handler, http.MethodGet, "/api/v1/status", expired); code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for expired token, got %d", code)
	}

	valid := mustToken(t, "viewer", time.Hour)
	if code := serve(handler, http.MethodGet, "/api/v1/stream?access_token="+valid, ""); code != http.StatusOK {
		t.Fatalf("expected query token to authenticate, got %d", code)
	}
}

func TestAuthMiddleware_BasicCredentials(t *testing.T) {
	handler := newTestMiddleware(BasicCredentials{Username: "hello", Password: "world"}).Wrap(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/status/refresh", nil)
	req.SetBasicAuth("hello", "world")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for basic credentials, got %d", resp.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	req.SetBasicAuth("hello", "wrong")
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized || resp.Header().Get("WWW-Authenticate") == "" {
		t.Fatalf("expected basic challenge, got %d", resp.Code)
	}
}

func TestAuthMiddleware_DisabledPassesThrough(t *testing.T) {
	mw := NewMiddleware(nil, BasicCredentials{}, NewDefaultPolicy(nil, nil), zerolog.Nop())
	if mw.Enabled() {
		t.Fatal("expected disabled middleware")
	}
	if code := serve(mw.Wrap(okHandler()), http.MethodPost, "/api/v1/status/refresh", ""); code != http.StatusOK {
		t.Fatalf("expected pass-through, got %d", code)
	}
}

func TestIssueJWTRoundTrip(t *testing.T) {
	token, err := IssueJWT("ops", RoleOperator, time.Hour, testSecret)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims, err := ParseJWT(token, testSecret)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Subject != "ops" || claims.Role != "operator" {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if _, err := IssueJWT("x", Role("root"), time.Hour, testSecret); err == nil {
		t.Fatal("expected invalid role error")
	}
}

func mustToken(t *testing.T, role string, ttl time.Duration) string {
	t.Helper()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestAuthMiddleware_IdentityInContext(t *testing.T) {
	var (
		role    Role
		subject string
	)
	handler := newTestMiddleware(BasicCredentials{}).Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role = RoleFromContext(r.Context())
		subject = SubjectFromContext(r.Context())
	}))
	token, err := IssueJWT("ops", RoleOperator, time.Hour, testSecret)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	if code := serve(handler, http.MethodPost, "/api/v1/status/refresh", token); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if role != RoleOperator || subject != "ops" {
		t.Fatalf("unexpected identity %q %q", role, subject)
	}
}

func TestRoles(t *testing.T) {
	if role, ok := NormalizeRole(" Operator "); !ok || role != RoleOperator {
		t.Fatalf("expected operator, got %q %v", role, ok)
	}
	if _, ok := NormalizeRole("admin"); ok {
		t.Fatal("expected admin to be rejected")
	}
	if !RoleAtLeast(RoleOperator, RoleViewer) || RoleAtLeast(RoleViewer, RoleOperator) {
		t.Fatal("unexpected role ordering")
	}
	if RoleAtLeast("", "") {
		t.Fatal("expected empty role to grant nothing")
	}
}
