package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
)

// BasicCredentials is an optional shared username/password pair.
// A matching pair is granted RoleOperator.
type BasicCredentials struct {
	Username string
	Password string
}

func (c BasicCredentials) enabled() bool {
	return c.Username != "" && c.Password != ""
}

func (c BasicCredentials) match(username, password string) bool {
	u := subtle.ConstantTimeCompare([]byte(username), []byte(c.Username))
	p := subtle.ConstantTimeCompare([]byte(password), []byte(c.Password))
	return u&p == 1
}

// Middleware authenticates requests and enforces roles.
type Middleware struct {
	Secret []byte
	Basic  BasicCredentials
	Policy Policy
	Logger zerolog.Logger
}

// NewMiddleware constructs an auth middleware.
func NewMiddleware(secret []byte, basic BasicCredentials, policy Policy, logger zerolog.Logger) *Middleware {
	return &Middleware{Secret: secret, Basic: basic, Policy: policy, Logger: logger}
}

// Enabled reports whether any credential source is configured.
func (m *Middleware) Enabled() bool {
	return m != nil && (len(m.Secret) > 0 || m.Basic.enabled())
}

// Wrap applies authentication and role checks to the handler.
func (m *Middleware) Wrap(next http.Handler) http.Handler {
	if !m.Enabled() {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.Policy.IsExempt(r) {
			next.ServeHTTP(w, r)
			return
		}
		required, ok := m.Policy.RequiredRole(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		role, subject, ok := m.authenticate(r)
		if !ok {
			if m.Basic.enabled() {
				w.Header().Set("WWW-Authenticate", `Basic realm="dashboard"`)
			}
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if !RoleAtLeast(role, required) {
			m.Logger.Debug().
				Str("subject", subject).
				Str("role", string(role)).
				Str("required", string(required)).
				Str("path", r.URL.Path).
				Msg("forbidden")
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), role, subject)))
	})
}

func (m *Middleware) authenticate(r *http.Request) (Role, string, bool) {
	if username, password, ok := r.BasicAuth(); ok {
		if m.Basic.enabled() && m.Basic.match(username, password) {
			return RoleOperator, username, true
		}
		return "", "", false
	}
	if len(m.Secret) == 0 {
		return "", "", false
	}
	claims, err := ParseJWT(extractToken(r), m.Secret)
	if err != nil {
		return "", "", false
	}
	role, _ := NormalizeRole(claims.Role)
	return role, claims.Subject, true
}

// extractToken reads a bearer token, falling back to the access_token
// query parameter for EventSource clients that cannot set headers.
func extractToken(r *http.Request) string {
	if r == nil {
		return ""
	}
	header := r.Header.Get("Authorization")
	if header == "" {
		return r.URL.Query().Get("access_token")
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}
