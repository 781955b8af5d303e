package auth

import (
	"net/http"
	"strings"
)

// Policy determines required roles by request.
type Policy struct {
	ExemptPaths    map[string]struct{}
	ExemptPrefixes []string
}

// NewDefaultPolicy builds a default policy with exemptions.
func NewDefaultPolicy(exemptPaths []string, exemptPrefixes []string) Policy {
	set := make(map[string]struct{}, len(exemptPaths))
	for _, path := range exemptPaths {
		set[path] = struct{}{}
	}
	return Policy{ExemptPaths: set, ExemptPrefixes: exemptPrefixes}
}

// IsExempt returns true when a request should skip auth.
func (p Policy) IsExempt(r *http.Request) bool {
	if r == nil {
		return true
	}
	if _, ok := p.ExemptPaths[r.URL.Path]; ok {
		return true
	}
	for _, prefix := range p.ExemptPrefixes {
		if strings.HasPrefix(r.URL.Path, prefix) {
			return true
		}
	}
	return false
}

// RequiredRole resolves the role a request needs.
// Reads need viewer; refreshes and interactions need operator.
func (p Policy) RequiredRole(r *http.Request) (Role, bool) {
	if r == nil {
		return "", false
	}
	path := r.URL.Path

	switch {
	case strings.HasPrefix(path, "/api/v1/status/export."):
		return RoleViewer, true
	case path == "/api/v1/summary/detail":
		// opening the overlay is a read even though it is a POST
		return RoleViewer, true
	case path == "/api/v1/pv/random":
		return RoleViewer, true
	case strings.HasSuffix(path, "/refresh"):
		return RoleOperator, true
	}

	if strings.HasPrefix(path, "/api/") {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			return RoleViewer, true
		}
		return RoleOperator, true
	}
	return "", false
}
