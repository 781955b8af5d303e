package auth

import "strings"

// Role is a dashboard access level. Viewers read tabs and drive the
// overlays; operators may also force refreshes.
type Role string

const (
	RoleViewer   Role = "viewer"
	RoleOperator Role = "operator"
)

// NormalizeRole accepts a role name case-insensitively.
func NormalizeRole(value string) (Role, bool) {
	switch role := Role(strings.ToLower(strings.TrimSpace(value))); role {
	case RoleViewer, RoleOperator:
		return role, true
	default:
		return "", false
	}
}

// RoleAtLeast reports whether role grants everything required grants.
func RoleAtLeast(role Role, required Role) bool {
	have, want := roleRank(role), roleRank(required)
	return have > 0 && have >= want
}

func roleRank(role Role) int {
	switch role {
	case RoleViewer:
		return 1
	case RoleOperator:
		return 2
	default:
		return 0
	}
}
