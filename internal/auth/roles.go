package auth

// Role represents a user role. Viewers can read check-in state, instructors
// can run the billing commands and approve, admins can do everything.
type Role string

const (
	RoleViewer     Role = "viewer"
	RoleInstructor Role = "instructor"
	RoleAdmin      Role = "admin"
)

// NormalizeRole validates and normalizes a role string.
func NormalizeRole(value string) (Role, bool) {
	switch Role(value) {
	case RoleViewer, RoleInstructor, RoleAdmin:
		return Role(value), true
	default:
		return "", false
	}
}

// RoleAtLeast returns true when role satisfies required role.
func RoleAtLeast(role Role, required Role) bool {
	return roleRank(role) >= roleRank(required)
}

func roleRank(role Role) int {
	switch role {
	case RoleViewer:
		return 1
	case RoleInstructor:
		return 2
	case RoleAdmin:
		return 3
	default:
		return 0
	}
}
