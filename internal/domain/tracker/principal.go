package tracker

import "strings"

// Principal is the caller identity resolved from the auth service.
type Principal struct {
	UserID string
	Email  string
	Roles  []string
}

// HasRole reports whether the principal carries the given operator role.
// Role names from the auth service are matched case-insensitively.
func (p Principal) HasRole(role Role) bool {
	for _, r := range p.Roles {
		if strings.EqualFold(strings.TrimSpace(r), string(role)) {
			return true
		}
	}
	return false
}

// HasAnyRole reports whether the principal carries at least one of the roles.
func (p Principal) HasAnyRole(roles ...Role) bool {
	for _, role := range roles {
		if p.HasRole(role) {
			return true
		}
	}
	return false
}
