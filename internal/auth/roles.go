package auth

import (
	"fmt"
	"strings"

	"github.com/kallkeyy/storefront-api/internal/domain"
)

// RoleSet is a closed set of admin roles declared by a protected route.
type RoleSet uint8

func roleBit(role domain.AdminRole) RoleSet {
	for i, r := range domain.AdminRoles {
		if r == role {
			return 1 << i
		}
	}
	return 0
}

// RolesOf builds a set. It panics on unknown roles since role sets are
// declared once at route registration.
func RolesOf(roles ...domain.AdminRole) RoleSet {
	var set RoleSet
	for _, role := range roles {
		bit := roleBit(role)
		if bit == 0 {
			panic(fmt.Sprintf("auth: unknown admin role %q", role))
		}
		set |= bit
	}
	return set
}

// AnyAdminRole accepts every active admin.
const AnyAdminRole RoleSet = 0

// Contains reports whether role is in the set.
func (s RoleSet) Contains(role domain.AdminRole) bool {
	bit := roleBit(role)
	return bit != 0 && s&bit != 0
}

// Roles lists the members in canonical order.
func (s RoleSet) Roles() []domain.AdminRole {
	var out []domain.AdminRole
	for _, role := range domain.AdminRoles {
		if s.Contains(role) {
			out = append(out, role)
		}
	}
	return out
}

func (s RoleSet) String() string {
	roles := s.Roles()
	names := make([]string, len(roles))
	for i, role := range roles {
		names[i] = string(role)
	}
	return strings.Join(names, " or ")
}

// Authorize runs the role gate for an already resolved, active admin.
func Authorize(admin *domain.Admin, required RoleSet) error {
	if required == AnyAdminRole {
		return nil
	}
	if admin == nil || !required.Contains(admin.Role) {
		return &Error{
			Kind:   KindInsufficientRole,
			Detail: "Access denied. Required role: " + required.String(),
		}
	}
	return nil
}
