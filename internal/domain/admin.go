package domain

import "time"

// AdminRole enumerates admin console roles.
type AdminRole string

const (
	AdminRoleSuperAdmin AdminRole = "super_admin"
	AdminRoleAdmin      AdminRole = "admin"
	AdminRoleManager    AdminRole = "manager"
	AdminRoleSupport    AdminRole = "support"
)

// Valid reports whether r is one of the known roles.
func (r AdminRole) Valid() bool {
	switch r {
	case AdminRoleSuperAdmin, AdminRoleAdmin, AdminRoleManager, AdminRoleSupport:
		return true
	}
	return false
}

// Admin is an admin console operator.
type Admin struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      AdminRole `json:"role"`
	Active    bool      `json:"isActive"`
	LastLogin time.Time `json:"lastLogin,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// AdminRoles lists every role in canonical order, most privileged first.
var AdminRoles = []AdminRole{
	AdminRoleSuperAdmin,
	AdminRoleAdmin,
	AdminRoleManager,
	AdminRoleSupport,
}
