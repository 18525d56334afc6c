package rbac

import "fmt"

// Role is an RBAC role: a named bucket of permissions.
type Role string

const (
	RoleSuperAdmin  Role = "super_admin"
	RoleTenantAdmin Role = "tenant_admin"
	RoleManager     Role = "manager"
	RoleEmployee    Role = "employee"
	RoleUser        Role = "user"
)

// Roles lists every RBAC role, most privileged first.
var Roles = []Role{RoleSuperAdmin, RoleTenantAdmin, RoleManager, RoleEmployee, RoleUser}

func (r Role) String() string {
	return string(r)
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleTenantAdmin, RoleManager, RoleEmployee, RoleUser:
		return true
	default:
		return false
	}
}

// Bypass reports whether r is granted everything without consulting the matrix.
func (r Role) Bypass() bool {
	return r == RoleSuperAdmin || r == RoleTenantAdmin
}

// ParseRole converts a stored or wire value into a Role.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// RawRole is the role string stored on a tenant member record.
type RawRole string

const (
	RawUser     RawRole = "user"
	RawEmployee RawRole = "employee"
	RawManager  RawRole = "manager"
	RawSalesRep RawRole = "sales_rep"
	RawTenant   RawRole = "tenant"
)

// MemberRawRoles are the raw roles that may be assigned to a tenant member.
var MemberRawRoles = []RawRole{RawUser, RawEmployee, RawManager, RawSalesRep}

// MapRawRole maps a stored member role onto its RBAC role. Unknown values
// fall back to RoleUser.
func MapRawRole(raw string) Role {
	switch RawRole(raw) {
	case RawUser:
		return RoleUser
	case RawEmployee, RawSalesRep:
		return RoleEmployee
	case RawManager:
		return RoleManager
	case RawTenant:
		return RoleTenantAdmin
	default:
		return RoleUser
	}
}
