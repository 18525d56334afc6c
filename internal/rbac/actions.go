package rbac

import "saasbackend/internal/model"

const (
	ActionCreate = "create"
	ActionRead   = "read"
	ActionUpdate = "update"
	ActionDelete = "delete"
	ActionAll    = model.WildcardAction
)

const (
	ResourceEmployees = "employees"
	ResourceUsers     = "users"
	ResourceTests     = "tests"
	ResourceReports   = "reports"
	ResourceTenants   = "tenants"
)

// ValidAction reports whether a is an action that may be stored in the matrix.
func ValidAction(a string) bool {
	switch a {
	case ActionCreate, ActionRead, ActionUpdate, ActionDelete, ActionAll:
		return true
	default:
		return false
	}
}

// DefaultPermissions returns a fresh copy of the built-in permission table.
func DefaultPermissions() map[Role]model.Permissions {
	crud := func() []string { return []string{ActionCreate, ActionRead, ActionUpdate, ActionDelete} }

	return map[Role]model.Permissions{
		RoleSuperAdmin: {
			ResourceEmployees: crud(),
			ResourceUsers:     crud(),
			ResourceTests:     crud(),
			ResourceReports:   crud(),
			ResourceTenants:   crud(),
		},
		RoleTenantAdmin: {
			ResourceEmployees: crud(),
			ResourceUsers:     crud(),
			ResourceTests:     crud(),
			ResourceReports:   {ActionRead},
			ResourceTenants:   {ActionRead, ActionUpdate},
		},
		RoleManager: {
			ResourceEmployees: {ActionRead, ActionUpdate},
			ResourceUsers:     {ActionCreate, ActionRead, ActionUpdate},
			ResourceTests:     {ActionRead},
			ResourceReports:   {ActionRead},
		},
		RoleEmployee: {
			ResourceEmployees: {ActionRead},
			ResourceUsers:     {ActionRead, ActionUpdate},
			ResourceTests:     {ActionCreate, ActionRead, ActionUpdate},
			ResourceReports:   {},
		},
		// "users" here means the caller's own profile; callers enforce ownership.
		RoleUser: {
			ResourceEmployees: {},
			ResourceUsers:     {ActionRead, ActionUpdate},
			ResourceTests:     {ActionRead},
			ResourceReports:   {},
		},
	}
}
