package rbac

import (
	"github.com/google/uuid"

	"saasbackend/internal/token"
)

// Principal is the authenticated caller of one request. It is built from
// verified claims plus a Resolution and is never persisted or mutated.
type Principal struct {
	SubjectID string
	Kind      token.PrincipalKind
	Email     string
	TenantID  *uuid.UUID
	Role      Role
}

// NewPrincipal combines verified claims with their resolved role and scope.
func NewPrincipal(claims *token.Claims, res Resolution) Principal {
	return Principal{
		SubjectID: claims.SubjectID,
		Kind:      claims.Kind,
		Email:     claims.Email,
		TenantID:  res.TenantID,
		Role:      res.Role,
	}
}

// PlatformWide reports whether the principal acts outside any tenant.
func (p Principal) PlatformWide() bool {
	return p.Role == RoleSuperAdmin && p.TenantID == nil
}

// CanManage reports whether the principal may change entries of tenantID
// (nil meaning global entries).
func (p Principal) CanManage(tenantID *uuid.UUID) bool {
	if p.PlatformWide() {
		return true
	}
	if p.Role != RoleTenantAdmin || p.TenantID == nil || tenantID == nil {
		return false
	}
	return *p.TenantID == *tenantID
}
