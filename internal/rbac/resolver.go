package rbac

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"saasbackend/internal/model"
	"saasbackend/internal/token"
)

// UserLookup reads tenant member records by id.
type UserLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
}

// Resolution is the effective role of a principal and the tenant it acts in.
// TenantID is nil for platform-wide principals.
type Resolution struct {
	Role     Role
	TenantID *uuid.UUID
}

// Resolver derives RBAC roles from verified claims.
type Resolver struct {
	users UserLookup
}

func NewResolver(users UserLookup) *Resolver {
	return &Resolver{users: users}
}

// Resolve returns the principal's role and tenant scope. It fails with
// ErrRoleUnresolvable when no role can be determined.
func (r *Resolver) Resolve(ctx context.Context, claims *token.Claims) (Resolution, error) {
	if claims == nil {
		return Resolution{}, ErrRoleUnresolvable
	}

	switch claims.Kind {
	case token.KindPlatformAdmin:
		return Resolution{Role: RoleSuperAdmin}, nil
	case token.KindTenantOwner:
		tenantID, err := uuid.Parse(claims.SubjectID)
		if err != nil {
			if claims.TenantID == nil {
				return Resolution{}, fmt.Errorf("%w: tenant owner subject %q is not a tenant id", ErrRoleUnresolvable, claims.SubjectID)
			}
			tenantID = *claims.TenantID
		}
		return Resolution{Role: RoleTenantAdmin, TenantID: &tenantID}, nil
	case token.KindEndPrincipal:
		return r.resolveMember(ctx, claims)
	default:
		return Resolution{}, fmt.Errorf("%w: unknown principal kind %q", ErrRoleUnresolvable, claims.Kind)
	}
}

func (r *Resolver) resolveMember(ctx context.Context, claims *token.Claims) (Resolution, error) {
	user, err := r.findMember(ctx, claims.SubjectID)
	if err != nil {
		return Resolution{}, err
	}

	if user != nil {
		tenantID := claims.TenantID
		if tenantID == nil {
			id := user.TenantID
			tenantID = &id
		}
		return Resolution{Role: MapRawRole(user.Role), TenantID: tenantID}, nil
	}

	// No backing record: only an embedded member role can still be honoured.
	if claims.Role == "" {
		return Resolution{}, fmt.Errorf("%w: no user record for subject %q", ErrRoleUnresolvable, claims.SubjectID)
	}
	role, err := ParseRole(claims.Role)
	if err != nil || role.Bypass() {
		return Resolution{}, fmt.Errorf("%w: embedded role %q is not a member role", ErrRoleUnresolvable, claims.Role)
	}
	return Resolution{Role: role, TenantID: claims.TenantID}, nil
}

// findMember returns nil, nil when the subject has no record.
func (r *Resolver) findMember(ctx context.Context, subject string) (*model.User, error) {
	id, err := uuid.Parse(subject)
	if err != nil {
		return nil, nil
	}
	user, err := r.users.GetByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup user %s: %w", id, err)
	}
	return user, nil
}
