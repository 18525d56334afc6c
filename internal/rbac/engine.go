package rbac

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"saasbackend/internal/model"
)

// MatrixLookup is the read side of the access matrix store.
type MatrixLookup interface {
	// Lookup returns the active entry for (tenantID, role), or nil when none exists.
	Lookup(ctx context.Context, tenantID *uuid.UUID, role string) (*model.AccessMatrixEntry, error)
}

// Engine decides whether a role may perform an action on a resource.
type Engine struct {
	matrix MatrixLookup
}

func NewEngine(matrix MatrixLookup) *Engine {
	return &Engine{matrix: matrix}
}

// EffectiveEntry returns the entry governing role in tenantID: the tenant's
// own active entry if present, otherwise the active global one. A tenant
// entry shadows the global entry completely.
func (e *Engine) EffectiveEntry(ctx context.Context, role Role, tenantID *uuid.UUID) (*model.AccessMatrixEntry, error) {
	if tenantID != nil {
		entry, err := e.matrix.Lookup(ctx, tenantID, string(role))
		if err != nil {
			return nil, fmt.Errorf("lookup %s entry for tenant %s: %w", role, tenantID, err)
		}
		if entry != nil {
			return entry, nil
		}
	}

	entry, err := e.matrix.Lookup(ctx, nil, string(role))
	if err != nil {
		return nil, fmt.Errorf("lookup global %s entry: %w", role, err)
	}
	return entry, nil
}

// HasPermission reports whether role may perform action on resource in tenantID.
func (e *Engine) HasPermission(ctx context.Context, role Role, tenantID *uuid.UUID, resource, action string) (bool, error) {
	switch role {
	case RoleSuperAdmin:
		return true, nil
	case RoleTenantAdmin:
		// Owners fully control their own tenant; the matrix is not consulted.
		return true, nil
	}

	entry, err := e.EffectiveEntry(ctx, role, tenantID)
	if err != nil {
		return false, err
	}
	if entry == nil {
		return false, nil
	}
	return entry.Grants(resource, action), nil
}

// Authorize is HasPermission returning a *DeniedError on refusal.
func (e *Engine) Authorize(ctx context.Context, role Role, tenantID *uuid.UUID, resource, action string) error {
	ok, err := e.HasPermission(ctx, role, tenantID, resource, action)
	if err != nil {
		return err
	}
	if !ok {
		return &DeniedError{Role: role, Resource: resource, Action: action}
	}
	return nil
}
