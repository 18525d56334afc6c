package model

import (
	"slices"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// GlobalScope is the scope key of entries that apply to every tenant
// lacking its own override.
const GlobalScope = "global"

// WildcardAction grants every action on a resource.
const WildcardAction = "all"

// Permissions maps a resource name to the actions allowed on it.
type Permissions map[string][]string

// Allows reports whether action, or the wildcard, is listed for resource.
func (p Permissions) Allows(resource, action string) bool {
	actions := p[resource]
	return slices.Contains(actions, action) || slices.Contains(actions, WildcardAction)
}

// AccessMatrixEntry is the permission set of one role in one scope.
//
// Scope mirrors TenantID ("global" when TenantID is nil) and carries the
// unique key together with Role, because a nullable tenant column cannot
// enforce uniqueness of global entries.
type AccessMatrixEntry struct {
	ID          uuid.UUID                       `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID    *uuid.UUID                      `gorm:"type:uuid;index" json:"tenant_id"`
	Scope       string                          `gorm:"type:varchar(64);not null;uniqueIndex:idx_access_matrix_scope_role" json:"-"`
	Role        string                          `gorm:"type:varchar(50);not null;uniqueIndex:idx_access_matrix_scope_role;index" json:"role"`
	Permissions datatypes.JSONType[Permissions] `gorm:"not null" json:"permissions"`
	Description string                          `gorm:"type:text" json:"description"`
	IsActive    bool                            `gorm:"not null" json:"is_active"`
	CreatedAt   time.Time                       `json:"created_at"`
	UpdatedAt   time.Time                       `json:"updated_at"`
}

func (AccessMatrixEntry) TableName() string {
	return "access_matrix"
}

// ScopeKey returns the unique-key scope value for a tenant id.
func ScopeKey(tenantID *uuid.UUID) string {
	if tenantID == nil {
		return GlobalScope
	}
	return tenantID.String()
}

// Grants reports whether the entry is active and allows action on resource.
func (e *AccessMatrixEntry) Grants(resource, action string) bool {
	if !e.IsActive {
		return false
	}
	return e.Permissions.Data().Allows(resource, action)
}

func (e *AccessMatrixEntry) BeforeSave(*gorm.DB) error {
	assignID(&e.ID)
	e.Scope = ScopeKey(e.TenantID)
	return nil
}
