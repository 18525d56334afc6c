package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	ActionUpsertAccessMatrix     = "UPSERT_ACCESS_MATRIX"
	ActionUpdateAccessMatrix     = "UPDATE_ACCESS_MATRIX"
	ActionInitializeAccessMatrix = "INITIALIZE_ACCESS_MATRIX"
	ActionCreateTenant           = "CREATE_TENANT"
	ActionCreateUser             = "CREATE_USER"
)

// AuditLog records who changed what, and in which tenant. ActorID is the
// token subject; ActorKind its principal kind.
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID   *uuid.UUID `gorm:"type:uuid;index" json:"tenant_id"`
	ActorID    string     `gorm:"type:varchar(64);index" json:"actor_id"`
	ActorKind  string     `gorm:"type:varchar(16)" json:"actor_kind"`
	ActorEmail string     `gorm:"type:varchar(255)" json:"actor_email"`
	Action     string     `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string     `gorm:"type:varchar(64);index" json:"entity_id"`
	EntityName string     `gorm:"type:varchar(255)" json:"entity_name,omitempty"`
	Details    string     `gorm:"type:text" json:"details"`
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}
