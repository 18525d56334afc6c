package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Admin is a platform operator. Admins are not bound to any tenant.
type Admin struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Email     string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	Password  string    `gorm:"type:varchar(255);not null" json:"-"`
	IsActive  bool      `gorm:"not null" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// Tenant is an organization using the platform. The tenant owner logs in with
// AdminEmail/AdminPassword and acts with the tenant's own id.
type Tenant struct {
	ID                 uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name               string    `gorm:"type:varchar(255);not null" json:"name"`
	Slug               string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"slug"`
	Email              string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Phone              string    `gorm:"type:varchar(20)" json:"phone"`
	AdminName          string    `gorm:"type:varchar(255);not null" json:"admin_name"`
	AdminEmail         string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"admin_email"`
	AdminPassword      string    `gorm:"type:varchar(255);not null" json:"-"`
	IsActive           bool      `gorm:"not null" json:"is_active"`
	SubscriptionStatus string    `gorm:"type:varchar(50);not null;default:trial" json:"subscription_status"`
	CreatedAt          time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// User is a member of exactly one tenant. Role holds the raw stored role
// (user, employee, manager, sales_rep...), not the RBAC role.
type User struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID  uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_users_tenant_email" json:"tenant_id"`
	Tenant    *Tenant        `gorm:"foreignKey:TenantID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Name      string         `gorm:"type:varchar(255);not null" json:"name"`
	Email     string         `gorm:"type:varchar(255);not null;uniqueIndex:idx_users_tenant_email" json:"email"`
	Phone     string         `gorm:"type:varchar(20)" json:"phone"`
	Password  string         `gorm:"type:varchar(255);not null" json:"-"`
	Role      string         `gorm:"type:varchar(50);not null;default:user" json:"role"`
	IsActive  bool           `gorm:"not null" json:"is_active"`
	LastLogin *time.Time     `json:"last_login"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
