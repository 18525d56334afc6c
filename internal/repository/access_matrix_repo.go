package repository

import (
	"context"
	"errors"

	"saasbackend/internal/model"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MatrixUpsert is the full replacement state written by Upsert.
type MatrixUpsert struct {
	TenantID    *uuid.UUID
	Role        string
	Permissions model.Permissions
	Description string
	IsActive    bool
}

// AccessMatrixRepository persists access matrix entries. There is no delete:
// entries are disabled by upserting IsActive=false.
type AccessMatrixRepository interface {
	// Upsert inserts or replaces the (tenant, role) entry in one statement.
	Upsert(ctx context.Context, in MatrixUpsert) (*model.AccessMatrixEntry, error)
	// Lookup returns the active entry for (tenant, role), or nil.
	Lookup(ctx context.Context, tenantID *uuid.UUID, role string) (*model.AccessMatrixEntry, error)
	// Find returns the entry for (tenant, role) regardless of state, or nil.
	Find(ctx context.Context, tenantID *uuid.UUID, role string) (*model.AccessMatrixEntry, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.AccessMatrixEntry, error)
	// ListActive returns active entries of one scope, or of every scope when
	// allScopes is set.
	ListActive(ctx context.Context, tenantID *uuid.UUID, allScopes bool) ([]model.AccessMatrixEntry, error)
	Save(ctx context.Context, entry *model.AccessMatrixEntry) error
}

type accessMatrixRepository struct {
	db *gorm.DB
}

func NewAccessMatrixRepository(db *gorm.DB) AccessMatrixRepository {
	return &accessMatrixRepository{db: db}
}

func (r *accessMatrixRepository) Upsert(ctx context.Context, in MatrixUpsert) (*model.AccessMatrixEntry, error) {
	entry := model.AccessMatrixEntry{
		TenantID:    in.TenantID,
		Role:        in.Role,
		Permissions: datatypes.NewJSONType(normalizePermissions(in.Permissions)),
		Description: in.Description,
		IsActive:    in.IsActive,
	}

	db := GetDB(ctx, r.db)
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "scope"}, {Name: "role"}},
		DoUpdates: clause.AssignmentColumns([]string{"permissions", "description", "is_active", "updated_at"}),
	}).Create(&entry).Error
	if err != nil {
		return nil, err
	}

	// On conflict the in-memory id is not the stored one; read the row back.
	var stored model.AccessMatrixEntry
	if err := db.First(&stored, "scope = ? AND role = ?", model.ScopeKey(in.TenantID), in.Role).Error; err != nil {
		return nil, err
	}
	return &stored, nil
}

func (r *accessMatrixRepository) Lookup(ctx context.Context, tenantID *uuid.UUID, role string) (*model.AccessMatrixEntry, error) {
	return r.first(GetDB(ctx, r.db).Where("scope = ? AND role = ? AND is_active = ?", model.ScopeKey(tenantID), role, true))
}

func (r *accessMatrixRepository) Find(ctx context.Context, tenantID *uuid.UUID, role string) (*model.AccessMatrixEntry, error) {
	return r.first(GetDB(ctx, r.db).Where("scope = ? AND role = ?", model.ScopeKey(tenantID), role))
}

func (r *accessMatrixRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.AccessMatrixEntry, error) {
	var entry model.AccessMatrixEntry
	if err := GetDB(ctx, r.db).First(&entry, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *accessMatrixRepository) ListActive(ctx context.Context, tenantID *uuid.UUID, allScopes bool) ([]model.AccessMatrixEntry, error) {
	query := GetDB(ctx, r.db).Where("is_active = ?", true)
	if !allScopes {
		query = query.Where("scope = ?", model.ScopeKey(tenantID))
	}

	var entries []model.AccessMatrixEntry
	if err := query.Order("scope asc, role asc").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *accessMatrixRepository) Save(ctx context.Context, entry *model.AccessMatrixEntry) error {
	entry.Permissions = datatypes.NewJSONType(normalizePermissions(entry.Permissions.Data()))
	return GetDB(ctx, r.db).Save(entry).Error
}

func (r *accessMatrixRepository) first(query *gorm.DB) (*model.AccessMatrixEntry, error) {
	var entry model.AccessMatrixEntry
	err := query.First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// normalizePermissions replaces nil action lists with empty ones so the
// stored JSON never contains null.
func normalizePermissions(p model.Permissions) model.Permissions {
	out := make(model.Permissions, len(p))
	for resource, actions := range p {
		if actions == nil {
			actions = []string{}
		}
		out[resource] = actions
	}
	return out
}
