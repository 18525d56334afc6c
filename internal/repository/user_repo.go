package repository

import (
	"context"
	"time"

	"saasbackend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserRepository reads and writes tenant member records.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	// FindActiveByEmail looks the email up in one tenant, or across all
	// tenants when tenantID is nil.
	FindActiveByEmail(ctx context.Context, email string, tenantID *uuid.UUID) (*model.User, error)
	// EmailTaken reports whether any row in the tenant holds the email,
	// inactive and soft-deleted members included.
	EmailTaken(ctx context.Context, email string, tenantID uuid.UUID) (bool, error)
	TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new instance of UserRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	return GetDB(ctx, r.db).Create(user).Error
}

func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var user model.User
	if err := GetDB(ctx, r.db).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindActiveByEmail(ctx context.Context, email string, tenantID *uuid.UUID) (*model.User, error) {
	var user model.User
	query := GetDB(ctx, r.db).Where("email = ? AND is_active = ?", email, true)
	if tenantID != nil {
		query = query.Where("tenant_id = ?", *tenantID)
	}
	if err := query.Order("created_at asc").First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) EmailTaken(ctx context.Context, email string, tenantID uuid.UUID) (bool, error) {
	var count int64
	err := GetDB(ctx, r.db).Unscoped().Model(&model.User{}).
		Where("tenant_id = ? AND email = ?", tenantID, email).
		Count(&count).Error
	return count > 0, err
}

func (r *userRepository) TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return GetDB(ctx, r.db).Model(&model.User{}).Where("id = ?", id).Update("last_login", at).Error
}
