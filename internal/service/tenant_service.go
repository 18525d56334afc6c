package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"saasbackend/internal/model"
	"saasbackend/internal/rbac"
	"saasbackend/internal/repository"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// --- DTOs ---

type CreateTenantRequest struct {
	Name          string `json:"name" binding:"required"`
	Slug          string `json:"slug" binding:"required"`
	Email         string `json:"email" binding:"required,email"`
	Phone         string `json:"phone"`
	AdminName     string `json:"admin_name" binding:"required"`
	AdminEmail    string `json:"admin_email" binding:"required,email"`
	AdminPassword string `json:"admin_password" binding:"required,min=6"`
}

type CreateMemberRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Phone    string `json:"phone"`
	Password string `json:"password" binding:"required,min=6"`
	Role     string `json:"role" binding:"required"`
	// TenantID selects the tenant for platform admins; ignored for everyone else.
	TenantID *uuid.UUID `json:"tenant_id"`
}

type TenantResponse struct {
	ID                 string            `json:"id"`
	Name               string            `json:"name"`
	Slug               string            `json:"slug"`
	Email              string            `json:"email"`
	AdminEmail         string            `json:"admin_email"`
	IsActive           bool              `json:"is_active"`
	SubscriptionStatus string            `json:"subscription_status"`
	AccessMatrix       *InitializeResult `json:"access_matrix"`
	CreatedAt          string            `json:"created_at"`
}

type MemberResponse struct {
	ID        string `json:"id"`
	TenantID  string `json:"tenant_id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Role      string `json:"role"`
	RBACRole  string `json:"rbac_role"`
	IsActive  bool   `json:"is_active"`
	CreatedAt string `json:"created_at"`
}

// --- Interface ---

type TenantService interface {
	// CreateTenant registers a tenant and seeds its access matrix with the
	// default entries, atomically.
	CreateTenant(ctx context.Context, actor rbac.Principal, req CreateTenantRequest) (*TenantResponse, error)
	CreateMember(ctx context.Context, actor rbac.Principal, req CreateMemberRequest) (*MemberResponse, error)
}

type tenantService struct {
	tenants repository.TenantRepository
	users   repository.UserRepository
	audit   repository.AuditRepository
	tx      repository.TransactionManager
	matrix  AccessMatrixService
}

func NewTenantService(
	tenants repository.TenantRepository,
	users repository.UserRepository,
	audit repository.AuditRepository,
	tx repository.TransactionManager,
	matrix AccessMatrixService,
) TenantService {
	return &tenantService{tenants: tenants, users: users, audit: audit, tx: tx, matrix: matrix}
}

// --- Implementation ---

func (s *tenantService) CreateTenant(ctx context.Context, actor rbac.Principal, req CreateTenantRequest) (*TenantResponse, error) {
	if !actor.PlatformWide() {
		return nil, ErrScopeViolation
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.New("failed to hash password")
	}

	tenant := &model.Tenant{
		Name:               req.Name,
		Slug:               strings.ToLower(strings.TrimSpace(req.Slug)),
		Email:              req.Email,
		Phone:              req.Phone,
		AdminName:          req.AdminName,
		AdminEmail:         req.AdminEmail,
		AdminPassword:      string(hashed),
		IsActive:           true,
		SubscriptionStatus: "trial",
	}

	var seeded *InitializeResult
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if _, err := s.tenants.GetByAdminEmail(txCtx, req.AdminEmail); err == nil {
			return fmt.Errorf("%w: tenant admin email %s", ErrAlreadyExists, req.AdminEmail)
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to check tenant: %w", err)
		}

		if err := s.tenants.Create(txCtx, tenant); err != nil {
			return fmt.Errorf("failed to create tenant: %w", err)
		}

		tenantID := tenant.ID
		seeded, err = s.matrix.InitializeDefaults(txCtx, &actor, &tenantID)
		if err != nil {
			return err
		}

		details, _ := json.Marshal(map[string]string{"slug": tenant.Slug, "admin_email": tenant.AdminEmail})
		return s.audit.Log(txCtx, newAuditLog(&actor, &tenantID, model.ActionCreateTenant, tenant.ID.String(), tenant.Name, string(details)))
	})
	if err != nil {
		return nil, err
	}

	return &TenantResponse{
		ID:                 tenant.ID.String(),
		Name:               tenant.Name,
		Slug:               tenant.Slug,
		Email:              tenant.Email,
		AdminEmail:         tenant.AdminEmail,
		IsActive:           tenant.IsActive,
		SubscriptionStatus: tenant.SubscriptionStatus,
		AccessMatrix:       seeded,
		CreatedAt:          tenant.CreatedAt.Format(time.RFC3339),
	}, nil
}

func (s *tenantService) CreateMember(ctx context.Context, actor rbac.Principal, req CreateMemberRequest) (*MemberResponse, error) {
	if !slices.Contains(rbac.MemberRawRoles, rbac.RawRole(req.Role)) {
		return nil, fmt.Errorf("%w: must be one of user, employee, manager, sales_rep", ErrInvalidRole)
	}

	tenantID := actor.TenantID
	if actor.PlatformWide() {
		tenantID = req.TenantID
	}
	if tenantID == nil {
		return nil, fmt.Errorf("%w: tenant_id is required", ErrInvalidRequest)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.New("failed to hash password")
	}

	user := &model.User{
		TenantID: *tenantID,
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Password: string(hashed),
		Role:     req.Role,
		IsActive: true,
	}

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if _, err := s.tenants.GetByID(txCtx, *tenantID); errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: tenant %s", ErrNotFound, tenantID)
		} else if err != nil {
			return fmt.Errorf("failed to fetch tenant: %w", err)
		}

		taken, err := s.users.EmailTaken(txCtx, req.Email, *tenantID)
		if err != nil {
			return fmt.Errorf("failed to check email: %w", err)
		}
		if taken {
			return fmt.Errorf("%w: email %s", ErrAlreadyExists, req.Email)
		}

		if err := s.users.Create(txCtx, user); err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}

		details, _ := json.Marshal(map[string]string{"email": user.Email, "role": user.Role})
		return s.audit.Log(txCtx, newAuditLog(&actor, tenantID, model.ActionCreateUser, user.ID.String(), user.Name, string(details)))
	})
	if err != nil {
		return nil, err
	}

	return &MemberResponse{
		ID:        user.ID.String(),
		TenantID:  user.TenantID.String(),
		Name:      user.Name,
		Email:     user.Email,
		Phone:     user.Phone,
		Role:      user.Role,
		RBACRole:  string(rbac.MapRawRole(user.Role)),
		IsActive:  user.IsActive,
		CreatedAt: user.CreatedAt.Format(time.RFC3339),
	}, nil
}
