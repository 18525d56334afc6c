package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"saasbackend/internal/model"
	"saasbackend/internal/rbac"
	"saasbackend/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// --- DTOs ---

type UpsertMatrixRequest struct {
	Role        string            `json:"role" binding:"required"`
	Permissions model.Permissions `json:"permissions" binding:"required"`
	Description string            `json:"description"`
	IsActive    *bool             `json:"is_active"`
	// TenantID lets a platform admin target a tenant; ignored for everyone else.
	TenantID *uuid.UUID `json:"tenant_id"`
}

type UpdateMatrixRequest struct {
	Permissions model.Permissions `json:"permissions"`
	Description *string           `json:"description"`
	IsActive    *bool             `json:"is_active"`
}

type CheckPermissionRequest struct {
	Resource string `json:"resource" binding:"required"`
	Action   string `json:"action" binding:"required"`
}

type MatrixResponse struct {
	ID          string            `json:"id"`
	TenantID    *string           `json:"tenant_id"`
	Role        string            `json:"role"`
	Permissions model.Permissions `json:"permissions"`
	Description string            `json:"description"`
	IsActive    bool              `json:"is_active"`
	CreatedAt   string            `json:"created_at"`
	UpdatedAt   string            `json:"updated_at"`
}

type InitializeResult struct {
	Created []string `json:"created"`
	Updated []string `json:"updated"`
	Total   int      `json:"total"`
}

type CheckPermissionResponse struct {
	HasPermission bool   `json:"has_permission"`
	Role          string `json:"role"`
	Resource      string `json:"resource"`
	Action        string `json:"action"`
}

// MatrixChangeNotifier is told about every committed matrix change.
type MatrixChangeNotifier interface {
	MatrixChanged(tenantID *uuid.UUID, role string)
}

// --- Interface ---

type AccessMatrixService interface {
	// InitializeDefaults upserts the default entry of every role into tenantID
	// (nil: global). The super_admin entry is only written globally. actor is
	// nil for startup bootstrap.
	InitializeDefaults(ctx context.Context, actor *rbac.Principal, tenantID *uuid.UUID) (*InitializeResult, error)
	Upsert(ctx context.Context, actor rbac.Principal, req UpsertMatrixRequest) (*MatrixResponse, bool, error)
	GetByRole(ctx context.Context, actor rbac.Principal, role string) (*MatrixResponse, error)
	List(ctx context.Context, actor rbac.Principal) ([]MatrixResponse, error)
	UpdateByID(ctx context.Context, actor rbac.Principal, id string, req UpdateMatrixRequest) (*MatrixResponse, error)
	CheckPermission(ctx context.Context, actor rbac.Principal, req CheckPermissionRequest) (*CheckPermissionResponse, error)
}

type accessMatrixService struct {
	repo     repository.AccessMatrixRepository
	audit    repository.AuditRepository
	tx       repository.TransactionManager
	engine   *rbac.Engine
	notifier MatrixChangeNotifier
	log      logrus.FieldLogger
}

func NewAccessMatrixService(
	repo repository.AccessMatrixRepository,
	audit repository.AuditRepository,
	tx repository.TransactionManager,
	engine *rbac.Engine,
	notifier MatrixChangeNotifier,
	log logrus.FieldLogger,
) AccessMatrixService {
	return &accessMatrixService{repo: repo, audit: audit, tx: tx, engine: engine, notifier: notifier, log: log}
}

// --- Implementation ---

func (s *accessMatrixService) InitializeDefaults(ctx context.Context, actor *rbac.Principal, tenantID *uuid.UUID) (*InitializeResult, error) {
	result := &InitializeResult{Created: []string{}, Updated: []string{}}
	defaults := rbac.DefaultPermissions()

	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		for _, role := range rbac.Roles {
			if role == rbac.RoleSuperAdmin && tenantID != nil {
				continue
			}

			existing, err := s.repo.Find(txCtx, tenantID, string(role))
			if err != nil {
				return fmt.Errorf("failed to read %s entry: %w", role, err)
			}

			if _, err := s.repo.Upsert(txCtx, repository.MatrixUpsert{
				TenantID:    tenantID,
				Role:        string(role),
				Permissions: defaults[role],
				Description: fmt.Sprintf("Default permissions for %s", role),
				IsActive:    true,
			}); err != nil {
				return fmt.Errorf("failed to initialize %s entry: %w", role, err)
			}

			if existing != nil {
				result.Updated = append(result.Updated, string(role))
			} else {
				result.Created = append(result.Created, string(role))
			}
		}
		result.Total = len(result.Created) + len(result.Updated)

		return s.record(txCtx, actor, tenantID, model.ActionInitializeAccessMatrix, model.ScopeKey(tenantID), "default access matrix", result)
	})
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{
		"scope":   model.ScopeKey(tenantID),
		"created": len(result.Created),
		"updated": len(result.Updated),
	}).Info("default access matrix initialized")

	for _, role := range append(append([]string{}, result.Created...), result.Updated...) {
		s.notify(tenantID, role)
	}
	return result, nil
}

func (s *accessMatrixService) Upsert(ctx context.Context, actor rbac.Principal, req UpsertMatrixRequest) (*MatrixResponse, bool, error) {
	role, err := rbac.ParseRole(req.Role)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %s", ErrInvalidRole, req.Role)
	}
	if err := validatePermissions(req.Permissions); err != nil {
		return nil, false, err
	}

	tenantID := actor.TenantID
	if actor.PlatformWide() && req.TenantID != nil {
		tenantID = req.TenantID
	}
	if !actor.CanManage(tenantID) {
		return nil, false, ErrScopeViolation
	}
	if role == rbac.RoleSuperAdmin && tenantID != nil {
		return nil, false, fmt.Errorf("%w: super_admin permissions are global only", ErrInvalidRole)
	}

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	var entry *model.AccessMatrixEntry
	var created bool
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		existing, err := s.repo.Find(txCtx, tenantID, string(role))
		if err != nil {
			return fmt.Errorf("failed to read access matrix: %w", err)
		}
		created = existing == nil

		entry, err = s.repo.Upsert(txCtx, repository.MatrixUpsert{
			TenantID:    tenantID,
			Role:        string(role),
			Permissions: req.Permissions,
			Description: req.Description,
			IsActive:    isActive,
		})
		if err != nil {
			return fmt.Errorf("failed to upsert access matrix: %w", err)
		}

		return s.record(txCtx, &actor, tenantID, model.ActionUpsertAccessMatrix, entry.ID.String(), entry.Role, req)
	})
	if err != nil {
		return nil, false, err
	}

	s.notify(tenantID, entry.Role)
	resp := toMatrixResponse(*entry)
	return &resp, created, nil
}

func (s *accessMatrixService) GetByRole(ctx context.Context, actor rbac.Principal, role string) (*MatrixResponse, error) {
	entry, err := s.repo.Lookup(ctx, actor.TenantID, role)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch access matrix: %w", err)
	}
	if entry == nil {
		return nil, fmt.Errorf("%w for role: %s", ErrMatrixNotFound, role)
	}
	resp := toMatrixResponse(*entry)
	return &resp, nil
}

func (s *accessMatrixService) List(ctx context.Context, actor rbac.Principal) ([]MatrixResponse, error) {
	entries, err := s.repo.ListActive(ctx, actor.TenantID, actor.PlatformWide())
	if err != nil {
		return nil, fmt.Errorf("failed to fetch access matrices: %w", err)
	}

	res := make([]MatrixResponse, 0, len(entries))
	for _, e := range entries {
		res = append(res, toMatrixResponse(e))
	}
	return res, nil
}

func (s *accessMatrixService) UpdateByID(ctx context.Context, actor rbac.Principal, id string, req UpdateMatrixRequest) (*MatrixResponse, error) {
	entryID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid access matrix id", ErrInvalidRequest)
	}
	if req.Permissions != nil {
		if err := validatePermissions(req.Permissions); err != nil {
			return nil, err
		}
	}

	var entry *model.AccessMatrixEntry
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		entry, err = s.repo.GetByID(txCtx, entryID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMatrixNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to fetch access matrix: %w", err)
		}
		if !actor.CanManage(entry.TenantID) {
			return ErrScopeViolation
		}

		if req.Permissions != nil {
			entry.Permissions = datatypes.NewJSONType(req.Permissions)
		}
		if req.Description != nil {
			entry.Description = *req.Description
		}
		if req.IsActive != nil {
			entry.IsActive = *req.IsActive
		}
		if err := s.repo.Save(txCtx, entry); err != nil {
			return fmt.Errorf("failed to update access matrix: %w", err)
		}

		return s.record(txCtx, &actor, entry.TenantID, model.ActionUpdateAccessMatrix, entry.ID.String(), entry.Role, req)
	})
	if err != nil {
		return nil, err
	}

	s.notify(entry.TenantID, entry.Role)
	resp := toMatrixResponse(*entry)
	return &resp, nil
}

func (s *accessMatrixService) CheckPermission(ctx context.Context, actor rbac.Principal, req CheckPermissionRequest) (*CheckPermissionResponse, error) {
	ok, err := s.engine.HasPermission(ctx, actor.Role, actor.TenantID, req.Resource, req.Action)
	if err != nil {
		return nil, fmt.Errorf("failed to check permission: %w", err)
	}
	return &CheckPermissionResponse{
		HasPermission: ok,
		Role:          string(actor.Role),
		Resource:      req.Resource,
		Action:        req.Action,
	}, nil
}

// --- Helpers ---

func (s *accessMatrixService) record(ctx context.Context, actor *rbac.Principal, tenantID *uuid.UUID, action, entityID, entityName string, details any) error {
	payload, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("failed to encode audit details: %w", err)
	}
	return s.audit.Log(ctx, newAuditLog(actor, tenantID, action, entityID, entityName, string(payload)))
}

func (s *accessMatrixService) notify(tenantID *uuid.UUID, role string) {
	if s.notifier == nil {
		return
	}
	s.notifier.MatrixChanged(tenantID, role)
}

func newAuditLog(actor *rbac.Principal, tenantID *uuid.UUID, action, entityID, entityName, details string) *model.AuditLog {
	entry := &model.AuditLog{
		TenantID:   tenantID,
		ActorID:    "system",
		ActorKind:  "system",
		Action:     action,
		EntityID:   entityID,
		EntityName: entityName,
		Details:    details,
	}
	if actor != nil {
		entry.ActorID = actor.SubjectID
		entry.ActorKind = string(actor.Kind)
		entry.ActorEmail = actor.Email
	}
	return entry
}

func validatePermissions(perms model.Permissions) error {
	if len(perms) == 0 {
		return fmt.Errorf("%w: permissions is required", ErrInvalidRequest)
	}
	resources := make([]string, 0, len(perms))
	for resource := range perms {
		resources = append(resources, resource)
	}
	sort.Strings(resources)

	for _, resource := range resources {
		if resource == "" {
			return fmt.Errorf("%w: empty resource name", ErrInvalidRequest)
		}
		for _, action := range perms[resource] {
			if !rbac.ValidAction(action) {
				return fmt.Errorf("%w: %q on %s (expected create, read, update, delete or all)", ErrInvalidAction, action, resource)
			}
		}
	}
	return nil
}

func toMatrixResponse(e model.AccessMatrixEntry) MatrixResponse {
	var tenantID *string
	if e.TenantID != nil {
		id := e.TenantID.String()
		tenantID = &id
	}
	perms := e.Permissions.Data()
	if perms == nil {
		perms = model.Permissions{}
	}
	return MatrixResponse{
		ID:          e.ID.String(),
		TenantID:    tenantID,
		Role:        e.Role,
		Permissions: perms,
		Description: e.Description,
		IsActive:    e.IsActive,
		CreatedAt:   e.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   e.UpdatedAt.Format(time.RFC3339),
	}
}
