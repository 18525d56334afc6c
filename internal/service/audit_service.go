package service

import (
	"context"
	"time"

	"saasbackend/internal/rbac"
	"saasbackend/internal/repository"
)

type AuditLogResponse struct {
	ID         string  `json:"id"`
	TenantID   *string `json:"tenant_id"`
	ActorID    string  `json:"actor_id"`
	ActorKind  string  `json:"actor_kind"`
	ActorEmail string  `json:"actor_email"`
	Action     string  `json:"action"`
	EntityID   string  `json:"entity_id"`
	EntityName string  `json:"entity_name"`
	Details    string  `json:"details"`
	CreatedAt  string  `json:"created_at"`
}

type AuditService interface {
	// GetAuditLogs pages through the caller's audit trail, newest first.
	// Platform admins see every tenant.
	GetAuditLogs(ctx context.Context, actor rbac.Principal, offset, limit int) ([]AuditLogResponse, int64, error)
}

type auditService struct {
	repo repository.AuditRepository
}

// NewAuditService creates a new AuditService instance
func NewAuditService(repo repository.AuditRepository) AuditService {
	return &auditService{repo: repo}
}

func (s *auditService) GetAuditLogs(ctx context.Context, actor rbac.Principal, offset, limit int) ([]AuditLogResponse, int64, error) {
	if !actor.PlatformWide() && actor.TenantID == nil {
		return nil, 0, ErrScopeViolation
	}

	logs, total, err := s.repo.List(ctx, actor.TenantID, offset, limit)
	if err != nil {
		return nil, 0, err
	}

	res := make([]AuditLogResponse, 0, len(logs))
	for _, l := range logs {
		var tenantID *string
		if l.TenantID != nil {
			id := l.TenantID.String()
			tenantID = &id
		}
		res = append(res, AuditLogResponse{
			ID:         l.ID.String(),
			TenantID:   tenantID,
			ActorID:    l.ActorID,
			ActorKind:  l.ActorKind,
			ActorEmail: l.ActorEmail,
			Action:     l.Action,
			EntityID:   l.EntityID,
			EntityName: l.EntityName,
			Details:    l.Details,
			CreatedAt:  l.CreatedAt.Format(time.RFC3339),
		})
	}

	return res, total, nil
}
