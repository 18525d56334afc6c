package service_test

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"saasbackend/internal/logger"
	"saasbackend/internal/rbac"
	"saasbackend/internal/repository"
	"saasbackend/internal/service"
	"saasbackend/internal/testutil"
	"saasbackend/internal/token"
)

type matrixEvent struct {
	tenantID *uuid.UUID
	role     string
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []matrixEvent
}

func (n *recordingNotifier) MatrixChanged(tenantID *uuid.UUID, role string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, matrixEvent{tenantID: tenantID, role: role})
}

func (n *recordingNotifier) Events() []matrixEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]matrixEvent(nil), n.events...)
}

type fixture struct {
	db       *gorm.DB
	matrix   repository.AccessMatrixRepository
	audit    repository.AuditRepository
	engine   *rbac.Engine
	notifier *recordingNotifier
	matrixes service.AccessMatrixService
	auth     service.AuthService
	tenants  service.TenantService
	audits   service.AuditService
	codec    *token.Codec
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	log := logger.Discard()

	f := &fixture{
		db:       db,
		matrix:   repository.NewAccessMatrixRepository(db),
		audit:    repository.NewAuditRepository(db),
		notifier: &recordingNotifier{},
		codec:    testutil.NewCodec(t),
	}
	users := repository.NewUserRepository(db)
	tenantRepo := repository.NewTenantRepository(db)
	tx := repository.NewTransactionManager(db)

	f.engine = rbac.NewEngine(f.matrix)
	f.matrixes = service.NewAccessMatrixService(f.matrix, f.audit, tx, f.engine, f.notifier, log)
	f.auth = service.NewAuthService(repository.NewAdminRepository(db), tenantRepo, users, f.codec, f.engine, log)
	f.tenants = service.NewTenantService(tenantRepo, users, f.audit, tx, f.matrixes)
	f.audits = service.NewAuditService(f.audit)
	return f
}

func platformAdmin() rbac.Principal {
	return rbac.Principal{
		SubjectID: uuid.NewString(),
		Kind:      token.KindPlatformAdmin,
		Email:     "root@platform.test",
		Role:      rbac.RoleSuperAdmin,
	}
}

func tenantOwner(tenantID uuid.UUID) rbac.Principal {
	return rbac.Principal{
		SubjectID: tenantID.String(),
		Kind:      token.KindTenantOwner,
		Email:     "owner@tenant.test",
		TenantID:  &tenantID,
		Role:      rbac.RoleTenantAdmin,
	}
}

func member(tenantID uuid.UUID, role rbac.Role) rbac.Principal {
	return rbac.Principal{
		SubjectID: uuid.NewString(),
		Kind:      token.KindEndPrincipal,
		Email:     "member@tenant.test",
		TenantID:  &tenantID,
		Role:      role,
	}
}

func boolPtr(b bool) *bool { return &b }
