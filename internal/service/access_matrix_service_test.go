package service_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"saasbackend/internal/model"
	"saasbackend/internal/rbac"
	"saasbackend/internal/service"
)

func TestInitializeDefaultsGlobalThenUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.matrixes.InitializeDefaults(ctx, nil, nil)
	require.NoError(t, err)
	assert.Len(t, first.Created, 5)
	assert.Empty(t, first.Updated)
	assert.Equal(t, 5, first.Total)

	second, err := f.matrixes.InitializeDefaults(ctx, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, second.Created)
	assert.Len(t, second.Updated, 5)
	assert.Equal(t, 5, second.Total)

	entries, err := f.matrix.ListActive(ctx, nil, true)
	require.NoError(t, err)
	assert.Len(t, entries, 5, "re-initializing must not duplicate entries")
}

func TestInitializeDefaultsTenantSkipsSuperAdmin(t *testing.T) {
	f := newFixture(t)
	tenantID := uuid.New()

	res, err := f.matrixes.InitializeDefaults(context.Background(), nil, &tenantID)
	require.NoError(t, err)
	assert.Equal(t, 4, res.Total)
	assert.NotContains(t, res.Created, string(rbac.RoleSuperAdmin))

	entry, err := f.matrix.Find(context.Background(), &tenantID, string(rbac.RoleSuperAdmin))
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestInitializeDefaultsRestoresEditedEntry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.matrixes.InitializeDefaults(ctx, nil, nil)
	require.NoError(t, err)

	_, _, err = f.matrixes.Upsert(ctx, platformAdmin(), service.UpsertMatrixRequest{
		Role:        "user",
		Permissions: model.Permissions{"tests": {"delete"}},
	})
	require.NoError(t, err)

	_, err = f.matrixes.InitializeDefaults(ctx, nil, nil)
	require.NoError(t, err)

	ok, err := f.engine.HasPermission(ctx, rbac.RoleUser, nil, "tests", "delete")
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = f.engine.HasPermission(ctx, rbac.RoleUser, nil, "tests", "read")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestUpsertCreatesThenReplaces(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tenantID := uuid.New()
	owner := tenantOwner(tenantID)

	created, isNew, err := f.matrixes.Upsert(ctx, owner, service.UpsertMatrixRequest{
		Role:        "employee",
		Permissions: model.Permissions{"tests": {"read", "update"}},
		Description: "first",
	})
	require.NoError(t, err)
	assert.True(t, isNew)
	require.NotNil(t, created.TenantID)
	assert.Equal(t, tenantID.String(), *created.TenantID)

	updated, isNew, err := f.matrixes.Upsert(ctx, owner, service.UpsertMatrixRequest{
		Role:        "employee",
		Permissions: model.Permissions{"reports": {"read"}},
		Description: "second",
	})
	require.NoError(t, err)
	assert.False(t, isNew)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, model.Permissions{"reports": {"read"}}, updated.Permissions, "replace, not merge")
	assert.Equal(t, "second", updated.Description)

	events := f.notifier.Events()
	require.Len(t, events, 2)
	assert.Equal(t, "employee", events[1].role)
	require.NotNil(t, events[1].tenantID)
	assert.Equal(t, tenantID, *events[1].tenantID)
}

func TestUpsertValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tenantID := uuid.New()

	_, _, err := f.matrixes.Upsert(ctx, tenantOwner(tenantID), service.UpsertMatrixRequest{
		Role: "overlord", Permissions: model.Permissions{"tests": {"read"}},
	})
	assert.ErrorIs(t, err, service.ErrInvalidRole)

	_, _, err = f.matrixes.Upsert(ctx, tenantOwner(tenantID), service.UpsertMatrixRequest{
		Role: "user", Permissions: model.Permissions{"tests": {"destroy"}},
	})
	assert.ErrorIs(t, err, service.ErrInvalidAction)

	_, _, err = f.matrixes.Upsert(ctx, tenantOwner(tenantID), service.UpsertMatrixRequest{
		Role: "super_admin", Permissions: model.Permissions{"tests": {"read"}},
	})
	assert.ErrorIs(t, err, service.ErrInvalidRole)

	_, _, err = f.matrixes.Upsert(ctx, member(tenantID, rbac.RoleManager), service.UpsertMatrixRequest{
		Role: "user", Permissions: model.Permissions{"tests": {"read"}},
	})
	assert.ErrorIs(t, err, service.ErrScopeViolation)
}

func TestUpsertTenantOverrideOnlyForPlatformAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	own, other := uuid.New(), uuid.New()

	resp, _, err := f.matrixes.Upsert(ctx, tenantOwner(own), service.UpsertMatrixRequest{
		Role: "user", Permissions: model.Permissions{"tests": {"read"}}, TenantID: &other,
	})
	require.NoError(t, err)
	require.NotNil(t, resp.TenantID)
	assert.Equal(t, own.String(), *resp.TenantID)

	resp, _, err = f.matrixes.Upsert(ctx, platformAdmin(), service.UpsertMatrixRequest{
		Role: "user", Permissions: model.Permissions{"tests": {"read"}}, TenantID: &other,
	})
	require.NoError(t, err)
	require.NotNil(t, resp.TenantID)
	assert.Equal(t, other.String(), *resp.TenantID)
}

func TestUpsertWritesAuditLog(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tenantID := uuid.New()
	owner := tenantOwner(tenantID)

	resp, _, err := f.matrixes.Upsert(ctx, owner, service.UpsertMatrixRequest{
		Role: "manager", Permissions: model.Permissions{"reports": {"all"}},
	})
	require.NoError(t, err)

	logs, total, err := f.audits.GetAuditLogs(ctx, owner, 0, 10)
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	assert.Equal(t, model.ActionUpsertAccessMatrix, logs[0].Action)
	assert.Equal(t, resp.ID, logs[0].EntityID)
	assert.Equal(t, owner.SubjectID, logs[0].ActorID)
	assert.Contains(t, logs[0].Details, "reports")
}

func TestGetByRoleAndList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tenantID := uuid.New()
	_, err := f.matrixes.InitializeDefaults(ctx, nil, nil)
	require.NoError(t, err)
	_, err = f.matrixes.InitializeDefaults(ctx, nil, &tenantID)
	require.NoError(t, err)

	got, err := f.matrixes.GetByRole(ctx, tenantOwner(tenantID), "manager")
	require.NoError(t, err)
	require.NotNil(t, got.TenantID)
	assert.Equal(t, tenantID.String(), *got.TenantID)

	_, err = f.matrixes.GetByRole(ctx, tenantOwner(tenantID), "super_admin")
	assert.ErrorIs(t, err, service.ErrMatrixNotFound)

	scoped, err := f.matrixes.List(ctx, tenantOwner(tenantID))
	require.NoError(t, err)
	assert.Len(t, scoped, 4)

	all, err := f.matrixes.List(ctx, platformAdmin())
	require.NoError(t, err)
	assert.Len(t, all, 9)
}

func TestUpdateByIDRespectsScope(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tenantA, tenantB := uuid.New(), uuid.New()

	entry, _, err := f.matrixes.Upsert(ctx, tenantOwner(tenantA), service.UpsertMatrixRequest{
		Role: "user", Permissions: model.Permissions{"tests": {"read"}},
	})
	require.NoError(t, err)

	_, err = f.matrixes.UpdateByID(ctx, tenantOwner(tenantB), entry.ID, service.UpdateMatrixRequest{IsActive: boolPtr(false)})
	assert.ErrorIs(t, err, service.ErrScopeViolation)

	desc := "owners only"
	updated, err := f.matrixes.UpdateByID(ctx, tenantOwner(tenantA), entry.ID, service.UpdateMatrixRequest{
		Permissions: model.Permissions{"tests": {"create"}},
		Description: &desc,
	})
	require.NoError(t, err)
	assert.Equal(t, model.Permissions{"tests": {"create"}}, updated.Permissions)
	assert.Equal(t, desc, updated.Description)
	assert.True(t, updated.IsActive, "fields absent from the request keep their value")

	cleared, err := f.matrixes.UpdateByID(ctx, tenantOwner(tenantA), entry.ID, service.UpdateMatrixRequest{
		Permissions: model.Permissions{"tests": nil},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{}, cleared.Permissions["tests"])

	_, err = f.matrixes.UpdateByID(ctx, platformAdmin(), entry.ID, service.UpdateMatrixRequest{IsActive: boolPtr(false)})
	require.NoError(t, err)

	ok, err := f.engine.HasPermission(ctx, rbac.RoleUser, &tenantA, "tests", "create")
	require.NoError(t, err)
	assert.False(t, ok, "deactivated entry no longer grants")
}

func TestUpdateByIDErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.matrixes.UpdateByID(ctx, platformAdmin(), "not-a-uuid", service.UpdateMatrixRequest{})
	assert.ErrorIs(t, err, service.ErrInvalidRequest)

	_, err = f.matrixes.UpdateByID(ctx, platformAdmin(), uuid.NewString(), service.UpdateMatrixRequest{})
	assert.ErrorIs(t, err, service.ErrMatrixNotFound)
}

func TestCheckPermission(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tenantID := uuid.New()
	_, err := f.matrixes.InitializeDefaults(ctx, nil, nil)
	require.NoError(t, err)

	res, err := f.matrixes.CheckPermission(ctx, member(tenantID, rbac.RoleEmployee), service.CheckPermissionRequest{
		Resource: "tests", Action: "update",
	})
	require.NoError(t, err)
	assert.True(t, res.HasPermission)
	assert.Equal(t, "employee", res.Role)

	res, err = f.matrixes.CheckPermission(ctx, member(tenantID, rbac.RoleEmployee), service.CheckPermissionRequest{
		Resource: "tests", Action: "delete",
	})
	require.NoError(t, err)
	assert.False(t, res.HasPermission)
}
