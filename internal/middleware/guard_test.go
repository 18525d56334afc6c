package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"saasbackend/internal/logger"
	"saasbackend/internal/model"
	"saasbackend/internal/rbac"
	"saasbackend/internal/repository"
	"saasbackend/internal/testutil"
	"saasbackend/internal/token"
)

type guardFixture struct {
	guard   *Guard
	metrics *Metrics
	codec   *token.Codec
	tenant  *model.Tenant
	router  *gin.Engine
}

func newGuardFixture(t *testing.T) *guardFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.NewDB(t)
	matrix := repository.NewAccessMatrixRepository(db)
	for role, perms := range rbac.DefaultPermissions() {
		_, err := matrix.Upsert(context.Background(), repository.MatrixUpsert{Role: string(role), Permissions: perms, IsActive: true})
		require.NoError(t, err)
	}

	f := &guardFixture{
		codec:   testutil.NewCodec(t),
		metrics: NewMetrics(prometheus.NewRegistry()),
		tenant:  testutil.CreateTenant(t, db, "acme", "owner@acme.test", "ownerpass"),
	}
	resolver := rbac.NewResolver(repository.NewUserRepository(db))
	f.guard = NewGuard(f.codec, resolver, rbac.NewEngine(matrix), logger.Discard(), f.metrics)

	f.router = gin.New()
	ok := func(c *gin.Context) {
		p, found := CurrentPrincipal(c)
		require.True(t, found)
		claims, found := ClaimsFromContext(c.Request.Context())
		require.True(t, found)
		require.Equal(t, p.SubjectID, claims.SubjectID)
		c.JSON(http.StatusOK, gin.H{"role": p.Role, "subject": p.SubjectID})
	}
	f.router.GET("/me", f.guard.Protect(), ok)
	f.router.DELETE("/tests", f.guard.Protect(f.guard.RequirePermission("tests", "delete")), ok)
	f.router.PUT("/tests", f.guard.Protect(f.guard.RequirePermission("tests", "update")), ok)
	f.router.GET("/admin", f.guard.Protect(f.guard.RequireKind(token.KindPlatformAdmin)), ok)
	f.router.GET("/owners", f.guard.Protect(f.guard.RequireRole(rbac.RoleTenantAdmin, rbac.RoleSuperAdmin)), ok)
	return f
}

func (f *guardFixture) do(t *testing.T, method, path, authorization string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body
}

func (f *guardFixture) bearer(t *testing.T, s token.Subject) string {
	return "Bearer " + testutil.IssueToken(t, f.codec, s)
}

func TestGuardRejectsMissingAndMalformedHeaders(t *testing.T) {
	f := newGuardFixture(t)

	rec, body := f.do(t, http.MethodGet, "/me", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Authorization token is missing", body["error"])

	rec, body = f.do(t, http.MethodGet, "/me", "Token abc")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid authorization header format", body["error"])

	rec, body = f.do(t, http.MethodGet, "/me", "Bearer not.a.jwt")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid or expired token", body["error"])

	assert.Equal(t, 3.0, promtest.ToFloat64(f.metrics.decisions.WithLabelValues(gateAuthenticate, OutcomeUnauthenticated)))
}

func TestGuardRejectsExpiredToken(t *testing.T) {
	f := newGuardFixture(t)
	past := f.codec.WithClock(func() time.Time { return time.Now().Add(-time.Hour) })
	expired := testutil.IssueToken(t, past, token.Subject{ID: uuid.NewString(), Kind: token.KindPlatformAdmin})

	rec, body := f.do(t, http.MethodGet, "/me", "Bearer "+expired)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid or expired token", body["error"])
}

func TestGuardPlatformAdminPassesEveryGate(t *testing.T) {
	f := newGuardFixture(t)
	auth := f.bearer(t, token.Subject{ID: uuid.NewString(), Kind: token.KindPlatformAdmin, Email: "root@platform.test"})

	for _, path := range []string{"/me", "/admin", "/owners"} {
		rec, body := f.do(t, http.MethodGet, path, auth)
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.Equal(t, "super_admin", body["role"], path)
	}
	rec, _ := f.do(t, http.MethodDelete, "/tests", auth)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGuardPermissionFromMatrix(t *testing.T) {
	f := newGuardFixture(t)
	tenantID := f.tenant.ID

	// No record backs this subject; the embedded member role is honoured.
	auth := f.bearer(t, token.Subject{
		ID:       uuid.NewString(),
		Kind:     token.KindEndPrincipal,
		TenantID: &tenantID,
		Role:     string(rbac.RoleEmployee),
	})

	rec, _ := f.do(t, http.MethodPut, "/tests", auth)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, body := f.do(t, http.MethodDelete, "/tests", auth)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Access denied. employee does not have delete permission for tests", body["error"])

	assert.Equal(t, 1.0, promtest.ToFloat64(f.metrics.decisions.WithLabelValues(gatePermission, OutcomeForbidden)))
	assert.Equal(t, 1.0, promtest.ToFloat64(f.metrics.decisions.WithLabelValues(gatePermission, OutcomeAllow)))
}

func TestGuardRoleAndKindGates(t *testing.T) {
	f := newGuardFixture(t)
	tenantID := f.tenant.ID
	owner := f.bearer(t, token.Subject{ID: tenantID.String(), Kind: token.KindTenantOwner, TenantID: &tenantID})

	rec, _ := f.do(t, http.MethodGet, "/owners", owner)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, body := f.do(t, http.MethodGet, "/admin", owner)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Unauthorized access", body["error"])

	manager := f.bearer(t, token.Subject{
		ID: uuid.NewString(), Kind: token.KindEndPrincipal, TenantID: &tenantID, Role: string(rbac.RoleManager),
	})
	rec, body = f.do(t, http.MethodGet, "/owners", manager)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Access denied. Required roles: tenant_admin, super_admin, got: manager", body["error"])
}

func TestGuardUnresolvableRole(t *testing.T) {
	f := newGuardFixture(t)
	auth := f.bearer(t, token.Subject{ID: uuid.NewString(), Kind: token.KindEndPrincipal})

	rec, body := f.do(t, http.MethodDelete, "/tests", auth)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Unable to determine user role", body["error"])

	rec, _ = f.do(t, http.MethodGet, "/me", auth)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, 1.0, promtest.ToFloat64(f.metrics.decisions.WithLabelValues(gateResolve, OutcomeForbidden)))
}

func TestAuthorizationGateWithoutAuthentication(t *testing.T) {
	f := newGuardFixture(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	_, out := f.guard.Run(req, f.guard.RequirePermission("tests", "read"))
	require.NotNil(t, out)
	assert.Equal(t, http.StatusUnauthorized, out.Status)

	_, out = f.guard.Run(req, f.guard.RequireKind(token.KindPlatformAdmin))
	require.NotNil(t, out)
	assert.Equal(t, http.StatusUnauthorized, out.Status)
}

type brokenMatrix struct{}

func (brokenMatrix) Lookup(context.Context, *uuid.UUID, string) (*model.AccessMatrixEntry, error) {
	return nil, errors.New("connection refused")
}

func TestGuardStoreFailureIsServerError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := testutil.NewDB(t)
	codec := testutil.NewCodec(t)
	metrics := NewMetrics(prometheus.NewRegistry())
	guard := NewGuard(codec, rbac.NewResolver(repository.NewUserRepository(db)), rbac.NewEngine(brokenMatrix{}), logger.Discard(), metrics)

	router := gin.New()
	router.GET("/tests", guard.Protect(guard.RequirePermission("tests", "read")), func(c *gin.Context) {
		t.Error("handler must not run")
	})

	tenantID := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/tests", nil)
	req.Header.Set("Authorization", "Bearer "+testutil.IssueToken(t, codec, token.Subject{
		ID: uuid.NewString(), Kind: token.KindEndPrincipal, TenantID: &tenantID, Role: string(rbac.RoleUser),
	}))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, 1.0, promtest.ToFloat64(metrics.decisions.WithLabelValues(gatePermission, OutcomeError)))
}

func TestIdentify(t *testing.T) {
	f := newGuardFixture(t)
	tenantID := f.tenant.ID
	raw := testutil.IssueToken(t, f.codec, token.Subject{ID: tenantID.String(), Kind: token.KindTenantOwner})

	p, err := f.guard.Identify(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, rbac.RoleTenantAdmin, p.Role)
	require.NotNil(t, p.TenantID)
	assert.Equal(t, tenantID, *p.TenantID)

	_, err = f.guard.Identify(context.Background(), raw+"x")
	assert.ErrorIs(t, err, token.ErrTokenMalformed)
}
