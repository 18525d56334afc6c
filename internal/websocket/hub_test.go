package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"saasbackend/internal/logger"
	"saasbackend/internal/rbac"
	"saasbackend/internal/token"
)

type staticIdentifier map[string]rbac.Principal

func (s staticIdentifier) Identify(_ context.Context, raw string) (rbac.Principal, error) {
	switch raw {
	case "expired":
		return rbac.Principal{}, fmt.Errorf("%w: exp in the past", token.ErrTokenExpired)
	case "orphan":
		return rbac.Principal{}, fmt.Errorf("%w: subject deleted", rbac.ErrRoleUnresolvable)
	case "outage":
		return rbac.Principal{}, errors.New("connection refused")
	}
	p, ok := s[raw]
	if !ok {
		return rbac.Principal{}, token.ErrTokenMalformed
	}
	return p, nil
}

func startHub(t *testing.T, ids staticIdentifier) (*Hub, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(logger.Discard())
	go hub.Run(ctx)

	router := gin.New()
	router.GET("/ws", func(c *gin.Context) { ServeWs(hub, ids, c) })
	srv := httptest.NewServer(router)
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func dial(t *testing.T, url, raw string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url+"?token="+raw, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var ev Event
	require.NoError(t, json.Unmarshal(data, &ev))
	return ev
}

func TestEventsAreScopedToTenant(t *testing.T) {
	tenantA, tenantB := uuid.New(), uuid.New()
	hub, url := startHub(t, staticIdentifier{
		"admin": {SubjectID: "admin", Kind: token.KindPlatformAdmin, Role: rbac.RoleSuperAdmin},
		"a":     {SubjectID: tenantA.String(), Kind: token.KindTenantOwner, Role: rbac.RoleTenantAdmin, TenantID: &tenantA},
		"b":     {SubjectID: tenantB.String(), Kind: token.KindTenantOwner, Role: rbac.RoleTenantAdmin, TenantID: &tenantB},
	})

	admin := dial(t, url, "admin")
	ownerA := dial(t, url, "a")
	ownerB := dial(t, url, "b")
	require.Eventually(t, func() bool { return hub.ClientCount() == 3 }, 2*time.Second, 10*time.Millisecond)

	hub.MatrixChanged(&tenantA, "employee")
	hub.MatrixChanged(&tenantB, "manager")

	got := readEvent(t, ownerA)
	assert.Equal(t, EventMatrixUpdated, got.Type)
	assert.Equal(t, "employee", got.Role)
	require.NotNil(t, got.TenantID)
	assert.Equal(t, tenantA, *got.TenantID)

	got = readEvent(t, ownerB)
	assert.Equal(t, "manager", got.Role, "tenant B never sees tenant A's event")

	assert.Equal(t, "employee", readEvent(t, admin).Role)
	assert.Equal(t, "manager", readEvent(t, admin).Role)
}

func TestGlobalEventsOnlyReachPlatformAdmins(t *testing.T) {
	tenantA := uuid.New()
	hub, url := startHub(t, staticIdentifier{
		"admin": {SubjectID: "admin", Kind: token.KindPlatformAdmin, Role: rbac.RoleSuperAdmin},
		"a":     {SubjectID: tenantA.String(), Kind: token.KindTenantOwner, Role: rbac.RoleTenantAdmin, TenantID: &tenantA},
	})
	admin := dial(t, url, "admin")
	ownerA := dial(t, url, "a")
	require.Eventually(t, func() bool { return hub.ClientCount() == 2 }, 2*time.Second, 10*time.Millisecond)

	hub.MatrixChanged(nil, "user")
	hub.MatrixChanged(&tenantA, "user")

	ev := readEvent(t, admin)
	assert.Nil(t, ev.TenantID)

	ev = readEvent(t, ownerA)
	require.NotNil(t, ev.TenantID, "the global event is skipped for tenant owners")
}

func TestServeWsRejections(t *testing.T) {
	tenantA := uuid.New()
	_, url := startHub(t, staticIdentifier{
		"member": {SubjectID: "m", Kind: token.KindEndPrincipal, Role: rbac.RoleManager, TenantID: &tenantA},
	})

	for raw, want := range map[string]int{
		"":        http.StatusUnauthorized,
		"garbage": http.StatusUnauthorized,
		"expired": http.StatusUnauthorized,
		"member":  http.StatusForbidden,
		"orphan":  http.StatusForbidden,
		"outage":  http.StatusInternalServerError,
	} {
		_, resp, err := websocket.DefaultDialer.Dial(url+"?token="+raw, nil)
		require.Error(t, err, raw)
		require.NotNil(t, resp, raw)
		assert.Equal(t, want, resp.StatusCode, raw)
		_ = resp.Body.Close()
	}
}
