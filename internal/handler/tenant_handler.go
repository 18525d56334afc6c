package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"saasbackend/internal/middleware"
	"saasbackend/internal/rbac"
	"saasbackend/internal/service"
	"saasbackend/internal/token"
	"saasbackend/pkg/response"
)

type TenantHandler struct {
	tenantService service.TenantService
	guard         *middleware.Guard
	log           logrus.FieldLogger
}

func NewTenantHandler(tenantService service.TenantService, guard *middleware.Guard, log logrus.FieldLogger) *TenantHandler {
	return &TenantHandler{tenantService: tenantService, guard: guard, log: log}
}

func (h *TenantHandler) RegisterRoutes(router *gin.RouterGroup) {
	g := h.guard
	router.POST("/api/admin/tenants", g.Protect(g.RequireKind(token.KindPlatformAdmin)), h.CreateTenant)
	router.POST("/api/tenant/users", g.Protect(g.RequirePermission(rbac.ResourceUsers, rbac.ActionCreate)), h.CreateMember)
}

// CreateTenant registers a tenant and seeds its access matrix
// @Summary      Create tenant
// @Tags         tenants
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      service.CreateTenantRequest  true  "Tenant"
// @Success      201      {object}  response.Response{data=service.TenantResponse}
// @Failure      409      {object}  response.Response
// @Router       /api/admin/tenants [post]
func (h *TenantHandler) CreateTenant(c *gin.Context) {
	var req service.CreateTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	p, _ := middleware.CurrentPrincipal(c)
	tenant, err := h.tenantService.CreateTenant(c.Request.Context(), p, req)
	if err != nil {
		writeError(c, h.log, err, "Failed to create tenant")
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, tenant))
}

// CreateMember adds a member to the caller's tenant
// @Summary      Create tenant member
// @Description  role is one of user, employee, manager, sales_rep
// @Tags         tenants
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      service.CreateMemberRequest  true  "Member"
// @Success      201      {object}  response.Response{data=service.MemberResponse}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Router       /api/tenant/users [post]
func (h *TenantHandler) CreateMember(c *gin.Context) {
	var req service.CreateMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	p, _ := middleware.CurrentPrincipal(c)
	member, err := h.tenantService.CreateMember(c.Request.Context(), p, req)
	if err != nil {
		writeError(c, h.log, err, "Failed to create user")
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, member))
}
