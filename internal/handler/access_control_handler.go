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

type AccessControlHandler struct {
	matrixService service.AccessMatrixService
	guard         *middleware.Guard
	log           logrus.FieldLogger
}

func NewAccessControlHandler(matrixService service.AccessMatrixService, guard *middleware.Guard, log logrus.FieldLogger) *AccessControlHandler {
	return &AccessControlHandler{matrixService: matrixService, guard: guard, log: log}
}

func (h *AccessControlHandler) RegisterRoutes(router *gin.RouterGroup) {
	g := h.guard
	anyone := g.Protect(g.RequireKind(token.KindPlatformAdmin, token.KindTenantOwner, token.KindEndPrincipal))
	owners := g.Protect(
		g.RequireKind(token.KindPlatformAdmin, token.KindTenantOwner),
		g.RequireRole(rbac.RoleTenantAdmin, rbac.RoleSuperAdmin),
	)

	group := router.Group("/api/access-control")
	{
		group.GET("/matrix", anyone, h.GetMatrix)
		group.POST("/matrix", owners, h.UpsertMatrix)
		group.PUT("/matrix/:id", owners, h.UpdateMatrix)
		group.POST("/initialize-default-matrix", owners, h.InitializeDefaultMatrix)
		group.POST("/check-permission", anyone, h.CheckPermission)
	}
}

// GetMatrix returns the caller's access matrix
// @Summary      Get access matrix
// @Description  With role, returns that role's entry in the caller's scope; otherwise every active entry of the scope (all scopes for platform admins)
// @Tags         access-control
// @Security     BearerAuth
// @Produce      json
// @Param        role  query     string  false  "RBAC role"
// @Success      200   {object}  response.Response{data=[]service.MatrixResponse}
// @Failure      404   {object}  response.Response
// @Router       /api/access-control/matrix [get]
func (h *AccessControlHandler) GetMatrix(c *gin.Context) {
	p, _ := middleware.CurrentPrincipal(c)

	if role := c.Query("role"); role != "" {
		entry, err := h.matrixService.GetByRole(c.Request.Context(), p, role)
		if err != nil {
			writeError(c, h.log, err, "Failed to fetch access matrix")
			return
		}
		c.JSON(http.StatusOK, response.Success(http.StatusOK, entry))
		return
	}

	entries, err := h.matrixService.List(c.Request.Context(), p)
	if err != nil {
		writeError(c, h.log, err, "Failed to fetch access matrices")
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, entries))
}

// UpsertMatrix creates or replaces the entry of a role
// @Summary      Upsert access matrix entry
// @Tags         access-control
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      service.UpsertMatrixRequest  true  "Entry"
// @Success      200      {object}  response.Response{data=service.MatrixResponse}
// @Success      201      {object}  response.Response{data=service.MatrixResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/access-control/matrix [post]
func (h *AccessControlHandler) UpsertMatrix(c *gin.Context) {
	var req service.UpsertMatrixRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	p, _ := middleware.CurrentPrincipal(c)
	entry, created, err := h.matrixService.Upsert(c.Request.Context(), p, req)
	if err != nil {
		writeError(c, h.log, err, "Failed to save access matrix")
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, response.Success(status, entry))
}

// UpdateMatrix partially updates an entry by id
// @Summary      Update access matrix entry
// @Tags         access-control
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                       true  "Entry ID"
// @Param        request  body      service.UpdateMatrixRequest  true  "Fields to change"
// @Success      200      {object}  response.Response{data=service.MatrixResponse}
// @Failure      403      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/access-control/matrix/{id} [put]
func (h *AccessControlHandler) UpdateMatrix(c *gin.Context) {
	var req service.UpdateMatrixRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	p, _ := middleware.CurrentPrincipal(c)
	entry, err := h.matrixService.UpdateByID(c.Request.Context(), p, c.Param("id"), req)
	if err != nil {
		writeError(c, h.log, err, "Failed to update access matrix")
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, entry))
}

// InitializeDefaultMatrix writes the default entries into the caller's scope
// @Summary      Initialize default access matrix
// @Tags         access-control
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=service.InitializeResult}
// @Router       /api/access-control/initialize-default-matrix [post]
func (h *AccessControlHandler) InitializeDefaultMatrix(c *gin.Context) {
	p, _ := middleware.CurrentPrincipal(c)
	res, err := h.matrixService.InitializeDefaults(c.Request.Context(), &p, p.TenantID)
	if err != nil {
		writeError(c, h.log, err, "Failed to initialize access matrix")
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// CheckPermission evaluates one permission for the caller
// @Summary      Check permission
// @Tags         access-control
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      service.CheckPermissionRequest  true  "Resource and action"
// @Success      200      {object}  response.Response{data=service.CheckPermissionResponse}
// @Router       /api/access-control/check-permission [post]
func (h *AccessControlHandler) CheckPermission(c *gin.Context) {
	var req service.CheckPermissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	p, _ := middleware.CurrentPrincipal(c)
	res, err := h.matrixService.CheckPermission(c.Request.Context(), p, req)
	if err != nil {
		writeError(c, h.log, err, "Failed to check permission")
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}
