package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"saasbackend/internal/middleware"
	"saasbackend/internal/service"
	"saasbackend/pkg/response"
)

type AuthHandler struct {
	authService service.AuthService
	guard       *middleware.Guard
	log         logrus.FieldLogger
}

func NewAuthHandler(authService service.AuthService, guard *middleware.Guard, log logrus.FieldLogger) *AuthHandler {
	return &AuthHandler{authService: authService, guard: guard, log: log}
}

func (h *AuthHandler) RegisterRoutes(router *gin.RouterGroup) {
	api := router.Group("/api")
	{
		api.POST("/admin/login", h.LoginAdmin)
		api.POST("/tenant/login", h.LoginTenant)
		api.POST("/user/login", h.LoginUser)
		api.GET("/me", h.guard.Protect(), h.Me)
	}
}

// LoginAdmin authenticates a platform admin
// @Summary      Platform admin login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request  body      service.LoginRequest  true  "Credentials"
// @Success      200      {object}  response.Response{data=service.TokenResponse}
// @Failure      401      {object}  response.Response
// @Router       /api/admin/login [post]
func (h *AuthHandler) LoginAdmin(c *gin.Context) {
	var req service.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	resp, err := h.authService.LoginAdmin(c.Request.Context(), req)
	if err != nil {
		writeError(c, h.log, err, "Login failed")
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, resp))
}

// LoginTenant authenticates a tenant owner
// @Summary      Tenant owner login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request  body      service.LoginRequest  true  "Credentials"
// @Success      200      {object}  response.Response{data=service.TokenResponse}
// @Failure      401      {object}  response.Response
// @Router       /api/tenant/login [post]
func (h *AuthHandler) LoginTenant(c *gin.Context) {
	var req service.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	resp, err := h.authService.LoginTenant(c.Request.Context(), req)
	if err != nil {
		writeError(c, h.log, err, "Login failed")
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, resp))
}

// LoginUser authenticates a tenant member
// @Summary      Tenant member login
// @Description  tenant_id is optional; without it the email is looked up across tenants
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request  body      service.LoginUserRequest  true  "Credentials"
// @Success      200      {object}  response.Response{data=service.TokenResponse}
// @Failure      401      {object}  response.Response
// @Router       /api/user/login [post]
func (h *AuthHandler) LoginUser(c *gin.Context) {
	var req service.LoginUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	resp, err := h.authService.LoginUser(c.Request.Context(), req)
	if err != nil {
		writeError(c, h.log, err, "Login failed")
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, resp))
}

// Me returns the authenticated principal
// @Summary      Current principal
// @Description  Resolved role, tenant scope and the access matrix entry in effect
// @Tags         auth
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=service.MeResponse}
// @Failure      401  {object}  response.Response
// @Router       /api/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	p, _ := middleware.CurrentPrincipal(c)
	resp, err := h.authService.Me(c.Request.Context(), p)
	if err != nil {
		writeError(c, h.log, err, "Failed to load profile")
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, resp))
}
