package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"saasbackend/internal/middleware"
	"saasbackend/internal/service"
	"saasbackend/internal/token"
	"saasbackend/pkg/pagination"
	"saasbackend/pkg/response"
)

type AuditHandler struct {
	auditService service.AuditService
	guard        *middleware.Guard
	log          logrus.FieldLogger
}

func NewAuditHandler(auditService service.AuditService, guard *middleware.Guard, log logrus.FieldLogger) *AuditHandler {
	return &AuditHandler{auditService: auditService, guard: guard, log: log}
}

func (h *AuditHandler) RegisterRoutes(router *gin.RouterGroup) {
	g := h.guard
	router.GET("/api/access-control/audit-logs",
		g.Protect(g.RequireKind(token.KindPlatformAdmin, token.KindTenantOwner)),
		h.GetAuditLogs,
	)
}

// GetAuditLogs pages through the audit trail of the caller's scope
// @Summary      Get audit logs
// @Description  Newest first. Tenant owners see their tenant; platform admins see everything
// @Tags         audit
// @Security     BearerAuth
// @Produce      json
// @Param        page   query     int  false  "Page number (default 1)"
// @Param        limit  query     int  false  "Number of items per page (default 20)"
// @Success      200    {object}  response.Response{data=pagination.Result[service.AuditLogResponse]}
// @Router       /api/access-control/audit-logs [get]
func (h *AuditHandler) GetAuditLogs(c *gin.Context) {
	params := pagination.Parse(c)
	p, _ := middleware.CurrentPrincipal(c)

	logs, total, err := h.auditService.GetAuditLogs(c.Request.Context(), p, params.Offset, params.Limit)
	if err != nil {
		writeError(c, h.log, err, "Failed to retrieve audit logs")
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, pagination.NewResult(params, logs, total)))
}
