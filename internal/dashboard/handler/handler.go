package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"medicrm_backend/internal/dashboard/service"
	"medicrm_backend/internal/dashboard/transport"
	"medicrm_backend/platform/httpkit"
	"medicrm_backend/platform/validator"
)

// Handler handles HTTP requests for the dashboard.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new dashboard handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// Get builds the tenant dashboard.
// GET /api/v1/dashboard
func (h *Handler) Get(c *gin.Context) {
	var req transport.DashboardRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}
	tenantID, ok := httpkit.MustGetTenantID(c)
	if !ok {
		return
	}

	result, err := h.svc.Build(c.Request.Context(), tenantID, req.Days)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}
