// Package handler exposes the public intake endpoint and the intake
// token management routes.
package handler

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"medicrm_backend/internal/webhook/service"
	"medicrm_backend/internal/webhook/transport"
	"medicrm_backend/platform/httpkit"
	"medicrm_backend/platform/validator"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidID        = "invalid token id"
)

// Handler handles webhook intake HTTP requests.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new webhook handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// Intake accepts a form or ad-platform submission. The token travels in
// the URL because most platforms can only be configured with a plain URL.
func (h *Handler) Intake(c *gin.Context) {
	var payload map[string]interface{}
	if err := c.ShouldBindJSON(&payload); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	resp, err := h.svc.Intake(c.Request.Context(), c.Param("token"), sourceDomain(c), payload)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.JSON(c, http.StatusCreated, resp)
}

// CreateToken mints a new intake token for the tenant.
func (h *Handler) CreateToken(c *gin.Context) {
	var req transport.CreateTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	tenantID, ok := httpkit.MustGetTenantID(c)
	if !ok {
		return
	}

	resp, err := h.svc.CreateToken(c.Request.Context(), tenantID, req.Label)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.JSON(c, http.StatusCreated, resp)
}

// ListTokens returns the tenant's intake tokens.
func (h *Handler) ListTokens(c *gin.Context) {
	tenantID, ok := httpkit.MustGetTenantID(c)
	if !ok {
		return
	}

	resp, err := h.svc.ListTokens(c.Request.Context(), tenantID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, resp)
}

// ReplayEvent schedules a background re-extraction of a stored event.
func (h *Handler) ReplayEvent(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid event id", nil)
		return
	}

	tenantID, ok := httpkit.MustGetTenantID(c)
	if !ok {
		return
	}

	if err := h.svc.RequestReplay(c.Request.Context(), tenantID, id); httpkit.HandleError(c, err) {
		return
	}

	c.Status(http.StatusAccepted)
}

// DeleteToken revokes an intake token.
func (h *Handler) DeleteToken(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	tenantID, ok := httpkit.MustGetTenantID(c)
	if !ok {
		return
	}

	if err := h.svc.DeleteToken(c.Request.Context(), tenantID, id); httpkit.HandleError(c, err) {
		return
	}

	c.Status(http.StatusNoContent)
}

func sourceDomain(c *gin.Context) string {
	for _, header := range []string{"Origin", "Referer"} {
		raw := c.GetHeader(header)
		if raw == "" {
			continue
		}
		if parsed, err := url.Parse(raw); err == nil && parsed.Host != "" {
			return parsed.Host
		}
	}
	return c.Query("source")
}
