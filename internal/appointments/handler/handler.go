package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"medicrm_backend/internal/appointments/service"
	"medicrm_backend/internal/appointments/transport"
	"medicrm_backend/platform/httpkit"
	"medicrm_backend/platform/validator"
)

// Handler handles HTTP requests for appointments.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidID        = "invalid appointment id"
)

// New creates a new appointments handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// List returns the tenant's appointments in a time window.
// GET /api/v1/appointments
func (h *Handler) List(c *gin.Context) {
	var req transport.ListAppointmentsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	tenantID, ok := httpkit.MustGetTenantID(c)
	if !ok {
		return
	}

	result, err := h.svc.List(c.Request.Context(), tenantID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Get returns a single appointment.
// GET /api/v1/appointments/:id
func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}
	tenantID, ok := httpkit.MustGetTenantID(c)
	if !ok {
		return
	}

	result, err := h.svc.Get(c.Request.Context(), tenantID, id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Create schedules an appointment.
// POST /api/v1/appointments
func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateAppointmentRequest
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

	result, err := h.svc.Create(c.Request.Context(), tenantID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, result)
}

// Update edits an appointment.
// PUT /api/v1/appointments/:id
func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	var req transport.UpdateAppointmentRequest
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

	result, err := h.svc.Update(c.Request.Context(), tenantID, id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// SetStatus transitions an appointment's status.
// PUT /api/v1/appointments/:id/status
func (h *Handler) SetStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	var req transport.SetStatusRequest
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

	result, err := h.svc.SetStatus(c.Request.Context(), tenantID, id, req.Status)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Delete removes an appointment.
// DELETE /api/v1/appointments/:id
func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}
	tenantID, ok := httpkit.MustGetTenantID(c)
	if !ok {
		return
	}

	if err := h.svc.Delete(c.Request.Context(), tenantID, id); httpkit.HandleError(c, err) {
		return
	}
	c.Status(http.StatusNoContent)
}
