package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"medicrm_backend/internal/auth/service"
	"medicrm_backend/internal/auth/transport"
	"medicrm_backend/platform/httpkit"
	"medicrm_backend/platform/validator"
)

// Handler handles HTTP requests for authentication.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// New creates a new auth handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// SignIn authenticates a user and returns a token pair.
// POST /api/v1/auth/login
func (h *Handler) SignIn(c *gin.Context) {
	var req transport.SignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.SignIn(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Refresh rotates a refresh token and returns a fresh pair.
// POST /api/v1/auth/refresh
func (h *Handler) Refresh(c *gin.Context) {
	var req transport.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.Refresh(c.Request.Context(), req.RefreshToken)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// SignOut revokes every refresh token of the authenticated user.
// POST /api/v1/auth/logout
func (h *Handler) SignOut(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	if err := h.svc.SignOut(c.Request.Context(), id.UserID()); httpkit.HandleError(c, err) {
		return
	}
	c.Status(http.StatusNoContent)
}

// Me returns the authenticated user's profile.
// GET /api/v1/auth/me
func (h *Handler) Me(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	result, err := h.svc.Me(c.Request.Context(), id.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}
