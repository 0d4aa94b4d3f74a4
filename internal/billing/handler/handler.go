package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"medicrm_backend/internal/billing/service"
	"medicrm_backend/internal/billing/transport"
	"medicrm_backend/platform/httpkit"
	"medicrm_backend/platform/validator"
)

// SignatureHeader carries the provider's HMAC-SHA256 hex signature.
const SignatureHeader = "X-Signature"

const maxWebhookBody = 64 * 1024

// Handler handles HTTP requests for billing.
type Handler struct {
	svc     *service.Service
	webhook *service.WebhookService
	val     *validator.Validator
}

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// New creates a new billing handler.
func New(svc *service.Service, webhook *service.WebhookService, val *validator.Validator) *Handler {
	return &Handler{svc: svc, webhook: webhook, val: val}
}

// ListPlans returns all purchasable plans.
// GET /api/v1/billing/plans
func (h *Handler) ListPlans(c *gin.Context) {
	result, err := h.svc.ListPlans(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Subscription returns the tenant's current subscription.
// GET /api/v1/billing/subscription
func (h *Handler) Subscription(c *gin.Context) {
	tenantID, ok := httpkit.MustGetTenantID(c)
	if !ok {
		return
	}

	result, err := h.svc.Subscription(c.Request.Context(), tenantID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Checkout starts a subscription on a plan. Admin only.
// POST /api/v1/admin/billing/checkout
func (h *Handler) Checkout(c *gin.Context) {
	var req transport.CheckoutRequest
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

	result, err := h.svc.Checkout(c.Request.Context(), tenantID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, result)
}

// Portal returns the opaque provider portal URL. Admin only.
// GET /api/v1/admin/billing/portal
func (h *Handler) Portal(c *gin.Context) {
	tenantID, ok := httpkit.MustGetTenantID(c)
	if !ok {
		return
	}

	result, err := h.svc.PortalURL(c.Request.Context(), tenantID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// PixQRCode streams a PNG QR code for the tenant's pending invoice.
// GET /api/v1/billing/pix-qrcode
func (h *Handler) PixQRCode(c *gin.Context) {
	tenantID, ok := httpkit.MustGetTenantID(c)
	if !ok {
		return
	}

	png, err := h.svc.PixQRCode(c.Request.Context(), tenantID)
	if httpkit.HandleError(c, err) {
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

// Webhook receives billing provider events. Public, signature gated.
// POST /api/v1/billing/webhook
func (h *Handler) Webhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	if err := h.webhook.VerifySignature(body, c.GetHeader(SignatureHeader)); httpkit.HandleError(c, err) {
		return
	}

	var event transport.WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	if err := h.webhook.Process(c.Request.Context(), event); httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"received": true})
}
