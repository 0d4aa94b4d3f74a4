package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"medicrm_backend/internal/chat/service"
	"medicrm_backend/internal/chat/transport"
	"medicrm_backend/platform/httpkit"
	"medicrm_backend/platform/validator"
)

// Handler handles HTTP requests for chat.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidID        = "invalid conversation id"
)

// New creates a new chat handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// ListConversations retrieves the tenant's conversations.
// GET /api/v1/chat/conversations
func (h *Handler) ListConversations(c *gin.Context) {
	tenantID, ok := httpkit.MustGetTenantID(c)
	if !ok {
		return
	}

	result, err := h.svc.ListConversations(c.Request.Context(), tenantID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// OpenConversation returns (or creates) the conversation for a lead.
// POST /api/v1/chat/conversations
func (h *Handler) OpenConversation(c *gin.Context) {
	var req transport.OpenConversationRequest
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

	result, err := h.svc.OpenConversation(c.Request.Context(), tenantID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// SetAIEnabled toggles the AI agent for a conversation.
// PUT /api/v1/chat/conversations/:id/ai
func (h *Handler) SetAIEnabled(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	var req transport.SetAIEnabledRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	tenantID, ok := httpkit.MustGetTenantID(c)
	if !ok {
		return
	}

	result, err := h.svc.SetAIEnabled(c.Request.Context(), tenantID, id, req.Enabled)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// ListMessages returns a conversation's recent messages.
// GET /api/v1/chat/conversations/:id/messages
func (h *Handler) ListMessages(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}
	tenantID, ok := httpkit.MustGetTenantID(c)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	result, err := h.svc.ListMessages(c.Request.Context(), tenantID, id, limit)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// SendText sends a text message.
// POST /api/v1/chat/conversations/:id/messages
func (h *Handler) SendText(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	var req transport.SendTextRequest
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

	result, err := h.svc.SendText(c.Request.Context(), tenantID, id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, result)
}

// UploadMedia uploads a file and sends it as a media message.
// POST /api/v1/chat/conversations/:id/media
func (h *Handler) UploadMedia(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}
	tenantID, ok := httpkit.MustGetTenantID(c)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "file is required", nil)
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "could not read file", nil)
		return
	}
	defer file.Close()

	aiEnabled := c.PostForm("aiEnabled") == "true"

	message, err := h.svc.UploadMedia(c.Request.Context(), service.UploadInput{
		ConversationID: id,
		TenantID:       tenantID,
		FileName:       fileHeader.Filename,
		ContentType:    fileHeader.Header.Get("Content-Type"),
		Size:           fileHeader.Size,
		Reader:         file,
		AIEnabled:      aiEnabled,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, message)
}
