package transport

import (
	"time"

	"github.com/google/uuid"
)

type OpenConversationRequest struct {
	LeadID  uuid.UUID `json:"leadId" binding:"required"`
	Channel string    `json:"channel" binding:"omitempty,oneof=whatsapp web"`
}

type SendTextRequest struct {
	Content   string `json:"content" binding:"required,min=1,max=4000"`
	Direction string `json:"direction" binding:"omitempty,oneof=inbound outbound"`
}

type SetAIEnabledRequest struct {
	Enabled bool `json:"enabled"`
}

type ConversationResponse struct {
	ID        uuid.UUID `json:"id"`
	LeadID    uuid.UUID `json:"leadId"`
	Channel   string    `json:"channel"`
	AIEnabled bool      `json:"aiEnabled"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type ConversationListResponse struct {
	Conversations []ConversationResponse `json:"conversations"`
	Total         int                    `json:"total"`
}

type MessageResponse struct {
	ID             uuid.UUID  `json:"id"`
	ConversationID uuid.UUID  `json:"conversationId"`
	Type           string     `json:"type"`
	Content        string     `json:"content"`
	AttachmentURL  *string    `json:"attachmentUrl,omitempty"`
	Direction      string     `json:"direction"`
	CapturedAt     *time.Time `json:"capturedAt,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
}

type MessageListResponse struct {
	Messages []MessageResponse `json:"messages"`
	Total    int               `json:"total"`
}
