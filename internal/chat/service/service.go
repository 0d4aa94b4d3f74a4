// Package service provides business logic for conversations and messages.
package service

import (
	"context"

	"github.com/google/uuid"

	"medicrm_backend/internal/chat/repository"
	"medicrm_backend/internal/chat/transport"
	"medicrm_backend/internal/events"
	"medicrm_backend/platform/apperr"
	"medicrm_backend/platform/logger"
	"medicrm_backend/platform/sanitize"
)

// Service provides conversation and message management.
type Service struct {
	repo     repository.Repository
	uploader *UploadCoordinator
	bus      events.Bus
	log      *logger.Logger
}

// New creates a new chat service.
func New(repo repository.Repository, uploader *UploadCoordinator, bus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, uploader: uploader, bus: bus, log: log}
}

// Uploader exposes the media upload coordinator.
func (s *Service) Uploader() *UploadCoordinator {
	return s.uploader
}

// UploadMedia runs the upload coordinator and maps the stored message.
func (s *Service) UploadMedia(ctx context.Context, input UploadInput) (transport.MessageResponse, error) {
	message, err := s.uploader.UploadAndSend(ctx, input)
	if err != nil {
		return transport.MessageResponse{}, err
	}
	return toMessageResponse(message), nil
}

// ListConversations returns the tenant's conversations, most recent first.
func (s *Service) ListConversations(ctx context.Context, tenantID uuid.UUID) (transport.ConversationListResponse, error) {
	conversations, err := s.repo.ListConversations(ctx, tenantID)
	if err != nil {
		return transport.ConversationListResponse{}, err
	}

	items := make([]transport.ConversationResponse, len(conversations))
	for i, c := range conversations {
		items[i] = toConversationResponse(c)
	}
	return transport.ConversationListResponse{Conversations: items, Total: len(items)}, nil
}

// OpenConversation returns the conversation for a lead on a channel,
// creating it on first contact.
func (s *Service) OpenConversation(ctx context.Context, tenantID uuid.UUID, req transport.OpenConversationRequest) (transport.ConversationResponse, error) {
	channel := req.Channel
	if channel == "" {
		channel = "web"
	}
	conversation, err := s.repo.GetOrCreateConversation(ctx, tenantID, req.LeadID, channel)
	if err != nil {
		return transport.ConversationResponse{}, err
	}
	return toConversationResponse(conversation), nil
}

// SetAIEnabled toggles the AI agent for one conversation.
func (s *Service) SetAIEnabled(ctx context.Context, tenantID, id uuid.UUID, enabled bool) (transport.ConversationResponse, error) {
	conversation, err := s.repo.SetAIEnabled(ctx, tenantID, id, enabled)
	if err != nil {
		return transport.ConversationResponse{}, err
	}
	s.log.Info("conversation ai toggled", "id", id, "tenantId", tenantID, "enabled", enabled)
	return toConversationResponse(conversation), nil
}

// ListMessages returns a conversation's recent messages.
func (s *Service) ListMessages(ctx context.Context, tenantID, conversationID uuid.UUID, limit int) (transport.MessageListResponse, error) {
	if _, err := s.repo.GetConversation(ctx, tenantID, conversationID); err != nil {
		return transport.MessageListResponse{}, err
	}
	messages, err := s.repo.ListMessages(ctx, tenantID, conversationID, limit)
	if err != nil {
		return transport.MessageListResponse{}, err
	}

	items := make([]transport.MessageResponse, len(messages))
	for i, m := range messages {
		items[i] = toMessageResponse(m)
	}
	return transport.MessageListResponse{Messages: items, Total: len(items)}, nil
}

// SendText persists a text message and publishes MessageSent.
func (s *Service) SendText(ctx context.Context, tenantID, conversationID uuid.UUID, req transport.SendTextRequest) (transport.MessageResponse, error) {
	content := sanitize.Text(req.Content)
	if content == "" {
		return transport.MessageResponse{}, apperr.Validation("message content is required")
	}

	conversation, err := s.repo.GetConversation(ctx, tenantID, conversationID)
	if err != nil {
		return transport.MessageResponse{}, err
	}

	direction := req.Direction
	if direction == "" {
		direction = "outbound"
	}

	message, err := s.repo.CreateMessage(ctx, repository.CreateMessageParams{
		ConversationID: conversationID,
		TenantID:       tenantID,
		Type:           "text",
		Content:        content,
		Direction:      direction,
	})
	if err != nil {
		return transport.MessageResponse{}, err
	}

	s.bus.Publish(ctx, events.MessageSent{
		BaseEvent:      events.NewBaseEvent(),
		MessageID:      message.ID,
		ConversationID: conversationID,
		TenantID:       tenantID,
		LeadID:         conversation.LeadID,
		Type:           "text",
		Content:        content,
		Channel:        conversation.Channel,
		Direction:      direction,
		AIEnabled:      conversation.AIEnabled,
	})
	return toMessageResponse(message), nil
}

func toConversationResponse(c repository.Conversation) transport.ConversationResponse {
	return transport.ConversationResponse{
		ID:        c.ID,
		LeadID:    c.LeadID,
		Channel:   c.Channel,
		AIEnabled: c.AIEnabled,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func toMessageResponse(m repository.Message) transport.MessageResponse {
	return transport.MessageResponse{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		Type:           m.Type,
		Content:        m.Content,
		AttachmentURL:  m.AttachmentURL,
		Direction:      m.Direction,
		CapturedAt:     m.CapturedAt,
		CreatedAt:      m.CreatedAt,
	}
}
