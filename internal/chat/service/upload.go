package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rwcarlsen/goexif/exif"

	"medicrm_backend/internal/chat/repository"
	"medicrm_backend/internal/events"
	"medicrm_backend/internal/storage"
	"medicrm_backend/platform/apperr"
	"medicrm_backend/platform/logger"
)

// UploadInput describes one media upload bound for a conversation.
type UploadInput struct {
	ConversationID uuid.UUID
	TenantID       uuid.UUID
	FileName       string
	ContentType    string
	Size           int64
	Reader         io.Reader
	Direction      string
	AIEnabled      bool
}

// UploadCoordinator runs the media upload flow: validate, push to
// object storage, classify, persist the message, publish the event.
// One upload at a time per coordinator instance; a concurrent call is
// rejected with Conflict.
type UploadCoordinator struct {
	repo    repository.Repository
	storage storage.Service
	bucket  string
	bus     events.Bus
	log     *logger.Logger

	mu sync.Mutex
	// uploading mirrors mu's held state for the Uploading() probe.
	uploading atomic.Bool
}

// NewUploadCoordinator creates the media upload coordinator.
func NewUploadCoordinator(repo repository.Repository, storageSvc storage.Service, bucket string, bus events.Bus, log *logger.Logger) *UploadCoordinator {
	return &UploadCoordinator{
		repo:    repo,
		storage: storageSvc,
		bucket:  bucket,
		bus:     bus,
		log:     log,
	}
}

// Uploading reports whether an upload is currently in flight.
func (c *UploadCoordinator) Uploading() bool {
	return c.uploading.Load()
}

// UploadAndSend validates the input, uploads the file and persists the
// resulting message. Precondition failures return Validation before any
// network call and leave the busy state untouched. On any failure after
// that, the error is surfaced and no message event is published.
func (c *UploadCoordinator) UploadAndSend(ctx context.Context, input UploadInput) (repository.Message, error) {
	if input.ConversationID == uuid.Nil {
		return repository.Message{}, apperr.Validation("conversation id is required")
	}
	if input.TenantID == uuid.Nil {
		return repository.Message{}, apperr.Validation("tenant id is required")
	}
	if input.Reader == nil {
		return repository.Message{}, apperr.Validation("file content is required")
	}

	if !c.mu.TryLock() {
		return repository.Message{}, apperr.Conflict("an upload is already in progress")
	}
	defer c.mu.Unlock()
	c.uploading.Store(true)
	defer c.uploading.Store(false)

	if err := c.storage.ValidateContentType(input.ContentType); err != nil {
		return repository.Message{}, err
	}
	if err := c.storage.ValidateFileSize(input.Size); err != nil {
		return repository.Message{}, err
	}

	conversation, err := c.repo.GetConversation(ctx, input.TenantID, input.ConversationID)
	if err != nil {
		return repository.Message{}, err
	}

	// Buffer the payload so EXIF extraction and the upload can both read it.
	data, err := io.ReadAll(io.LimitReader(input.Reader, c.storage.MaxFileSize()+1))
	if err != nil {
		return repository.Message{}, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > c.storage.MaxFileSize() {
		return repository.Message{}, apperr.Validation("file exceeds maximum size")
	}

	kind := classifyKind(input.ContentType)

	var capturedAt *time.Time
	if kind == "image" && isJPEG(input.ContentType) {
		capturedAt = extractCaptureTime(data)
	}

	folder := fmt.Sprintf("conversations/%s", input.ConversationID)
	fileKey, err := c.storage.UploadFile(ctx, c.bucket, folder, input.FileName, input.ContentType, bytes.NewReader(data), int64(len(data)))
	if err != nil {
		c.log.Error("media upload failed", "conversationId", input.ConversationID, "error", err)
		return repository.Message{}, fmt.Errorf("upload media: %w", err)
	}
	publicURL := c.storage.PublicURL(c.bucket, fileKey)

	direction := input.Direction
	if direction == "" {
		direction = "outbound"
	}

	message, err := c.repo.CreateMessage(ctx, repository.CreateMessageParams{
		ConversationID: input.ConversationID,
		TenantID:       input.TenantID,
		Type:           kind,
		Content:        input.FileName,
		AttachmentURL:  &publicURL,
		Direction:      direction,
		CapturedAt:     capturedAt,
	})
	if err != nil {
		return repository.Message{}, err
	}

	c.log.Info("media message sent",
		"messageId", message.ID,
		"conversationId", input.ConversationID,
		"type", kind,
	)
	c.bus.Publish(ctx, events.MessageSent{
		BaseEvent:      events.NewBaseEvent(),
		MessageID:      message.ID,
		ConversationID: input.ConversationID,
		TenantID:       input.TenantID,
		LeadID:         conversation.LeadID,
		Type:           kind,
		Content:        message.Content,
		AttachmentURL:  publicURL,
		Channel:        conversation.Channel,
		Direction:      direction,
		AIEnabled:      input.AIEnabled || conversation.AIEnabled,
	})

	return message, nil
}

// classifyKind maps a content type to the message type column.
func classifyKind(contentType string) string {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return "image"
	case strings.HasPrefix(contentType, "audio/"):
		return "audio"
	default:
		return "file"
	}
}

func isJPEG(contentType string) bool {
	return contentType == "image/jpeg" || contentType == "image/jpg"
}

// extractCaptureTime reads the EXIF DateTimeOriginal from a JPEG.
// Best effort: any decode failure returns nil.
func extractCaptureTime(data []byte) *time.Time {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return nil
	}
	taken, err := x.DateTime()
	if err != nil {
		return nil
	}
	return &taken
}
