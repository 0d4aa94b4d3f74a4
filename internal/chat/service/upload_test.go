package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"medicrm_backend/internal/chat/repository"
	"medicrm_backend/internal/events"
	"medicrm_backend/internal/storage"
	"medicrm_backend/platform/apperr"
	"medicrm_backend/platform/logger"
)

// fakeStorage records uploads and can be told to fail or stall.
type fakeStorage struct {
	uploads    int
	failUpload bool
	blockUntil chan struct{}
}

func (f *fakeStorage) UploadFile(_ context.Context, _, folder, fileName, _ string, _ io.Reader, _ int64) (string, error) {
	if f.blockUntil != nil {
		<-f.blockUntil
	}
	f.uploads++
	if f.failUpload {
		return "", errors.New("upload failed")
	}
	return folder + "/" + fileName, nil
}

func (f *fakeStorage) PublicURL(bucket, fileKey string) string {
	return "https://media.example.com/" + bucket + "/" + fileKey
}

func (f *fakeStorage) GenerateDownloadURL(context.Context, string, string) (*storage.PresignedURL, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeStorage) DownloadFile(context.Context, string, string) (io.ReadCloser, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeStorage) DeleteObject(context.Context, string, string) error { return nil }

func (f *fakeStorage) EnsureBucketExists(context.Context, string) error { return nil }

func (f *fakeStorage) ValidateContentType(contentType string) error {
	if contentType == "application/x-blocked" {
		return apperr.Validation("content type not allowed")
	}
	return nil
}

func (f *fakeStorage) ValidateFileSize(size int64) error {
	if size > f.MaxFileSize() {
		return apperr.Validation("file too large")
	}
	return nil
}

func (f *fakeStorage) MaxFileSize() int64 { return 1 << 20 }

var _ storage.Service = (*fakeStorage)(nil)

// fakeChatRepo stores conversations and messages in memory.
type fakeChatRepo struct {
	conversations map[uuid.UUID]repository.Conversation
	messages      []repository.Message
	failCreate    bool
}

func newFakeChatRepo() *fakeChatRepo {
	return &fakeChatRepo{conversations: make(map[uuid.UUID]repository.Conversation)}
}

func (r *fakeChatRepo) addConversation(tenantID uuid.UUID) repository.Conversation {
	c := repository.Conversation{
		ID:       uuid.New(),
		TenantID: tenantID,
		LeadID:   uuid.New(),
		Channel:  "web",
	}
	r.conversations[c.ID] = c
	return c
}

func (r *fakeChatRepo) ListConversations(_ context.Context, _ uuid.UUID) ([]repository.Conversation, error) {
	return nil, nil
}

func (r *fakeChatRepo) GetConversation(_ context.Context, tenantID, id uuid.UUID) (repository.Conversation, error) {
	c, ok := r.conversations[id]
	if !ok || c.TenantID != tenantID {
		return repository.Conversation{}, apperr.NotFound("conversation not found")
	}
	return c, nil
}

func (r *fakeChatRepo) GetOrCreateConversation(_ context.Context, tenantID, leadID uuid.UUID, channel string) (repository.Conversation, error) {
	c := repository.Conversation{ID: uuid.New(), TenantID: tenantID, LeadID: leadID, Channel: channel}
	r.conversations[c.ID] = c
	return c, nil
}

func (r *fakeChatRepo) SetAIEnabled(_ context.Context, tenantID, id uuid.UUID, enabled bool) (repository.Conversation, error) {
	c, ok := r.conversations[id]
	if !ok || c.TenantID != tenantID {
		return repository.Conversation{}, apperr.NotFound("conversation not found")
	}
	c.AIEnabled = enabled
	r.conversations[id] = c
	return c, nil
}

func (r *fakeChatRepo) ListMessages(_ context.Context, _, _ uuid.UUID, _ int) ([]repository.Message, error) {
	return r.messages, nil
}

func (r *fakeChatRepo) CreateMessage(_ context.Context, params repository.CreateMessageParams) (repository.Message, error) {
	if r.failCreate {
		return repository.Message{}, errors.New("insert failed")
	}
	m := repository.Message{
		ID:             uuid.New(),
		ConversationID: params.ConversationID,
		TenantID:       params.TenantID,
		Type:           params.Type,
		Content:        params.Content,
		AttachmentURL:  params.AttachmentURL,
		Direction:      params.Direction,
		CapturedAt:     params.CapturedAt,
	}
	r.messages = append(r.messages, m)
	return m, nil
}

var _ repository.Repository = (*fakeChatRepo)(nil)

type recordingBus struct {
	mu     sync.Mutex
	events []events.Event
}

func (b *recordingBus) Publish(_ context.Context, e events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e)
}

func (b *recordingBus) PublishSync(ctx context.Context, e events.Event) error {
	b.Publish(ctx, e)
	return nil
}

func (b *recordingBus) Subscribe(string, events.Handler) {}

func (b *recordingBus) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events)
}

func newCoordinator() (*UploadCoordinator, *fakeChatRepo, *fakeStorage, *recordingBus) {
	repo := newFakeChatRepo()
	store := &fakeStorage{}
	bus := &recordingBus{}
	coord := NewUploadCoordinator(repo, store, "chat-media", bus, logger.New("test"))
	return coord, repo, store, bus
}

func uploadInput(conversationID, tenantID uuid.UUID) UploadInput {
	return UploadInput{
		ConversationID: conversationID,
		TenantID:       tenantID,
		FileName:       "exame.png",
		ContentType:    "image/png",
		Size:           4,
		Reader:         bytes.NewReader([]byte("data")),
	}
}

func TestUploadRequiresConversationAndTenant(t *testing.T) {
	coord, _, store, bus := newCoordinator()

	_, err := coord.UploadAndSend(context.Background(), UploadInput{
		TenantID: uuid.New(),
		Reader:   strings.NewReader("x"),
	})
	if apperr.GetKind(err) != apperr.KindValidation {
		t.Fatalf("expected validation error for missing conversation, got %v", err)
	}

	_, err = coord.UploadAndSend(context.Background(), UploadInput{
		ConversationID: uuid.New(),
		Reader:         strings.NewReader("x"),
	})
	if apperr.GetKind(err) != apperr.KindValidation {
		t.Fatalf("expected validation error for missing tenant, got %v", err)
	}

	if store.uploads != 0 {
		t.Fatalf("precondition failure must not reach storage, got %d uploads", store.uploads)
	}
	if coord.Uploading() {
		t.Fatal("busy state must stay untouched on precondition failure")
	}
	if bus.count() != 0 {
		t.Fatal("no event should be published")
	}
}

func TestUploadSuccessPersistsMessageAndPublishes(t *testing.T) {
	coord, repo, _, bus := newCoordinator()
	tenantID := uuid.New()
	conversation := repo.addConversation(tenantID)

	message, err := coord.UploadAndSend(context.Background(), uploadInput(conversation.ID, tenantID))
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}

	if message.Type != "image" {
		t.Fatalf("expected image type, got %s", message.Type)
	}
	if message.Content != "exame.png" {
		t.Fatalf("content should be the original filename, got %s", message.Content)
	}
	if message.AttachmentURL == nil || !strings.HasPrefix(*message.AttachmentURL, "https://media.example.com/chat-media/") {
		t.Fatalf("unexpected attachment url: %v", message.AttachmentURL)
	}
	if bus.count() != 1 {
		t.Fatalf("expected one MessageSent event, got %d", bus.count())
	}
	if coord.Uploading() {
		t.Fatal("busy state should reset after completion")
	}
}

func TestUploadClassifiesKindByContentType(t *testing.T) {
	coord, repo, _, _ := newCoordinator()
	tenantID := uuid.New()
	conversation := repo.addConversation(tenantID)

	cases := []struct {
		contentType string
		want        string
	}{
		{"image/png", "image"},
		{"audio/ogg", "audio"},
		{"application/pdf", "file"},
		{"video/mp4", "file"},
	}
	for _, tc := range cases {
		input := uploadInput(conversation.ID, tenantID)
		input.ContentType = tc.contentType
		message, err := coord.UploadAndSend(context.Background(), input)
		if err != nil {
			t.Fatalf("%s: upload failed: %v", tc.contentType, err)
		}
		if message.Type != tc.want {
			t.Fatalf("%s: got kind %s, want %s", tc.contentType, message.Type, tc.want)
		}
	}
}

func TestUploadFailureEmitsNoEvent(t *testing.T) {
	coord, repo, store, bus := newCoordinator()
	tenantID := uuid.New()
	conversation := repo.addConversation(tenantID)
	store.failUpload = true

	_, err := coord.UploadAndSend(context.Background(), uploadInput(conversation.ID, tenantID))
	if err == nil {
		t.Fatal("expected upload error")
	}
	if len(repo.messages) != 0 {
		t.Fatal("no message should be persisted on upload failure")
	}
	if bus.count() != 0 {
		t.Fatal("no event should be published on upload failure")
	}
	if coord.Uploading() {
		t.Fatal("busy state should reset after failure")
	}
}

func TestUploadPersistFailureEmitsNoEvent(t *testing.T) {
	coord, repo, _, bus := newCoordinator()
	tenantID := uuid.New()
	conversation := repo.addConversation(tenantID)
	repo.failCreate = true

	_, err := coord.UploadAndSend(context.Background(), uploadInput(conversation.ID, tenantID))
	if err == nil {
		t.Fatal("expected persist error")
	}
	if bus.count() != 0 {
		t.Fatal("no event should be published on persist failure")
	}
}

func TestUploadRejectsConcurrent(t *testing.T) {
	coord, repo, store, _ := newCoordinator()
	tenantID := uuid.New()
	conversation := repo.addConversation(tenantID)

	store.blockUntil = make(chan struct{})
	done := make(chan error, 1)
	go func() {
		_, err := coord.UploadAndSend(context.Background(), uploadInput(conversation.ID, tenantID))
		done <- err
	}()

	// Wait for the first upload to take the lock.
	deadline := time.Now().Add(time.Second)
	for !coord.Uploading() {
		if time.Now().After(deadline) {
			t.Fatal("first upload never started")
		}
		time.Sleep(time.Millisecond)
	}

	_, err := coord.UploadAndSend(context.Background(), uploadInput(conversation.ID, tenantID))
	if apperr.GetKind(err) != apperr.KindConflict {
		t.Fatalf("expected conflict for concurrent upload, got %v", err)
	}

	close(store.blockUntil)
	if err := <-done; err != nil {
		t.Fatalf("first upload should succeed, got %v", err)
	}
}

func TestUploadRejectsDisallowedContentType(t *testing.T) {
	coord, repo, store, _ := newCoordinator()
	tenantID := uuid.New()
	conversation := repo.addConversation(tenantID)

	input := uploadInput(conversation.ID, tenantID)
	input.ContentType = "application/x-blocked"
	_, err := coord.UploadAndSend(context.Background(), input)
	if apperr.GetKind(err) != apperr.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if store.uploads != 0 {
		t.Fatal("blocked content type must not reach storage")
	}
}
