// Package repository provides Postgres persistence for conversations
// and messages.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"medicrm_backend/platform/apperr"
)

// Conversation ties a lead to a message thread on one channel.
type Conversation struct {
	ID        uuid.UUID `db:"id"`
	TenantID  uuid.UUID `db:"tenant_id"`
	LeadID    uuid.UUID `db:"lead_id"`
	Channel   string    `db:"channel"` // whatsapp, web
	AIEnabled bool      `db:"ai_enabled"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Message is one entry in a conversation. AttachmentURL is set iff the
// type is not text.
type Message struct {
	ID             uuid.UUID  `db:"id"`
	ConversationID uuid.UUID  `db:"conversation_id"`
	TenantID       uuid.UUID  `db:"tenant_id"`
	Type           string     `db:"type"` // text, image, audio, file
	Content        string     `db:"content"`
	AttachmentURL  *string    `db:"attachment_url"`
	Direction      string     `db:"direction"` // inbound, outbound
	CapturedAt     *time.Time `db:"captured_at"`
	CreatedAt      time.Time  `db:"created_at"`
}

// CreateMessageParams contains parameters for persisting a message.
type CreateMessageParams struct {
	ConversationID uuid.UUID
	TenantID       uuid.UUID
	Type           string
	Content        string
	AttachmentURL  *string
	Direction      string
	CapturedAt     *time.Time
}

// Repository combines all chat repository operations.
type Repository interface {
	ListConversations(ctx context.Context, tenantID uuid.UUID) ([]Conversation, error)
	GetConversation(ctx context.Context, tenantID, id uuid.UUID) (Conversation, error)
	GetOrCreateConversation(ctx context.Context, tenantID, leadID uuid.UUID, channel string) (Conversation, error)
	SetAIEnabled(ctx context.Context, tenantID, id uuid.UUID, enabled bool) (Conversation, error)
	ListMessages(ctx context.Context, tenantID, conversationID uuid.UUID, limit int) ([]Message, error)
	CreateMessage(ctx context.Context, params CreateMessageParams) (Message, error)
}

type postgresRepository struct {
	pool *pgxpool.Pool
}

// New creates a new Postgres chat repository.
func New(pool *pgxpool.Pool) Repository {
	return &postgresRepository{pool: pool}
}

const conversationColumns = `id, tenant_id, lead_id, channel, ai_enabled, created_at, updated_at`

func scanConversation(row pgx.Row) (Conversation, error) {
	var c Conversation
	err := row.Scan(&c.ID, &c.TenantID, &c.LeadID, &c.Channel, &c.AIEnabled, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Conversation{}, apperr.NotFound("conversation not found")
		}
		return Conversation{}, fmt.Errorf("scan conversation: %w", err)
	}
	return c, nil
}

func (r *postgresRepository) ListConversations(ctx context.Context, tenantID uuid.UUID) ([]Conversation, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+conversationColumns+`
		FROM conversations
		WHERE tenant_id = $1
		ORDER BY updated_at DESC`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	conversations := make([]Conversation, 0)
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		conversations = append(conversations, c)
	}
	return conversations, rows.Err()
}

func (r *postgresRepository) GetConversation(ctx context.Context, tenantID, id uuid.UUID) (Conversation, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+conversationColumns+`
		FROM conversations
		WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	return scanConversation(row)
}

func (r *postgresRepository) GetOrCreateConversation(ctx context.Context, tenantID, leadID uuid.UUID, channel string) (Conversation, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO conversations (tenant_id, lead_id, channel)
		VALUES ($1, $2, $3)
		ON CONFLICT (tenant_id, lead_id, channel)
		DO UPDATE SET updated_at = now()
		RETURNING `+conversationColumns, tenantID, leadID, channel)
	return scanConversation(row)
}

func (r *postgresRepository) SetAIEnabled(ctx context.Context, tenantID, id uuid.UUID, enabled bool) (Conversation, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE conversations
		SET ai_enabled = $3, updated_at = now()
		WHERE tenant_id = $1 AND id = $2
		RETURNING `+conversationColumns, tenantID, id, enabled)
	return scanConversation(row)
}

const messageColumns = `id, conversation_id, tenant_id, type, content, attachment_url, direction, captured_at, created_at`

func scanMessage(row pgx.Row) (Message, error) {
	var m Message
	err := row.Scan(&m.ID, &m.ConversationID, &m.TenantID, &m.Type, &m.Content,
		&m.AttachmentURL, &m.Direction, &m.CapturedAt, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Message{}, apperr.NotFound("message not found")
		}
		return Message{}, fmt.Errorf("scan message: %w", err)
	}
	return m, nil
}

func (r *postgresRepository) ListMessages(ctx context.Context, tenantID, conversationID uuid.UUID, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE tenant_id = $1 AND conversation_id = $2
		ORDER BY created_at DESC
		LIMIT $3`, tenantID, conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	messages := make([]Message, 0)
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func (r *postgresRepository) CreateMessage(ctx context.Context, params CreateMessageParams) (Message, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO messages (conversation_id, tenant_id, type, content, attachment_url, direction, captured_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+messageColumns,
		params.ConversationID, params.TenantID, params.Type, params.Content,
		params.AttachmentURL, params.Direction, params.CapturedAt)
	msg, err := scanMessage(row)
	if err != nil {
		return Message{}, err
	}

	// Bump the conversation so it sorts to the top of the inbox.
	if _, err := r.pool.Exec(ctx, `
		UPDATE conversations SET updated_at = now()
		WHERE tenant_id = $1 AND id = $2`, params.TenantID, params.ConversationID); err != nil {
		return Message{}, fmt.Errorf("touch conversation: %w", err)
	}
	return msg, nil
}

var _ Repository = (*postgresRepository)(nil)
