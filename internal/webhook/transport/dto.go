package transport

import (
	"time"

	"github.com/google/uuid"
)

// CreateTokenRequest creates a new intake token.
type CreateTokenRequest struct {
	Label string `json:"label" binding:"required,min=1,max=100"`
}

// TokenCreatedResponse carries the raw token. It is shown exactly once.
type TokenCreatedResponse struct {
	ID    uuid.UUID `json:"id"`
	Label string    `json:"label"`
	Token string    `json:"token"`
}

// TokenResponse is an intake token without its secret.
type TokenResponse struct {
	ID        uuid.UUID `json:"id"`
	Label     string    `json:"label"`
	CreatedAt time.Time `json:"createdAt"`
}

// TokenListResponse wraps a tenant's intake tokens.
type TokenListResponse struct {
	Tokens []TokenResponse `json:"tokens"`
}

// IntakeResponse acknowledges a captured submission.
type IntakeResponse struct {
	EventID    uuid.UUID  `json:"eventId"`
	LeadID     *uuid.UUID `json:"leadId,omitempty"`
	Incomplete bool       `json:"incomplete"`
}
