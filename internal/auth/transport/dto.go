// Package transport defines request and response types for the auth
// HTTP API.
package transport

import (
	"time"

	"github.com/google/uuid"
)

// SignInRequest carries sign-in credentials.
type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// RefreshRequest carries a refresh token to rotate.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

// UserResponse is the public view of a user.
type UserResponse struct {
	ID        uuid.UUID `json:"id"`
	TenantID  uuid.UUID `json:"tenantId"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

// TokenPairResponse is returned on sign-in and refresh.
type TokenPairResponse struct {
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
	ExpiresIn    int64        `json:"expiresIn"`
	User         UserResponse `json:"user"`
}
