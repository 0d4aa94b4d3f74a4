// Package transport defines request and response types for the tenants
// HTTP API.
package transport

import (
	"time"

	"github.com/google/uuid"
)

// RegisterRequest creates a clinic together with its first admin user.
type RegisterRequest struct {
	ClinicName    string  `json:"clinicName" validate:"required,min=2,max=120"`
	Phone         *string `json:"phone,omitempty" validate:"omitempty,max=32"`
	Document      *string `json:"document,omitempty" validate:"omitempty,max=32"`
	AdminName     string  `json:"adminName" validate:"required,min=2,max=120"`
	AdminEmail    string  `json:"adminEmail" validate:"required,email"`
	AdminPassword string  `json:"adminPassword" validate:"required,min=8,max=128"`
}

// UpdateProfileRequest edits the clinic profile.
type UpdateProfileRequest struct {
	Name     string  `json:"name" validate:"required,min=2,max=120"`
	Phone    *string `json:"phone,omitempty" validate:"omitempty,max=32"`
	Document *string `json:"document,omitempty" validate:"omitempty,max=32"`
}

// TenantResponse is the public view of a clinic.
type TenantResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Phone     *string   `json:"phone,omitempty"`
	Document  *string   `json:"document,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// RegisterResponse is returned after a successful registration.
type RegisterResponse struct {
	Tenant  TenantResponse `json:"tenant"`
	AdminID uuid.UUID      `json:"adminId"`
}
