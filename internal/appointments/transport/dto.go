// Package transport defines request and response types for the
// appointments HTTP API.
package transport

import (
	"time"

	"github.com/google/uuid"
)

// CreateAppointmentRequest schedules a consultation.
type CreateAppointmentRequest struct {
	LeadID     *uuid.UUID `json:"leadId,omitempty"`
	Title      string     `json:"title" validate:"required,min=2,max=160"`
	StartsAt   time.Time  `json:"startsAt" validate:"required"`
	EndsAt     *time.Time `json:"endsAt,omitempty"`
	Notes      *string    `json:"notes,omitempty" validate:"omitempty,max=2000"`
	ValueCents int64      `json:"valueCents" validate:"gte=0"`
}

// UpdateAppointmentRequest edits appointment fields. Omitted fields are
// left unchanged.
type UpdateAppointmentRequest struct {
	Title      *string    `json:"title,omitempty" validate:"omitempty,min=2,max=160"`
	StartsAt   *time.Time `json:"startsAt,omitempty"`
	EndsAt     *time.Time `json:"endsAt,omitempty"`
	Notes      *string    `json:"notes,omitempty" validate:"omitempty,max=2000"`
	ValueCents *int64     `json:"valueCents,omitempty" validate:"omitempty,gte=0"`
}

// SetStatusRequest transitions an appointment's status.
type SetStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=scheduled completed paid cancelled no_show"`
}

// ListAppointmentsRequest bounds the listing window.
type ListAppointmentsRequest struct {
	From *time.Time `form:"from"`
	To   *time.Time `form:"to"`
}

// AppointmentResponse is the public view of an appointment.
type AppointmentResponse struct {
	ID         uuid.UUID  `json:"id"`
	LeadID     *uuid.UUID `json:"leadId,omitempty"`
	Title      string     `json:"title"`
	Status     string     `json:"status"`
	StartsAt   time.Time  `json:"startsAt"`
	EndsAt     *time.Time `json:"endsAt,omitempty"`
	Notes      *string    `json:"notes,omitempty"`
	ValueCents int64      `json:"valueCents"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// AppointmentListResponse wraps a window of appointments.
type AppointmentListResponse struct {
	Appointments []AppointmentResponse `json:"appointments"`
	Total        int                   `json:"total"`
}
