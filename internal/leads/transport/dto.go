package transport

import (
	"time"

	"github.com/google/uuid"
)

type CreateLeadRequest struct {
	Name              string     `json:"name" binding:"required,min=1,max=200"`
	Phone             *string    `json:"phone" binding:"omitempty,max=30"`
	Email             *string    `json:"email" binding:"omitempty,email"`
	StageID           *uuid.UUID `json:"stageId"`
	TagID             *uuid.UUID `json:"tagId"`
	ValueCents        int64      `json:"valueCents" binding:"omitempty,min=0"`
	ServiceOfInterest *string    `json:"serviceOfInterest" binding:"omitempty,max=200"`
	AdName            *string    `json:"adName" binding:"omitempty,max=200"`
	Source            *string    `json:"source" binding:"omitempty,max=100"`
	Notes             *string    `json:"notes"`
}

type UpdateLeadRequest struct {
	Name              *string    `json:"name" binding:"omitempty,min=1,max=200"`
	Phone             *string    `json:"phone" binding:"omitempty,max=30"`
	Email             *string    `json:"email" binding:"omitempty,email"`
	TagID             *uuid.UUID `json:"tagId"`
	ValueCents        *int64     `json:"valueCents" binding:"omitempty,min=0"`
	ServiceOfInterest *string    `json:"serviceOfInterest" binding:"omitempty,max=200"`
	Notes             *string    `json:"notes"`
}

type MoveLeadRequest struct {
	StageID uuid.UUID `json:"stageId" binding:"required"`
}

type ConvertLeadRequest struct {
	Converted bool `json:"converted"`
}

type ListLeadsRequest struct {
	StageID         *uuid.UUID `form:"stageId"`
	TagID           *uuid.UUID `form:"tagId"`
	IncludeArchived bool       `form:"includeArchived"`
	Limit           int        `form:"limit" binding:"omitempty,min=1,max=200"`
	Offset          int        `form:"offset" binding:"omitempty,min=0"`
}

type SearchLeadsRequest struct {
	Query string `form:"q" binding:"required,min=1,max=200"`
	Limit int    `form:"limit" binding:"omitempty,min=1,max=50"`
}

type LeadResponse struct {
	ID                uuid.UUID  `json:"id"`
	Name              string     `json:"name"`
	Phone             *string    `json:"phone,omitempty"`
	Email             *string    `json:"email,omitempty"`
	StageID           uuid.UUID  `json:"stageId"`
	TagID             *uuid.UUID `json:"tagId,omitempty"`
	ValueCents        int64      `json:"valueCents"`
	Converted         bool       `json:"converted"`
	ServiceOfInterest *string    `json:"serviceOfInterest,omitempty"`
	AdName            *string    `json:"adName,omitempty"`
	Source            *string    `json:"source,omitempty"`
	Notes             *string    `json:"notes,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
	Archived          bool       `json:"archived"`
}

type LeadListResponse struct {
	Leads []LeadResponse `json:"leads"`
	Total int            `json:"total"`
}

// KanbanColumn is one stage with its leads, for the board view.
type KanbanColumn struct {
	StageID   uuid.UUID      `json:"stageId"`
	StageName string         `json:"stageName"`
	Color     *string        `json:"color,omitempty"`
	Leads     []LeadResponse `json:"leads"`
}

type KanbanResponse struct {
	Columns []KanbanColumn `json:"columns"`
}
