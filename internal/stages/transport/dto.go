package transport

import (
	"time"

	"github.com/google/uuid"
)

type CreateStageRequest struct {
	Name  string  `json:"name" binding:"required,min=1,max=100"`
	Color *string `json:"color" binding:"omitempty,hexcolor"`
}

type UpdateStageRequest struct {
	Name  *string `json:"name" binding:"omitempty,min=1,max=100"`
	Color *string `json:"color" binding:"omitempty,hexcolor"`
}

type ReorderRequest struct {
	SourceIndex      int `json:"sourceIndex" binding:"min=0"`
	DestinationIndex int `json:"destinationIndex" binding:"min=0"`
}

type StageResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Color     *string   `json:"color,omitempty"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type StageListResponse struct {
	Stages []StageResponse `json:"stages"`
	Total  int             `json:"total"`
}
