// Package transport defines request and response types for the reports
// HTTP API.
package transport

import (
	"time"

	"github.com/google/uuid"
)

// CreateReportRequest queues a management report build.
type CreateReportRequest struct {
	Days int `json:"days" validate:"omitempty,min=1,max=365"`
}

// ReportResponse is the public view of a report.
type ReportResponse struct {
	ID        uuid.UUID `json:"id"`
	Period    string    `json:"period"`
	Status    string    `json:"status"`
	Content   *string   `json:"content,omitempty"`
	Error     *string   `json:"error,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ReportListResponse wraps the tenant's reports, newest first.
type ReportListResponse struct {
	Reports []ReportResponse `json:"reports"`
	Total   int              `json:"total"`
}
