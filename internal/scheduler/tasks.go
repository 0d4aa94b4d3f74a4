// Package scheduler defines background task types and the asynq
// client/server wiring shared by the API and the worker.
package scheduler

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Task type names. The queue is shared between API (producer) and
// worker (consumer); both sides key off these.
const (
	TypeReportGenerate = "reports:generate"
	TypeWebhookReplay  = "webhook:replay"
)

// ReportGeneratePayload identifies the report to build.
type ReportGeneratePayload struct {
	ReportID uuid.UUID `json:"reportId"`
	TenantID uuid.UUID `json:"tenantId"`
}

// WebhookReplayPayload identifies a stored intake event to re-extract.
type WebhookReplayPayload struct {
	EventID  uuid.UUID `json:"eventId"`
	TenantID uuid.UUID `json:"tenantId"`
}

// NewReportGenerateTask builds the asynq task for report generation.
func NewReportGenerateTask(payload ReportGeneratePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal report task: %w", err)
	}
	return asynq.NewTask(TypeReportGenerate, data, asynq.MaxRetry(3)), nil
}

// NewWebhookReplayTask builds the asynq task for intake re-extraction.
func NewWebhookReplayTask(payload WebhookReplayPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal webhook replay task: %w", err)
	}
	return asynq.NewTask(TypeWebhookReplay, data, asynq.MaxRetry(5)), nil
}

// ParseReportGeneratePayload decodes a report generation task.
func ParseReportGeneratePayload(task *asynq.Task) (ReportGeneratePayload, error) {
	var payload ReportGeneratePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return ReportGeneratePayload{}, fmt.Errorf("parse report task: %w", err)
	}
	return payload, nil
}

// ParseWebhookReplayPayload decodes an intake replay task.
func ParseWebhookReplayPayload(task *asynq.Task) (WebhookReplayPayload, error) {
	var payload WebhookReplayPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return WebhookReplayPayload{}, fmt.Errorf("parse webhook replay task: %w", err)
	}
	return payload, nil
}
