// Package email sends transactional mail for the clinic CRM. Domain
// modules never import this package directly; the notification layer
// reacts to events and picks the right template.
package email

import (
	"context"

	"medicrm_backend/platform/config"
)

// Sender delivers transactional emails.
type Sender interface {
	SendWelcomeEmail(ctx context.Context, toEmail, clinicName, loginURL string) error
	SendReportReadyEmail(ctx context.Context, toEmail, period, reportURL string) error
	SendSubscriptionActiveEmail(ctx context.Context, toEmail, planName string) error
	SendCustomEmail(ctx context.Context, toEmail, subject, htmlContent string) error
}

// NoopSender discards all mail. Used in development and when email is
// disabled in configuration.
type NoopSender struct{}

func (NoopSender) SendWelcomeEmail(ctx context.Context, toEmail, clinicName, loginURL string) error {
	return nil
}

func (NoopSender) SendReportReadyEmail(ctx context.Context, toEmail, period, reportURL string) error {
	return nil
}

func (NoopSender) SendSubscriptionActiveEmail(ctx context.Context, toEmail, planName string) error {
	return nil
}

func (NoopSender) SendCustomEmail(ctx context.Context, toEmail, subject, htmlContent string) error {
	return nil
}

// NewSenderFromConfig returns an SMTP sender when email is enabled and
// configured, falling back to the noop sender otherwise.
func NewSenderFromConfig(cfg config.EmailConfig) Sender {
	if !cfg.GetEmailEnabled() || cfg.GetSMTPHost() == "" {
		return NoopSender{}
	}
	return NewSMTPSender(
		cfg.GetSMTPHost(),
		cfg.GetSMTPPort(),
		cfg.GetSMTPUsername(),
		cfg.GetSMTPPassword(),
		cfg.GetEmailFromAddress(),
		cfg.GetEmailFromName(),
	)
}
