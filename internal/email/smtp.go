package email

import (
	"context"
	"fmt"
	"net"
	"time"

	gomail "github.com/wneessen/go-mail"
)

// SMTPSender implements Sender over a direct SMTP connection via go-mail.
type SMTPSender struct {
	host      string
	port      int
	username  string
	password  string
	fromName  string
	fromEmail string
}

// NewSMTPSender creates a new SMTPSender with the given SMTP credentials.
func NewSMTPSender(host string, port int, username, password, fromEmail, fromName string) *SMTPSender {
	return &SMTPSender{
		host:      host,
		port:      port,
		username:  username,
		password:  password,
		fromName:  fromName,
		fromEmail: fromEmail,
	}
}

func (s *SMTPSender) send(ctx context.Context, toEmail, subject, htmlContent string) error {
	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.fromName, s.fromEmail); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(toEmail); err != nil {
		return fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, htmlContent)

	client, err := gomail.NewClient(s.host,
		gomail.WithPort(s.port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.username),
		gomail.WithPassword(s.password),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15*time.Second),
		gomail.WithDialContextFunc(func(dctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(dctx, "tcp4", addr)
		}),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}

	return nil
}

func (s *SMTPSender) SendWelcomeEmail(ctx context.Context, toEmail, clinicName, loginURL string) error {
	content, err := renderEmailTemplate("welcome.html", welcomeEmailData{
		baseEmailData: baseEmailData{
			Title:    subjectWelcome,
			Heading:  "Bem-vindo ao MediCRM",
			CTALabel: "Acessar o painel",
			CTAURL:   loginURL,
		},
		ClinicName: clinicName,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subjectWelcome, content)
}

func (s *SMTPSender) SendReportReadyEmail(ctx context.Context, toEmail, period, reportURL string) error {
	subject := fmt.Sprintf(subjectReportReadyFmt, period)
	content, err := renderEmailTemplate("report_ready.html", reportReadyEmailData{
		baseEmailData: baseEmailData{
			Title:    subject,
			Heading:  "Seu relatório está pronto",
			CTALabel: "Ver relatório",
			CTAURL:   reportURL,
		},
		Period: period,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subject, content)
}

func (s *SMTPSender) SendSubscriptionActiveEmail(ctx context.Context, toEmail, planName string) error {
	subject := fmt.Sprintf(subjectSubscriptionActiveFmt, planName)
	content, err := renderEmailTemplate("subscription_active.html", subscriptionActiveEmailData{
		baseEmailData: baseEmailData{
			Title:   subject,
			Heading: "Assinatura ativada",
		},
		PlanName: planName,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subject, content)
}

func (s *SMTPSender) SendCustomEmail(ctx context.Context, toEmail, subject, htmlContent string) error {
	return s.send(ctx, toEmail, subject, htmlContent)
}
