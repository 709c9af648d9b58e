// Package mail dispatches workflow emails over SMTP.
package mail

import (
	"context"
	"fmt"
	"log"

	gomail "github.com/wneessen/go-mail"
	"github.com/venturedesk/pipeline/internal/workflow"
)

// Config holds SMTP settings. When TestMode is set every message is
// redirected to TestRecipient; the engine records the intended
// recipient in the workflow log either way.
type Config struct {
	Host          string
	Port          int
	Username      string
	Password      string
	From          string
	TestMode      bool
	TestRecipient string
}

// SMTP sends mail through a single SMTP server. It implements
// workflow.Mailer.
type SMTP struct {
	client *gomail.Client
	cfg    Config
}

// NewSMTP builds an SMTP mailer from config.
func NewSMTP(cfg Config) (*SMTP, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("smtp host is required")
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("smtp from address is required")
	}
	if cfg.TestMode && cfg.TestRecipient == "" {
		return nil, fmt.Errorf("smtp test mode requires a test recipient")
	}

	opts := []gomail.Option{
		gomail.WithPort(cfg.Port),
		gomail.WithTLSPolicy(gomail.TLSOpportunistic),
	}
	if cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(cfg.Username),
			gomail.WithPassword(cfg.Password),
		)
	}

	client, err := gomail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create smtp client: %w", err)
	}

	return &SMTP{client: client, cfg: cfg}, nil
}

// Send delivers one message, honoring test mode redirection.
func (s *SMTP) Send(ctx context.Context, msg workflow.Email) (workflow.SendReceipt, error) {
	to := msg.To
	if s.cfg.TestMode {
		to = s.cfg.TestRecipient
	}
	receipt := workflow.SendReceipt{DeliveredTo: to, TestMode: s.cfg.TestMode}

	m := gomail.NewMsg()
	if err := m.From(s.cfg.From); err != nil {
		return receipt, fmt.Errorf("invalid from address: %w", err)
	}
	if err := m.To(to); err != nil {
		return receipt, fmt.Errorf("invalid recipient %q: %w", to, err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(gomail.TypeTextPlain, msg.Body)

	if err := s.client.DialAndSendWithContext(ctx, m); err != nil {
		return receipt, fmt.Errorf("smtp send failed: %w", err)
	}

	if s.cfg.TestMode {
		log.Printf("[mail] test mode: message for %s delivered to %s", msg.To, to)
	}
	return receipt, nil
}

// Disabled is a Mailer for deployments without SMTP configured: every
// send fails, which surfaces in workflow logs as an action error
// without breaking the triggering operation.
type Disabled struct{}

// Send always fails.
func (Disabled) Send(context.Context, workflow.Email) (workflow.SendReceipt, error) {
	return workflow.SendReceipt{}, fmt.Errorf("email delivery is not configured")
}
