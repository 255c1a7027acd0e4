package mailer

import (
	"context"

	"github.com/mailgun/mailgun-go/v4"
	"go.uber.org/zap"
)

// Mailer delivers transactional mail (password resets).
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// MailgunMailer sends mail through the Mailgun HTTP API.
type MailgunMailer struct {
	client *mailgun.MailgunImpl
	sender string
}

// NewMailgun builds a Mailgun-backed mailer.
func NewMailgun(domain, apiKey, sender string) *MailgunMailer {
	return &MailgunMailer{
		client: mailgun.NewMailgun(domain, apiKey),
		sender: sender,
	}
}

// Send delivers a plain-text message.
func (m *MailgunMailer) Send(ctx context.Context, to, subject, body string) error {
	msg := m.client.NewMessage(m.sender, subject, body, to)
	_, _, err := m.client.Send(ctx, msg)
	return err
}

// LogMailer writes mail to the log instead of sending it. Used in development
// when no Mailgun credentials are configured.
type LogMailer struct {
	logger *zap.Logger
}

// NewLogMailer builds a logging mailer.
func NewLogMailer(logger *zap.Logger) *LogMailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogMailer{logger: logger}
}

// Send logs the message and reports success.
func (m *LogMailer) Send(_ context.Context, to, subject, body string) error {
	m.logger.Info("mail_not_sent",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.String("body", body),
	)
	return nil
}
