// Package smtp implements the Notifier port over Gmail SMTP.
package smtp

import (
	"context"
	"fmt"

	"github.com/wneessen/go-mail"

	"github.com/minidaoom/bundang-review-monitor/internal/domain/model"
	"github.com/minidaoom/bundang-review-monitor/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.Notifier = (*Mailer)(nil)

// Gmail submission endpoint. STARTTLS on 587 is mandatory.
const (
	gmailHost = "smtp.gmail.com"
	gmailPort = 587
)

// Mailer sends notifications through an SMTP account to a fixed recipient.
type Mailer struct {
	host      string
	port      int
	address   string
	password  string
	recipient string
}

// NewMailer creates a Mailer using Gmail's submission endpoint.
func NewMailer(address, password, recipient string) *Mailer {
	return &Mailer{
		host:      gmailHost,
		port:      gmailPort,
		address:   address,
		password:  password,
		recipient: recipient,
	}
}

// NewMailerWithHost creates a Mailer against an arbitrary SMTP host. This
// constructor is intended for testing against a local SMTP server.
func NewMailerWithHost(host string, port int, address, password, recipient string) *Mailer {
	return &Mailer{
		host:      host,
		port:      port,
		address:   address,
		password:  password,
		recipient: recipient,
	}
}

// Send delivers the notification. It dials, authenticates, sends, and closes
// within the bounds of ctx; there is no retry beyond what the transport does.
func (m *Mailer) Send(ctx context.Context, n model.Notification) error {
	msg := mail.NewMsg()
	if err := msg.From(m.address); err != nil {
		return fmt.Errorf("set sender %q: %w", m.address, err)
	}
	if err := msg.To(m.recipient); err != nil {
		return fmt.Errorf("set recipient %q: %w", m.recipient, err)
	}
	msg.Subject(n.Subject)
	msg.SetBodyString(mail.TypeTextPlain, n.Body)

	client, err := mail.NewClient(m.host,
		mail.WithPort(m.port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(m.address),
		mail.WithPassword(m.password),
		mail.WithTLSPolicy(mail.TLSMandatory),
	)
	if err != nil {
		return fmt.Errorf("create smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send mail to %s: %w", m.recipient, err)
	}

	return nil
}
