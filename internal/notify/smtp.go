package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"
)

// SMTPMailer sends plain-text mail through an authenticated SMTP relay,
// upgrading to TLS with STARTTLS when the server offers it.
type SMTPMailer struct {
	host     string
	port     int
	user     string
	password string
	timeout  time.Duration
}

func NewSMTPMailer(host string, port int, user, password string) *SMTPMailer {
	return &SMTPMailer{
		host:     host,
		port:     port,
		user:     user,
		password: password,
		timeout:  15 * time.Second,
	}
}

// SendEmail delivers one message to one recipient
func (m *SMTPMailer) SendEmail(ctx context.Context, to string, msg Message) error {
	email, err := m.newMessage(to, msg)
	if err != nil {
		return err
	}

	client, err := mail.NewClient(m.host,
		mail.WithPort(m.port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(m.user),
		mail.WithPassword(m.password),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
		mail.WithTimeout(m.timeout),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, email); err != nil {
		return fmt.Errorf("smtp send to %s: %w", to, err)
	}
	return nil
}

func (m *SMTPMailer) newMessage(to string, msg Message) (*mail.Msg, error) {
	email := mail.NewMsg()
	if err := email.From(m.user); err != nil {
		return nil, fmt.Errorf("invalid sender %q: %w", m.user, err)
	}
	if err := email.To(to); err != nil {
		return nil, fmt.Errorf("invalid recipient %q: %w", to, err)
	}
	email.Subject(msg.Subject)
	email.SetDate()
	email.SetBodyString(mail.TypeTextPlain, msg.Body)
	return email, nil
}
