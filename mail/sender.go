// Package mail delivers transactional email: reset-password codes,
// email verification codes, and two-factor codes. The engine only sees
// the Sender interface; delivery failures never fail the calling flow.
package mail

import (
	"fmt"

	gomail "github.com/go-mail/mail"
)

// Sender sends a single plain-text message.
type Sender interface {
	Send(to, subject, body string) error
}

// SMTPSender delivers mail over SMTP with STARTTLS negotiation left to
// the dialer.
type SMTPSender struct {
	Host string
	Port int
	From string
	User string
	Pass string
}

func NewSMTPSender(host string, port int, from, user, pass string) *SMTPSender {
	return &SMTPSender{
		Host: host,
		Port: port,
		From: from,
		User: user,
		Pass: pass,
	}
}

func (s *SMTPSender) Send(to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	d := gomail.NewDialer(s.Host, s.Port, s.User, s.Pass)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("smtp send to %s: %w", to, err)
	}
	return nil
}

// NopSender discards every message. Used in tests and in deployments
// that have not wired an SMTP server yet.
type NopSender struct{}

func (NopSender) Send(to, subject, body string) error { return nil }
