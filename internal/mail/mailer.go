// Package mail is the outbound mail collaborator. The auth handlers depend
// on the Mailer interface only; delivery failures are reported to the caller,
// which logs them without rolling back the state change the mail was meant
// to announce.
package mail

import (
	"log"

	gomail "gopkg.in/gomail.v2"
)

// Mailer sends a plain-text message to a single recipient.
type Mailer interface {
	Send(to, subject, body string) error
}

// SMTPMailer delivers through an SMTP relay.
type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
}

// NewSMTPMailer builds a mailer for the given relay coordinates.
func NewSMTPMailer(host string, port int, user, pass, from string) *SMTPMailer {
	return &SMTPMailer{dialer: gomail.NewDialer(host, port, user, pass), from: from}
}

// Send composes and delivers the message. Each call dials a fresh SMTP
// session; auth traffic is far too low to warrant connection reuse.
func (m *SMTPMailer) Send(to, subject, body string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)
	return m.dialer.DialAndSend(msg)
}

// LogMailer writes messages to the process log instead of delivering them.
// Used in dev when no SMTP relay is configured, so verification and reset
// links remain reachable from the console.
type LogMailer struct{}

func (LogMailer) Send(to, subject, body string) error {
	log.Printf("mail (not delivered): to=%s subject=%q body=%q", to, subject, body)
	return nil
}
