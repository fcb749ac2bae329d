// Package mailer sends registration lifecycle emails over SMTP.
// Delivery is fire-and-forget: callers log failures and never let
// them affect the triggering operation.
package mailer

import (
	"fmt"
	"net/smtp"

	"github.com/rs/zerolog"

	"github.com/iliyamo/event-registration/internal/domain"
)

// Mailer holds the SMTP endpoint and sender identity.
type Mailer struct {
	Addr string // host:port, e.g. "smtp.example.com:587"
	Host string // host only, for PLAIN auth
	From string
	Pass string
	log  zerolog.Logger
}

// New constructs a Mailer. An empty addr disables sending; Send then
// only logs the would-be delivery, which keeps local development
// working without an SMTP server.
func New(addr, host, from, pass string, log zerolog.Logger) *Mailer {
	return &Mailer{Addr: addr, Host: host, From: from, Pass: pass, log: log}
}

// Send delivers the email for one notification task.
func (m *Mailer) Send(n domain.Notification) error {
	subject, body := compose(n)
	if m.Addr == "" {
		m.log.Info().
			Str("to", n.Email).
			Str("kind", string(n.Kind)).
			Str("subject", subject).
			Msg("smtp disabled, skipping delivery")
		return nil
	}

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s",
		m.From, n.Email, subject, body)
	auth := smtp.PlainAuth("", m.From, m.Pass, m.Host)
	if err := smtp.SendMail(m.Addr, auth, m.From, []string{n.Email}, []byte(msg)); err != nil {
		m.log.Warn().Err(err).Str("to", n.Email).Msg("email delivery failed")
		return fmt.Errorf("send email: %w", err)
	}
	m.log.Info().Str("to", n.Email).Str("kind", string(n.Kind)).Msg("email sent")
	return nil
}

func compose(n domain.Notification) (subject, body string) {
	switch n.Kind {
	case domain.NotifyConfirmed:
		subject = fmt.Sprintf("Registration confirmed: %s", n.EventName)
		body = fmt.Sprintf("Your registration %s for %q is confirmed for %d seat(s). Your tickets are attached to your account.",
			n.RegistrationID, n.EventName, n.Quantity)
	case domain.NotifyWaitlisted:
		subject = fmt.Sprintf("You are on the waitlist: %s", n.EventName)
		body = fmt.Sprintf("Registration %s for %q is waitlisted for %d seat(s). We will email you if seats free up.",
			n.RegistrationID, n.EventName, n.Quantity)
	case domain.NotifyPromoted:
		subject = fmt.Sprintf("You got in: %s", n.EventName)
		body = fmt.Sprintf("Good news: registration %s for %q has been promoted from the waitlist and is now confirmed for %d seat(s).",
			n.RegistrationID, n.EventName, n.Quantity)
	case domain.NotifyCancelled:
		subject = fmt.Sprintf("Registration cancelled: %s", n.EventName)
		body = fmt.Sprintf("Registration %s for %q has been cancelled.", n.RegistrationID, n.EventName)
	default:
		subject = fmt.Sprintf("Update on your registration: %s", n.EventName)
		body = fmt.Sprintf("Registration %s for %q was updated.", n.RegistrationID, n.EventName)
	}
	return subject, body
}
