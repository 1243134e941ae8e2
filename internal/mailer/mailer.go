// Package mailer sends account lifecycle emails. Deliveries run on their own
// goroutine and only log on failure; the triggering request never waits on
// SMTP.
package mailer

import (
	"fmt"

	mail "github.com/go-mail/mail/v2"
	"github.com/sirupsen/logrus"
)

type Mailer struct {
	dialer *mail.Dialer
	sender string
	logger *logrus.Logger
}

func New(host string, port int, username, password, sender string, logger *logrus.Logger) *Mailer {
	return &Mailer{
		dialer: mail.NewDialer(host, port, username, password),
		sender: sender,
		logger: logger,
	}
}

// SendWelcome greets a freshly registered user.
func (m *Mailer) SendWelcome(email, name string) {
	subject := "Thanks for joining in!"
	body := fmt.Sprintf("Welcome to the app, %s. Let me know how you get along with the app.", name)
	m.sendAsync(email, subject, body)
}

// SendGoodbye confirms account deletion.
func (m *Mailer) SendGoodbye(email, name string) {
	subject := "Sorry to see you go"
	body := fmt.Sprintf("Goodbye, %s. We hope to see you back sometime soon.", name)
	m.sendAsync(email, subject, body)
}

func (m *Mailer) sendAsync(to, subject, body string) {
	msg := mail.NewMessage()
	msg.SetHeader("From", m.sender)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	go func() {
		if err := m.dialer.DialAndSend(msg); err != nil {
			m.logger.Warnf("send mail to %s: %v", to, err)
		}
	}()
}

// Noop discards every notification. Used when SMTP is not configured and in
// tests.
type Noop struct{}

func (Noop) SendWelcome(email, name string) {}
func (Noop) SendGoodbye(email, name string) {}
