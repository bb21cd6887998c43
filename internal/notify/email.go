package notify

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"
)

type EmailOptions struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       []string
}

// Mailer sends source health alerts as plain text email.
type Mailer struct {
	opts   EmailOptions
	logger *logrus.Logger
	send   func(mail *email.Email, addr string, auth smtp.Auth) error
}

func NewMailer(opts EmailOptions, logger *logrus.Logger) *Mailer {
	return &Mailer{
		opts:   opts,
		logger: logger,
		send: func(mail *email.Email, addr string, auth smtp.Auth) error {
			return mail.Send(addr, auth)
		},
	}
}

func (m *Mailer) Send(subject, body string) error {
	mail := email.NewEmail()
	mail.From = fmt.Sprintf("railscout <%s>", m.opts.From)
	mail.To = m.opts.To
	mail.Subject = subject
	mail.Text = []byte(body)

	addr := fmt.Sprintf("%s:%d", m.opts.Host, m.opts.Port)
	var auth smtp.Auth
	if m.opts.Username != "" {
		auth = smtp.PlainAuth("", m.opts.Username, m.opts.Password, m.opts.Host)
	}

	err := m.send(mail, addr, auth)
	if err != nil && auth != nil && strings.Contains(err.Error(), "server doesn't support AUTH") {
		err = m.send(mail, addr, nil)
	}
	if err != nil {
		return fmt.Errorf("sending alert email: %w", err)
	}

	m.logger.WithFields(logrus.Fields{
		"subject": subject,
		"to":      strings.Join(m.opts.To, ","),
	}).Debug("alert email sent")
	return nil
}

func (m *Mailer) SendShapeChanged(source, route, detail string) error {
	return m.Send("[railscout] "+source+" needs updating",
		fmt.Sprintf("Source %s no longer matches its expected layout.\nRoute: %s\n%s", source, route, detail))
}

func (m *Mailer) SendSourceFailing(source, route, kind, detail string) error {
	return m.Send("[railscout] "+source+" failing",
		fmt.Sprintf("Source %s is failing (%s).\nRoute: %s\n%s", source, kind, route, detail))
}

func (m *Mailer) SendSourceRecovered(source, route string, journeys int) error {
	return m.Send("[railscout] "+source+" recovered",
		fmt.Sprintf("Source %s is answering again.\nRoute: %s, %d journeys", source, route, journeys))
}
