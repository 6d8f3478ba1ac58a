package notify

import (
	"fmt"
	"net/smtp"
	"strings"
)

// Mailer delivers a plain-text message.
type Mailer interface {
	Send(to, subject, body string) error
}

// SMTPMailer sends mail through a relay with PLAIN auth over STARTTLS.
type SMTPMailer struct {
	Server   string
	Port     int
	Username string
	Password string
	From     string
}

// NewSMTPMailer creates a mailer. From defaults to the username.
func NewSMTPMailer(server string, port int, username, password, from string) *SMTPMailer {
	if from == "" {
		from = username
	}
	return &SMTPMailer{Server: server, Port: port, Username: username, Password: password, From: from}
}

// Send delivers one plain-text message.
func (m *SMTPMailer) Send(to, subject, body string) error {
	if m.Server == "" {
		return fmt.Errorf("smtp: relay not configured")
	}
	addr := fmt.Sprintf("%s:%d", m.Server, m.Port)
	auth := smtp.PlainAuth("", m.Username, m.Password, m.Server)

	msg := strings.Join([]string{
		"From: " + m.From,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		`Content-Type: text/plain; charset="UTF-8"`,
		"",
		body,
	}, "\r\n")

	if err := smtp.SendMail(addr, auth, m.From, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("smtp: send to %s failed: %w", to, err)
	}
	return nil
}
