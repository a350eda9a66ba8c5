package mailer

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"
)

// SMTP sends mail through a plain SMTP relay.
type SMTP struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

func NewSMTP(host string, port int, user, password, from string) *SMTP {
	return &SMTP{Host: host, Port: port, User: user, Password: password, From: from}
}

func (s *SMTP) Send(ctx context.Context, msg Message) error {
	if err := msg.validate(); err != nil {
		return err
	}
	if s.Host == "" || s.From == "" {
		return fmt.Errorf("smtp: not configured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.From)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	switch {
	case msg.Text != "" && msg.HTML != "":
		m.SetBody("text/plain", msg.Text)
		m.AddAlternative("text/html", msg.HTML)
	case msg.HTML != "":
		m.SetBody("text/html", msg.HTML)
	default:
		m.SetBody("text/plain", msg.Text)
	}

	d := gomail.NewDialer(s.Host, s.Port, s.User, s.Password)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}
