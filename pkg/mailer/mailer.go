// Package mailer delivers rendered emails through one of several transports.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Message is a fully rendered email. HTML is optional.
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Text    string `json:"text,omitempty"`
	HTML    string `json:"html,omitempty"`
}

// Sender delivers a message or reports why it could not.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

var ErrNoRecipient = errors.New("mailer: empty recipient")

func (m Message) validate() error {
	if strings.TrimSpace(m.To) == "" {
		return ErrNoRecipient
	}
	if m.Subject == "" {
		return fmt.Errorf("mailer: empty subject for %s", m.To)
	}
	return nil
}
