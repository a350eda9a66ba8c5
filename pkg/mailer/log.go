package mailer

import (
	"context"

	"github.com/sirupsen/logrus"
)

// Log only records that a message would have been sent. Used when
// MAIL_SEND_ENABLED=false. Bodies are never logged since they carry codes.
type Log struct {
	Logger logrus.FieldLogger
}

func NewLog(logger logrus.FieldLogger) *Log {
	return &Log{Logger: logger}
}

func (l *Log) Send(_ context.Context, msg Message) error {
	if err := msg.validate(); err != nil {
		return err
	}
	l.Logger.WithFields(logrus.Fields{
		"to":      msg.To,
		"subject": msg.Subject,
	}).Info("mail sending disabled, message dropped")
	return nil
}
