package mailer

import (
	"context"

	"github.com/sirupsen/logrus"
)

// LogSender stands in for a real transport when MAIL_SEND_ENABLED=false.
// Bodies carry secrets (codes, reset links) and are never logged.
type LogSender struct {
	Logger *logrus.Logger
}

func (l LogSender) Send(_ context.Context, to, subject, _, _ string) error {
	if l.Logger != nil {
		l.Logger.WithFields(logrus.Fields{"to": to, "subject": subject}).Info("email sending disabled, message dropped")
	}
	return nil
}
