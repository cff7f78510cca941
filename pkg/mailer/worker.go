package mailer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"
)

// Sender delivers one rendered email.
type Sender interface {
	Send(ctx context.Context, to, subject, text, html string) error
}

// Outcome tells the consumer loop what to do with a delivery.
type Outcome int

const (
	Ack Outcome = iota
	Drop
	Requeue
)

// Worker turns queue messages into Mailgun sends.
type Worker struct {
	Sender  Sender
	Logger  *logrus.Logger
	Timeout time.Duration
}

// Handle decodes and sends one message body. Malformed messages and permanent
// provider rejections are dropped, other failures are requeued.
func (w *Worker) Handle(ctx context.Context, body []byte) Outcome {
	var job EmailJob
	if err := json.Unmarshal(body, &job); err != nil || !job.Valid() {
		if w.Logger != nil {
			w.Logger.WithError(err).Warn("dropping malformed email job")
		}
		return Drop
	}

	timeout := w.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	c, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := w.Sender.Send(c, job.To, job.Subject, job.Text, job.HTML); err != nil {
		if Permanent(err) {
			if w.Logger != nil {
				w.Logger.WithError(err).WithField("to", job.To).Error("email rejected, dropping")
			}
			return Drop
		}
		if w.Logger != nil {
			w.Logger.WithError(err).WithField("to", job.To).Warn("email send failed, requeueing")
		}
		return Requeue
	}
	return Ack
}
