package mailer

import (
	"context"
	"fmt"
)

// JSONPublisher is satisfied by helpers.RabbitPublisher.
type JSONPublisher interface {
	PublishJSON(ctx context.Context, body any) error
}

// QueueSender hands rendered emails to the email worker through the queue.
// A nil error means the job was accepted by the broker, not that it was delivered.
type QueueSender struct {
	Pub JSONPublisher
}

func NewQueueSender(pub JSONPublisher) *QueueSender {
	return &QueueSender{Pub: pub}
}

func (q *QueueSender) Send(ctx context.Context, to, subject, text, html string) error {
	job := EmailJob{To: to, Subject: subject, Text: text, HTML: html}
	if err := q.Pub.PublishJSON(ctx, job); err != nil {
		return fmt.Errorf("enqueue email: %w", err)
	}
	return nil
}
