package mailer

import (
	"context"
	"errors"
	"net/http"
	"time"

	mg "github.com/mailgun/mailgun-go/v4"
)

const sendTimeout = 10 * time.Second

// Mailgun delivers one message per call through the Mailgun HTTP API.
type Mailgun struct {
	Domain string
	Sender string

	client *mg.MailgunImpl
}

// NewMailgun targets the US region unless apiBase (e.g. mg.APIBaseEU) is given.
func NewMailgun(domain, apiKey, sender string, apiBase ...string) *Mailgun {
	client := mg.NewMailgun(domain, apiKey)
	if len(apiBase) > 0 && apiBase[0] != "" {
		client.SetAPIBase(apiBase[0])
	}
	return &Mailgun{Domain: domain, Sender: sender, client: client}
}

// Send delivers text with an optional HTML alternative.
func (m *Mailgun) Send(ctx context.Context, to, subject, text, html string) error {
	msg := m.client.NewMessage(m.Sender, subject, text, to)
	if html != "" {
		msg.SetHtml(html)
	}
	c, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	_, _, err := m.client.Send(c, msg)
	return err
}

// Permanent reports whether err is a Mailgun rejection that will fail the same way
// on retry: any 4xx except 429.
func Permanent(err error) bool {
	var ure *mg.UnexpectedResponseError
	if !errors.As(err, &ure) {
		return false
	}
	return ure.Actual >= 400 && ure.Actual < 500 && ure.Actual != http.StatusTooManyRequests
}
