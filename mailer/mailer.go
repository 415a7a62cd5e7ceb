// Package mailer sends transactional email, currently invoices.
package mailer

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/resend/resend-go/v2"
)

type Attachment struct {
	Filename string
	Content  []byte
}

type Message struct {
	To          string
	Subject     string
	HTML        string
	Attachments []Attachment
}

type Mailer interface {
	Send(ctx context.Context, m Message) error
}

// Resend delivers mail through the Resend API.
type Resend struct {
	From   string
	Client *resend.Client
}

func NewResend(apiKey, from string) *Resend {
	return &Resend{
		From:   from,
		Client: resend.NewCustomClient(&http.Client{Timeout: 15 * time.Second}, apiKey),
	}
}

func (r *Resend) Send(ctx context.Context, m Message) error {
	if m.To == "" {
		return errors.New("mailer: empty recipient")
	}
	req := &resend.SendEmailRequest{
		From:    r.From,
		To:      []string{m.To},
		Subject: m.Subject,
		Html:    m.HTML,
	}
	for _, a := range m.Attachments {
		req.Attachments = append(req.Attachments, &resend.Attachment{
			Filename: a.Filename,
			Content:  a.Content,
		})
	}

	sent, err := r.Client.Emails.SendWithContext(ctx, req)
	if err != nil {
		return errors.Wrap(err, "mailer: resend")
	}
	log.Printf("mailer: resend accepted %s for %s", sent.Id, m.To)
	return nil
}

// Log only records what would have been sent. Used when no API key is set.
type Log struct{}

func (Log) Send(_ context.Context, m Message) error {
	names := make([]string, 0, len(m.Attachments))
	for _, a := range m.Attachments {
		names = append(names, a.Filename)
	}
	log.Printf("mailer: to=%s subject=%q attachments=%v", m.To, m.Subject, names)
	return nil
}

// New picks Resend when an API key is configured, else Log.
func New(apiKey, from string) Mailer {
	if apiKey == "" {
		return Log{}
	}
	return NewResend(apiKey, from)
}
