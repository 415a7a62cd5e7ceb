// Package mq queues invoice emails so payment requests do not wait on the
// mail provider.
package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"hindustanbills/mailer"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const InvoiceChannel = "invoice-emails"

// InvoiceEmail asks the worker to mail a generated invoice.
type InvoiceEmail struct {
	OrderID     string  `json:"orderId"`
	To          string  `json:"to"`
	Name        string  `json:"name"`
	ShopName    string  `json:"shopName"`
	Total       float64 `json:"total"`
	InvoiceFile string  `json:"invoiceFile"`
}

type Publisher interface {
	Publish(ctx context.Context, ev InvoiceEmail) error
}

type Subscriber interface {
	// Subscribe delivers events until ctx is done.
	Subscribe(ctx context.Context) (<-chan InvoiceEmail, error)
}

// Redis publishes events on a pub/sub channel.
type Redis struct {
	conn    *redis.Client
	channel string
}

func NewRedis(conn *redis.Client) *Redis {
	return &Redis{conn: conn, channel: InvoiceChannel}
}

func (r *Redis) Publish(ctx context.Context, ev InvoiceEmail) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return errors.Wrap(err, "mq: marshal event")
	}
	if err := r.conn.Publish(ctx, r.channel, data).Err(); err != nil {
		return errors.Wrap(err, "mq: publish")
	}
	log.Printf("[Emit] invoice email for order %s published to '%s'", ev.OrderID, r.channel)
	return nil
}

func (r *Redis) Subscribe(ctx context.Context) (<-chan InvoiceEmail, error) {
	sub := r.conn.Subscribe(ctx, r.channel)
	// wait for the subscription so nothing published afterwards is missed
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, errors.Wrap(err, "mq: subscribe")
	}

	out := make(chan InvoiceEmail)
	go func() {
		defer close(out)
		defer sub.Close()
		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var ev InvoiceEmail
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					log.Printf("[InvoiceWorker] Failed to parse event: %v", err)
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// Local is an in-process queue for single-instance deployments.
type Local struct {
	ch chan InvoiceEmail
}

func NewLocal(buffer int) *Local {
	return &Local{ch: make(chan InvoiceEmail, buffer)}
}

func (l *Local) Publish(ctx context.Context, ev InvoiceEmail) error {
	select {
	case l.ch <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return errors.New("mq: local queue is full")
	}
}

func (l *Local) Subscribe(ctx context.Context) (<-chan InvoiceEmail, error) {
	out := make(chan InvoiceEmail)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-l.ch:
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// SendInvoiceEmail mails one invoice with its PDF attached.
func SendInvoiceEmail(ctx context.Context, m mailer.Mailer, dir string, ev InvoiceEmail) error {
	if ev.To == "" {
		return errors.Errorf("order %s has no recipient", ev.OrderID)
	}
	pdf, err := os.ReadFile(filepath.Join(dir, filepath.Base(ev.InvoiceFile)))
	if err != nil {
		return errors.Wrap(err, "read invoice")
	}

	shop := ev.ShopName
	if shop == "" {
		shop = "Hindustan Bills"
	}
	html := fmt.Sprintf(
		"<p>Hi %s,</p><p>Thank you for your purchase at %s. Your invoice for order <b>%s</b> (total Rs. %.2f) is attached.</p>",
		ev.Name, shop, ev.OrderID, ev.Total,
	)
	return m.Send(ctx, mailer.Message{
		To:          ev.To,
		Subject:     "Your invoice from " + shop,
		HTML:        html,
		Attachments: []mailer.Attachment{{Filename: filepath.Base(ev.InvoiceFile), Content: pdf}},
	})
}

// StartInvoiceWorker sends queued invoice emails until ctx is cancelled.
func StartInvoiceWorker(ctx context.Context, sub Subscriber, m mailer.Mailer, dir string) error {
	events, err := sub.Subscribe(ctx)
	if err != nil {
		return err
	}
	log.Println("[InvoiceWorker] Listening for invoice emails...")

	for ev := range events {
		sendCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		if err := SendInvoiceEmail(sendCtx, m, dir, ev); err != nil {
			log.Printf("[InvoiceWorker] order %s: %v", ev.OrderID, err)
		} else {
			log.Printf("[InvoiceWorker] invoice for order %s sent to %s", ev.OrderID, ev.To)
		}
		cancel()
	}
	log.Println("[InvoiceWorker] stopped")
	return nil
}
