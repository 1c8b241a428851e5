package testutil

import (
	"context"
	"sync"

	"chatbot-billing-be/internal/pkg/mailer"
	pkgEvents "chatbot-billing-be/pkg/events"
)

// Notifier records queued emails.
type Notifier struct {
	mu     sync.Mutex
	Err    error
	emails []mailer.PaymentFailedEmail
}

func (n *Notifier) NotifyPaymentFailed(ctx context.Context, email mailer.PaymentFailedEmail) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.Err != nil {
		return n.Err
	}
	n.emails = append(n.emails, email)
	return nil
}

func (n *Notifier) Emails() []mailer.PaymentFailedEmail {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]mailer.PaymentFailedEmail(nil), n.emails...)
}

// Bus records published events.
type Bus struct {
	mu     sync.Mutex
	Err    error
	events []pkgEvents.Event
}

func (b *Bus) Publish(ctx context.Context, event pkgEvents.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.Err != nil {
		return b.Err
	}
	b.events = append(b.events, event)
	return nil
}

// Types lists the published event types in order.
func (b *Bus) Types() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.events))
	for _, e := range b.events {
		out = append(out, e.EventType())
	}
	return out
}

func (b *Bus) Events() []pkgEvents.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]pkgEvents.Event(nil), b.events...)
}
