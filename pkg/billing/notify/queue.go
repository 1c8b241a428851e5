// Package notify queues outbound billing emails and delivers them from a
// background worker, so webhook handling never waits on SMTP.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"chatbot-billing-be/internal/pkg/logger"
	"chatbot-billing-be/internal/pkg/mailer"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/cenkalti/backoff/v4"
)

const (
	TopicPaymentFailed = "mail.payment_failed"
	logModule          = "MAIL_QUEUE"
)

type Notifier interface {
	NotifyPaymentFailed(ctx context.Context, email mailer.PaymentFailedEmail) error
}

// MailQueue publishes emails onto the in-process queue.
type MailQueue struct {
	publisher message.Publisher
	logger    logger.ILogger
}

func NewMailQueue(publisher message.Publisher, log logger.ILogger) *MailQueue {
	return &MailQueue{publisher: publisher, logger: log}
}

func (q *MailQueue) NotifyPaymentFailed(ctx context.Context, email mailer.PaymentFailedEmail) error {
	payload, err := json.Marshal(email)
	if err != nil {
		return fmt.Errorf("encode payment failed email: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	msg.Metadata.Set("order_id", email.OrderID)

	if err := q.publisher.Publish(TopicPaymentFailed, msg); err != nil {
		return fmt.Errorf("enqueue payment failed email: %w", err)
	}

	q.logger.Debug(logModule, "Payment failed email queued", map[string]interface{}{
		"message_id": msg.UUID,
		"order_id":   email.OrderID,
		"recipients": len(email.To),
	})
	return nil
}

// Worker drains the queue and sends each email, retrying with exponential
// backoff. A message that still fails after the retries is dropped and logged.
type Worker struct {
	subscriber message.Subscriber
	mailer     mailer.IEmailService
	logger     logger.ILogger
	newBackOff func() backoff.BackOff
}

func NewWorker(subscriber message.Subscriber, mailer mailer.IEmailService, log logger.ILogger) *Worker {
	return &Worker{
		subscriber: subscriber,
		mailer:     mailer,
		logger:     log,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 2 * time.Second
			b.MaxInterval = time.Minute
			b.MaxElapsedTime = 10 * time.Minute
			return backoff.WithMaxRetries(b, 5)
		},
	}
}

// WithBackOff replaces the retry policy.
func (w *Worker) WithBackOff(newBackOff func() backoff.BackOff) *Worker {
	w.newBackOff = newBackOff
	return w
}

func (w *Worker) Start(ctx context.Context) error {
	messages, err := w.subscriber.Subscribe(ctx, TopicPaymentFailed)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			w.processMessage(ctx, msg)
		}
		w.logger.Info(logModule, "Mail worker stopped", nil)
	}()

	w.logger.Info(logModule, "Mail worker started", map[string]interface{}{"topic": TopicPaymentFailed})
	return nil
}

func (w *Worker) processMessage(ctx context.Context, msg *message.Message) {
	// Every message is acked: a retry loop already ran, and a nack would
	// redeliver immediately.
	defer msg.Ack()

	var email mailer.PaymentFailedEmail
	if err := json.Unmarshal(msg.Payload, &email); err != nil {
		w.logger.Error(logModule, "Dropping malformed mail message", map[string]interface{}{
			"message_id": msg.UUID,
			"error":      err.Error(),
		})
		return
	}

	attempt := 0
	send := func() error {
		attempt++
		return w.mailer.SendPaymentFailedNotification(email)
	}

	if err := backoff.Retry(send, backoff.WithContext(w.newBackOff(), ctx)); err != nil {
		w.logger.Error(logModule, "Payment failed email not delivered", map[string]interface{}{
			"message_id": msg.UUID,
			"order_id":   email.OrderID,
			"attempts":   attempt,
			"error":      err.Error(),
		})
		return
	}

	w.logger.Info(logModule, "Payment failed email delivered", map[string]interface{}{
		"message_id": msg.UUID,
		"order_id":   email.OrderID,
		"attempts":   attempt,
	})
}
