package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"chatbot-billing-be/internal/pkg/logger"
	"chatbot-billing-be/internal/pkg/mailer"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakyMailer struct {
	mu       sync.Mutex
	failures int
	calls    int
	sent     []mailer.PaymentFailedEmail
}

func (m *flakyMailer) SendPaymentFailedNotification(email mailer.PaymentFailedEmail) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.calls <= m.failures {
		return errors.New("smtp: connection refused")
	}
	m.sent = append(m.sent, email)
	return nil
}

func (m *flakyMailer) snapshot() (int, []mailer.PaymentFailedEmail) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls, append([]mailer.PaymentFailedEmail(nil), m.sent...)
}

func startQueue(t *testing.T, m *flakyMailer) *MailQueue {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	t.Cleanup(func() {
		cancel()
		_ = pubSub.Close()
	})

	worker := NewWorker(pubSub, m, logger.NewNopLogger()).WithBackOff(func() backoff.BackOff {
		return backoff.WithMaxRetries(backoff.NewConstantBackOff(time.Millisecond), 3)
	})
	require.NoError(t, worker.Start(ctx))

	return NewMailQueue(pubSub, logger.NewNopLogger())
}

func TestMailQueue_DeliversAfterRetries(t *testing.T) {
	m := &flakyMailer{failures: 2}
	queue := startQueue(t, m)

	email := mailer.PaymentFailedEmail{
		To:      []string{"owner@example.com", "ops@example.com"},
		OrderID: "order_1",
		Amount:  "3000",
	}
	require.NoError(t, queue.NotifyPaymentFailed(context.Background(), email))

	assert.Eventually(t, func() bool {
		_, sent := m.snapshot()
		return len(sent) == 1
	}, time.Second, 5*time.Millisecond)

	calls, sent := m.snapshot()
	assert.Equal(t, 3, calls)
	assert.Equal(t, email, sent[0])
}

func TestMailQueue_GivesUpAfterMaxRetries(t *testing.T) {
	m := &flakyMailer{failures: 100}
	queue := startQueue(t, m)

	require.NoError(t, queue.NotifyPaymentFailed(context.Background(), mailer.PaymentFailedEmail{
		To: []string{"owner@example.com"}, OrderID: "order_2",
	}))

	assert.Eventually(t, func() bool {
		calls, _ := m.snapshot()
		return calls == 4
	}, time.Second, 5*time.Millisecond)

	// the message was acked, so nothing is redelivered
	time.Sleep(20 * time.Millisecond)
	calls, sent := m.snapshot()
	assert.Equal(t, 4, calls)
	assert.Empty(t, sent)
}
