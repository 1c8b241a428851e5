package events

import (
	"context"
	"time"

	"chatbot-billing-be/internal/entity"
	"chatbot-billing-be/internal/pkg/logger"
	pkgEvents "chatbot-billing-be/pkg/events"
)

// Bus is the transport the publisher writes to. *nats.Publisher satisfies it.
type Bus interface {
	Publish(ctx context.Context, event pkgEvents.Event) error
}

// Publisher abstracts event publishing for billing operations.
// Publishing is best effort: failures are logged, never returned.
type Publisher interface {
	PublishPaymentSucceeded(ctx context.Context, tx *entity.Transaction)
	PublishPaymentFailed(ctx context.Context, tx *entity.Transaction)
	PublishCreditsRenewed(ctx context.Context, credits *entity.UserCredits, report map[string]interface{})
	PublishCreditsToppedUp(ctx context.Context, credits *entity.UserCredits, transID uint)
}

type BusPublisher struct {
	bus    Bus
	logger logger.ILogger
}

func NewBusPublisher(bus Bus, logger logger.ILogger) *BusPublisher {
	return &BusPublisher{
		bus:    bus,
		logger: logger,
	}
}

func (p *BusPublisher) publish(ctx context.Context, eventType string, data map[string]interface{}) {
	if p == nil || p.bus == nil {
		return
	}

	evt := pkgEvents.BaseEvent{
		Type:       eventType,
		Data:       data,
		OccurredAt: time.Now(),
	}

	if err := p.bus.Publish(ctx, evt); err != nil {
		p.logger.Error("BILLING_EVENTS", "Failed to publish "+eventType+" event", map[string]interface{}{"error": err.Error()})
	}
}

func transactionData(tx *entity.Transaction) map[string]interface{} {
	return map[string]interface{}{
		"transaction_id":   tx.Id,
		"order_id":         tx.OrderId,
		"user_id":          tx.UserId,
		"provider":         tx.Provider,
		"transaction_type": tx.TransactionType,
		"amount":           tx.Amount.String(),
		"currency":         tx.Currency,
		"status":           tx.Status,
		"entity_type":      "transaction",
	}
}

func (p *BusPublisher) PublishPaymentSucceeded(ctx context.Context, tx *entity.Transaction) {
	p.publish(ctx, pkgEvents.PaymentSucceeded, transactionData(tx))
}

func (p *BusPublisher) PublishPaymentFailed(ctx context.Context, tx *entity.Transaction) {
	data := transactionData(tx)
	if tx.FailureReason != nil {
		data["failure_reason"] = *tx.FailureReason
	}
	p.publish(ctx, pkgEvents.PaymentFailed, data)
}

func (p *BusPublisher) PublishCreditsRenewed(ctx context.Context, credits *entity.UserCredits, report map[string]interface{}) {
	p.publish(ctx, pkgEvents.CreditsRenewed, map[string]interface{}{
		"user_credit_id":    credits.Id,
		"user_id":           credits.UserId,
		"plan_id":           credits.PlanId,
		"trans_id":          credits.TransId,
		"credits_purchased": credits.CreditsPurchased.String(),
		"expiry_date":       credits.ExpiryDate,
		"resync":            report,
		"entity_type":       "user_credits",
	})
}

func (p *BusPublisher) PublishCreditsToppedUp(ctx context.Context, credits *entity.UserCredits, transID uint) {
	p.publish(ctx, pkgEvents.CreditsToppedUp, map[string]interface{}{
		"user_credit_id":    credits.Id,
		"user_id":           credits.UserId,
		"trans_id":          transID,
		"credits_purchased": credits.CreditsPurchased.String(),
		"credit_balance":    credits.CreditBalance.String(),
		"entity_type":       "user_credits",
	})
}
