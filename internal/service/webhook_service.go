package service

import (
	"context"
	"net/http"
	"time"

	"chatbot-billing-be/internal/entity"
	ierr "chatbot-billing-be/internal/pkg/errors"
	"chatbot-billing-be/internal/pkg/logger"
	"chatbot-billing-be/internal/repository/unitofwork"
	"chatbot-billing-be/pkg/billing/credit"
	"chatbot-billing-be/pkg/billing/events"
	"chatbot-billing-be/pkg/billing/failedpayment"
	"chatbot-billing-be/pkg/billing/ledger"
	"chatbot-billing-be/pkg/billing/usage"
	"chatbot-billing-be/pkg/database"
	"chatbot-billing-be/pkg/gateway"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const webhookModule = "WEBHOOK"

type WebhookAction string

const (
	WebhookProcessed  WebhookAction = "processed"
	WebhookIgnored    WebhookAction = "ignored"
	WebhookDuplicate  WebhookAction = "duplicate"
	WebhookRegression WebhookAction = "status_ignored"
)

type WebhookOutcome struct {
	Provider      entity.PaymentProvider
	EventID       string
	Action        WebhookAction
	Transaction   *entity.Transaction
	Credits       *entity.UserCredits
	Resync        *usage.ResyncReport
	FailedPayment *failedpayment.Result
}

type IWebhookService interface {
	Process(ctx context.Context, provider entity.PaymentProvider, headers http.Header, body []byte) (*WebhookOutcome, error)
}

type webhookService struct {
	uowFactory    unitofwork.RepositoryFactory
	processors    map[entity.PaymentProvider]gateway.Processor
	ledger        *ledger.Ledger
	credits       *credit.Manager
	syncer        *usage.Syncer
	failedPayment *failedpayment.Handler
	publisher     events.Publisher
	logger        logger.ILogger
	now           func() time.Time
}

func NewWebhookService(
	uowFactory unitofwork.RepositoryFactory,
	processors []gateway.Processor,
	ledger *ledger.Ledger,
	credits *credit.Manager,
	syncer *usage.Syncer,
	failedPayment *failedpayment.Handler,
	publisher events.Publisher,
	logger logger.ILogger,
) IWebhookService {
	byProvider := make(map[entity.PaymentProvider]gateway.Processor, len(processors))
	for _, p := range processors {
		byProvider[p.Provider()] = p
	}
	return &webhookService{
		uowFactory:    uowFactory,
		processors:    byProvider,
		ledger:        ledger,
		credits:       credits,
		syncer:        syncer,
		failedPayment: failedPayment,
		publisher:     publisher,
		logger:        logger,
		now:           time.Now,
	}
}

// Process verifies, journals and applies one provider webhook. The returned
// error's class decides the HTTP status: signature and payload problems are
// 400, an unknown transaction is 404, anything else is 500 so the provider
// retries.
func (s *webhookService) Process(ctx context.Context, provider entity.PaymentProvider, headers http.Header, body []byte) (*WebhookOutcome, error) {
	ctx, span := otel.Tracer("billing").Start(ctx, "webhook.process")
	defer span.End()
	span.SetAttributes(attribute.String("payment.provider", string(provider)))

	outcome, err := s.process(ctx, provider, headers, body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(
		attribute.String("webhook.event_id", outcome.EventID),
		attribute.String("webhook.action", string(outcome.Action)),
	)
	return outcome, nil
}

func (s *webhookService) process(ctx context.Context, provider entity.PaymentProvider, headers http.Header, body []byte) (*WebhookOutcome, error) {
	processor, ok := s.processors[provider]
	if !ok {
		return nil, ierr.NewError("unsupported provider").
			WithHintf("Unsupported payment provider %q", provider).
			Mark(ierr.ErrValidation)
	}

	if err := processor.Verify(ctx, headers, body); err != nil {
		s.logger.Warn(webhookModule, "Webhook verification failed", logger.WithTrace(ctx, map[string]interface{}{
			"provider": provider,
			"error":    err.Error(),
		}))
		return nil, err
	}

	evt, err := processor.Parse(headers, body)
	if err != nil {
		s.logger.Warn(webhookModule, "Webhook payload rejected", map[string]interface{}{
			"provider": provider,
			"error":    err.Error(),
		})
		return nil, err
	}

	outcome := &WebhookOutcome{Provider: provider, EventID: evt.EventID}

	journalUow := s.uowFactory.NewUnitOfWork(ctx)
	journal, err := s.journal(ctx, journalUow, evt, body)
	if err != nil {
		return nil, err
	}
	if journal.Processed() {
		s.logger.Info(webhookModule, "Duplicate webhook acknowledged", map[string]interface{}{
			"provider": provider,
			"event_id": evt.EventID,
		})
		outcome.Action = WebhookDuplicate
		return outcome, nil
	}

	if !evt.Recognized {
		s.logger.Info(webhookModule, "Unrecognized webhook event acknowledged", map[string]interface{}{
			"provider":   provider,
			"event_id":   evt.EventID,
			"event_type": evt.EventType,
		})
		outcome.Action = WebhookIgnored
		s.finishJournal(ctx, journalUow, journal, nil)
		return outcome, nil
	}

	err = s.apply(ctx, evt, outcome)
	s.finishJournal(ctx, journalUow, journal, err)
	if err != nil {
		s.logger.Error(webhookModule, "Webhook processing failed", logger.WithTrace(ctx, map[string]interface{}{
			"provider": provider,
			"event_id": evt.EventID,
			"order_id": evt.OrderID,
			"error":    err.Error(),
		}))
		return nil, err
	}
	return outcome, nil
}

// journal records the delivery so that a redelivery after success is acknowledged without side effects.
func (s *webhookService) journal(ctx context.Context, uow unitofwork.UnitOfWork, evt *gateway.Event, body []byte) (*entity.PaymentWebhookEvent, error) {
	repo := uow.WebhookEventRepository()
	existing, err := repo.FindByProviderEventID(ctx, evt.Provider, evt.EventID)
	if err != nil {
		return nil, ierr.WithError(err).WithHint("Failed to load webhook journal").Mark(ierr.ErrDatabase)
	}
	if existing != nil {
		return existing, nil
	}

	eventID := evt.EventID
	record := &entity.PaymentWebhookEvent{
		Provider:        evt.Provider,
		ProviderEventId: &eventID,
		EventType:       evt.EventType,
		Payload:         body,
		SignatureValid:  true,
	}
	if err := repo.Create(ctx, record); err != nil {
		if !database.IsUniqueViolation(err) {
			return nil, ierr.WithError(err).WithHint("Failed to record webhook").Mark(ierr.ErrDatabase)
		}
		// A concurrent delivery of the same event won the insert.
		existing, err = repo.FindByProviderEventID(ctx, evt.Provider, evt.EventID)
		if err != nil {
			return nil, ierr.WithError(err).WithHint("Failed to load webhook journal").Mark(ierr.ErrDatabase)
		}
		if existing == nil {
			return nil, ierr.NewError("webhook journal row vanished after unique violation").
				WithHint("Failed to load webhook journal").
				Mark(ierr.ErrDatabase)
		}
		return existing, nil
	}
	return record, nil
}

func (s *webhookService) finishJournal(ctx context.Context, uow unitofwork.UnitOfWork, record *entity.PaymentWebhookEvent, procErr error) {
	if procErr != nil {
		msg := procErr.Error()
		record.ProcessingError = &msg
	} else {
		now := s.now()
		record.ProcessedAt = &now
		record.ProcessingError = nil
	}
	if err := uow.WebhookEventRepository().Update(ctx, record); err != nil {
		s.logger.Error(webhookModule, "Failed to update webhook journal", map[string]interface{}{
			"journal_id": record.Id,
			"error":      err.Error(),
		})
	}
}

func updateParams(evt *gateway.Event) ledger.UpdateTransactionParams {
	status := evt.Status
	p := ledger.UpdateTransactionParams{
		OrderID:               optional(evt.OrderID),
		ProviderPaymentID:     optional(evt.ProviderPaymentID),
		ProviderTransactionID: optional(evt.ProviderTransactionID),
		Provider:              evt.Provider,
		Status:                &status,
		FailureReason:         optional(evt.FailureReason),
	}
	// Refund notifications carry the refunded amount, not the order amount.
	if evt.Status != entity.TransactionStatusRefunded && evt.Amount != nil && evt.Amount.IsPositive() {
		p.Amount = evt.Amount
		p.Currency = optional(evt.Currency)
	}
	return p
}

// apply runs the ledger update and any credit flow in one transaction, then
// handles the failed-payment ticket and domain events once it has committed.
// Credit flows run only on the delivery that moves the transaction into
// success; a failed flow rolls the status back, so the retry transitions again.
// The failed-payment handler dedupes on its ticket and runs on every failure.
func (s *webhookService) apply(ctx context.Context, evt *gateway.Event, outcome *WebhookOutcome) error {
	var updated *ledger.UpdateResult

	uow := s.uowFactory.NewUnitOfWork(ctx)
	err := unitofwork.WithinTransaction(ctx, uow, func() error {
		var err error
		updated, err = s.ledger.UpdateTransaction(ctx, uow, updateParams(evt))
		if err != nil {
			return err
		}
		tx := updated.Transaction

		if evt.TransactionType != "" && evt.TransactionType != tx.TransactionType {
			s.logger.Warn(webhookModule, "Webhook transaction type differs from ledger", map[string]interface{}{
				"order_id": tx.OrderId,
				"webhook":  evt.TransactionType,
				"ledger":   tx.TransactionType,
			})
		}

		if !updated.StatusChanged || tx.Status != entity.TransactionStatusSuccess {
			return nil
		}
		switch tx.TransactionType {
		case entity.TransactionTypePlan:
			return s.applyPlan(ctx, uow, tx, outcome)
		case entity.TransactionTypeTopup:
			return s.applyTopup(ctx, uow, tx, outcome)
		}
		return nil
	})
	if err != nil {
		return err
	}

	tx := updated.Transaction
	outcome.Transaction = tx
	outcome.Action = WebhookProcessed
	if updated.StatusIgnored {
		outcome.Action = WebhookRegression
	}

	if tx.Status == entity.TransactionStatusFailed && evt.Status == entity.TransactionStatusFailed {
		res, err := s.failedPayment.HandleFailedPayment(ctx, s.uowFactory.NewUnitOfWork(ctx), failedpayment.Input{
			TransactionID: &tx.Id,
			RawData:       evt.Raw,
		})
		if err != nil {
			return err
		}
		outcome.FailedPayment = res
	}

	if updated.StatusChanged {
		switch tx.Status {
		case entity.TransactionStatusSuccess:
			s.publisher.PublishPaymentSucceeded(ctx, tx)
		case entity.TransactionStatusFailed:
			s.publisher.PublishPaymentFailed(ctx, tx)
		}
		if outcome.Credits != nil {
			switch tx.TransactionType {
			case entity.TransactionTypePlan:
				s.publisher.PublishCreditsRenewed(ctx, outcome.Credits, outcome.Resync.Map())
			case entity.TransactionTypeTopup:
				s.publisher.PublishCreditsToppedUp(ctx, outcome.Credits, tx.Id)
			}
		}
	}

	s.logger.Info(webhookModule, "Webhook processed", logger.WithTrace(ctx, map[string]interface{}{
		"provider":       evt.Provider,
		"event_id":       evt.EventID,
		"transaction_id": tx.Id,
		"order_id":       tx.OrderId,
		"status":         tx.Status,
		"status_changed": updated.StatusChanged,
		"action":         outcome.Action,
	}))
	return nil
}

func (s *webhookService) applyPlan(ctx context.Context, uow unitofwork.UnitOfWork, tx *entity.Transaction, outcome *WebhookOutcome) error {
	credits, err := s.credits.CreateUserCreditEntry(ctx, uow, tx.Id)
	if err != nil {
		return err
	}
	report, err := s.syncer.CreateTokenUsage(ctx, uow, credits.Id, tx.Id)
	if err != nil {
		return err
	}
	outcome.Credits = credits
	outcome.Resync = report
	return nil
}

func (s *webhookService) applyTopup(ctx context.Context, uow unitofwork.UnitOfWork, tx *entity.Transaction, outcome *WebhookOutcome) error {
	credits, err := s.credits.ApplyTopup(ctx, uow, tx.Id)
	if err != nil {
		return err
	}
	report, err := s.syncer.SyncTokenLimitsAfterTopup(ctx, uow, credits.Id)
	if err != nil {
		return err
	}
	outcome.Credits = credits
	outcome.Resync = report
	return nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
