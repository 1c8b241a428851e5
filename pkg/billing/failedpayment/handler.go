// Package failedpayment opens a support ticket when a payment fails and tells
// the user (and optionally the admins) about it. Each failure is handled once.
package failedpayment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"chatbot-billing-be/internal/entity"
	ierr "chatbot-billing-be/internal/pkg/errors"
	"chatbot-billing-be/internal/pkg/logger"
	"chatbot-billing-be/internal/pkg/mailer"
	"chatbot-billing-be/internal/repository/unitofwork"
	"chatbot-billing-be/pkg/billing/notify"
	"chatbot-billing-be/pkg/settings"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

const logModule = "FAILED_PAYMENT"

type Input struct {
	TransactionID *uint
	OrderID       *string
	RawData       map[string]any
}

type Outcome string

const (
	OutcomeUnresolved    Outcome = "transaction_unresolved"
	OutcomeUserMissing   Outcome = "user_missing"
	OutcomeDuplicate     Outcome = "duplicate"
	OutcomeTicketCreated Outcome = "ticket_created"
)

type Result struct {
	Outcome    Outcome
	Ticket     *entity.SupportTicket
	Recipients []string
	// NotifyError is set when the email could not be queued. It never fails the call.
	NotifyError error
}

type Handler struct {
	settings      settings.Provider
	notifier      notify.Notifier
	threadBaseURL string
	logger        logger.ILogger
	newThreadID   func() string
	now           func() time.Time
}

func NewHandler(settings settings.Provider, notifier notify.Notifier, threadBaseURL string, log logger.ILogger) *Handler {
	return &Handler{
		settings:      settings,
		notifier:      notifier,
		threadBaseURL: strings.TrimRight(threadBaseURL, "/"),
		logger:        log,
		newThreadID:   func() string { return uuid.NewString() },
		now:           time.Now,
	}
}

// Subject is the ticket subject for a failed transaction. Tickets are unique
// per (subject, user).
func Subject(tx *entity.Transaction) string {
	ref := tx.ProviderTransactionRef()
	if ref == "" {
		ref = "N/A"
	}
	return fmt.Sprintf("%s: payment of user failed with transaction id %s", tx.OrderId, ref)
}

func (h *Handler) resolve(ctx context.Context, uow unitofwork.UnitOfWork, in Input) (*entity.Transaction, error) {
	repo := uow.TransactionRepository()
	if in.TransactionID != nil && *in.TransactionID != 0 {
		tx, err := repo.FindByID(ctx, *in.TransactionID)
		if err != nil || tx != nil {
			return tx, err
		}
	}
	if in.OrderID != nil && *in.OrderID != "" {
		return repo.FindByOrderID(ctx, *in.OrderID)
	}
	return nil, nil
}

// HandleFailedPayment records the failure and queues the notification. Missing
// transactions or users are logged and skipped. Only database failures while
// writing the ticket are returned; notification problems are reported in the
// result and logged.
func (h *Handler) HandleFailedPayment(ctx context.Context, uow unitofwork.UnitOfWork, in Input) (*Result, error) {
	var (
		res   = &Result{}
		tx    *entity.Transaction
		user  *entity.User
		email mailer.PaymentFailedEmail
	)

	err := unitofwork.WithinTransaction(ctx, uow, func() error {
		var err error
		if tx, err = h.resolve(ctx, uow, in); err != nil {
			return ierr.WithError(err).WithHint("Failed to load transaction").Mark(ierr.ErrDatabase)
		}
		if tx == nil {
			res.Outcome = OutcomeUnresolved
			return nil
		}

		if user, err = uow.UserRepository().FindByID(ctx, tx.UserId); err != nil {
			return ierr.WithError(err).WithHint("Failed to load user").Mark(ierr.ErrDatabase)
		}
		if user == nil {
			res.Outcome = OutcomeUserMissing
			return nil
		}

		subject := Subject(tx)
		support := uow.SupportRepository()
		existing, err := support.FindTicketBySubject(ctx, subject, user.Id)
		if err != nil {
			return ierr.WithError(err).WithHint("Failed to load support tickets").Mark(ierr.ErrDatabase)
		}
		if existing != nil {
			res.Outcome = OutcomeDuplicate
			res.Ticket = existing
			return nil
		}

		reason := failureReason(tx, in.RawData)
		ticket := &entity.SupportTicket{
			Subject:    subject,
			Message:    ticketMessage(tx, reason, h.now()),
			Status:     entity.TicketStatusOpen,
			UserId:     user.Id,
			ThreadLink: h.threadBaseURL + "/" + h.newThreadID(),
		}
		if err := support.CreateTicket(ctx, ticket); err != nil {
			return ierr.WithError(err).WithHint("Failed to create support ticket").Mark(ierr.ErrDatabase)
		}

		metadata := map[string]any{
			"transaction_id":          tx.Id,
			"order_id":                tx.OrderId,
			"provider":                tx.Provider,
			"provider_transaction_id": tx.ProviderTransactionRef(),
			"amount":                  tx.Amount.String(),
			"currency":                tx.Currency,
			"ticket_id":               ticket.Id,
		}
		if reason != "" {
			metadata["reason"] = reason
		}
		if len(in.RawData) > 0 {
			metadata["raw_data"] = in.RawData
		}
		if err := support.CreateActivityLog(ctx, &entity.ActivityLog{
			UserId:      user.Id,
			Action:      entity.ActivityPaymentFailed,
			Description: subject,
			Metadata:    metadata,
		}); err != nil {
			return ierr.WithError(err).WithHint("Failed to record activity").Mark(ierr.ErrDatabase)
		}

		res.Outcome = OutcomeTicketCreated
		res.Ticket = ticket
		email = mailer.PaymentFailedEmail{
			UserName:              user.FullName,
			UserEmail:             user.Email,
			OrderID:               tx.OrderId,
			ProviderTransactionID: tx.ProviderTransactionRef(),
			Amount:                tx.Amount.StringFixed(2),
			Currency:              tx.Currency,
			Reason:                reason,
			TicketSubject:         subject,
			ThreadLink:            ticket.ThreadLink,
		}
		return nil
	})
	if err != nil {
		h.logger.Error(logModule, "Failed to record failed payment", map[string]interface{}{
			"input": describe(in),
			"error": err.Error(),
		})
		return nil, err
	}

	switch res.Outcome {
	case OutcomeUnresolved:
		h.logger.Warn(logModule, "Failed payment could not be resolved to a transaction", map[string]interface{}{"input": describe(in)})
		return res, nil
	case OutcomeUserMissing:
		h.logger.Warn(logModule, "Failed payment belongs to an unknown user", map[string]interface{}{
			"transaction_id": tx.Id,
			"user_id":        tx.UserId,
		})
		return res, nil
	case OutcomeDuplicate:
		h.logger.Info(logModule, "Failed payment already has a ticket", map[string]interface{}{
			"transaction_id": tx.Id,
			"ticket_id":      res.Ticket.Id,
		})
		return res, nil
	}

	res.Recipients = h.recipients(ctx, user)
	email.To = res.Recipients
	if h.notifier != nil {
		if err := h.notifier.NotifyPaymentFailed(ctx, email); err != nil {
			res.NotifyError = err
			h.logger.Error(logModule, "Failed to queue failed payment email", map[string]interface{}{
				"transaction_id": tx.Id,
				"error":          err.Error(),
			})
		}
	}

	h.logger.Info(logModule, "Failed payment ticket created", map[string]interface{}{
		"transaction_id": tx.Id,
		"order_id":       tx.OrderId,
		"user_id":        user.Id,
		"ticket_id":      res.Ticket.Id,
		"recipients":     len(res.Recipients),
	})
	return res, nil
}

// recipients is the user plus the configured admins when push notifications
// are on. A settings failure falls back to the user alone.
func (h *Handler) recipients(ctx context.Context, user *entity.User) []string {
	to := []string{}
	if user.Email != "" {
		to = append(to, user.Email)
	}
	if h.settings == nil {
		return to
	}

	s, err := h.settings.NotificationSettings(ctx)
	if err != nil {
		h.logger.Warn(logModule, "Notification settings unavailable, notifying user only", map[string]interface{}{"error": err.Error()})
		return to
	}
	if s.TogglePushNotifications && len(s.PushNotificationAdminEmails) > 0 {
		to = append(to, s.PushNotificationAdminEmails...)
	}
	return lo.Uniq(to)
}

func failureReason(tx *entity.Transaction, raw map[string]any) string {
	if tx.FailureReason != nil && *tx.FailureReason != "" {
		return *tx.FailureReason
	}
	for _, key := range []string{"failure_reason", "error_description", "reason", "payment_message"} {
		if v, ok := raw[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

func ticketMessage(tx *entity.Transaction, reason string, reportedAt time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Payment for order %s failed.\n", tx.OrderId)
	fmt.Fprintf(&b, "Provider: %s\n", tx.Provider)
	fmt.Fprintf(&b, "Amount: %s %s\n", tx.Amount.StringFixed(2), tx.Currency)
	if ref := tx.ProviderTransactionRef(); ref != "" {
		fmt.Fprintf(&b, "Provider transaction: %s\n", ref)
	}
	if reason != "" {
		fmt.Fprintf(&b, "Reason: %s\n", reason)
	}
	fmt.Fprintf(&b, "Reported at: %s", reportedAt.UTC().Format(time.RFC3339))
	return b.String()
}

func describe(in Input) map[string]interface{} {
	return map[string]interface{}{
		"transaction_id": lo.FromPtr(in.TransactionID),
		"order_id":       lo.FromPtr(in.OrderID),
	}
}
